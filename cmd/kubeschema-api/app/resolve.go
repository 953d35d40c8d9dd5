package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kubeschema/kubeschema/internal/catalog"
	"github.com/kubeschema/kubeschema/internal/config"
	"github.com/kubeschema/kubeschema/internal/httpclient"
	"github.com/kubeschema/kubeschema/internal/resolver"
	"github.com/kubeschema/kubeschema/internal/service"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <manifest>...",
	Short: "Resolve schema URLs for manifest files",
	Long: `Resolve each document in the given manifest files to a validation
schema URL and print the outcome. Multi-document files are split and each
document is resolved independently.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().String("config", "", "Path to configuration file (YAML format, optional)")
	resolveCmd.Flags().String("output", "text", "Output format (text or json)")
}

// resolveOutcome is the printable outcome for one document.
type resolveOutcome struct {
	File       string `json:"file"`
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
	Matched    bool   `json:"matched"`
	URL        string `json:"url,omitempty"`
	Source     string `json:"source,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output != "text" && output != "json" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	manager, err := config.NewManager(configPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = manager.Close()
	}()

	client := httpclient.NewDefaultClient(httpclient.DefaultTimeout)
	catalogs := catalog.NewCache(catalog.NewGitHubLister(client))
	res := resolver.New(manager, client, catalogs)
	svc := service.NewService(res, manager, catalogs, service.NopSink{})

	ctx := context.Background()
	var outcomes []resolveOutcome
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		resolutions, err := svc.ResolveDocument(ctx, string(data))
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}

		for _, r := range resolutions {
			out := resolveOutcome{
				File:       path,
				APIVersion: r.Identity.APIVersion(),
				Kind:       r.Identity.Kind,
				Matched:    r.Matched(),
			}
			if r.Matched() {
				out.URL = r.Result.URL
				out.Source = r.Result.SourceName
			}
			outcomes = append(outcomes, out)
		}
	}

	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	}

	for _, out := range outcomes {
		if out.Matched {
			fmt.Printf("%s: %s %s -> %s (source %s)\n",
				out.File, out.APIVersion, out.Kind, out.URL, out.Source)
		} else {
			fmt.Printf("%s: %s %s -> no schema found\n",
				out.File, out.APIVersion, out.Kind)
		}
	}
	return nil
}
