// Package catalog lists remote schema catalogs and memoizes the listings so
// repeated resolutions do not re-issue expensive remote calls.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"

	"github.com/kubeschema/kubeschema/internal/config"
	"github.com/kubeschema/kubeschema/internal/httpclient"
)

// Lister retrieves the file listing of a remote catalog.
type Lister interface {
	// List returns the schema file paths known to the catalog, relative to
	// the repository root.
	List(ctx context.Context, ref config.CatalogRef) ([]string, error)
}

// schemaExtensions are the file extensions recognized as schema documents.
var schemaExtensions = []string{".json", ".yaml", ".yml"}

const listMaxTries = 3

// GitHubLister lists catalogs hosted on GitHub through the recursive
// git/trees API.
type GitHubLister struct {
	client httpclient.Client
}

// NewGitHubLister creates a lister backed by the given HTTP client.
func NewGitHubLister(client httpclient.Client) *GitHubLister {
	return &GitHubLister{client: client}
}

// List fetches the recursive tree listing for the catalog repository and
// filters it to schema files. Transient transport failures are retried with
// capped exponential backoff; a clean HTTP error status is not retried.
func (l *GitHubLister) List(ctx context.Context, ref config.CatalogRef) ([]string, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/git/trees/%s?recursive=1", ref.Repo, ref.Ref)

	operation := func() ([]byte, error) {
		body, err := l.client.Get(ctx, url)
		if err != nil {
			var httpErr *httpclient.HTTPError
			if errors.As(err, &httpErr) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return body, nil
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(listMaxTries),
		backoff.WithMaxElapsedTime(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog %s: %w", ref.Key(), err)
	}

	return parseTreeListing(body), nil
}

// parseTreeListing extracts blob paths with recognized schema extensions
// from a git/trees response.
func parseTreeListing(body []byte) []string {
	var paths []string
	gjson.GetBytes(body, "tree").ForEach(func(_, entry gjson.Result) bool {
		if entry.Get("type").String() != "blob" {
			return true
		}
		path := entry.Get("path").String()
		if isSchemaFile(path) {
			paths = append(paths, path)
		}
		return true
	})
	return paths
}

func isSchemaFile(path string) bool {
	for _, ext := range schemaExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
