package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kubeschema/kubeschema/internal/api"
	"github.com/kubeschema/kubeschema/internal/catalog"
	"github.com/kubeschema/kubeschema/internal/config"
	"github.com/kubeschema/kubeschema/internal/httpclient"
	"github.com/kubeschema/kubeschema/internal/logger"
	"github.com/kubeschema/kubeschema/internal/resolver"
	"github.com/kubeschema/kubeschema/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the schema resolution API server",
	Long: `Start the schema resolution API server.

Without --config the built-in source registry is used (Kubernetes core,
CRDs-catalog, Flux and OpenShift). A configuration file replaces the registry
entirely and is watched for external updates while the server runs.

See examples/ directory for sample configurations.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time
	serverRequestTimeout   = 30 * time.Second // Resolution may probe several remote sources
	serverReadTimeout      = 10 * time.Second // Enough for headers and manifest bodies
	serverWriteTimeout     = 35 * time.Second // Must be > serverRequestTimeout to let middleware handle timeout
	serverIdleTimeout      = 60 * time.Second // Keep connections alive for reuse
)

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, optional)")

	err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address"))
	if err != nil {
		logger.Fatalf("Failed to bind address flag: %v", err)
	}
	err = viper.BindPFlag("config", serveCmd.Flags().Lookup("config"))
	if err != nil {
		logger.Fatalf("Failed to bind config flag: %v", err)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	address := viper.GetString("address")
	configPath := viper.GetString("config")

	logger.Infof("Starting schema resolution API server on %s", address)

	manager, err := config.NewManager(configPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = manager.Close()
	}()
	logger.Infof("Loaded source registry with %d sources", len(manager.GetConfig().Sources))

	// Watch the config file for external updates (e.g. ConfigMap rollouts).
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	go func() {
		if err := manager.Watch(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("Config watcher stopped: %v", err)
		}
	}()

	client := httpclient.NewDefaultClient(httpclient.DefaultTimeout)
	catalogs := catalog.NewCache(catalog.NewGitHubLister(client))

	// A config change may add or retarget catalog-backed sources, so drop
	// memoized listings whenever the registry changes.
	manager.OnReload(func(*config.Config) {
		catalogs.Invalidate()
	})

	res := resolver.New(manager, client, catalogs)
	svc := service.NewService(res, manager, catalogs, service.LogSink{})

	router := api.NewServer(svc,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(serverRequestTimeout),
			api.LoggingMiddleware,
		),
	)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		logger.Infof("Server listening on %s", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	watchCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}
