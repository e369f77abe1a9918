package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rflorenc/shopify-metadata-migrator/internal/api"
	"github.com/rflorenc/shopify-metadata-migrator/internal/config"
	"github.com/rflorenc/shopify-metadata-migrator/internal/logging"
	"github.com/rflorenc/shopify-metadata-migrator/internal/migration"
	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
	"github.com/rflorenc/shopify-metadata-migrator/internal/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Parse(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if cfg.ShowVersion {
		fmt.Fprintf(stdout, "shopify-metadata-migrator %s (commit: %s, built: %s)\n", version, commit, date)
		return 0
	}

	level := cfg.LogLevel()
	logger := logging.New(level, zapcore.Lock(zapcore.AddSync(stderr)))
	defer logger.Sync()

	clientOpts := []platform.ClientOption{
		platform.WithLogger(logger),
		platform.WithTrace(level.TraceGraphQL()),
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, platform.WithTimeout(cfg.Timeout))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Serve {
		if err := serve(ctx, cfg, logger, level, clientOpts); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	src := platform.NewPlatform(cfg.Source(), clientOpts...)
	if cfg.DryRun {
		return dryRun(ctx, src, cfg.Options(), logger, stdout, stderr)
	}
	dst := platform.NewPlatform(cfg.Target(), clientOpts...)

	logger.Infof("Migrating from %s to %s (API %s)", cfg.Source().Handle(), cfg.Target().Handle(), cfg.APIVersion)
	summary := models.NewRunSummary()
	runErr := migration.Run(ctx, src, dst, cfg.Options(), summary, logger)

	// The summary is printed even when the run failed.
	if err := summary.Render(stdout, level == logging.Quiet); err != nil {
		fmt.Fprintf(stderr, "Error writing summary: %v\n", err)
		return 1
	}
	if runErr != nil {
		fmt.Fprintf(stderr, "An unhandled error occurred: %v\n", runErr)
		return 1
	}
	return 0
}

func dryRun(ctx context.Context, src platform.Platform, opts migration.Options, logger *zap.SugaredLogger, stdout, stderr io.Writer) int {
	preview, err := migration.Preview(ctx, src, opts, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := preview.Render(stdout); err != nil {
		fmt.Fprintf(stderr, "Error writing plan: %v\n", err)
		return 1
	}
	return 0
}

// serve runs the HTTP API until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, level logging.Level, clientOpts []platform.ClientOption) error {
	server := api.NewServer(logger, level, clientOpts...)

	// Load pre-configured stores from the config file and the command line
	var stores []*models.Store
	for _, sc := range cfg.Stores {
		stores = append(stores, &models.Store{
			Name:       sc.Name,
			Domain:     sc.Domain,
			Token:      sc.Token,
			APIVersion: sc.APIVersion,
		})
	}
	if cfg.SourceStore != "" && cfg.SourceToken != "" {
		stores = append(stores, cfg.Source())
	}
	if cfg.TargetStore != "" && cfg.TargetToken != "" {
		stores = append(stores, cfg.Target())
	}
	for _, store := range stores {
		server.Stores.Create(store)
		logger.Infow("Loaded store", "name", store.Name, "domain", store.Handle(), "apiVersion", store.APIVersion)

		// Verify connectivity and auth early
		platform.CheckAndStore(ctx, platform.NewPlatform(store, clientOpts...), store, server.Stores, logger)
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.NewRouter(server),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	logger.Infof("Shopify metadata migrator %s starting on %s", version, cfg.Listen)

	select {
	case err := <-errCh:
		return errors.Annotate(err, "http server")
	case <-ctx.Done():
	}
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Annotate(httpServer.Shutdown(shutdownCtx), "shutting down http server")
}
