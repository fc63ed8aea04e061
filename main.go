package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/foomo/teamdirectory/config"
	"github.com/foomo/teamdirectory/markdown"
	"github.com/foomo/teamdirectory/mcp"
	"github.com/foomo/teamdirectory/service"
	"github.com/foomo/teamdirectory/site"
)

type app struct {
	configPath string
	verbose    bool
	baseURL    string
	contentDir string
	addr       string

	config   config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	service  service.Service
}

func main() {
	a := &app{}
	if err := a.rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "teamdirectory",
		Short:        "Team directory built from a manifest of markdown profiles",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&a.baseURL, "base-url", "", "HTTP location of the manifest and member documents")
	flags.StringVar(&a.contentDir, "content-dir", "", "local directory holding the manifest and member documents")
	flags.StringVar(&a.addr, "addr", "", "HTTP listen address")

	cmd.AddCommand(
		a.serveCmd(),
		a.mcpCmd(),
		a.listCmd(),
		a.showCmd(),
		a.browseCmd(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("content-dir") {
		cfg.ContentDir = a.contentDir
		cfg.BaseURL = ""
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = a.baseURL
	}
	if cmd.Flags().Changed("addr") {
		cfg.Addr = a.addr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.config = cfg

	logConfig := zap.NewProductionConfig()
	if a.verbose {
		logConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := logConfig.Build()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.logger = logger

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	a.service = service.NewService(
		logger,
		service.SiteSettings{
			ManifestName:        cfg.ManifestName,
			DocumentExt:         cfg.DocumentExt,
			HTMLContentSelector: cfg.HTMLContentSelector,
			DefaultRole:         cfg.DefaultRole,
			DefaultImage:        cfg.DefaultImage,
			Concurrency:         cfg.Concurrency,
		},
		cfg.Source(httpClient),
		markdown.NewRenderer(cfg.Render),
		service.NewMetrics(a.registry),
	)
	return nil
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the team pages, the MCP endpoint and SSE streams over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	siteSettings := site.Settings{
		Company:      a.config.Company,
		CareersEmail: a.config.CareersEmail,
		ListingPath:  a.config.ListingPath,
		ProfilePath:  a.config.AssetsPath,
	}
	if a.config.BaseURL == "" {
		siteSettings.Assets = os.DirFS(a.config.ContentDir)
	}

	handler := mcp.NewHTTPServer(a.logger, mcp.NewServer(a.service), a.service, mcp.HTTPServerConfig{
		Endpoint: a.config.MCPEndpoint,
		Site:     site.NewHandler(a.logger, a.service, siteSettings),
		Gatherer: a.registry,
	})
	defer handler.Close()

	httpServer := &http.Server{
		Addr:              a.config.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server",
			zap.String("addr", a.config.Addr),
			zap.String("listing", a.config.ListingPath),
			zap.String("mcp", a.config.MCPEndpoint),
		)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down HTTP server")
	// SSE subscribers only leave once disconnected
	handler.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func (a *app) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.logger.Info("starting MCP server in stdio mode")
			return server.ServeStdio(mcp.NewServer(a.service))
		},
	}
}
