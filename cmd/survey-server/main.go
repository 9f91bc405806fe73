package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/microcosm-cc/bluemonday"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-devsurvey/internal/config"
	"github.com/goliatone/go-devsurvey/internal/logging"
	"github.com/goliatone/go-devsurvey/pkg/ingest"
	"github.com/goliatone/go-devsurvey/pkg/model"
	"github.com/goliatone/go-devsurvey/pkg/responses"
)

var (
	configPath     string
	envFile        string
	definitionPath string
	debug          bool

	cfg    *config.Config
	def    *model.Definition
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "survey-server",
	Short:         "Ingestion endpoint for developer survey responses",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath, envFile)
		if err != nil {
			return err
		}
		if definitionPath != "" {
			cfg.DefinitionPath = definitionPath
		}
		if debug {
			cfg.Logging.Debug = true
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Debug)
		if err != nil {
			return err
		}
		def, err = cfg.Definition()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ingestion endpoint",
	RunE:  serve,
}

var (
	addrFlag      string
	openapiFormat string
)

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Print the endpoint's OpenAPI document",
	RunE:  printOpenAPI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "survey.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with store credentials")
	rootCmd.PersistentFlags().StringVar(&definitionPath, "definition", "", "survey definition YAML (embedded survey if empty)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides config)")
	openapiCmd.Flags().StringVar(&openapiFormat, "format", "json", "output format: json or yaml")

	rootCmd.AddCommand(serveCmd, openapiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command, args []string) error {
	if addrFlag != "" {
		cfg.Server.Addr = addrFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schema := responses.SchemaFor(def)
	store, err := responses.Open(ctx, cfg.ResponsesConfig(), schema)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	var metrics *ingest.Metrics
	if cfg.Server.Metrics {
		metrics = ingest.NewMetrics()
	}
	required := def.ServerRequired
	if len(required) == 0 {
		required = ingest.DefaultRequired
	}
	opts := []ingest.Option{
		ingest.WithLogger(logger),
		ingest.WithMetrics(metrics),
		ingest.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		ingest.WithRequired(required...),
	}
	if cfg.Server.SanitizeText {
		opts = append(opts, ingest.WithSanitizer(bluemonday.StrictPolicy()))
	}
	handler, err := ingest.NewHandler(store, schema, opts...)
	if err != nil {
		return err
	}
	mux, err := ingest.NewMux(def, handler, metrics)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("path", ingest.Path(def)),
			zap.String("store", cfg.Store.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func printOpenAPI(cmd *cobra.Command, args []string) error {
	doc := ingest.OpenAPIDocument(def)
	if err := doc.Validate(cmd.Context()); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch openapiFormat {
	case "json":
		_, err = fmt.Fprintln(out, string(raw))
		return err
	case "yaml":
		var tree map[string]any
		if err := json.Unmarshal(raw, &tree); err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", openapiFormat)
	}
}
