package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-devsurvey/internal/config"
	"github.com/goliatone/go-devsurvey/internal/logging"
	"github.com/goliatone/go-devsurvey/pkg/form"
	"github.com/goliatone/go-devsurvey/pkg/model"
	"github.com/goliatone/go-devsurvey/pkg/responses"
	"github.com/goliatone/go-devsurvey/pkg/snapshot"
	"github.com/goliatone/go-devsurvey/pkg/terminal"
	"github.com/goliatone/go-devsurvey/pkg/transport"
	"github.com/goliatone/go-devsurvey/pkg/visibility"
	"github.com/goliatone/go-devsurvey/pkg/visibility/expr"
)

var (
	configPath     string
	envFile        string
	definitionPath string
	debug          bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "survey-cli",
	Short:         "Fill in and inspect the developer survey from a terminal",
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
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var (
	ephemeral    bool
	endpointFlag string
	extras       map[string]string
	themeVariant string
)

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Answer the survey interactively and submit it",
	RunE:  fill,
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a survey definition, including its condition predicates",
	Args:  cobra.ExactArgs(1),
	RunE:  validate,
}

var (
	exportFormat string
	exportSchema bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the survey definition or its response schema",
	RunE:  export,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "survey.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file")
	rootCmd.PersistentFlags().StringVar(&definitionPath, "definition", "", "survey definition YAML (embedded survey if empty)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging and error notices")

	fillCmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "keep the autosave snapshot in memory only")
	fillCmd.Flags().StringVar(&endpointFlag, "endpoint", "", "ingestion endpoint URL (overrides config)")
	fillCmd.Flags().StringVar(&themeVariant, "theme-variant", "", "notice theme variant, e.g. unicode (overrides config)")
	fillCmd.Flags().StringToStringVar(&extras, "extra", nil, "key=value flags readable by conditions as extras.<key>")

	exportCmd.Flags().StringVar(&exportFormat, "format", "yaml", "output format: yaml or json")
	exportCmd.Flags().BoolVar(&exportSchema, "schema", false, "print the response table columns instead of the definition")

	rootCmd.AddCommand(fillCmd, validateCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func fill(cmd *cobra.Command, args []string) error {
	def, err := cfg.Definition()
	if err != nil {
		return err
	}

	endpoint := def.Endpoint
	if cfg.Client.Endpoint != "" {
		endpoint = cfg.Client.Endpoint
	}
	if endpointFlag != "" {
		endpoint = endpointFlag
	}
	client, err := transport.NewClient(endpoint,
		transport.WithVersion(def.Version),
		transport.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	var snaps snapshot.Store
	if ephemeral {
		snaps = snapshot.NewMemoryStore()
	} else {
		dir := cfg.Client.SnapshotDir
		if dir == "" {
			dir = snapshot.DefaultDir("")
		}
		store, err := snapshot.OpenBadger(dir)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("close snapshot store", zap.Error(err))
			}
		}()
		snaps = store
	}

	variant := cfg.Client.ThemeVariant
	if themeVariant != "" {
		variant = themeVariant
	}
	th, err := terminal.SelectTheme(terminal.NewSelector(terminal.DefaultManifest()), "", variant)
	if err != nil {
		return err
	}
	notifier := terminal.NewNotifier(cmd.OutOrStdout())
	notifier.SetTheme(th)
	opts := []form.Option{
		form.WithLogger(logger),
		form.WithSnapshots(snaps),
		form.WithSender(client),
		form.WithNotifier(notifier),
		form.WithDebug(cfg.Logging.Debug),
		form.WithExtras(extras),
		form.WithEvaluator(tracedEvaluator(expr.New())),
	}
	if cfg.Client.UserAgent != "" {
		opts = append(opts, form.WithUserAgent(cfg.Client.UserAgent))
	}
	ctrl, err := form.New(def, opts...)
	if err != nil {
		return err
	}
	runner, err := terminal.NewRunner(ctrl, terminal.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return ctrl.Guard(func() error {
		ack, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		logger.Debug("submission acknowledged", zap.Int("status", ack.Status))
		return nil
	})
}

// tracedEvaluator logs every condition evaluation at debug level.
func tracedEvaluator(next visibility.Evaluator) visibility.Evaluator {
	return visibility.EvaluatorFunc(func(rule string, vctx visibility.Context) (bool, error) {
		holds, err := next.Eval(rule, vctx)
		logger.Debug("condition evaluated", zap.String("rule", rule), zap.Bool("holds", holds), zap.Error(err))
		return holds, err
	})
}

func validate(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	def, err := model.LoadDefinition(f)
	if err != nil {
		return err
	}
	if err := form.CompileConditions(def); err != nil {
		return err
	}
	reg, err := model.NewRegistry(def)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d sections, %d fields, %d capped groups, %d conditions)\n",
		args[0], len(def.Sections), reg.Len(), len(reg.Capped()), len(def.Conditions))
	return err
}

func export(cmd *cobra.Command, args []string) error {
	def, err := cfg.Definition()
	if err != nil {
		return err
	}
	var v any = def
	if exportSchema {
		v = responses.SchemaFor(def)
	}

	out := cmd.OutOrStdout()
	switch exportFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", exportFormat)
	}
}
