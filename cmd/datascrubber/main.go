// Package main provides the datascrubber command-line tool for cleaning publisher readership data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"datascrubber/internal/config"
	"datascrubber/internal/ledger"
	"datascrubber/internal/logger"
	"datascrubber/internal/pipeline"
)

const defaultConfigPath = "configs/datascrubber.yaml"

// errReported marks an error that has already been logged.
var errReported = errors.New("reported")

type app struct {
	configPath string
	root       string
	logLevel   string
	logFormat  string

	cfg      *config.Config
	log      *logger.Logger
	ledger   *ledger.Ledger
	pipeline *pipeline.Pipeline
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root, a := newRootCmd()

	err := root.ExecuteContext(ctx)
	a.close()

	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
	}

	if err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	configDefault := os.Getenv("DATASCRUBBER_CONFIG")
	if configDefault == "" {
		configDefault = defaultConfigPath
	}

	root := &cobra.Command{
		Use:               "datascrubber",
		Short:             "Clean publisher readership exports into customer dashboard files",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", configDefault, "Path to the YAML configuration")
	flags.StringVar(&a.root, "root", "", "Data root directory (overrides paths.root)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text or json")

	root.AddCommand(
		a.cleanPublisherCmd(),
		a.cleanCustomerCmd(),
		a.cleanAllCmd(),
		a.readershipCmd(),
		a.historyCmd(),
		a.listCmd(),
	)

	return root, a
}

// setup loads the configuration and builds the pipeline. A ledger that cannot
// be opened only costs the run history.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(a.configPath, config.WithRoot(a.root), config.WithLogging(a.logLevel, a.logFormat))
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	a.log.Debug("loaded configuration", "config", cfg.String())

	var opts []pipeline.Option

	l, err := ledger.Open(cmd.Context(), cfg.LedgerPath())
	if err != nil {
		a.log.Warn(fmt.Sprintf("⚠️  Run ledger unavailable: %v", err))
	} else {
		a.ledger = l
		opts = append(opts, pipeline.WithLedger(l))
	}

	if cfg.Logging.ShowProgress && pipeline.Terminal(os.Stderr) {
		opts = append(opts, pipeline.WithProgress(os.Stderr))
	}

	a.pipeline, err = pipeline.New(cfg, a.log, opts...)

	return err
}

func (a *app) close() {
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.log.Warn(fmt.Sprintf("⚠️  Failed to close run ledger: %v", err))
		}
	}
}
