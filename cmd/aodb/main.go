// Package main provides the aodb command line tool.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/KilimcininKorOglu/aodb/internal/config"
	"github.com/KilimcininKorOglu/aodb/internal/logging"
	"github.com/KilimcininKorOglu/aodb/internal/metrics"
	"github.com/KilimcininKorOglu/aodb/internal/storage/engine"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns an exit code.
// This is separated from main() to facilitate testing.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{}
	defer a.close()
	cmd := newRootCommand(a, stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// app carries the state shared by all commands of one invocation.
type app struct {
	dbPath     string
	configPath string
	logLevel   string

	cfg       *config.Config
	log       logging.Logger
	logCloser io.Closer
	reg       *prometheus.Registry
	m   *metrics.Metrics
}

func newRootCommand(a *app, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "aodb",
		Short:         "Inspect and edit an append-only multi-version database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.finish()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database file (overrides storage.path)")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		getCommand(a),
		setCommand(a),
		delCommand(a),
		scanCommand(a),
		currentCommand(a),
		logCommand(a),
		statCommand(a),
		checkCommand(a),
		versionCommand(),
	)
	return root
}

// setup loads configuration in order: defaults, file, environment, flags.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()
	if a.configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(a.configPath); err != nil {
			return err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		cfg.Storage.Path = a.dbPath
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
		return errors.Wrap(errors.Join(errs...), "invalid configuration")
	}

	a.cfg = cfg
	a.log, a.logCloser = logging.New(cfg.LoggerConfig())
	if cfg.Metrics.Enabled {
		a.reg = prometheus.NewRegistry()
		a.m = metrics.New(a.reg)
	}
	return nil
}

// finish writes collected metrics when enabled.
func (a *app) finish() error {
	if a.reg == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.cfg.Metrics.Textfile, a.reg); err != nil {
		return errors.Wrap(err, "write metrics")
	}
	return nil
}

// close releases the log file, if any.
func (a *app) close() {
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}

// open opens the configured database. Commands that only read pass
// readOnly so they can run next to a writer holding the file.
func (a *app) open(readOnly bool) (*engine.DB, error) {
	opts := a.cfg.EngineOptions(a.log, a.m)
	if readOnly {
		opts = append(opts, engine.WithReadOnly(true))
	}
	return engine.Open(a.cfg.Storage.Path, opts...)
}
