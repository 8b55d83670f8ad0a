// Package main is the entry point for the intseq-server binary. It serves
// the built-in integer sequences over HTTP and, optionally, Pub/Sub.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illmade-knight/go-intseq/pkg/config"
	"github.com/illmade-knight/go-intseq/pkg/logging"
	"github.com/illmade-knight/go-intseq/pkg/sequence"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// usageError marks failures caused by the command line itself.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "intseq-server",
		Short:         "Integer sequence computation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file (YAML)")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return &usageError{err} })
	root.AddCommand(newServeCmd(), newListCmd())
	return root
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return &usageError{err}
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve sequences over HTTP and the optional Pub/Sub worker",
		Args:  noArgs,
		RunE:  runServe,
	}
	cmd.Flags().StringP("port", "p", "", "Listen address, e.g. :8080 (overrides config)")
	cmd.Flags().StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the hosted sequence implementations",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, _, err := newRegistry(cfg, zerolog.Nop(), nil)
			if err != nil {
				return err
			}
			return sequence.WriteInfo(cmd.OutOrStdout(), reg.Infos())
		},
	}
}

// loadConfig reads --config and applies the flags that override it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, &usageError{err}
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		cfg.Service.HTTPPort = f.Value.String()
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.Service.LogLevel = f.Value.String()
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(logging.Config{Level: cfg.Service.LogLevel, Pretty: cfg.Service.LogPretty}, cmd.ErrOrStderr()).
		With().Str("service", cfg.Service.ServiceName).Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server.")
		return err
	}
	return a.run(ctx)
}
