package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/markjakearzadon/hostel-portal.git/internal/config"
	"github.com/markjakearzadon/hostel-portal.git/internal/logging"
)

type app struct {
	verbose bool
	envFile string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "hostel-portal",
		Short:         "Student portal gateway for hostel recharges",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(newServeCmd(a), newLoginCmd(a), newLogoutCmd(a), newContactsCmd(a))
	return root
}

func (a *app) init() error {
	logger, err := logging.New(a.verbose)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	a.logger = logger

	if err := config.LoadEnvFile(a.envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("env file not found", zap.String("path", a.envFile))
		} else {
			logger.Warn("error loading env file", zap.String("path", a.envFile), zap.Error(err))
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
