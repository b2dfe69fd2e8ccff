package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alphacore/internal/config"
	"alphacore/internal/logx"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

// setup loads the configuration and builds the logger. Commands that need
// neither skip it.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logx.New(cfg.Logging.Level, cfg.Logging.JSON)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "alphacore",
		Short: "Formulaic alpha construction environment",
		Long: `alphacore builds formulaic alpha expressions token by token under a
typed prefix grammar and scores finished expressions by their
cross-sectional correlation with a target.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "alphacore.yaml", "config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newSampleCmd(a),
		newICCmd(),
		newTopCmd(a),
		newConfigCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, logx.Error("error: "+err.Error()))
		os.Exit(1)
	}
}
