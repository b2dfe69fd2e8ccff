package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"alphacore/internal/config"
	"alphacore/internal/corr"
	"alphacore/internal/logx"
	"alphacore/internal/store"
)

func newICCmd() *cobra.Command {
	var opts corr.CSVOptions
	cmd := &cobra.Command{
		Use:   "ic <values.csv> <target.csv>",
		Short: "Print per-period IC and rank IC of two matrices",
		Long: `Reads two numeric matrices with one period per row and one member per
column, and prints the Pearson and Spearman correlation of each row pair
with their NaN-skipping means. Empty cells and nan/NA are missing values.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := corr.LoadCSV(args[0], opts)
			if err != nil {
				return err
			}
			target, err := corr.LoadCSV(args[1], opts)
			if err != nil {
				return err
			}
			ic, err := corr.BatchPearson(values, target)
			if err != nil {
				return err
			}
			rankIC, err := corr.BatchSpearman(values, target)
			if err != nil {
				return err
			}
			return logx.WriteICTable(cmd.OutOrStdout(), ic, rankIC)
		},
	}
	cmd.Flags().BoolVar(&opts.Header, "header", false, "first line is a header")
	cmd.Flags().BoolVar(&opts.IndexColumn, "index", false, "first column is a row label")
	return cmd
}

func newTopCmd(a *app) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "List the best stored expressions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			if a.cfg.Store.Path == "" {
				return errors.New("store.path is empty")
			}
			if _, err := os.Stat(a.cfg.Store.Path); err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			st, err := store.Open(a.cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			recs, err := st.Top(cmd.Context(), k)
			if err != nil {
				return err
			}
			return logx.WriteTopTable(cmd.OutOrStdout(), recs)
		},
	}
	cmd.Flags().IntVarP(&k, "limit", "k", 10, "number of expressions")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(a.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", a.configPath)
			}
			if err := config.DefaultConfig().Save(a.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", logx.Checkmark(true), a.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
