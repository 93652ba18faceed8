package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/go-spectro-pipeline/internal/caldb"
	"github.com/askiada/go-spectro-pipeline/internal/logging"
)

func newCaldbCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "caldb",
		Short: "Manage the local calibration database",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Create the calibration database if it does not exist",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd, opts, func(ctx context.Context, store *caldb.Store) error {
					created, err := store.EnsureInitialized(ctx)
					if err != nil {
						return err
					}

					if created {
						fmt.Fprintln(cmd.OutOrStdout(), "calibration database created")
					}

					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the registered calibrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd, opts, func(ctx context.Context, store *caldb.Store) error {
					records, err := store.List(ctx)
					if err != nil {
						return err
					}

					tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
					for _, rec := range records {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.Path, rec.Kind, rec.RegisteredAt.Format("2006-01-02 15:04:05"))
					}

					return tw.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   "add <file>...",
			Short: "Register processed calibrations",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, opts, func(ctx context.Context, store *caldb.Store) error {
					for _, arg := range args {
						err := store.Register(ctx, arg)
						if err != nil {
							return err
						}
					}

					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove <file>...",
			Short: "Unregister calibrations, leaving the files on disk",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, opts, func(ctx context.Context, store *caldb.Store) error {
					for _, arg := range args {
						err := store.Remove(ctx, arg)
						if err != nil {
							return err
						}
					}

					return nil
				})
			},
		},
	)

	return cmd
}

func withStore(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, store *caldb.Store) error) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{File: cfg.LogFile, Verbose: opts.verbose})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := caldb.Open(cfg.CalibrationDB)
	if err != nil {
		return err
	}
	defer db.Close()

	err = fn(cmd.Context(), caldb.NewStore(db, caldb.StoreLogger(logger)))
	if err != nil {
		logger.Error("calibration database command failed", zap.Error(err))
	}

	return err
}
