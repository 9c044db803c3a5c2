package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sekolah-service/internal/schoolimport/model"
	"sekolah-service/internal/schoolimport/service"
)

type importOptions struct {
	strategy string
	label    string
	dryRun   bool
	actor    int64
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import schools from an .xlsx, .xls or .csv file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			up := service.Upload{Filename: filepath.Base(args[0]), Body: f}

			var out any
			if opts.dryRun {
				out, err = a.svc.Validate(ctx, up)
			} else {
				req := service.ExecuteRequest{Strategy: model.Strategy(opts.strategy), BackupLabel: opts.label}
				if opts.actor > 0 {
					req.ActorID = &opts.actor
				}
				out, err = a.svc.Execute(ctx, up, req)
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&opts.strategy, "strategy", string(model.StrategyMerge),
		fmt.Sprintf("Import strategy: %v", model.Strategies))
	cmd.Flags().StringVar(&opts.label, "backup-label", "", "Take a labelled backup first")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Only preview the file, write nothing")
	cmd.Flags().Int64Var(&opts.actor, "actor", 0, "User id recorded on the import log")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the newest import runs",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) (any, error) {
			return a.svc.History(cmd.Context(), limit)
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show (max 50)")
	return cmd
}
