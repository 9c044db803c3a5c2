package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage schools table snapshots",
	}
	cmd.AddCommand(backupCreateCmd(), backupListCmd(), backupStatsCmd(),
		backupCleanupCmd(), backupRestoreCmd(), backupDeleteCmd())
	return cmd
}

// withApp runs fn against a wired app and prints its result.
func withApp(fn func(cmd *cobra.Command, a *app, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		out, err := fn(cmd, a, args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	}
}

func backupCreateCmd() *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the schools table",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) (any, error) {
			return a.backups.Snapshot(cmd.Context(), label)
		}),
	}
	cmd.Flags().StringVar(&label, "label", "", "Suffix for the snapshot filename")
	return cmd
}

func backupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		RunE: withApp(func(_ *cobra.Command, a *app, _ []string) (any, error) {
			return a.backups.List()
		}),
	}
}

func backupStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show snapshot totals",
		RunE: withApp(func(_ *cobra.Command, a *app, _ []string) (any, error) {
			return a.backups.Stats()
		}),
	}
}

func backupCleanupCmd() *cobra.Command {
	var keepDays, keepCount int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Prune snapshots by age and count",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) (any, error) {
			if !cmd.Flags().Changed("keep-days") {
				keepDays = a.cfg.BackupKeepDays
			}
			if !cmd.Flags().Changed("keep-count") {
				keepCount = a.cfg.BackupKeepCount
			}
			return a.backups.Cleanup(cmd.Context(), keepDays, keepCount)
		}),
	}
	cmd.Flags().IntVar(&keepDays, "keep-days", 30, "Delete snapshots older than this")
	cmd.Flags().IntVar(&keepCount, "keep-count", 10, "Keep at most this many snapshots")
	return cmd
}

func backupRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore [filename]",
		Short: "Replay a snapshot into the schools table",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) (any, error) {
			return a.backups.Restore(cmd.Context(), args[0])
		}),
	}
}

func backupDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [filename]",
		Short: "Delete one snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) (any, error) {
			return a.backups.Delete(cmd.Context(), args[0])
		}),
	}
}
