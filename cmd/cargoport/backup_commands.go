package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"cargoport/internal/backup"
)

func newBackupCommand(ctx *commandContext) *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Inspect database snapshots",
	}

	backupCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List snapshots, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			paths, err := backup.NewExporter(cfg.Paths.BackupDir, cfg.Backup.RetentionCount).List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(paths) == 0 {
				fmt.Fprintf(out, "No snapshots in %s\n", cfg.Paths.BackupDir)
				return nil
			}
			rows := make([][]string, 0, len(paths))
			for _, path := range paths {
				size := "-"
				if info, err := os.Stat(path); err == nil {
					size = strconv.FormatInt(info.Size(), 10)
				}
				rows = append(rows, []string{filepath.Base(path), size})
			}
			fmt.Fprintln(out, renderTable([]column{{Header: "Snapshot"}, {Header: "Bytes", Right: true}}, rows))
			return nil
		},
	})

	backupCmd.AddCommand(&cobra.Command{
		Use:   "show <file>",
		Short: "Summarize one snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := args[0]
			if !filepath.IsAbs(path) {
				path = filepath.Join(cfg.Paths.BackupDir, path)
			}
			snap, err := backup.Read(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version: %d\n", snap.Version)
			fmt.Fprintf(out, "Created: %s\n", snap.CreatedAt.Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(out, "Cargo:   %d\n", len(snap.Cargo))
			fmt.Fprintf(out, "News:    %d\n", len(snap.News))
			return nil
		},
	})

	return backupCmd
}
