package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/commission-cli/internal/store"
)

var snapshotOut string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Copy contracts and projects from the configured source into a local SQLite file",
	Long:  "Takes a full copy of both CRM tables so metrics can be computed offline with source.driver=sqlite.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("compute"); err != nil {
			return err
		}
		if cfg.Source.Driver == "sqlite" && cfg.Source.DatabaseURL == snapshotOut {
			return eris.New("snapshot: source and destination are the same file")
		}
		ctx := cmd.Context()

		src, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer src.Close() //nolint:errcheck

		snap, err := store.FetchAll(ctx, src)
		if err != nil {
			return eris.Wrap(err, "snapshot: data load failed")
		}

		dst, err := store.NewSQLite(snapshotOut)
		if err != nil {
			return err
		}
		defer dst.Close() //nolint:errcheck

		if err := dst.Migrate(ctx); err != nil {
			return err
		}
		if err := dst.Replace(ctx, cfg.Source.Driver, snap); err != nil {
			return err
		}

		zap.L().Info("snapshot written",
			zap.String("path", snapshotOut),
			zap.String("source", cfg.Source.Driver),
			zap.Int("contracts", len(snap.Contracts)),
			zap.Int("projects", len(snap.Projects)),
		)
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotOut, "out", "commission-snapshot.db", "destination SQLite file")
	rootCmd.AddCommand(snapshotCmd)
}
