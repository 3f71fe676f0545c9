package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"drivesync/internal/daemon"
	"drivesync/internal/db"
	"drivesync/internal/logger"
	"drivesync/internal/repository"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync [root]",
	Short: "Reconcile root with the remote and keep mirroring changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context(), args[0])
	},
}

func runSync(parent context.Context, root string) error {
	defer logger.Sync()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid root path: %w", err)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var histRepo *repository.HistoryRepository
	if cfg.DBPath != "" {
		if err := db.Init(cfg.DBPath); err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()

		histRepo = repository.NewHistoryRepository(db.DB)
	}

	session := daemon.NewSession(cfg, absRoot, histRepo)
	err = session.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if err != nil {
		logger.Log.Error("sync stopped with error",
			zap.String("root", absRoot),
			zap.Error(err))
		return err
	}

	snap := session.State().Snapshot()
	fmt.Printf("done: %d synced, %d failed\n", snap.Synced, snap.Failed)
	return nil
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
