package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"drivesync/internal/model"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View the running session",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(daemonURL("/status"))
		if err != nil {
			return fmt.Errorf("drivesync not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var snap model.SessionSnapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return fmt.Errorf("failed to decode status response: %w", err)
		}

		lastSync := "-"
		if snap.LastSync != nil {
			lastSync = snap.LastSync.Format("2006-01-02 15:04:05")
		}

		fmt.Printf("%-12s %-30s %-30s %-8s %-8s %-8s %s\n",
			"PHASE", "ROOT", "REMOTE", "WATCHES", "SYNCED", "FAILED", "LAST SYNC")
		fmt.Printf("%-12s %-30s %-30s %-8d %-8d %-8d %s\n",
			snap.Phase, snap.Root, snap.Remote, snap.Watches, snap.Synced, snap.Failed, lastSync)
		fmt.Printf("uptime: %s\n", time.Since(snap.StartedAt).Round(time.Second))

		if snap.LastError != "" {
			fmt.Printf("last error: %s\n", snap.LastError)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
