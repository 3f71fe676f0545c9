package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"drivesync/internal/autostart"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install [root]",
	Short: "Start syncing root at login",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		root, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid root path: %w", err)
		}

		if err := autostart.New().Install(execPath, root); err != nil {
			return err
		}

		fmt.Printf("drivesync registered for autostart on %s\n", root)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
