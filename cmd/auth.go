package cmd

import (
	"fmt"

	"drivesync/internal/auth"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:       "auth [gdrive|dropbox]",
	Short:     "Authenticate with a remote backend",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"gdrive", "dropbox"},
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := auth.Lookup(args[0])
		if err != nil {
			return err
		}

		if err := provider.Authorize(); err != nil {
			return err
		}

		fmt.Printf("Authenticated with %s\n", provider.Name())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
