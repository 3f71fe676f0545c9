package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"drivesync/internal/db"
	"drivesync/internal/model"
	"drivesync/internal/repository"

	"github.com/spf13/cobra"
)

var (
	historyN      int
	historyFailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View applied actions",
	Long: `history asks the running session for its recent actions and falls back
to reading the history database when no session is running.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		histories, err := fetchHistory()
		if err != nil {
			histories, err = readHistory()
			if err != nil {
				return err
			}
		}

		if len(histories) == 0 {
			fmt.Println("no history yet")
			return nil
		}

		for _, h := range histories {
			status := "✓"
			if h.Status == model.StatusFailed {
				status = "✗"
			}

			fmt.Printf("%s [%s] %-13s %s",
				status,
				h.SyncedAt.Format("2006-01-02 15:04:05"),
				h.Kind,
				h.Key,
			)
			if h.ErrMsg != "" {
				fmt.Printf("  (%s)", h.ErrMsg)
			}
			fmt.Println()
		}

		return nil
	},
}

func fetchHistory() ([]model.History, error) {
	url := fmt.Sprintf("%s?n=%d&failed=%t", daemonURL("/history"), historyN, historyFailed)
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}

	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history request failed: %s", resp.Status)
	}

	var histories []model.History
	if err := json.NewDecoder(resp.Body).Decode(&histories); err != nil {
		return nil, err
	}

	return histories, nil
}

func readHistory() ([]model.History, error) {
	if err := db.Init(cfg.DBPath); err != nil {
		return nil, err
	}
	defer func() {
		_ = db.Close()
	}()

	repo := repository.NewHistoryRepository(db.DB)
	if historyFailed {
		return repo.GetFailed(historyN)
	}

	return repo.GetRecent(historyN)
}

func init() {
	historyCmd.Flags().IntVar(&historyN, "n", 20, "number of history entries to show")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "only show failed actions")
	rootCmd.AddCommand(historyCmd)
}
