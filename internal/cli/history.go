package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hookguard/hookguard/internal/config"
	"github.com/hookguard/hookguard/internal/db"
	"github.com/hookguard/hookguard/internal/output"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the recorded decision history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent decisions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openHistory()
		if err != nil {
			return err
		}
		defer database.Close()

		decisions, err := database.ListDecisions(flagHistoryLimit)
		if err != nil {
			return err
		}
		if GetOutput() != output.FormatText {
			return newWriter().Write(decisions)
		}

		rows := make([][]string, 0, len(decisions))
		for _, d := range decisions {
			summary := d.Command
			if summary == "" {
				summary = d.Category
			}
			rows = append(rows, []string{
				d.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				d.Event,
				d.Decision,
				summary,
			})
		}
		output.OutputTable([]string{"TIME", "EVENT", "OUTCOME", "SUMMARY"}, rows)
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show decision counts by outcome",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openHistory()
		if err != nil {
			return err
		}
		defer database.Close()

		counts, err := database.CountByOutcome()
		if err != nil {
			return err
		}
		if GetOutput() != output.FormatText {
			return newWriter().Write(counts)
		}

		var rows [][]string
		for _, outcome := range []string{db.OutcomeAllow, db.OutcomeDeny, db.OutcomeBlock, db.OutcomePass} {
			if n, ok := counts[outcome]; ok {
				rows = append(rows, []string{outcome, fmt.Sprintf("%d", n)})
			}
		}
		output.OutputTable([]string{"OUTCOME", "COUNT"}, rows)
		return nil
	},
}

func init() {
	historyListCmd.Flags().IntVar(&flagHistoryLimit, "limit", 50, "maximum decisions to list")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyStatsCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the decision database at the configured path.
func openHistory() (*db.DB, error) {
	dir := projectDir()
	cfg, err := loadConfig(dir)
	if err != nil {
		newLogger().Warn("config load failed, using defaults", "err", err)
		cfg = config.DefaultConfig()
	}
	path := cfg.History.DatabasePath
	if path == "" {
		path = db.Path(dir)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no decision history at %s", path)
	}
	return db.Open(path)
}
