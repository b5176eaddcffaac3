package cli

import (
	"github.com/spf13/cobra"

	"github.com/hookguard/hookguard/internal/tui"
)

var flagTUILimit int

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse the decision history interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openHistory()
		if err != nil {
			return err
		}
		defer database.Close()

		decisions, err := database.ListDecisions(flagTUILimit)
		if err != nil {
			return err
		}
		return tui.Run(decisions)
	},
}

func init() {
	tuiCmd.Flags().IntVar(&flagTUILimit, "limit", 200, "maximum decisions to load")
	rootCmd.AddCommand(tuiCmd)
}
