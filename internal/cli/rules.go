package cli

import (
	"github.com/spf13/cobra"

	"github.com/hookguard/hookguard/internal/config"
	"github.com/hookguard/hookguard/internal/handler"
	"github.com/hookguard/hookguard/internal/output"
	"github.com/hookguard/hookguard/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the command classification rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rules by tier",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadRuleTable()
		if err != nil {
			return err
		}
		if GetOutput() != output.FormatText {
			return newWriter().Write(table.ExportRules())
		}

		var rows [][]string
		for _, sev := range []rules.Severity{rules.SeverityDeny, rules.SeverityCaution} {
			for _, r := range table.Rules(sev) {
				rows = append(rows, []string{string(sev), r.Category, r.Pattern})
			}
		}
		output.OutputTable([]string{"TIER", "CATEGORY", "PATTERN"}, rows)
		return nil
	},
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the rule table with its content hash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadRuleTable()
		if err != nil {
			return err
		}
		w := newWriter()
		if GetOutput() == output.FormatText {
			w = output.New(output.FormatJSON)
		}
		return w.Write(table.ExportRules())
	},
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesExportCmd)
	rootCmd.AddCommand(rulesCmd)
}

// loadRuleTable compiles the built-in rules plus configured extras.
func loadRuleTable() (*rules.Table, error) {
	cfg, err := loadConfig(projectDir())
	if err != nil {
		newLogger().Warn("config load failed, using defaults", "err", err)
		cfg = config.DefaultConfig()
	}
	h, err := handler.New(handler.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	return h.Table(), nil
}
