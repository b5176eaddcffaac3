package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hookguard/hookguard/internal/config"
	"github.com/hookguard/hookguard/internal/handler"
	"github.com/hookguard/hookguard/internal/output"
	"github.com/hookguard/hookguard/internal/rules"
)

var checkCmd = &cobra.Command{
	Use:   "check <command>",
	Short: "Classify a command without running a hook",
	Long: `Classifies a shell command against the rule table, including any extra
rules from the loaded configuration. Exits 1 when the command would be
denied.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd, strings.Join(args, " "))
	},
}

// errDenied signals exit code 1 after the result has already been printed.
var errDenied = errors.New("command denied")

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, command string) error {
	cfg, err := loadConfig(projectDir())
	if err != nil {
		newLogger().Warn("config load failed, using defaults", "err", err)
		cfg = config.DefaultConfig()
	}

	h, err := handler.New(handler.Options{Config: cfg})
	if err != nil {
		return err
	}
	result := h.Table().Classify(command)

	if GetOutput() == output.FormatText {
		printCheckResult(cmd, command, result)
	} else if err := newWriter().Write(result); err != nil {
		return err
	}

	if result.Decision == rules.DecisionDeny {
		return errDenied
	}
	return nil
}

func printCheckResult(cmd *cobra.Command, command string, result *rules.Result) {
	switch {
	case result.Decision == rules.DecisionDeny:
		cmd.PrintErrf("✗ deny: %s\n", result.Category)
		if result.Guidance != "" {
			cmd.PrintErrf("  %s\n", result.Guidance)
		}
	case len(result.Notes) > 0:
		cmd.PrintErrln("⚠ allow with caution:")
		for _, note := range result.Notes {
			cmd.PrintErrf("  - %s\n", note)
		}
	default:
		cmd.PrintErrf("✓ allow: %s\n", command)
	}
	if result.ParseError {
		cmd.PrintErrln("  (command could not be tokenized; matched against the raw string)")
	}
}
