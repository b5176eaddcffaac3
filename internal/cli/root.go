// Package cli implements the hookguard command tree.
package cli

import (
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/hookguard/hookguard/internal/config"
	"github.com/hookguard/hookguard/internal/output"
)

// Build metadata, set via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagProjectDir string
	flagConfigPath string
	flagOutput     string
	flagJSON       bool
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "hookguard",
	Short: "Safety hooks for Claude Code sessions",
	Long: `hookguard evaluates Claude Code hook events: it classifies shell and SQL
commands against an ordered rule table, estimates context-window usage from
session transcripts, verifies completion claims against evidence, and keeps
an auditable decision history.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		output.SetOutputMode(GetOutput() == output.FormatJSON)
	},
	Run: func(cmd *cobra.Command, args []string) {
		showQuickReference()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagProjectDir, "project", "C", "", "project directory (default: current directory)")
	pf.StringVarP(&flagConfigPath, "config", "c", "", "path to config file (default: <project>/.hookguard/config.toml)")
	pf.StringVarP(&flagOutput, "output", "o", "", "output format: text, json, yaml")
	pf.BoolVarP(&flagJSON, "json", "j", false, "shorthand for --output json")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		w := newWriter()
		if GetOutput() == output.FormatText {
			cmd.Printf("hookguard %s (commit %s, built %s)\n", version, commit, date)
			return
		}
		_ = w.Write(map[string]any{
			"version": version,
			"commit":  commit,
			"date":    date,
		})
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errDenied) {
			newWriter().Error(err)
		}
		os.Exit(1)
	}
}

// GetOutput resolves the output format: flags win over the
// HOOKGUARD_OUTPUT environment variable, which wins over text.
func GetOutput() output.Format {
	if flagJSON {
		return output.FormatJSON
	}
	if flagOutput != "" {
		return output.Format(flagOutput)
	}
	if env := os.Getenv("HOOKGUARD_OUTPUT"); env != "" {
		return output.Format(env)
	}
	return output.FormatText
}

func newWriter() *output.Writer {
	return output.New(GetOutput())
}

func newLogger() *log.Logger {
	l := log.New(os.Stderr)
	l.SetPrefix("hookguard")
	if flagVerbose {
		l.SetLevel(log.DebugLevel)
	} else {
		l.SetLevel(log.WarnLevel)
	}
	return l
}

// projectDir resolves the project root from the -C flag or cwd.
func projectDir() string {
	if flagProjectDir != "" {
		return flagProjectDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func loadConfig(dir string) (*config.Config, error) {
	return config.Load(config.LoadOptions{
		ProjectDir: dir,
		ConfigPath: flagConfigPath,
	})
}
