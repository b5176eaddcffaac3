package cli

import (
	"github.com/spf13/cobra"

	"github.com/hookguard/hookguard/internal/audit"
	"github.com/hookguard/hookguard/internal/config"
	"github.com/hookguard/hookguard/internal/db"
	"github.com/hookguard/hookguard/internal/handler"
	"github.com/hookguard/hookguard/internal/hook"
)

var handleCmd = &cobra.Command{
	Use:   "handle",
	Short: "Evaluate one hook event from stdin and print the decision",
	Long: `Reads a single Claude Code hook event as JSON on stdin and writes the
decision as JSON on stdout. Designed to be wired into settings.json; any
internal failure degrades to the silent pass so a broken hook never takes
a session down.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runHandle(cmd)
	},
}

func init() {
	rootCmd.AddCommand(handleCmd)
}

func runHandle(cmd *cobra.Command) {
	logger := newLogger()
	out := cmd.OutOrStdout()

	ev, err := hook.ReadEvent(cmd.InOrStdin())
	if err != nil {
		// Malformed stdin must never break the session.
		logger.Warn("unreadable hook event", "err", err)
		_ = hook.Empty().Write(out)
		return
	}

	dir := flagProjectDir
	if dir == "" {
		dir = ev.CWD
	}
	if dir == "" {
		dir = projectDir()
	}

	cfg, err := loadConfig(dir)
	if err != nil {
		logger.Warn("config load failed, using defaults", "err", err)
		cfg = config.DefaultConfig()
	}

	var history *db.DB
	if cfg.History.Enabled {
		path := cfg.History.DatabasePath
		if path == "" {
			path = db.Path(dir)
		}
		if history, err = db.Open(path); err != nil {
			logger.Warn("decision history unavailable", "err", err)
			history = nil
		} else {
			defer history.Close()
		}
	}

	var auditor *audit.Logger
	if cfg.Audit.Enabled {
		auditor = audit.New(dir, logger)
	}

	h, err := handler.New(handler.Options{
		ProjectDir: dir,
		Config:     cfg,
		Logger:     logger,
		History:    history,
		Audit:      auditor,
	})
	if err != nil {
		logger.Warn("handler init failed", "err", err)
		_ = hook.Empty().Write(out)
		return
	}

	if err := h.Handle(ev).Write(out); err != nil {
		logger.Error("writing decision", "err", err)
	}
}
