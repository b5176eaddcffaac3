package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hookguard/hookguard/internal/watch"
)

var flagWatchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream new decisions as they are recorded",
	Long: `Follows the project's decision history and prints each new decision as
one JSON object per line. Uses filesystem notifications, falling back to
polling when the watcher cannot start.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd)
	},
}

func init() {
	watchCmd.Flags().DurationVar(&flagWatchInterval, "interval", 2*time.Second, "poll interval for the fallback path")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command) error {
	logger := newLogger()
	dir := projectDir()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	database, err := openHistory()
	if err != nil {
		return err
	}
	defer database.Close()

	w := newWriter()
	lastSeen := time.Now().UTC()

	emit := func() {
		decisions, err := database.ListDecisionsSince(lastSeen)
		if err != nil {
			logger.Warn("reading new decisions", "err", err)
			return
		}
		for _, d := range decisions {
			if err := w.WriteNDJSON(d); err != nil {
				logger.Warn("writing decision", "err", err)
				return
			}
			if d.CreatedAt.After(lastSeen) {
				lastSeen = d.CreatedAt
			}
		}
	}

	watcher, err := watch.New(dir)
	if err != nil {
		logger.Warn("filesystem watcher unavailable, polling instead", "err", err)
		return pollDecisions(ctx, emit)
	}
	defer watcher.Stop()

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	logger.Info("watching decision history", "db", watcher.HistoryDB())

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			emit()
		case err, ok := <-watcher.Errors():
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "err", err)
		}
	}
}

func pollDecisions(ctx context.Context, emit func()) error {
	ticker := time.NewTicker(flagWatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			emit()
		}
	}
}
