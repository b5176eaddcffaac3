// Package watch observes the project-local .hookguard directory so the
// watch command can stream decision history changes as they land.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Event is a debounced file change event emitted by Watcher.
type Event struct {
	Path string
	Op   fsnotify.Op
	At   time.Time
}

// Watcher watches the history database and audit logs under .hookguard.
//
// It debounces noisy sources (notably SQLite WAL writes) and emits
// consolidated events through Events().
type Watcher struct {
	projectDir string
	guardDir   string
	historyDB  string
	logsDir    string

	watcher *fsnotify.Watcher
	logger  *log.Logger

	debounceWindow time.Duration
	events         chan Event
	errors         chan error

	mu      sync.Mutex
	pending map[string]fsnotify.Op
	timer   *time.Timer

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New creates a watcher for the given project directory.
func New(projectDir string) (*Watcher, error) {
	projectDir = strings.TrimSpace(projectDir)
	if projectDir == "" {
		return nil, fmt.Errorf("projectDir is required")
	}

	guardDir := filepath.Join(projectDir, ".hookguard")
	logsDir := filepath.Join(guardDir, "logs")
	historyDB := filepath.Join(guardDir, "history.db")

	// Ensure expected directories exist so watchers can be attached even
	// before the first decision lands.
	if err := os.MkdirAll(logsDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating logs dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new fsnotify watcher: %w", err)
	}

	w := &Watcher{
		projectDir:     projectDir,
		guardDir:       guardDir,
		historyDB:      historyDB,
		logsDir:        logsDir,
		watcher:        fsw,
		logger:         log.Default().WithPrefix("watcher"),
		debounceWindow: 100 * time.Millisecond,
		events:         make(chan Event, 64),
		errors:         make(chan error, 16),
		pending:        make(map[string]fsnotify.Op),
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}

	if err := fsw.Add(guardDir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", guardDir, err)
	}
	if err := fsw.Add(logsDir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", logsDir, err)
	}

	return w, nil
}

// HistoryDB returns the watched database path.
func (w *Watcher) HistoryDB() string {
	return w.historyDB
}

// Events returns a channel of debounced events. It is closed on Stop().
func (w *Watcher) Events() <-chan Event {
	if w == nil {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	return w.events
}

// Errors returns a channel of watcher errors. It is closed on Stop().
func (w *Watcher) Errors() <-chan error {
	if w == nil {
		ch := make(chan error)
		close(ch)
		return ch
	}
	return w.errors
}

// Start starts the watcher event loop in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil || w.watcher == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	select {
	case <-w.stopCh:
		return fmt.Errorf("watcher is stopped")
	default:
	}

	w.startOnce.Do(func() {
		w.started.Store(true)
		go w.loop(ctx)
	})
	return nil
}

// Stop stops the watcher and closes its channels. Safe to call whether
// or not Start ever ran; only a running loop is waited on.
func (w *Watcher) Stop() error {
	if w == nil {
		return nil
	}
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
		if w.started.Load() {
			<-w.doneCh
		} else {
			close(w.events)
			close(w.errors)
		}
	})
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.events)
	defer close(w.errors)

	for {
		var timerC <-chan time.Time
		w.mu.Lock()
		if w.timer != nil {
			timerC = w.timer.C
		}
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			w.flush()
			return
		case <-w.stopCh:
			w.flush()
			return
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.flush()
				return
			}
			w.sendError(err)
		case ev, ok := <-w.watcher.Events:
			if !ok {
				w.flush()
				return
			}
			if !w.isRelevant(ev.Name) {
				continue
			}
			w.record(ev.Name, ev.Op)
		case <-timerC:
			w.flush()
		}
	}
}

func (w *Watcher) isRelevant(path string) bool {
	path = filepath.Clean(path)

	if path == w.historyDB {
		return true
	}
	// SQLite may touch sibling files: history.db-wal, history.db-shm.
	if strings.HasPrefix(path, w.historyDB+"-") {
		return true
	}

	logsPrefix := w.logsDir + string(filepath.Separator)
	return strings.HasPrefix(path, logsPrefix)
}

func (w *Watcher) record(path string, op fsnotify.Op) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] |= op

	if w.timer == nil {
		w.timer = time.NewTimer(w.debounceWindow)
		return
	}

	if !w.timer.Stop() {
		select {
		case <-w.timer.C:
		default:
		}
	}
	w.timer.Reset(w.debounceWindow)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	now := time.Now()
	for path, op := range pending {
		select {
		case w.events <- Event{Path: path, Op: op, At: now}:
		default:
			w.logger.Warn("event channel full, dropping", "path", path)
		}
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
		w.logger.Warn("error channel full, dropping", "err", err)
	}
}
