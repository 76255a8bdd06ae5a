package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/christopherklint97/dayslot/internal/config"
	"github.com/christopherklint97/dayslot/internal/planner"
)

var ErrNotRunning = errors.New("no running watcher found")

// Watcher keeps the tracker fed from today's stored plan.
type Watcher struct {
	planner  *planner.Planner
	tracker  *Tracker
	interval time.Duration
	logger   *slog.Logger

	now func() time.Time
}

func NewWatcher(p *planner.Planner, tracker *Tracker, interval time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{
		planner:  p,
		tracker:  tracker,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := writePID(); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePID()

	w.logger.Info("watcher started", "interval", w.interval)

	for {
		if err := w.Poll(); err != nil {
			w.logger.Error("polling plan", "error", err)
		}

		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return nil
		case <-time.After(w.interval):
		}
	}
}

// Poll reloads today's plan and observes the current slot once.
func (w *Watcher) Poll() error {
	now := w.now()
	day, err := w.planner.Refresh(now)
	if err != nil {
		return err
	}
	w.tracker.Observe(day.Slots(w.planner.Window()), now)
	return nil
}

func pidPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dayslot.pid"), nil
}

func writePID() error {
	path, err := pidPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func removePID() {
	if path, err := pidPath(); err == nil {
		os.Remove(path)
	}
}

// ReadPID returns the PID of the running watcher.
func ReadPID() (int, error) {
	path, err := pidPath()
	if err != nil {
		return 0, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotRunning
		}
		return 0, fmt.Errorf("reading PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}

	return pid, nil
}
