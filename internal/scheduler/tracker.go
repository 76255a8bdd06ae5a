package scheduler

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/christopherklint97/dayslot/internal/slot"
)

const announcedKey = "announced_slot"

// StateStore is a small key/value table shared between processes.
type StateStore interface {
	GetState(key string) (string, error)
	SetState(key, value string) error
}

// Tracker follows the slot running right now and announces transitions.
type Tracker struct {
	notifier Notifier // nil disables notifications
	taskFile string   // "" disables the current-task file
	shared   StateStore
	logger   *slog.Logger

	primed  bool
	current slot.Result
	running bool
}

func NewTracker(notifier Notifier, taskFile string, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tracker{notifier: notifier, taskFile: taskFile, logger: logger}
}

// ShareWith records announcements in s so that an editor and a watcher
// running side by side announce each slot once.
func (t *Tracker) ShareWith(s StateStore) {
	t.shared = s
}

// Observe finds the slot containing now and reports whether it differs from
// the one seen last time. Entering a new slot writes its name to the task
// file and sends a notification; the first observation only writes the file.
func (t *Tracker) Observe(results []slot.Result, now time.Time) (slot.Result, bool) {
	cur, ok := slot.Current(results, slot.SinceMidnight(now))

	if !t.primed {
		t.primed = true
		t.current, t.running = cur, ok
		if ok {
			t.writeTask(cur)
			t.claim(now, cur)
		}
		return cur, false
	}

	if ok == t.running && cur == t.current {
		return cur, false
	}
	t.current, t.running = cur, ok
	if !ok {
		return cur, false
	}

	t.writeTask(cur)
	if !t.claim(now, cur) {
		t.logger.Debug("slot already announced", "name", cur.Source.Name)
		return cur, true
	}

	t.logger.Info("new task", "name", cur.Source.Name, "start", slot.FormatClock(cur.Start), "length", cur.Length)
	if t.notifier != nil {
		if err := t.notifier.Notify("dayslot", "new task: "+cur.Source.Name); err != nil {
			t.logger.Warn("notification failed", "error", err)
		}
	}
	return cur, true
}

// Current returns the slot seen by the last observation.
func (t *Tracker) Current() (slot.Result, bool) {
	return t.current, t.running
}

// claim marks r as announced and reports whether nobody had done so yet.
func (t *Tracker) claim(now time.Time, r slot.Result) bool {
	if t.shared == nil {
		return true
	}
	key := fmt.Sprintf("%s %s %s %s", now.Format("2006-01-02"), slot.FormatClock(r.Start), r.Length, r.Source.Name)

	prev, err := t.shared.GetState(announcedKey)
	if err != nil {
		t.logger.Warn("reading announced slot", "error", err)
		return true
	}
	if prev == key {
		return false
	}
	if err := t.shared.SetState(announcedKey, key); err != nil {
		t.logger.Warn("recording announced slot", "error", err)
	}
	return true
}

func (t *Tracker) writeTask(r slot.Result) {
	if t.taskFile == "" {
		return
	}
	if err := os.WriteFile(t.taskFile, []byte(r.Source.Name), 0644); err != nil {
		t.logger.Warn("writing current task file", "path", t.taskFile, "error", err)
	}
}
