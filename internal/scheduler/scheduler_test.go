package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/christopherklint97/dayslot/internal/planner"
	"github.com/christopherklint97/dayslot/internal/slot"
	"github.com/christopherklint97/dayslot/internal/store"
)

type recordingNotifier struct {
	bodies []string
	err    error
}

func (n *recordingNotifier) Notify(title, body string) error {
	n.bodies = append(n.bodies, body)
	return n.err
}

var testDay = time.Date(2025, 3, 4, 0, 0, 0, 0, time.Local)

func clock(h, m int) time.Time {
	return testDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

type memState map[string]string

func (m memState) GetState(key string) (string, error) { return m[key], nil }

func (m memState) SetState(key, value string) error {
	m[key] = value
	return nil
}

func plan() []slot.Result {
	return slot.Compute(8*time.Hour, 2*time.Hour, []slot.Request{
		slot.NewRequest("write", time.Hour),
		slot.NewRequest("read", time.Hour),
	})
}

func TestTracker_NotifiesOncePerTransition(t *testing.T) {
	n := &recordingNotifier{}
	taskFile := filepath.Join(t.TempDir(), "current_task")
	tr := NewTracker(n, taskFile, nil)
	results := plan()

	if _, changed := tr.Observe(results, clock(8, 10)); changed {
		t.Error("first Observe() reported a change")
	}
	if data, _ := os.ReadFile(taskFile); string(data) != "write" {
		t.Errorf("task file = %q, want %q", data, "write")
	}

	if _, changed := tr.Observe(results, clock(8, 20)); changed {
		t.Error("Observe() inside the same slot reported a change")
	}

	cur, changed := tr.Observe(results, clock(9, 5))
	if !changed || cur.Source.Name != "read" {
		t.Errorf("Observe() = %s, %v; want read, true", cur.Source.Name, changed)
	}
	if _, changed := tr.Observe(results, clock(9, 6)); changed {
		t.Error("Observe() repeated the transition")
	}

	if len(n.bodies) != 1 || n.bodies[0] != "new task: read" {
		t.Errorf("notifications = %q, want one for read", n.bodies)
	}
	if data, _ := os.ReadFile(taskFile); string(data) != "read" {
		t.Errorf("task file = %q, want %q", data, "read")
	}
}

func TestTracker_LeavingThePlanIsSilent(t *testing.T) {
	n := &recordingNotifier{}
	tr := NewTracker(n, "", nil)
	results := plan()

	tr.Observe(results, clock(9, 30))
	if _, changed := tr.Observe(results, clock(11, 0)); changed {
		t.Error("Observe() after the plan reported a change")
	}
	if _, ok := tr.Current(); ok {
		t.Error("Current() still reports a slot after the plan ended")
	}
	if _, changed := tr.Observe(results, clock(8, 30)); !changed {
		t.Error("Observe() re-entering the plan reported no change")
	}
	if len(n.bodies) != 1 {
		t.Errorf("notifications = %q, want exactly one", n.bodies)
	}
}

func TestTracker_NotifyFailureIsNotFatal(t *testing.T) {
	n := &recordingNotifier{err: errors.New("no bus")}
	tr := NewTracker(n, "", nil)
	results := plan()

	tr.Observe(results, clock(8, 30))
	if _, changed := tr.Observe(results, clock(9, 30)); !changed {
		t.Error("Observe() reported no change when the notifier failed")
	}
}

func TestTracker_SharedStateAnnouncesOnce(t *testing.T) {
	shared := memState{}
	editor, watcher := &recordingNotifier{}, &recordingNotifier{}
	a := NewTracker(editor, "", nil)
	b := NewTracker(watcher, "", nil)
	a.ShareWith(shared)
	b.ShareWith(shared)
	results := plan()

	a.Observe(results, clock(8, 30))
	b.Observe(results, clock(8, 30))
	a.Observe(results, clock(9, 10))
	if _, changed := b.Observe(results, clock(9, 10)); !changed {
		t.Error("second tracker did not see the transition")
	}

	if got := len(editor.bodies) + len(watcher.bodies); got != 1 {
		t.Errorf("notifications = %d, want 1 across both trackers", got)
	}

	// The same slot on another day is announced again.
	next := plan()
	a.Observe(next, clock(8, 30).AddDate(0, 0, 1))
	if len(editor.bodies) != 2 {
		t.Errorf("editor notifications = %d, want 2", len(editor.bodies))
	}
}

func TestWatcher_PollReadsStore(t *testing.T) {
	t.Setenv("DAYSLOT_CONFIG_DIR", t.TempDir())

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.Local)
	if err := db.SaveDay(now, []slot.Request{slot.NewRequest("focus", time.Hour)}); err != nil {
		t.Fatalf("SaveDay() error = %v", err)
	}

	p := planner.New(db, slot.Window{Start: 7 * time.Hour, Span: 16 * time.Hour}, nil, nil)
	tr := NewTracker(nil, "", nil)
	w := NewWatcher(p, tr, time.Hour, nil)
	w.now = func() time.Time { return now }

	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if cur, ok := tr.Current(); !ok || cur.Source.Name != "focus" {
		t.Errorf("Current() = %+v, %v; want focus", cur, ok)
	}
}

func TestWatcher_RunWritesPIDUntilCancelled(t *testing.T) {
	t.Setenv("DAYSLOT_CONFIG_DIR", t.TempDir())

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	p := planner.New(db, slot.Window{Start: 7 * time.Hour, Span: 16 * time.Hour}, nil, nil)
	w := NewWatcher(p, NewTracker(nil, "", nil), 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if pid, err := ReadPID(); err == nil {
			if pid != os.Getpid() {
				t.Errorf("ReadPID() = %d, want %d", pid, os.Getpid())
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("PID file never appeared")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if _, err := ReadPID(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("ReadPID() after stop error = %v, want ErrNotRunning", err)
	}
}
