package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/dayslot/internal/planner"
	"github.com/christopherklint97/dayslot/internal/scheduler"
	"github.com/christopherklint97/dayslot/internal/slot"
	"github.com/christopherklint97/dayslot/internal/store"
)

var testNow = time.Date(2025, 3, 4, 10, 30, 0, 0, time.Local)

func newTestApp(t *testing.T, reqs []slot.Request) (*App, *store.DB) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if reqs != nil {
		if err := db.SaveDay(testNow, reqs); err != nil {
			t.Fatalf("SaveDay() error = %v", err)
		}
	}

	p := planner.New(db, slot.Window{Start: 7 * time.Hour, Span: 16 * time.Hour}, nil, nil)
	day, err := p.Load(testNow)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	app := NewApp(p, day, Options{
		DefaultLength: 30 * time.Minute,
		Tracker:       scheduler.NewTracker(nil, "", nil),
		Activities:    db,
	})
	app.now = func() time.Time { return testNow }
	return app, db
}

func press(a *App, keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "delete":
			msg = tea.KeyMsg{Type: tea.KeyDelete}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		a.Update(msg)
	}
}

func stored(t *testing.T, db *store.DB) []slot.Request {
	t.Helper()
	reqs, _, err := db.LoadDay(testNow)
	if err != nil {
		t.Fatalf("LoadDay() error = %v", err)
	}
	return reqs
}

func TestApp_InsertAndDelete(t *testing.T) {
	app, db := newTestApp(t, nil)

	press(app, "i", "i")
	if got := stored(t, db); len(got) != 2 || got[0].Name != slot.DefaultName || got[0].Length != 30*time.Minute {
		t.Fatalf("stored = %+v, want two default requests", got)
	}

	press(app, "x")
	if got := stored(t, db); len(got) != 1 {
		t.Errorf("after delete stored %d requests, want 1", len(got))
	}
}

func TestApp_RejectedEditLeavesDayAlone(t *testing.T) {
	app, db := newTestApp(t, []slot.Request{
		slot.NewRequest("a", time.Hour).WithStart(9 * time.Hour),
		slot.NewRequest("b", time.Hour).WithStart(12 * time.Hour),
	})

	press(app, "f")
	if app.status == "" {
		t.Error("swapping anchors out of order set no status")
	}
	if got := stored(t, db); got[0].Name != "a" {
		t.Errorf("stored = %+v, want the original order", got)
	}
}

func TestApp_BeginNowAnchorsRow(t *testing.T) {
	app, db := newTestApp(t, []slot.Request{slot.NewRequest("write", time.Hour)})

	press(app, "b")
	got := stored(t, db)
	if !got[0].HasFixedStart || got[0].FixedStart != 10*time.Hour+30*time.Minute {
		t.Errorf("stored = %+v, want anchored at 10:30", got[0])
	}

	// enter on an anchored start clears it
	press(app, "l", "enter")
	if got := stored(t, db); got[0].HasFixedStart {
		t.Error("enter on the start column did not clear the anchor")
	}
}

func TestApp_EditName(t *testing.T) {
	app, db := newTestApp(t, []slot.Request{slot.NewRequest("draft", time.Hour)})

	press(app, "enter")
	if !app.edit.active {
		t.Fatal("enter did not open the prompt")
	}
	app.edit.textInput.SetValue("review")
	press(app, "enter")

	got := stored(t, db)
	if got[0].Name != "review" {
		t.Errorf("Name = %s, want review", got[0].Name)
	}
	act, err := db.EnsureActivity("review")
	if err != nil {
		t.Fatalf("EnsureActivity() error = %v", err)
	}
	if got[0].ActivityID != act.ID {
		t.Errorf("ActivityID = %s, want %s", got[0].ActivityID, act.ID)
	}
}

func TestApp_EditRequestedAndToggleFixed(t *testing.T) {
	app, db := newTestApp(t, []slot.Request{slot.NewRequest("draft", time.Hour)})

	press(app, "l", "l", "enter")
	app.edit.textInput.SetValue("45")
	press(app, "enter")
	press(app, "l", "enter")

	got := stored(t, db)
	if got[0].Length != 45*time.Minute || !got[0].FixedLength {
		t.Errorf("stored = %+v, want 45m fixed-length", got[0])
	}
}

func TestApp_EscCancelsPrompt(t *testing.T) {
	app, db := newTestApp(t, []slot.Request{slot.NewRequest("draft", time.Hour)})

	press(app, "enter")
	app.edit.textInput.SetValue("changed")
	press(app, "esc")

	if app.edit.active {
		t.Error("esc left the prompt open")
	}
	if got := stored(t, db); got[0].Name != "draft" {
		t.Errorf("Name = %s, want draft", got[0].Name)
	}
}

func TestApp_SwitchDay(t *testing.T) {
	app, _ := newTestApp(t, nil)

	press(app, "m")
	if want := planner.Midnight(testNow).AddDate(0, 0, 1); !app.Day().Date.Equal(want) {
		t.Errorf("Date = %v, want %v", app.Day().Date, want)
	}
	press(app, "n", "n")
	if want := planner.Midnight(testNow).AddDate(0, 0, -1); !app.Day().Date.Equal(want) {
		t.Errorf("Date = %v, want %v", app.Day().Date, want)
	}
}

func TestApp_ViewMarksCurrentSlot(t *testing.T) {
	app, _ := newTestApp(t, []slot.Request{slot.NewRequest("write", time.Hour)})

	if v := app.View(); !containsAll(v, "write", "🕐") {
		t.Errorf("View() = %q, want the current slot marked", v)
	}
}

func TestParseStart(t *testing.T) {
	if got, err := parseStart("09:15", testNow); err != nil || got != 9*time.Hour+15*time.Minute {
		t.Errorf("parseStart(09:15) = %s, %v", got, err)
	}
	if got, err := parseStart("in 2 hours", testNow); err != nil || got != 12*time.Hour+30*time.Minute {
		t.Errorf("parseStart(in 2 hours) = %s, %v; want 12h30m0s", got, err)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
