package store

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/christopherklint97/dayslot/internal/slot"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "dayslot.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDay_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	date := time.Date(2025, 3, 28, 0, 0, 0, 0, time.Local)

	reqs := []slot.Request{
		{Name: "email", Length: 20 * time.Minute},
		slot.Request{Name: "standup", ActivityID: uuid.New(), Length: 15 * time.Minute, FixedLength: true}.WithStart(9 * time.Hour),
		{Name: "lunch", Length: time.Hour, FixedLength: true},
	}
	if err := db.SaveDay(date, reqs); err != nil {
		t.Fatalf("SaveDay() error = %v", err)
	}

	got, found, err := db.LoadDay(date)
	if err != nil {
		t.Fatalf("LoadDay() error = %v", err)
	}
	if !found {
		t.Fatal("LoadDay() found = false, want true")
	}
	if !slices.Equal(got, reqs) {
		t.Errorf("LoadDay() = %+v, want %+v", got, reqs)
	}
}

func TestDay_SaveReplaces(t *testing.T) {
	db := openTestDB(t)
	date := time.Date(2025, 3, 28, 0, 0, 0, 0, time.Local)

	if err := db.SaveDay(date, []slot.Request{{Name: "a"}, {Name: "b"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveDay(date, []slot.Request{{Name: "c"}}); err != nil {
		t.Fatal(err)
	}

	got, _, err := db.LoadDay(date)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "c" {
		t.Errorf("LoadDay() = %+v, want only c", got)
	}
}

func TestDay_EmptyDayIsFound(t *testing.T) {
	db := openTestDB(t)
	date := time.Date(2025, 4, 1, 0, 0, 0, 0, time.Local)

	if _, found, _ := db.LoadDay(date); found {
		t.Error("LoadDay() on an unknown day found = true")
	}
	if err := db.SaveDay(date, nil); err != nil {
		t.Fatal(err)
	}
	got, found, err := db.LoadDay(date)
	if err != nil || !found || len(got) != 0 {
		t.Errorf("LoadDay() = %v, %v, %v; want empty, true, nil", got, found, err)
	}

	days, err := db.ListDays()
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 || DayKey(days[0]) != "2025-04-01" {
		t.Errorf("ListDays() = %v, want [2025-04-01]", days)
	}
}

func TestActivities(t *testing.T) {
	db := openTestDB(t)

	a, err := db.CreateActivity("reading")
	if err != nil {
		t.Fatalf("CreateActivity() error = %v", err)
	}
	same, err := db.EnsureActivity(" reading ")
	if err != nil {
		t.Fatalf("EnsureActivity() error = %v", err)
	}
	if same.ID != a.ID {
		t.Errorf("EnsureActivity() id = %s, want %s", same.ID, a.ID)
	}

	if _, err := db.EnsureActivity("running"); err != nil {
		t.Fatalf("EnsureActivity() error = %v", err)
	}
	all, err := db.ListActivities()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Name != "reading" || all[1].Name != "running" {
		t.Errorf("ListActivities() = %+v", all)
	}

	if _, err := db.GetActivity(uuid.New()); !errors.Is(err, ErrActivityNotFound) {
		t.Errorf("GetActivity() error = %v, want ErrActivityNotFound", err)
	}
	if _, err := db.CreateActivity("  "); err == nil {
		t.Error("CreateActivity() with a blank name returned no error")
	}
}

func TestState(t *testing.T) {
	db := openTestDB(t)

	if v, err := db.GetState("current"); err != nil || v != "" {
		t.Errorf("GetState() = %q, %v; want empty", v, err)
	}
	if err := db.SetState("current", "reading"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetState("current", "writing"); err != nil {
		t.Fatal(err)
	}
	if v, _ := db.GetState("current"); v != "writing" {
		t.Errorf("GetState() = %q, want writing", v)
	}
}
