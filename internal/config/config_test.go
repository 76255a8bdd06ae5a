package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFile_MissingUsesDefaults(t *testing.T) {
	t.Setenv("DAYSLOT_DAY_START", "")
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	w, err := cfg.Window()
	if err != nil {
		t.Fatalf("Window() error = %v", err)
	}
	if w.Start != 7*time.Hour || w.Span != 16*time.Hour {
		t.Errorf("Window() = %+v, want 07:00 + 16h", w)
	}
	if cfg.PollInterval() != 5*time.Second {
		t.Errorf("PollInterval() = %s, want 5s", cfg.PollInterval())
	}
}

func TestLoadFile_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `[day]
start = "08:30"
span_minutes = 600

[[templates]]
name = "mornings"
rrule = "FREQ=DAILY"

[[templates.slots]]
name = "coffee"
start = "08:30"
length_minutes = 15
fixed_length = true
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	w, _ := cfg.Window()
	if w.Start != 8*time.Hour+30*time.Minute || w.Span != 10*time.Hour {
		t.Errorf("Window() = %+v, want 08:30 + 10h", w)
	}
	if cfg.DefaultLength() != time.Hour {
		t.Errorf("DefaultLength() = %s, want 1h0m0s kept from defaults", cfg.DefaultLength())
	}
	if len(cfg.Templates) != 1 || len(cfg.Templates[0].Slots) != 1 {
		t.Fatalf("Templates = %+v, want one template with one slot", cfg.Templates)
	}
	if s := cfg.Templates[0].Slots[0]; s.Name != "coffee" || !s.FixedLength || s.LengthMinutes != 15 {
		t.Errorf("template slot = %+v", s)
	}
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	t.Setenv("DAYSLOT_DAY_START", "06:00")
	t.Setenv("DAYSLOT_DAY_SPAN_MINUTES", "120")
	t.Setenv("DAYSLOT_DB_PATH", "/tmp/plan.db")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	w, _ := cfg.Window()
	if w.Start != 6*time.Hour || w.Span != 2*time.Hour {
		t.Errorf("Window() = %+v, want 06:00 + 2h", w)
	}
	if p, _ := cfg.DBPath(); p != "/tmp/plan.db" {
		t.Errorf("DBPath() = %s, want /tmp/plan.db", p)
	}
}

func TestLoadFile_RejectsBadWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[day]\nstart = \"7am\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() with a bad start returned no error")
	}
}

func TestWriteDefault_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(cfg.Templates) != 1 || cfg.Templates[0].Name != "weekday" {
		t.Errorf("Templates = %+v, want the weekday example", cfg.Templates)
	}
}
