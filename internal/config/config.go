package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/christopherklint97/dayslot/internal/slot"
)

type Config struct {
	Day           DayConfig        `toml:"day"`
	Store         StoreConfig      `toml:"store"`
	Notifications NotifyConfig     `toml:"notifications"`
	Calendar      CalendarConfig   `toml:"calendar"`
	Templates     []TemplateConfig `toml:"templates"`
}

type DayConfig struct {
	Start                string `toml:"start"`
	SpanMinutes          int    `toml:"span_minutes"`
	DefaultLengthMinutes int    `toml:"default_length_minutes"`
}

type StoreConfig struct {
	Path string `toml:"path"` // empty means ~/.config/dayslot/dayslot.db
}

type NotifyConfig struct {
	Enabled         bool   `toml:"enabled"`
	PollSeconds     int    `toml:"poll_seconds"`
	CurrentTaskFile string `toml:"current_task_file"` // "" disables, "~/" is expanded
}

type CalendarConfig struct {
	Source string      `toml:"source"` // "graph" | ICS URL | file path
	Graph  GraphConfig `toml:"graph"`
}

// GraphConfig identifies the Azure AD app used to read Outlook calendars.
type GraphConfig struct {
	ClientID string `toml:"client_id"`
	TenantID string `toml:"tenant_id"` // empty means "common"
}

// TemplateConfig seeds new days whose date matches RRule.
type TemplateConfig struct {
	Name   string               `toml:"name"`
	RRule  string               `toml:"rrule"`
	Anchor string               `toml:"anchor"` // YYYY-MM-DD, defaults to 2024-01-01
	Slots  []TemplateSlotConfig `toml:"slots"`
}

type TemplateSlotConfig struct {
	Name          string `toml:"name"`
	Start         string `toml:"start"` // HH:MM, optional
	LengthMinutes int    `toml:"length_minutes"`
	FixedLength   bool   `toml:"fixed_length"`
}

func DefaultConfig() Config {
	return Config{
		Day: DayConfig{
			Start:                "07:00",
			SpanMinutes:          16 * 60,
			DefaultLengthMinutes: 60,
		},
		Notifications: NotifyConfig{
			Enabled:         true,
			PollSeconds:     5,
			CurrentTaskFile: "~/.current_task",
		},
	}
}

// Window returns the configured day window.
func (c *Config) Window() (slot.Window, error) {
	start, err := slot.ParseClock(c.Day.Start)
	if err != nil {
		return slot.Window{}, fmt.Errorf("parsing day start: %w", err)
	}
	if c.Day.SpanMinutes <= 0 {
		return slot.Window{}, fmt.Errorf("day span must be positive, got %d minutes", c.Day.SpanMinutes)
	}
	return slot.Window{Start: start, Span: time.Duration(c.Day.SpanMinutes) * time.Minute}, nil
}

// DefaultLength is the length given to freshly inserted slots.
func (c *Config) DefaultLength() time.Duration {
	if c.Day.DefaultLengthMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.Day.DefaultLengthMinutes) * time.Minute
}

// PollInterval is how often the current slot is re-evaluated.
func (c *Config) PollInterval() time.Duration {
	if c.Notifications.PollSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Notifications.PollSeconds) * time.Second
}

// CurrentTaskPath returns the expanded current-task file path, or "" when
// disabled.
func (c *Config) CurrentTaskPath() (string, error) {
	return expandHome(c.Notifications.CurrentTaskFile)
}

// DBPath returns the database location.
func (c *Config) DBPath() (string, error) {
	if c.Store.Path != "" {
		return expandHome(c.Store.Path)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dayslot.db"), nil
}

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, p[2:]), nil
}

func ConfigDir() (string, error) {
	if v := os.Getenv("DAYSLOT_CONFIG_DIR"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "dayslot"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path on top of the defaults. A missing file
// yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if _, err := cfg.Window(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DAYSLOT_DAY_START"); v != "" {
		cfg.Day.Start = v
	}
	if v := os.Getenv("DAYSLOT_DAY_SPAN_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Day.SpanMinutes = n
		}
	}
	if v := os.Getenv("DAYSLOT_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("DAYSLOT_CALENDAR_SOURCE"); v != "" {
		cfg.Calendar.Source = v
	}
	if v := os.Getenv("DAYSLOT_GRAPH_CLIENT_ID"); v != "" {
		cfg.Calendar.Graph.ClientID = v
	}
	if v := os.Getenv("DAYSLOT_GRAPH_TENANT_ID"); v != "" {
		cfg.Calendar.Graph.TenantID = v
	}
	if v, ok := os.LookupEnv("DAYSLOT_CURRENT_TASK_FILE"); ok {
		cfg.Notifications.CurrentTaskFile = v
	}
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// WriteDefault writes the default config to path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	cfg.Templates = []TemplateConfig{{
		Name:  "weekday",
		RRule: "FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR",
		Slots: []TemplateSlotConfig{
			{Name: "standup", Start: "09:00", LengthMinutes: 15, FixedLength: true},
			{Name: "deep work", LengthMinutes: 120},
		},
	}}

	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}
