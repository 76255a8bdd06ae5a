package planner

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/christopherklint97/dayslot/internal/config"
	"github.com/christopherklint97/dayslot/internal/slot"
)

var defaultAnchor = time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)

// Template seeds new days that fall on its recurrence.
type Template struct {
	Name  string
	Slots []slot.Request

	rule *rrule.RRule
}

// NewTemplate compiles a template from its config entry.
func NewTemplate(cfg config.TemplateConfig) (Template, error) {
	opt, err := rrule.StrToROption(cfg.RRule)
	if err != nil {
		return Template{}, fmt.Errorf("parsing rrule of template %q: %w", cfg.Name, err)
	}
	if opt.Dtstart.IsZero() {
		opt.Dtstart = defaultAnchor
		if cfg.Anchor != "" {
			anchor, err := time.ParseInLocation("2006-01-02", cfg.Anchor, time.Local)
			if err != nil {
				return Template{}, fmt.Errorf("parsing anchor of template %q: %w", cfg.Name, err)
			}
			opt.Dtstart = anchor
		}
	}

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return Template{}, fmt.Errorf("building rrule of template %q: %w", cfg.Name, err)
	}

	t := Template{Name: cfg.Name, rule: rule}
	for _, s := range cfg.Slots {
		req := slot.Request{
			Name:        s.Name,
			Length:      time.Duration(s.LengthMinutes) * time.Minute,
			FixedLength: s.FixedLength,
		}
		if s.Start != "" {
			start, err := slot.ParseClock(s.Start)
			if err != nil {
				return Template{}, fmt.Errorf("template %q slot %q: %w", cfg.Name, s.Name, err)
			}
			req = req.WithStart(start)
		}
		t.Slots = append(t.Slots, req)
	}
	return t, nil
}

// CompileTemplates compiles every configured template.
func CompileTemplates(cfgs []config.TemplateConfig) ([]Template, error) {
	templates := make([]Template, 0, len(cfgs))
	for _, c := range cfgs {
		t, err := NewTemplate(c)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, nil
}

// Matches reports whether date is an occurrence of the template.
func (t Template) Matches(date time.Time) bool {
	start := Midnight(date)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return len(t.rule.Between(start, end, true)) > 0
}

// Apply places the template's slots into l.
func (t Template) Apply(l *slot.List) int {
	placed := 0
	for _, r := range t.Slots {
		if l.Place(r) {
			placed++
		}
	}
	return placed
}
