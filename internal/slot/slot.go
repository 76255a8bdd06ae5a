// Package slot turns an ordered list of slot requests into a concrete,
// non-overlapping timeline for one day window.
//
// Time points are offsets from local midnight expressed as time.Duration,
// so 08:30 is 8*time.Hour + 30*time.Minute.
package slot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Request is one planned activity occurrence.
type Request struct {
	Name       string
	ActivityID uuid.UUID
	Length     time.Duration
	// FixedLength marks the length as rigid. Elastic requests shrink or grow
	// to absorb the slack of their block.
	FixedLength bool
	// FixedStart is only meaningful when HasFixedStart is set.
	FixedStart    time.Duration
	HasFixedStart bool
}

// DefaultName is the label given to freshly inserted requests.
const DefaultName = "..."

// NewRequest returns an elastic, unanchored request.
func NewRequest(name string, length time.Duration) Request {
	return Request{Name: name, Length: length}
}

// StartAt returns the fixed start, if any.
func (r Request) StartAt() (time.Duration, bool) {
	return r.FixedStart, r.HasFixedStart
}

// WithStart returns a copy of r anchored at t, truncated to whole seconds.
func (r Request) WithStart(t time.Duration) Request {
	r.FixedStart = t.Truncate(time.Second)
	r.HasFixedStart = true
	return r
}

// WithoutStart returns a copy of r with its anchor cleared.
func (r Request) WithoutStart() Request {
	r.FixedStart = 0
	r.HasFixedStart = false
	return r
}

// Feasibility tags a computed slot whose block could not honor its fixed
// demand as requested.
type Feasibility int

const (
	OK Feasibility = iota
	// NoElasticSlack: the block has fixed demand but nothing elastic to
	// absorb the remaining span, so fixed slots were stretched or shrunk.
	NoElasticSlack
	// FixedDemandExceedsSpan: the fixed slots alone do not fit the block.
	FixedDemandExceedsSpan
)

func (f Feasibility) String() string {
	switch f {
	case OK:
		return "ok"
	case NoElasticSlack:
		return "no_elastic_slack"
	case FixedDemandExceedsSpan:
		return "fixed_demand_exceeds_span"
	}
	return fmt.Sprintf("feasibility(%d)", int(f))
}

// Result is the computed placement of one request.
type Result struct {
	Start       time.Duration
	Length      time.Duration
	Feasibility Feasibility
	Source      Request
}

func (r Result) End() time.Duration {
	return r.Start + r.Length
}

// Contains reports whether t falls strictly inside the slot.
func (r Result) Contains(t time.Duration) bool {
	return r.Start < t && r.End() > t
}

// ParseClock parses an "HH:MM" time of day.
func ParseClock(s string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// FormatClock renders a time of day as "HH:MM". Offsets past midnight wrap.
func FormatClock(t time.Duration) string {
	mins := int(t / time.Minute)
	mins = ((mins % (24 * 60)) + 24*60) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// SinceMidnight returns the offset of t from its local midnight.
func SinceMidnight(t time.Time) time.Duration {
	y, mo, d := t.Date()
	return t.Sub(time.Date(y, mo, d, 0, 0, 0, 0, t.Location()))
}
