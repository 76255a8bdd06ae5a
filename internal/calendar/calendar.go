package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"

	"github.com/christopherklint97/dayslot/internal/slot"
)

// Event represents a parsed calendar event.
type Event struct {
	Summary   string
	StartTime time.Time
	EndTime   time.Time
}

// Source lists the events overlapping a time window.
type Source interface {
	Events(ctx context.Context, start, end time.Time) ([]Event, error)
}

// File is an iCalendar feed read from a URL or a local path.
type File struct {
	Location string
}

func (f File) Events(ctx context.Context, start, end time.Time) ([]Event, error) {
	return Fetch(ctx, f.Location, start, end)
}

// Fetch retrieves and parses iCalendar events from a URL or file path,
// returning events that overlap with the given time window.
func Fetch(ctx context.Context, source string, windowStart, windowEnd time.Time) ([]Event, error) {
	var r io.ReadCloser

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching calendar: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("calendar fetch returned status %d", resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening calendar file: %w", err)
		}
		r = f
	}
	defer r.Close()

	dec := ical.NewDecoder(r)
	var events []Event

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}

		for _, component := range cal.Children {
			if component.Name != ical.CompEvent {
				continue
			}
			event := ical.Event{Component: component}

			start, err := event.DateTimeStart(nil)
			if err != nil {
				continue // skip malformed events
			}
			end, err := event.DateTimeEnd(nil)
			if err != nil {
				continue
			}

			// Include events that overlap with the window
			if start.Before(windowEnd) && end.After(windowStart) {
				summary, _ := event.Props.Text(ical.PropSummary)
				if summary != "" {
					events = append(events, Event{
						Summary:   summary,
						StartTime: start,
						EndTime:   end,
					})
				}
			}
		}
	}

	return events, nil
}

// GroupByDay groups events by date string (YYYY-MM-DD in local time).
func GroupByDay(events []Event) map[string][]Event {
	grouped := make(map[string][]Event)
	for _, e := range events {
		key := e.StartTime.Local().Format("2006-01-02")
		grouped[key] = append(grouped[key], e)
	}
	return grouped
}

// ToRequests converts the events starting on date into anchored,
// fixed-length requests ordered by start. Events running past midnight are
// cut at the end of the day.
func ToRequests(events []Event, date time.Time) []slot.Request {
	key := date.Format("2006-01-02")
	day := GroupByDay(events)[key]
	sort.SliceStable(day, func(i, j int) bool {
		return day[i].StartTime.Before(day[j].StartTime)
	})

	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.Local)
	nextMidnight := midnight.AddDate(0, 0, 1)

	reqs := make([]slot.Request, 0, len(day))
	for _, e := range day {
		start := e.StartTime.Local()
		end := e.EndTime.Local()
		if end.After(nextMidnight) {
			end = nextMidnight
		}
		length := end.Sub(start)
		if length < 0 {
			length = 0
		}
		reqs = append(reqs, slot.Request{
			Name:        e.Summary,
			Length:      length.Round(time.Second),
			FixedLength: true,
		}.WithStart(start.Sub(midnight).Round(time.Second)))
	}
	return reqs
}
