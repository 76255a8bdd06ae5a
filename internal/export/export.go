// Package export renders a computed day as JSON for other tools.
package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"

	"github.com/christopherklint97/dayslot/internal/slot"
)

type Document struct {
	Date   string `json:"date" jsonschema:"description=Plan date (YYYY-MM-DD)"`
	Window Window `json:"window"`
	Slots  []Slot `json:"slots"`
}

type Window struct {
	Start   string `json:"start" jsonschema:"description=Default day start (HH:MM)"`
	Minutes int    `json:"minutes" jsonschema:"minimum=1"`
}

type Slot struct {
	Name             string `json:"name"`
	ActivityID       string `json:"activity_id,omitempty" jsonschema:"format=uuid"`
	Start            string `json:"start" jsonschema:"description=Computed start (HH:MM)"`
	Seconds          int64  `json:"seconds" jsonschema:"minimum=0"`
	RequestedSeconds int64  `json:"requested_seconds" jsonschema:"minimum=0"`
	FixedStart       string `json:"fixed_start,omitempty"`
	FixedLength      bool   `json:"fixed_length"`
	Feasibility      string `json:"feasibility" jsonschema:"enum=ok,enum=no_elastic_slack,enum=fixed_demand_exceeds_span"`
}

// FromResults builds the document for one day.
func FromResults(date time.Time, w slot.Window, results []slot.Result) Document {
	doc := Document{
		Date:   date.Format("2006-01-02"),
		Window: Window{Start: slot.FormatClock(w.Start), Minutes: int(w.Span / time.Minute)},
		Slots:  make([]Slot, 0, len(results)),
	}
	for _, r := range results {
		s := Slot{
			Name:             r.Source.Name,
			Start:            slot.FormatClock(r.Start),
			Seconds:          int64(r.Length / time.Second),
			RequestedSeconds: int64(r.Source.Length / time.Second),
			FixedLength:      r.Source.FixedLength,
			Feasibility:      r.Feasibility.String(),
		}
		if r.Source.ActivityID != uuid.Nil {
			s.ActivityID = r.Source.ActivityID.String()
		}
		if start, ok := r.Source.StartAt(); ok {
			s.FixedStart = slot.FormatClock(start)
		}
		doc.Slots = append(doc.Slots, s)
	}
	return doc
}

// Marshal encodes doc as indented JSON.
func Marshal(doc Document) ([]byte, error) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	return out, nil
}

// Schema returns the JSON Schema of Document.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{DoNotReference: true}
	out, err := json.MarshalIndent(r.Reflect(&Document{}), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	return out, nil
}
