// Package planner owns the per-day records: loading and repairing them,
// seeding new days from templates, and persisting edits.
package planner

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/christopherklint97/dayslot/internal/slot"
	"github.com/christopherklint97/dayslot/internal/store"
)

// DayStore persists the request list of each date.
type DayStore interface {
	LoadDay(date time.Time) ([]slot.Request, bool, error)
	SaveDay(date time.Time, reqs []slot.Request) error
}

type Planner struct {
	store     DayStore
	window    slot.Window
	templates []Template
	logger    *slog.Logger
	days      map[string]*Day
}

func New(ds DayStore, window slot.Window, templates []Template, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Planner{
		store:     ds,
		window:    window,
		templates: templates,
		logger:    logger,
		days:      make(map[string]*Day),
	}
}

func (p *Planner) Window() slot.Window {
	return p.window
}

// Load returns the record of date, reading it from the store on first use.
// Stored lists are repaired; days never saved before are seeded from the
// matching templates and saved.
func (p *Planner) Load(date time.Time) (*Day, error) {
	date = Midnight(date)
	if d, ok := p.days[store.DayKey(date)]; ok {
		return d, nil
	}

	list, err := p.read(date)
	if err != nil {
		return nil, err
	}

	d := newDay(date, list)
	p.days[store.DayKey(date)] = d
	return d, nil
}

// Refresh re-reads date from the store, picking up edits made by another
// process. The day's cached timeline survives when nothing changed.
func (p *Planner) Refresh(date time.Time) (*Day, error) {
	date = Midnight(date)
	d, ok := p.days[store.DayKey(date)]
	if !ok {
		return p.Load(date)
	}

	list, err := p.read(date)
	if err != nil {
		return nil, err
	}
	d.Requests = list
	return d, nil
}

func (p *Planner) read(date time.Time) (*slot.List, error) {
	key := store.DayKey(date)

	reqs, found, err := p.store.LoadDay(date)
	if err != nil {
		return nil, fmt.Errorf("loading day %s: %w", key, err)
	}

	if !found {
		list := slot.NewList(nil)
		for _, t := range p.templates {
			if t.Matches(date) {
				n := t.Apply(list)
				p.logger.Debug("seeded day from template", "date", key, "template", t.Name, "slots", n)
			}
		}
		if err := p.store.SaveDay(date, list.Requests()); err != nil {
			return nil, fmt.Errorf("saving new day %s: %w", key, err)
		}
		return list, nil
	}

	list, stripped := slot.Repaired(reqs)
	if stripped > 0 {
		p.logger.Warn("stripped out-of-order fixed starts", "date", key, "count", stripped)
		if err := p.store.SaveDay(date, list.Requests()); err != nil {
			return nil, fmt.Errorf("saving repaired day %s: %w", key, err)
		}
	}
	return list, nil
}

// Edit applies edit to a copy of the day's list and swaps it in once the
// day is saved. It returns whether the edit took effect; on a save error the
// day keeps its previous list.
func (p *Planner) Edit(d *Day, edit func(l *slot.List) bool) (bool, error) {
	next := slot.NewList(d.Requests.Requests())
	if !edit(next) {
		return false, nil
	}
	if err := p.store.SaveDay(d.Date, next.Requests()); err != nil {
		return false, fmt.Errorf("saving day %s: %w", store.DayKey(d.Date), err)
	}
	d.Requests = next
	p.logger.Debug("saved day", "date", store.DayKey(d.Date), "slots", next.Len())
	return true, nil
}

// Slots loads date and computes its timeline.
func (p *Planner) Slots(date time.Time) ([]slot.Result, error) {
	d, err := p.Load(date)
	if err != nil {
		return nil, err
	}
	return d.Slots(p.window), nil
}
