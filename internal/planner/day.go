package planner

import (
	"slices"
	"time"

	"github.com/christopherklint97/dayslot/internal/memo"
	"github.com/christopherklint97/dayslot/internal/slot"
)

// Day is the record of one calendar date. Its request list is the single
// source of truth; computed slots are derived and cached.
type Day struct {
	Date     time.Time
	Requests *slot.List

	slots *memo.Cache[computeKey, []slot.Result]
}

type computeKey struct {
	window slot.Window
	reqs   []slot.Request
}

func sameKey(a, b computeKey) bool {
	return a.window == b.window && slices.Equal(a.reqs, b.reqs)
}

func newDay(date time.Time, list *slot.List) *Day {
	return &Day{
		Date:     date,
		Requests: list,
		slots:    memo.New[computeKey, []slot.Result](sameKey),
	}
}

// Slots returns the computed timeline of the day. The returned slice is
// shared with later callers and must not be modified.
func (d *Day) Slots(w slot.Window) []slot.Result {
	key := computeKey{window: w, reqs: d.Requests.Requests()}
	return d.slots.Get(key, func(k computeKey) []slot.Result {
		return k.window.Compute(k.reqs)
	})
}

// Current returns the slot running at now, if now falls on this day.
func (d *Day) Current(w slot.Window, now time.Time) (slot.Result, bool) {
	if !sameDate(d.Date, now) {
		return slot.Result{}, false
	}
	return slot.Current(d.Slots(w), slot.SinceMidnight(now))
}

// Midnight truncates t to the start of its local day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
