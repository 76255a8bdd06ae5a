package slot

import "time"

// List is an ordered sequence of requests whose fixed starts never go
// backwards. Every mutator builds a candidate copy, validates it in full and
// commits only when it is still ordered. Rejected edits leave the list
// untouched and report false.
//
// A List is not safe for concurrent use.
type List struct {
	reqs []Request
}

// NewList builds a list from reqs, stripping any fixed start that would break
// the ordering.
func NewList(reqs []Request) *List {
	l, _ := Repaired(reqs)
	return l
}

// Repaired is NewList that also reports how many fixed starts were stripped.
func Repaired(reqs []Request) (*List, int) {
	l := &List{reqs: append([]Request(nil), reqs...)}
	return l, l.Repair()
}

// Valid reports whether the fixed starts in reqs are non-decreasing.
func Valid(reqs []Request) bool {
	seen := false
	var last time.Duration
	for _, r := range reqs {
		if !r.HasFixedStart {
			continue
		}
		if seen && r.FixedStart < last {
			return false
		}
		seen = true
		last = r.FixedStart
	}
	return true
}

func (l *List) Len() int {
	return len(l.reqs)
}

// At returns a copy of the request at idx.
func (l *List) At(idx int) (Request, bool) {
	if idx < 0 || idx >= len(l.reqs) {
		return Request{}, false
	}
	return l.reqs[idx], true
}

// Requests returns a snapshot of the sequence.
func (l *List) Requests() []Request {
	return append([]Request(nil), l.reqs...)
}

func (l *List) inRange(idx int) bool {
	return idx >= 0 && idx < len(l.reqs)
}

func (l *List) commit(candidate []Request) bool {
	if !Valid(candidate) {
		return false
	}
	l.reqs = candidate
	return true
}

// Insert places req at idx, clamped to [0, Len()].
func (l *List) Insert(idx int, req Request) bool {
	idx = max(0, min(idx, len(l.reqs)))
	candidate := make([]Request, 0, len(l.reqs)+1)
	candidate = append(candidate, l.reqs[:idx]...)
	candidate = append(candidate, req)
	candidate = append(candidate, l.reqs[idx:]...)
	return l.commit(candidate)
}

// Remove deletes the request at idx. Removal cannot break the ordering.
func (l *List) Remove(idx int) bool {
	if !l.inRange(idx) {
		return false
	}
	candidate := make([]Request, 0, len(l.reqs)-1)
	candidate = append(candidate, l.reqs[:idx]...)
	candidate = append(candidate, l.reqs[idx+1:]...)
	return l.commit(candidate)
}

// SetStart anchors the request at idx to t.
func (l *List) SetStart(idx int, t time.Duration) bool {
	if !l.inRange(idx) {
		return false
	}
	return l.Replace(idx, l.reqs[idx].WithStart(t))
}

// UnsetStart clears the anchor of the request at idx.
func (l *List) UnsetStart(idx int) bool {
	if !l.inRange(idx) {
		return false
	}
	return l.Replace(idx, l.reqs[idx].WithoutStart())
}

// Swap exchanges the requests at i and j.
func (l *List) Swap(i, j int) bool {
	if !l.inRange(i) || !l.inRange(j) {
		return false
	}
	candidate := l.Requests()
	candidate[i], candidate[j] = candidate[j], candidate[i]
	return l.commit(candidate)
}

// Replace overwrites the request at idx.
func (l *List) Replace(idx int, req Request) bool {
	if !l.inRange(idx) {
		return false
	}
	candidate := l.Requests()
	candidate[idx] = req
	return l.commit(candidate)
}

// Place inserts an anchored request in front of the first request anchored
// later than it. Unanchored requests are appended.
func (l *List) Place(req Request) bool {
	if !req.HasFixedStart {
		return l.Insert(len(l.reqs), req)
	}
	idx := len(l.reqs)
	for i, r := range l.reqs {
		if r.HasFixedStart && r.FixedStart > req.FixedStart {
			idx = i
			break
		}
	}
	return l.Insert(idx, req)
}

// Repair strips every fixed start that is earlier than a fixed start seen
// before it and returns how many were stripped.
func (l *List) Repair() int {
	stripped := 0
	seen := false
	var highest time.Duration
	for i, r := range l.reqs {
		if !r.HasFixedStart {
			continue
		}
		if seen && r.FixedStart < highest {
			l.reqs[i] = r.WithoutStart()
			stripped++
			continue
		}
		seen = true
		highest = r.FixedStart
	}
	return stripped
}
