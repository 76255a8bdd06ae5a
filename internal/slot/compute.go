package slot

import "time"

// Compute allocates every request of a day into the window starting at
// dayStart and lasting daySpan. The result has one entry per request, in
// request order. Compute is pure and never fails: infeasible blocks are
// reported through Result.Feasibility.
func Compute(dayStart, daySpan time.Duration, reqs []Request) []Result {
	out := make([]Result, 0, len(reqs))
	for _, b := range Partition(dayStart, daySpan, reqs) {
		out = append(out, b.Build()...)
	}
	return out
}

// Current returns the slot running at now, if any.
func Current(results []Result, now time.Duration) (Result, bool) {
	for _, r := range results {
		if r.Contains(now) {
			return r, true
		}
	}
	return Result{}, false
}

// Window is the stretch of a day the planner fills.
type Window struct {
	Start time.Duration
	Span  time.Duration
}

func (w Window) End() time.Duration {
	return w.Start + w.Span
}

// Compute runs Compute over the window.
func (w Window) Compute(reqs []Request) []Result {
	return Compute(w.Start, w.Span, reqs)
}
