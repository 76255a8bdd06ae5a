package slot

import (
	"math"
	"time"
)

// Block is a maximal run of consecutive requests sharing one window between
// two anchors. Members is never empty.
type Block struct {
	Start   time.Duration
	End     time.Duration
	Members []Request
}

// Partition splits reqs into blocks. A request with a fixed start closes the
// pending block at that start and opens the next one. The last block ends at
// dayStart+span. When the first request is anchored, its start replaces
// dayStart.
//
// Boundaries are never clamped, so an anchored request that opens a block
// always starts exactly at its fixed start, even when the day window is
// misconfigured around it.
func Partition(dayStart, span time.Duration, reqs []Request) []Block {
	if len(reqs) == 0 {
		return nil
	}
	if reqs[0].HasFixedStart {
		dayStart = reqs[0].FixedStart
	}

	var blocks []Block
	var buf []Request
	next := dayStart

	for _, r := range reqs {
		if r.HasFixedStart && len(buf) > 0 {
			blocks = append(blocks, Block{Start: next, End: r.FixedStart, Members: buf})
			next = r.FixedStart
			buf = nil
		}
		buf = append(buf, r)
	}
	blocks = append(blocks, Block{Start: next, End: dayStart + span, Members: buf})

	return blocks
}

// Budget is the aggregate demand of one block.
type Budget struct {
	Span          time.Duration
	FixedDemand   time.Duration
	ElasticDemand time.Duration
	// ElasticBudget is the span left once fixed demand is served, never
	// negative.
	ElasticBudget time.Duration
}

// Budget sums the demand of the block's members.
func (b Block) Budget() Budget {
	bud := Budget{Span: b.End - b.Start}
	for _, r := range b.Members {
		if r.FixedLength {
			bud.FixedDemand += r.Length
		} else {
			bud.ElasticDemand += r.Length
		}
	}
	bud.ElasticBudget = max(0, bud.Span-bud.FixedDemand)
	return bud
}

// Ratios are the scale factors applied to requested lengths.
type Ratios struct {
	Fixed   float64
	Elastic float64
	// Tag is set on fixed-length members when Fixed had to rescale them.
	Tag Feasibility
}

// Ratios computes how fixed and elastic members scale to fill the span.
//
// Fixed members keep their length whenever elastic members can absorb the
// rest. When nothing is elastic, or the fixed demand alone overflows the
// span, every member is scaled by span/fixed and elastic members collapse to
// zero.
func (b Budget) Ratios() Ratios {
	span := max(0, b.Span)
	r := Ratios{Fixed: 1}

	if b.FixedDemand > 0 {
		exceeds := b.FixedDemand > span
		if b.ElasticDemand == 0 || exceeds {
			r.Fixed = float64(span) / float64(b.FixedDemand)
			r.Tag = NoElasticSlack
			if exceeds {
				r.Tag = FixedDemandExceedsSpan
			}
			return r
		}
	}

	if b.ElasticDemand > 0 {
		r.Elastic = float64(b.ElasticBudget) / float64(b.ElasticDemand)
	}
	return r
}

// Build lays the members out back to back from the block start.
//
// Lengths are rounded to whole seconds on the cumulative timeline: each
// member ends at the rounded ideal end, so rounding never drifts across a
// block. A block whose members fill it ends exactly at its boundary, so
// adjacent blocks never overlap even when an anchor is not on a whole second.
func (b Block) Build() []Result {
	ratios := b.Budget().Ratios()
	out := make([]Result, 0, len(b.Members))

	var ideal float64
	span := roundSecond(float64(b.End - b.Start))
	cursor := b.Start
	for i, m := range b.Members {
		ratio := ratios.Elastic
		feas := OK
		if m.FixedLength {
			ratio = ratios.Fixed
			feas = ratios.Tag
		}

		ideal += float64(m.Length) * ratio
		end := b.Start + roundSecond(ideal)
		if i == len(b.Members)-1 && end-b.Start == span {
			end = b.End
		}
		length := max(0, end-cursor)

		out = append(out, Result{
			Start:       cursor,
			Length:      length,
			Feasibility: feas,
			Source:      m,
		})
		cursor += length
	}

	return out
}

func roundSecond(d float64) time.Duration {
	return time.Duration(math.Round(d/float64(time.Second))) * time.Second
}
