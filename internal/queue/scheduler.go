// Package queue implements the hold-queue scheduler: a pure recomputation
// of a license pool's availability counters and of every hold's position
// and projected availability date. It performs no I/O; callers feed it a
// snapshot of the pool's current loans and holds and persist the result.
package queue

import (
	"sort"
	"time"
)

// Loan is an active, unexpired loan against the pool. End is the local
// estimate when the remote side has not confirmed one yet.
type Loan struct {
	ID    int
	Start time.Time
	End   time.Time
}

// Hold is a current hold: either still queued, or holding a reserved copy
// (Position == 0).
type Hold struct {
	ID       int
	Start    time.Time
	End      *time.Time
	Position int
}

// Snapshot is the pool state the scheduler works from.
type Snapshot struct {
	LicensesOwned     int
	Loans             []Loan
	Holds             []Hold
	Now               time.Time
	LoanPeriod        time.Duration
	ReservationPeriod time.Duration
}

type Counters struct {
	Available int
	Reserved  int
	InQueue   int
}

// Update carries a hold's recomputed position and end date. End is nil when
// no estimate can be made (a pool that owns no licenses).
type Update struct {
	HoldID   int
	Position int
	End      *time.Time
}

// Recompute derives the pool counters and the per-hold schedule from the
// snapshot. Holds are served strictly in order of their start date; the
// first remaining copies are reserved for the front of the queue, and
// everyone behind them gets a worst-case delivery estimate.
//
// Running Recompute twice over the same state yields the same counters and
// no further updates.
func Recompute(s Snapshot) (Counters, []Update) {
	loans := make([]Loan, len(s.Loans))
	copy(loans, s.Loans)
	sort.Slice(loans, func(i, j int) bool { return loans[i].Start.Before(loans[j].Start) })

	holds := make([]Hold, len(s.Holds))
	copy(holds, s.Holds)
	sort.Slice(holds, func(i, j int) bool {
		if holds[i].Start.Equal(holds[j].Start) {
			return holds[i].ID < holds[j].ID
		}
		return holds[i].Start.Before(holds[j].Start)
	})

	remaining := s.LicensesOwned - len(loans)
	if remaining < 0 {
		remaining = 0
	}

	var c Counters
	c.InQueue = len(holds)
	if len(holds) > remaining {
		c.Available = 0
		c.Reserved = remaining
	} else {
		c.Available = remaining - len(holds)
		c.Reserved = len(holds)
	}

	// Effective reservation expirations for the holds at the front of the
	// queue, in FIFO order. A hold that just became ready starts its
	// reservation clock now; one that was already ready keeps its clock.
	reservedEnds := make([]time.Time, 0, c.Reserved)
	for i := 0; i < c.Reserved && i < len(holds); i++ {
		h := holds[i]
		if h.Position == 0 && h.End != nil {
			reservedEnds = append(reservedEnds, *h.End)
		} else {
			reservedEnds = append(reservedEnds, s.Now.Add(s.ReservationPeriod))
		}
	}

	var updates []Update
	for i, h := range holds {
		if i < c.Reserved {
			end := reservedEnds[i]
			if h.Position != 0 || h.End == nil || !h.End.Equal(end) {
				updates = append(updates, Update{HoldID: h.ID, Position: 0, End: &end})
			}
			continue
		}

		// Position counts the holds ahead in the (start, id) total order,
		// plus one; the id tie-break keeps the reserved counter in step
		// with the number of position-0 holds.
		before := 0
		for _, other := range holds {
			if other.ID == h.ID {
				continue
			}
			if other.Start.Before(h.Start) || (other.Start.Equal(h.Start) && other.ID < h.ID) {
				before++
			}
		}
		pos := before + 1
		end := estimate(s, pos, c.Reserved, loans, reservedEnds)
		if pos != h.Position || !sameEnd(h.End, end) {
			updates = append(updates, Update{HoldID: h.ID, Position: pos, End: end})
		}
	}
	return c, updates
}

// estimate is the worst-case date by which a copy frees up for the hold at
// the given queue position: every owned license cycles through a full loan
// plus a full reservation period, so the only safe promise walks those
// cycles from the loan or reservation currently pinning the copy.
func estimate(s Snapshot, position, reserved int, loans []Loan, reservedEnds []time.Time) *time.Time {
	if s.LicensesOwned <= 0 {
		// A pool with no licenses cannot promise a date at all.
		return nil
	}
	if position <= 0 {
		end := s.Now.Add(s.ReservationPeriod)
		return &end
	}

	k := position - reserved - 1
	if k < 0 {
		k = 0
	}
	cycles := k / s.LicensesOwned
	copyIndex := k % s.LicensesOwned

	var first time.Time
	switch {
	case copyIndex < len(loans):
		first = loans[copyIndex].End
	case copyIndex-len(loans) < len(reservedEnds):
		first = reservedEnds[copyIndex-len(loans)].Add(s.LoanPeriod)
	default:
		first = s.Now.Add(s.LoanPeriod)
	}

	cyclePeriod := s.LoanPeriod + s.ReservationPeriod
	end := first.Add(cyclePeriod * time.Duration(cycles))
	return &end
}

func sameEnd(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
