package queue_test

import (
	"testing"
	"time"

	"github.com/Astemirdum/odl-service/internal/queue"
	"github.com/stretchr/testify/require"
)

var (
	now        = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	loanPeriod = 21 * 24 * time.Hour
	resPeriod  = 3 * 24 * time.Hour
)

func snap(owned int, loans []queue.Loan, holds []queue.Hold) queue.Snapshot {
	return queue.Snapshot{
		LicensesOwned:     owned,
		Loans:             loans,
		Holds:             holds,
		Now:               now,
		LoanPeriod:        loanPeriod,
		ReservationPeriod: resPeriod,
	}
}

func TestRecompute_Counters(t *testing.T) {
	t.Parallel()
	loanEnd := now.Add(loanPeriod)

	tests := []struct {
		name  string
		s     queue.Snapshot
		want  queue.Counters
	}{
		{
			name: "empty pool",
			s:    snap(2, nil, nil),
			want: queue.Counters{Available: 2, Reserved: 0, InQueue: 0},
		},
		{
			name: "single copy loaned, one hold queues behind it",
			s: snap(1,
				[]queue.Loan{{ID: 1, Start: now.Add(-time.Hour), End: loanEnd}},
				[]queue.Hold{{ID: 1, Start: now, Position: 1}},
			),
			want: queue.Counters{Available: 0, Reserved: 0, InQueue: 1},
		},
		{
			name: "hold gets the freed copy reserved",
			s: snap(2,
				[]queue.Loan{{ID: 2, Start: now.Add(-2 * time.Hour), End: loanEnd}},
				[]queue.Hold{{ID: 1, Start: now.Add(-time.Hour), Position: 1}},
			),
			want: queue.Counters{Available: 0, Reserved: 1, InQueue: 1},
		},
		{
			name: "more loans than owned clamps at zero",
			s: snap(1,
				[]queue.Loan{
					{ID: 1, Start: now.Add(-2 * time.Hour), End: loanEnd},
					{ID: 2, Start: now.Add(-time.Hour), End: loanEnd},
				},
				nil,
			),
			want: queue.Counters{Available: 0, Reserved: 0, InQueue: 0},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, _ := queue.Recompute(tt.s)
			require.Equal(t, tt.want, got)
		})
	}
}

// One owned copy on loan: the only hold waits at position 1 and its
// worst-case date is the running loan's end.
func TestRecompute_QueuedBehindSingleLoan(t *testing.T) {
	t.Parallel()
	loanEnd := now.Add(10 * 24 * time.Hour)
	s := snap(1,
		[]queue.Loan{{ID: 1, Start: now.Add(-day), End: loanEnd}},
		[]queue.Hold{{ID: 7, Start: now}},
	)

	c, updates := queue.Recompute(s)
	require.Equal(t, queue.Counters{Available: 0, Reserved: 0, InQueue: 1}, c)
	require.Len(t, updates, 1)
	require.Equal(t, 7, updates[0].HoldID)
	require.Equal(t, 1, updates[0].Position)
	require.NotNil(t, updates[0].End)
	require.True(t, updates[0].End.Equal(loanEnd))
}

// Two copies, both loaned, one hold. When a loan disappears the hold is
// promoted to position 0 and its reservation clock starts now.
func TestRecompute_PromotionToReserved(t *testing.T) {
	t.Parallel()
	loanEnd := now.Add(loanPeriod)
	holds := []queue.Hold{{ID: 3, Start: now.Add(-time.Hour), Position: 1}}

	_, updates := queue.Recompute(snap(2,
		[]queue.Loan{{ID: 1, Start: now.Add(-day), End: loanEnd}},
		holds,
	))
	require.Len(t, updates, 1)
	require.Equal(t, 0, updates[0].Position)
	require.True(t, updates[0].End.Equal(now.Add(resPeriod)))
}

// An already-reserved hold keeps its reservation clock across recomputes.
func TestRecompute_ReservedKeepsClock(t *testing.T) {
	t.Parallel()
	end := now.Add(time.Hour)
	_, updates := queue.Recompute(snap(1, nil,
		[]queue.Hold{{ID: 4, Start: now.Add(-day), End: &end, Position: 0}},
	))
	require.Empty(t, updates)
}

func TestRecompute_WorstCaseCycles(t *testing.T) {
	t.Parallel()
	// One copy, one loan, three holds: the third hold waits a full
	// loan+reservation cycle past the running loan's end.
	loanEnd := now.Add(5 * day)
	holds := []queue.Hold{
		{ID: 1, Start: now.Add(-3 * time.Hour)},
		{ID: 2, Start: now.Add(-2 * time.Hour)},
		{ID: 3, Start: now.Add(-1 * time.Hour)},
	}
	_, updates := queue.Recompute(snap(1,
		[]queue.Loan{{ID: 1, Start: now.Add(-day), End: loanEnd}},
		holds,
	))
	require.Len(t, updates, 3)

	byID := map[int]queue.Update{}
	for _, u := range updates {
		byID[u.HoldID] = u
	}
	cycle := loanPeriod + resPeriod
	require.Equal(t, 1, byID[1].Position)
	require.True(t, byID[1].End.Equal(loanEnd))
	require.Equal(t, 2, byID[2].Position)
	require.True(t, byID[2].End.Equal(loanEnd.Add(cycle)))
	require.Equal(t, 3, byID[3].Position)
	require.True(t, byID[3].End.Equal(loanEnd.Add(2*cycle)))
}

// Two holds placed at the same instant on the last open copy: the lower id
// gets the reservation, the other queues behind it. Only one hold may sit at
// position 0 per reserved copy.
func TestRecompute_TieBrokenByID(t *testing.T) {
	t.Parallel()
	holds := []queue.Hold{
		{ID: 2, Start: now},
		{ID: 1, Start: now},
	}
	c, updates := queue.Recompute(snap(1, nil, holds))
	require.Equal(t, queue.Counters{Available: 0, Reserved: 1, InQueue: 2}, c)
	require.Len(t, updates, 2)

	byID := map[int]queue.Update{}
	for _, u := range updates {
		byID[u.HoldID] = u
	}
	require.Equal(t, 0, byID[1].Position)
	require.True(t, byID[1].End.Equal(now.Add(resPeriod)))
	require.Equal(t, 2, byID[2].Position)
	require.NotNil(t, byID[2].End)
}

// A pool that owns no licenses cannot divide by zero and cannot promise a
// date: queued holds keep a position but carry no estimate.
func TestRecompute_ZeroOwnedNoEstimate(t *testing.T) {
	t.Parallel()
	c, updates := queue.Recompute(snap(0, nil,
		[]queue.Hold{{ID: 9, Start: now}},
	))
	require.Equal(t, queue.Counters{Available: 0, Reserved: 0, InQueue: 1}, c)
	require.Len(t, updates, 1)
	require.Equal(t, 1, updates[0].Position)
	require.Nil(t, updates[0].End)
}

const day = 24 * time.Hour
