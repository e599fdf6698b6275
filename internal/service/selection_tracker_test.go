package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionTrackerLatestSelectionWins(t *testing.T) {
	tracker := NewSelectionTracker()

	ctxA, first := tracker.Begin(context.Background(), "threshold-chart")
	ctxB, second := tracker.Begin(context.Background(), "threshold-chart")

	assert.Greater(t, second.Generation, first.Generation)
	assert.ErrorIs(t, ctxA.Err(), context.Canceled)
	assert.NoError(t, ctxB.Err())

	assert.False(t, first.Current())
	assert.True(t, second.Current())

	assert.True(t, second.Finish())
	assert.False(t, first.Finish())
	assert.Equal(t, 0, tracker.InFlight())
}

func TestSelectionTrackerViewsAreIndependent(t *testing.T) {
	tracker := NewSelectionTracker()

	ctxA, histogram := tracker.Begin(context.Background(), "histogram")
	_, threshold := tracker.Begin(context.Background(), "threshold")

	assert.NoError(t, ctxA.Err())
	assert.Equal(t, 2, tracker.InFlight())
	assert.True(t, histogram.Finish())
	assert.True(t, threshold.Finish())
}

func TestSelectionTrackerFinishCancelsContext(t *testing.T) {
	tracker := NewSelectionTracker()

	ctx, ticket := tracker.Begin(context.Background(), "v")
	require.True(t, ticket.Finish())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.False(t, ticket.Finish())
}

func TestSelectionTrackerParentCancellation(t *testing.T) {
	tracker := NewSelectionTracker()
	parent, cancel := context.WithCancel(context.Background())

	ctx, ticket := tracker.Begin(parent, "v")
	cancel()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.True(t, ticket.Current())
}

func TestSelectionTrackerConcurrentSelections(t *testing.T) {
	tracker := NewSelectionTracker()
	const n = 50

	tickets := make([]*Ticket, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, tickets[i] = tracker.Begin(context.Background(), "v")
		}(i)
	}
	wg.Wait()

	committed := 0
	var latest uint64
	for _, tk := range tickets {
		if tk.Generation > latest {
			latest = tk.Generation
		}
	}
	for _, tk := range tickets {
		if tk.Finish() {
			committed++
			assert.Equal(t, latest, tk.Generation)
		}
	}
	assert.Equal(t, 1, committed)
}

func TestNilTicketIsNeverCurrent(t *testing.T) {
	var tk *Ticket
	assert.False(t, tk.Current())
	assert.False(t, tk.Finish())
}
