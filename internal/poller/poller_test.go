// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/idp-client/internal/metrics"
	"github.com/pdiddy/idp-client/pkg/types"
)

type step func(ctx context.Context) (types.Document, error)

// scriptedFetcher runs steps in call order, repeating the last one.
type scriptedFetcher struct {
	mu    sync.Mutex
	steps []step
	times []time.Time
}

func (f *scriptedFetcher) GetDocument(ctx context.Context, _ int64) (types.Document, error) {
	f.mu.Lock()
	i := len(f.times)
	f.times = append(f.times, time.Now())
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	s := f.steps[i]
	f.mu.Unlock()
	return s(ctx)
}

func (f *scriptedFetcher) calls() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.times...)
}

func status(s types.DocumentStatus) step {
	return func(context.Context) (types.Document, error) {
		return types.Document{ID: 1, Filename: "a.pdf", Status: s}, nil
	}
}

func failing(err error) step {
	return func(context.Context) (types.Document, error) {
		return types.Document{}, err
	}
}

const testInterval = 15 * time.Millisecond

func TestWatch_StopsAfterTerminal(t *testing.T) {
	f := &scriptedFetcher{steps: []step{
		status(types.StatusUploaded),
		status(types.StatusProcessing),
		status(types.StatusCompleted),
	}}
	p := New(f, types.PollConfig{Interval: testInterval}, metrics.New())

	var seen []types.DocumentStatus
	doc, err := p.Watch(context.Background(), 1, func(u Update) {
		require.NoError(t, u.Err)
		assert.True(t, u.Changed)
		seen = append(seen, u.Document.Status)
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, doc.Status)
	assert.Equal(t, []types.DocumentStatus{types.StatusUploaded, types.StatusProcessing, types.StatusCompleted}, seen)

	// No fetch may follow the terminal observation.
	time.Sleep(5 * testInterval)
	calls := f.calls()
	require.Len(t, calls, 3)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].Sub(calls[i-1]), testInterval-2*time.Millisecond)
	}
}

func TestWatch_UnchangedStatusIsNotAChange(t *testing.T) {
	f := &scriptedFetcher{steps: []step{
		status(types.StatusProcessing),
		status(types.StatusProcessing),
		status(types.StatusFailed),
	}}
	p := New(f, types.PollConfig{Interval: testInterval}, nil)

	var changed []bool
	doc, err := p.Watch(context.Background(), 1, func(u Update) {
		changed = append(changed, u.Changed)
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, doc.Status)
	assert.Equal(t, []bool{true, false, true}, changed)
}

func TestWatch_SkipsTicksWhileFetchInFlight(t *testing.T) {
	slow := 6 * testInterval
	f := &scriptedFetcher{steps: []step{
		func(ctx context.Context) (types.Document, error) {
			select {
			case <-time.After(slow):
			case <-ctx.Done():
			}
			return types.Document{ID: 1, Status: types.StatusUploaded}, nil
		},
		status(types.StatusProcessing),
		status(types.StatusCompleted),
	}}
	m := metrics.New()
	p := New(f, types.PollConfig{Interval: testInterval}, m)

	var updates []Update
	doc, err := p.Watch(context.Background(), 1, func(u Update) {
		updates = append(updates, u)
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, doc.Status)

	calls := f.calls()
	require.Len(t, calls, 3)
	assert.GreaterOrEqual(t, calls[1].Sub(calls[0]), slow-2*time.Millisecond, "second fetch started before the first resolved")

	require.Len(t, updates, 3)
	for i, u := range updates {
		assert.Equal(t, uint64(i+1), u.Seq)
	}
	assert.Equal(t, types.StatusUploaded, updates[0].Document.Status)
}

func TestWatch_CancelledBeforeStartNeverFetches(t *testing.T) {
	f := &scriptedFetcher{steps: []step{status(types.StatusProcessing)}}
	p := New(f, types.PollConfig{Interval: testInterval}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for range 20 {
		_, err := p.Watch(ctx, 1, func(Update) { t.Error("callback after cancel") })
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Empty(t, f.calls())
}

func TestWatch_GivesUpAfterMaxFailures(t *testing.T) {
	boom := errors.New("backend unavailable")
	f := &scriptedFetcher{steps: []step{failing(boom)}}
	p := New(f, types.PollConfig{Interval: testInterval, BackoffAfter: 10, MaxFailures: 3}, nil)

	var failures []int
	_, err := p.Watch(context.Background(), 1, func(u Update) {
		assert.ErrorIs(t, u.Err, boom)
		failures = append(failures, u.Failures)
	})
	assert.ErrorIs(t, err, ErrGaveUp)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2, 3}, failures)
	assert.Len(t, f.calls(), 3)
}

func TestWatch_RecoversAfterFailure(t *testing.T) {
	f := &scriptedFetcher{steps: []step{
		status(types.StatusProcessing),
		failing(errors.New("timeout")),
		status(types.StatusCompleted),
	}}
	p := New(f, types.PollConfig{Interval: testInterval, MaxFailures: 2}, nil)

	var errs int
	doc, err := p.Watch(context.Background(), 1, func(u Update) {
		if u.Err != nil {
			errs++
			assert.Equal(t, types.StatusProcessing, u.Document.Status, "failure keeps last state")
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 1, errs)
	assert.Equal(t, types.StatusCompleted, doc.Status)
}

func TestWatch_CancelStopsPolling(t *testing.T) {
	f := &scriptedFetcher{steps: []step{status(types.StatusProcessing)}}
	p := New(f, types.PollConfig{Interval: testInterval}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var updates int
	_, err := p.Watch(ctx, 1, func(Update) {
		updates++
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, updates)

	n := len(f.calls())
	time.Sleep(5 * testInterval)
	assert.Len(t, f.calls(), n, "fetches continued after cancel")
}

func TestDelay(t *testing.T) {
	p := New(nil, types.PollConfig{Interval: time.Second, BackoffAfter: 2, MaxBackoff: 5 * time.Second}, nil)
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{50, 5 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.delay(tt.failures), "failures=%d", tt.failures)
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(nil, types.PollConfig{}, nil)
	assert.Equal(t, DefaultInterval, p.cfg.Interval)
	assert.Equal(t, DefaultBackoffAfter, p.cfg.BackoffAfter)
	assert.Equal(t, DefaultMaxBackoff, p.cfg.MaxBackoff)
	assert.Equal(t, DefaultMaxFailures, p.cfg.MaxFailures)
}
