package gamelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeQuerier records issued queries per window.
type fakeQuerier struct {
	queries []string
}

func (f *fakeQuerier) QueryServer(address string) {
	f.queries = append(f.queries, address)
}

// runWindow advances the scheduler by exactly one requery window.
func runWindow(s *Scheduler, cfg SchedulerConfig) {
	for i := 0; i < cfg.WindowTicks; i++ {
		s.OnTick()
	}
}

func TestScheduler_NoQueryBeforeWindowElapses(t *testing.T) {
	list, _ := newTestList()
	querier := &fakeQuerier{}
	cfg := DefaultSchedulerConfig()
	sched := NewScheduler(list, querier, cfg, zap.NewNop())

	list.AddOrGet("10.0.0.1")
	for i := 0; i < cfg.WindowTicks-1; i++ {
		sched.OnTick()
	}
	assert.Empty(t, querier.queries)

	sched.OnTick()
	assert.Len(t, querier.queries, 1)
}

func TestScheduler_UnresponsiveEntryCadence(t *testing.T) {
	list, _ := newTestList()
	querier := &fakeQuerier{}
	cfg := DefaultSchedulerConfig()
	sched := NewScheduler(list, querier, cfg, zap.NewNop())

	entry := list.AddOrGet("10.0.0.1")

	// Short-retry phase: queried every window while the retry counter is
	// below the attempt cap.
	for window := 1; window < cfg.MaxAttempts; window++ {
		before := len(querier.queries)
		runWindow(sched, cfg)
		assert.Equal(t, before+1, len(querier.queries), "window %d should query", window)
		assert.Equal(t, window, entry.Retries)
	}

	// Capped phase: left alone until the full-refresh boundary, but the
	// counter keeps climbing.
	for window := cfg.MaxAttempts; window < cfg.RefreshWindows; window++ {
		before := len(querier.queries)
		runWindow(sched, cfg)
		assert.Equal(t, before, len(querier.queries), "window %d should not query", window)
	}
	assert.Equal(t, cfg.RefreshWindows-1, entry.Retries)

	// Full refresh: queried unconditionally and the cycle restarts.
	runWindow(sched, cfg)
	require.Equal(t, cfg.MaxAttempts-1+1, len(querier.queries))
	assert.Equal(t, 0, entry.Retries)

	// The next window belongs to the new cycle.
	runWindow(sched, cfg)
	assert.Equal(t, 1, entry.Retries)
	assert.Equal(t, cfg.MaxAttempts+1, len(querier.queries))
}

// An entry that turns online mid-cycle stops receiving short retries, but
// its counter keeps aging toward the full-refresh boundary on the original
// schedule. The coupling is intentional; this test pins it.
func TestScheduler_OnlineEntrySkippedButStillAges(t *testing.T) {
	list, _ := newTestList()
	querier := &fakeQuerier{}
	cfg := DefaultSchedulerConfig()
	sched := NewScheduler(list, querier, cfg, zap.NewNop())

	entry := list.AddOrGet("10.0.0.1")

	// Three windows unanswered, then the server comes up.
	for i := 0; i < 3; i++ {
		runWindow(sched, cfg)
	}
	require.Len(t, querier.queries, 3)
	entry.Info.Online = true

	// Healthy servers are not short-retried.
	for window := 4; window < cfg.RefreshWindows; window++ {
		runWindow(sched, cfg)
	}
	assert.Len(t, querier.queries, 3)
	assert.Equal(t, cfg.RefreshWindows-1, entry.Retries, "skipped windows still count toward the refresh boundary")

	// The full refresh still re-queries a healthy server.
	runWindow(sched, cfg)
	assert.Len(t, querier.queries, 4)
	assert.Equal(t, 0, entry.Retries)
}

func TestScheduler_OnTickDrainsPendingFirst(t *testing.T) {
	list, _ := newTestList()
	querier := &fakeQuerier{}
	sched := NewScheduler(list, querier, DefaultSchedulerConfig(), zap.NewNop())

	list.PushDiscovered(&PendingRecord{Address: "10.0.0.1", Info: ServerInfo{Name: "one"}})
	sched.OnTick()

	assert.Equal(t, 1, list.Len())
}

func TestScheduler_ConfigurablePolicy(t *testing.T) {
	list, _ := newTestList()
	querier := &fakeQuerier{}
	cfg := SchedulerConfig{WindowTicks: 2, MaxAttempts: 2, RefreshWindows: 4}
	sched := NewScheduler(list, querier, cfg, zap.NewNop())

	list.AddOrGet("10.0.0.1")

	// Window 1: retries 1 -> query. Window 2: retries 2 hits the cap -> skip.
	// Window 3: skip. Window 4: refresh boundary -> query, reset.
	for i := 0; i < 4*cfg.WindowTicks; i++ {
		sched.OnTick()
	}
	assert.Len(t, querier.queries, 2)
}
