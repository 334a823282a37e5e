package gamelist

import "go.uber.org/zap"

// StatusQuerier issues a fire-and-forget status query for a server. The
// eventual response comes back through PushDiscovered.
type StatusQuerier interface {
	QueryServer(address string)
}

// SchedulerConfig holds the requery cadence policy.
type SchedulerConfig struct {
	// WindowTicks is the number of simulation ticks between requery passes.
	WindowTicks int
	// MaxAttempts caps how many consecutive windows an unresponsive server
	// is requeried before it is left alone until the next full refresh.
	MaxAttempts int
	// RefreshWindows is the number of windows after which every server,
	// online or not, is unconditionally re-queried.
	RefreshWindows int
}

// DefaultSchedulerConfig returns the default cadence policy.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		WindowTicks:    60,
		MaxAttempts:    10,
		RefreshWindows: 50,
	}
}

// Scheduler drives the per-tick maintenance of the list: draining pending
// insertions and deciding, per entry, whether to issue a fresh status query.
//
// The cadence is two-tier: unresponsive servers are queried every window up
// to MaxAttempts, then left alone; online servers are skipped. Either way an
// entry's retry counter keeps climbing each window, so every RefreshWindows
// windows it crosses the refresh threshold and gets queried unconditionally,
// starting a new cycle. An entry that turns online mid-cycle therefore stops
// receiving short retries but still hits the full refresh on schedule.
type Scheduler struct {
	logger  *zap.Logger
	list    *List
	querier StatusQuerier
	cfg     SchedulerConfig

	tick int
}

// NewScheduler creates a scheduler over the given list.
func NewScheduler(list *List, querier StatusQuerier, cfg SchedulerConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger:  logger.Named("requery"),
		list:    list,
		querier: querier,
		cfg:     cfg,
	}
}

// SetPolicy replaces the cadence policy, e.g. after a config reload.
// Owning goroutine only.
func (s *Scheduler) SetPolicy(cfg SchedulerConfig) {
	s.cfg = cfg
}

// OnTick runs one simulation tick. Owning goroutine only.
func (s *Scheduler) OnTick() {
	s.list.drainPending()

	s.tick++
	if s.tick < s.cfg.WindowTicks {
		return
	}
	s.tick = 0

	queried := 0
	for _, entry := range s.list.entries {
		entry.Retries++
		if entry.Retries < s.cfg.RefreshWindows && (entry.Info.Online || entry.Retries >= s.cfg.MaxAttempts) {
			continue
		}

		s.querier.QueryServer(entry.Address)
		queried++
		if entry.Retries >= s.cfg.RefreshWindows {
			// Full refresh boundary: start a new cycle for this entry.
			entry.Retries = 0
		}
	}

	if queried > 0 {
		s.logger.Debug("Requery window",
			zap.Int("queried", queried),
			zap.Int("total", s.list.Len()))
	}
}
