// Package browser composes the server list, requery scheduler,
// compatibility resolver, content catalog, storage and search index into
// one running service. The session's Run loop is the owning goroutine for
// all list state; everything that mutates it is either executed on that
// loop or handed over through the list's pending queue.
package browser

import (
	"context"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"serverbrowser-go/internal/config"
	"serverbrowser-go/internal/content"
	"serverbrowser-go/internal/events"
	"serverbrowser-go/internal/gamelist"
	"serverbrowser-go/internal/index"
	"serverbrowser-go/internal/storage"
)

// Session is the running server browser.
type Session struct {
	logger   *zap.Logger
	cfg      *config.Config
	bus      *events.Bus
	list     *gamelist.List
	sched    *gamelist.Scheduler
	resolver *gamelist.Resolver
	catalog  *content.Catalog
	store    *storage.Manager
	idx      *index.Manager

	listCh <-chan events.Event
	hostCh <-chan events.Event

	// commands marshals external calls onto the owning goroutine.
	commands chan func()

	// hostDirty coalesces host list rebuild requests within a tick.
	hostDirty bool
}

// Options bundles the collaborators a session is built from. Querier is the
// discovery transport; Store and Index may be nil for ephemeral sessions.
type Options struct {
	Config  *config.Config
	Querier gamelist.StatusQuerier
	Catalog *content.Catalog
	Store   *storage.Manager
	Index   *index.Manager
	Bus     *events.Bus
	Logger  *zap.Logger
}

// New assembles a session. The list's merged hook is bound to the resolver
// so fresh snapshots get their content resolved immediately.
func New(opts Options) *Session {
	logger := opts.Logger.Named("browser")

	list := gamelist.NewList(gamelist.NewDefaultResolver(opts.Config.GamePort), opts.Bus, opts.Logger)
	resolver := gamelist.NewResolver(list, opts.Catalog, opts.Bus, opts.Logger)
	list.SetMergedHook(resolver.ReconcileEntry)

	schedCfg := gamelist.SchedulerConfig{
		WindowTicks:    opts.Config.Requery.WindowTicks,
		MaxAttempts:    opts.Config.Requery.MaxAttempts,
		RefreshWindows: opts.Config.Requery.RefreshWindows,
	}
	sched := gamelist.NewScheduler(list, opts.Querier, schedCfg, opts.Logger)

	return &Session{
		logger:   logger,
		cfg:      opts.Config,
		bus:      opts.Bus,
		list:     list,
		sched:    sched,
		resolver: resolver,
		catalog:  opts.Catalog,
		store:    opts.Store,
		idx:      opts.Index,
		listCh:   opts.Bus.Subscribe(events.ServerListChanged),
		hostCh:   opts.Bus.Subscribe(events.HostListChanged),
		commands: make(chan func(), 32),
	}
}

// List exposes the underlying game list for collaborators that feed it,
// such as the discovery transport.
func (s *Session) List() *gamelist.List {
	return s.list
}

// Run executes the tick loop until the context is cancelled. It restores
// the persisted host list first, so manually added servers reappear and get
// queried right away.
func (s *Session) Run(ctx context.Context) error {
	s.restoreHostList()

	ticker := time.NewTicker(s.cfg.TickInterval())
	defer ticker.Stop()

	s.logger.Info("Server browser running",
		zap.Duration("tick", s.cfg.TickInterval()),
		zap.Int("window_ticks", s.cfg.Requery.WindowTicks))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Server browser stopping")
			return ctx.Err()
		case <-ticker.C:
			s.sched.OnTick()
			if s.hostDirty {
				s.hostDirty = false
				s.rebuildHostList()
			}
		case <-s.hostCh:
			s.hostDirty = true
		case ev := <-s.listCh:
			s.syncIndex(ev)
		case fn := <-s.commands:
			fn()
		}
	}
}

// do runs fn on the owning goroutine and waits for it to finish. Callers
// block until the Run loop services the call, so the session must be
// running.
func (s *Session) do(fn func()) {
	done := make(chan struct{})
	s.commands <- func() {
		fn()
		close(done)
	}
	<-done
}

// AddServer adds a server by connection string as a manual entry. Safe from
// any goroutine: the record travels through the pending queue.
func (s *Session) AddServer(connectionString string) {
	s.list.PushDiscovered(&gamelist.PendingRecord{
		Address: connectionString,
		Manual:  true,
	})
}

// RemoveServer removes the entry for the given connection string, if any.
func (s *Session) RemoveServer(connectionString string) {
	s.do(func() {
		if entry := s.list.Get(connectionString); entry != nil {
			s.list.Remove(entry)
		}
	})
}

// AfterContentScan replaces the content catalog with a fresh scan result
// and re-resolves every entry's dependencies against it.
func (s *Session) AfterContentScan(packages []*content.Package) {
	s.do(func() {
		s.catalog.Replace(packages)
		s.resolver.ReconcileAll()
	})
}

// Reconcile re-resolves content compatibility without touching the catalog,
// e.g. after learned names changed.
func (s *Session) Reconcile() {
	s.do(func() { s.resolver.ReconcileAll() })
}

// ApplyConfig applies a reloaded configuration's requery policy.
func (s *Session) ApplyConfig(cfg *config.Config) {
	s.do(func() {
		s.sched.SetPolicy(gamelist.SchedulerConfig{
			WindowTicks:    cfg.Requery.WindowTicks,
			MaxAttempts:    cfg.Requery.MaxAttempts,
			RefreshWindows: cfg.Requery.RefreshWindows,
		})
	})
}

// Servers returns a snapshot of all entries in list order.
func (s *Session) Servers() []*ServerSummary {
	var out []*ServerSummary
	s.do(func() {
		for _, entry := range s.list.All() {
			out = append(out, summarize(entry))
		}
	})
	return out
}

func (s *Session) restoreHostList() {
	if s.store == nil {
		return
	}
	hosts, err := s.store.LoadHostList()
	if err != nil {
		s.logger.Warn("Failed to load persisted host list", zap.Error(err))
		return
	}
	for _, host := range hosts {
		entry := s.list.AddOrGet(host.Address)
		entry.Manual = true
		if entry.Info.Name == "" {
			entry.Info.Name = host.Name
		}
	}
	if len(hosts) > 0 {
		s.logger.Info("Restored host list", zap.Int("hosts", len(hosts)))
	}
}

func (s *Session) rebuildHostList() {
	if s.store == nil {
		return
	}
	var hosts []*storage.HostRecord
	for _, entry := range s.list.All() {
		if !entry.Manual {
			continue
		}
		hosts = append(hosts, &storage.HostRecord{
			Address: entry.Address,
			Name:    entry.Info.Name,
			Added:   time.Now(),
		})
	}
	if err := s.store.SaveHostList(hosts); err != nil {
		s.logger.Warn("Failed to persist host list", zap.Error(err))
	}
}

func (s *Session) syncIndex(ev events.Event) {
	if s.idx == nil {
		return
	}

	if ev.Action == "removed" {
		if err := s.idx.RemoveServer(ev.Address); err != nil {
			s.logger.Warn("Failed to deindex server",
				zap.String("server", ev.Address),
				zap.Error(err))
		}
		return
	}

	entry := s.list.Get(ev.Address)
	if entry == nil {
		return
	}
	doc := &index.ServerDocument{
		Address:    entry.Address,
		Name:       entry.Info.Name,
		Revision:   entry.Info.Revision,
		Online:     entry.Info.Online,
		Compatible: entry.Info.Compatible,
	}
	if err := s.idx.IndexServer(doc); err != nil {
		s.logger.Warn("Failed to index server",
			zap.String("server", entry.Address),
			zap.Error(err))
	}
}

// ServerSummary is the JSON projection of a server entry.
type ServerSummary struct {
	Address           string            `json:"address"`
	Name              string            `json:"name,omitempty"`
	Revision          string            `json:"revision,omitempty"`
	Online            bool              `json:"online"`
	VersionCompatible bool              `json:"version_compatible"`
	Compatible        bool              `json:"compatible"`
	Manual            bool              `json:"manual"`
	ClientsOn         int               `json:"clients_on"`
	ClientsMax        int               `json:"clients_max"`
	Content           []*ContentSummary `json:"content,omitempty"`
}

// ContentSummary is the JSON projection of one content dependency.
type ContentSummary struct {
	ID     uint32 `json:"id"`
	MD5    string `json:"md5"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status"`
}

func summarize(entry *gamelist.ServerEntry) *ServerSummary {
	sum := &ServerSummary{
		Address:           entry.Address,
		Name:              entry.Info.Name,
		Revision:          entry.Info.Revision,
		Online:            entry.Info.Online,
		VersionCompatible: entry.Info.VersionCompatible,
		Compatible:        entry.Info.Compatible,
		Manual:            entry.Manual,
		ClientsOn:         entry.Info.ClientsOn,
		ClientsMax:        entry.Info.ClientsMax,
	}
	for _, c := range entry.Info.Content {
		sum.Content = append(sum.Content, &ContentSummary{
			ID:     c.Ident.ID,
			MD5:    hex.EncodeToString(c.Ident.MD5[:]),
			Name:   c.Name,
			Status: c.Status.DisplayString(),
		})
	}
	return sum
}
