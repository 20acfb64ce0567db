// Package scheduler drives the hub's periodic price refreshes: one job
// for stocks+crypto at the general interval, one for forex at its own
// (typically longer) interval, plus an on-demand refresh triggered by the
// API. Neither job ever runs two instances of itself concurrently — a
// tick that fires while the previous one is still dispatching is dropped.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tickertronix/hub/internal/clients/equities"
	"github.com/tickertronix/hub/internal/clients/forex"
	"github.com/tickertronix/hub/internal/domain"
	"github.com/tickertronix/hub/internal/normalize"
	"github.com/tickertronix/hub/internal/store"
)

// Config configures the Scheduler's cadences.
type Config struct {
	GeneralInterval time.Duration // default 300s, drives stocks+crypto
	ForexInterval   time.Duration // default 3600s
}

// Scheduler owns the hub's refresh timers.
type Scheduler struct {
	store           *store.Store
	equitiesAdapter *equities.Adapter
	forexAdapter    *forex.Adapter
	cfg             Config
	log             zerolog.Logger

	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool

	equitiesDispatching bool
	forexDispatching    bool
	lastUpdate          time.Time
	lastForexUpdate     time.Time

	// onUpdate is called after each tick that persists at least one price,
	// with the rows that changed, wired post-construction once the server
	// (and its push hub) exists.
	onUpdate func([]domain.PriceUpdate)

	// equitiesCron previews the next equities/crypto run for /status;
	// forexCron is parsed the same way over the forex interval but is not
	// reported by Status.
	equitiesCron cron.Schedule
	forexCron    cron.Schedule
}

// New builds a Scheduler. Zero-value interval fields default to 300s and
// 3600s.
func New(s *store.Store, equitiesAdapter *equities.Adapter, forexAdapter *forex.Adapter, cfg Config, log zerolog.Logger) *Scheduler {
	if cfg.GeneralInterval <= 0 {
		cfg.GeneralInterval = 300 * time.Second
	}
	if cfg.ForexInterval <= 0 {
		cfg.ForexInterval = 3600 * time.Second
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	equitiesSched, _ := parser.Parse(intervalToCronSpec(cfg.GeneralInterval))
	forexSched, _ := parser.Parse(intervalToCronSpec(cfg.ForexInterval))

	return &Scheduler{
		store:           s,
		equitiesAdapter: equitiesAdapter,
		forexAdapter:    forexAdapter,
		cfg:             cfg,
		log:             log.With().Str("component", "scheduler").Logger(),
		stop:            make(chan struct{}),
		equitiesCron:    equitiesSched,
		forexCron:       forexSched,
	}
}

// SetOnUpdate registers a callback fired after each tick (scheduled or
// on-demand) that persists at least one price. Intended for wiring the
// server's websocket broadcast once the server is constructed, which
// happens after the scheduler to avoid a construction cycle.
func (s *Scheduler) SetOnUpdate(fn func([]domain.PriceUpdate)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// intervalToCronSpec approximates a fixed-period ticker as a "@every"-style
// cron spec purely for robfig/cron's next-run preview; the actual
// dispatch loop below runs on a time.Ticker, not this schedule.
func intervalToCronSpec(d time.Duration) string {
	return "@every " + d.String()
}

// Start begins both periodic jobs and runs one immediate tick of each.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.log.Info().Dur("general_interval", s.cfg.GeneralInterval).Dur("forex_interval", s.cfg.ForexInterval).Msg("scheduler starting")

	s.wg.Add(2)
	go s.runEquitiesJob(ctx)
	go s.runForexJob(ctx)
}

// Stop signals both job loops to exit and waits for any in-flight tick to
// finish. No new ticks start after Stop is called.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	close(s.stop)
	s.wg.Wait()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) runEquitiesJob(ctx context.Context) {
	defer s.wg.Done()

	s.tryRunEquities(ctx)

	ticker := time.NewTicker(s.cfg.GeneralInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.tryRunEquities(ctx)
		}
	}
}

func (s *Scheduler) runForexJob(ctx context.Context) {
	defer s.wg.Done()

	s.tryRunForex(ctx)

	ticker := time.NewTicker(s.cfg.ForexInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.tryRunForex(ctx)
		}
	}
}

// tryRunEquities enforces the overlap-drop rule for the combined
// stocks+crypto job: if a previous run is still dispatching, this tick is
// dropped rather than queued.
func (s *Scheduler) tryRunEquities(ctx context.Context) {
	s.mu.Lock()
	if s.equitiesDispatching {
		s.mu.Unlock()
		s.log.Info().Msg("equities/crypto tick dropped: previous run still dispatching")
		return
	}
	s.equitiesDispatching = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.equitiesDispatching = false
		s.mu.Unlock()
	}()

	updates := s.refreshClass(ctx, domain.AssetStocks)
	updates = append(updates, s.refreshClass(ctx, domain.AssetCrypto)...)

	s.mu.Lock()
	s.lastUpdate = time.Now()
	onUpdate := s.onUpdate
	s.mu.Unlock()

	if len(updates) > 0 && onUpdate != nil {
		onUpdate(updates)
	}
}

func (s *Scheduler) tryRunForex(ctx context.Context) {
	s.mu.Lock()
	if s.forexDispatching {
		s.mu.Unlock()
		s.log.Info().Msg("forex tick dropped: previous run still dispatching")
		return
	}
	s.forexDispatching = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.forexDispatching = false
		s.mu.Unlock()
	}()

	updates := s.refreshClass(ctx, domain.AssetForex)

	s.mu.Lock()
	s.lastForexUpdate = time.Now()
	onUpdate := s.onUpdate
	s.mu.Unlock()

	if len(updates) > 0 && onUpdate != nil {
		onUpdate(updates)
	}
}

// refreshClass fetches, normalizes, and upserts prices for one asset
// class. A store failure for one symbol never aborts the rest of the
// batch — progress is durable per symbol since UpsertPrice is
// transactional per row.
func (s *Scheduler) refreshClass(ctx context.Context, class domain.AssetClass) []domain.PriceUpdate {
	assets, err := s.store.ListAssets(&class, false)
	if err != nil {
		s.log.Warn().Err(err).Str("class", string(class)).Msg("failed to list enabled assets, skipping this class for this tick")
		return nil
	}
	if len(assets) == 0 {
		return nil
	}

	symbols := make([]string, len(assets))
	for i, a := range assets {
		symbols[i] = a.Symbol
	}

	var snapshots map[string]domain.RawSnapshot
	if class == domain.AssetForex {
		snapshots, err = s.forexAdapter.FetchSnapshots(ctx, symbols)
	} else {
		snapshots, err = s.equitiesAdapter.FetchSnapshots(ctx, class, symbols)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("class", string(class)).Msg("upstream fetch failed for this class, skipping this tick")
		return nil
	}

	now := time.Now()
	var updates []domain.PriceUpdate
	for _, sym := range symbols {
		snap, ok := snapshots[sym]
		if !ok {
			continue
		}
		record, ok := normalize.Normalize(sym, class, &snap, nil, now)
		if !ok {
			continue
		}
		if err := s.store.UpsertPrice(record.Symbol, record.AssetClass, record.Date, record.OpenPrice, record.PrevClose, record.LastPrice, now); err != nil {
			s.log.Warn().Err(err).Str("symbol", sym).Str("class", string(class)).Msg("failed to persist price, will retry next tick")
			continue
		}
		updates = append(updates, domain.PriceUpdate{Symbol: record.Symbol, AssetClass: record.AssetClass, LastUpdated: now})
	}
	return updates
}

// TriggerRefresh fires one immediate tick of both jobs, equivalent to a
// scheduled tick. The same overlap-drop rule applies: a refresh already
// in flight means this call is a no-op for that job.
func (s *Scheduler) TriggerRefresh(ctx context.Context) {
	go s.tryRunEquities(ctx)
	go s.tryRunForex(ctx)
}

// Status is the scheduler status surface reported by GET /status.
type Status struct {
	Running         bool       `json:"running"`
	LastUpdate      *time.Time `json:"last_update"`
	NextUpdate      *time.Time `json:"next_update"`
	Interval        int        `json:"interval"`
	ForexInterval   int        `json:"forex_interval"`
	LastForexUpdate *time.Time `json:"last_forex_update"`
}

// Status reports the scheduler's current state, including a next-run
// preview for the equities/crypto job computed via the cron schedule
// parser. No next-run preview is reported for the forex job.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running:       s.started,
		Interval:      int(s.cfg.GeneralInterval.Seconds()),
		ForexInterval: int(s.cfg.ForexInterval.Seconds()),
	}
	if !s.lastUpdate.IsZero() {
		lu := s.lastUpdate
		status.LastUpdate = &lu
		if s.equitiesCron != nil {
			next := s.equitiesCron.Next(lu)
			status.NextUpdate = &next
		}
	}
	if !s.lastForexUpdate.IsZero() {
		lf := s.lastForexUpdate
		status.LastForexUpdate = &lf
	}
	return status
}
