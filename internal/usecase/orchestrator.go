package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"RingsideSync/internal/domain"
	"RingsideSync/internal/metrics"
)

// DomainSyncer runs one sync cycle for a domain.
type DomainSyncer interface {
	SyncDomain(ctx context.Context, d domain.SyncDomain) (domain.CycleStats, error)
}

// DomainTiming configures the cadence of one domain.
type DomainTiming struct {
	Interval                   time.Duration
	RequireElapsedSinceSuccess bool
}

// OrchestratorDeps wires the orchestrator.
type OrchestratorDeps struct {
	Syncer  DomainSyncer
	Timings map[domain.SyncDomain]DomainTiming
	Tick    time.Duration
	Logger  *slog.Logger
	Now     func() time.Time
}

type domainState struct {
	timing      DomainTiming
	lastAttempt time.Time
	lastSuccess time.Time
	lastErr     error
}

// Orchestrator owns per-domain cadences, connectivity state and the offline queue.
type Orchestrator struct {
	syncer DomainSyncer
	tick   time.Duration
	logger *slog.Logger
	now    func() time.Time

	passMu sync.Mutex

	mu          sync.Mutex
	state       domain.SyncState
	domains     map[domain.SyncDomain]*domainState
	pending     []domain.PendingMarker
	online      bool
	lastPass    domain.PassResult
	reconnected chan struct{}
}

// NewOrchestrator starts online and idle.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	tick := deps.Tick
	if tick <= 0 {
		tick = 30 * time.Second
	}
	o := &Orchestrator{
		syncer:      deps.Syncer,
		tick:        tick,
		logger:      deps.Logger,
		now:         now,
		state:       domain.StateIdle,
		domains:     map[domain.SyncDomain]*domainState{},
		online:      true,
		reconnected: make(chan struct{}, 1),
	}
	for _, d := range domain.AllDomains {
		timing, ok := deps.Timings[d]
		if !ok || timing.Interval <= 0 {
			continue
		}
		o.domains[d] = &domainState{timing: timing}
	}
	return o
}

// Run drives the tick loop until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()

	o.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.Tick(ctx)
		case <-o.reconnected:
			o.Reconnect(ctx)
			ticker.Reset(o.tick)
		}
	}
}

// Tick syncs every due domain, or queues them while offline.
func (o *Orchestrator) Tick(ctx context.Context) domain.PassResult {
	now := o.now()
	due := o.dueDomains(now)

	if !o.Online() {
		o.enqueue(due, now)
		return domain.PassResult{State: o.State(), Skipped: due, Offline: true}
	}
	if len(due) == 0 {
		o.setIdle()
		return domain.PassResult{State: o.State()}
	}
	return o.runPass(ctx, due)
}

// Reconnect runs the out-of-cycle pass over queued and due domains.
func (o *Orchestrator) Reconnect(ctx context.Context) domain.PassResult {
	now := o.now()

	o.mu.Lock()
	queued := make([]domain.SyncDomain, 0, len(o.pending))
	for _, marker := range o.pending {
		queued = append(queued, marker.Domain)
	}
	o.mu.Unlock()

	want := map[domain.SyncDomain]bool{}
	for _, d := range queued {
		want[d] = true
	}
	for _, d := range o.dueDomains(now) {
		want[d] = true
	}

	var domains []domain.SyncDomain
	for _, d := range domain.AllDomains {
		if want[d] && o.elapsedSinceSuccess(d, now) {
			domains = append(domains, d)
		}
	}

	o.mu.Lock()
	o.pending = nil
	o.mu.Unlock()
	metrics.PendingDomains.Set(0)

	o.info("connectivity restored", "domains", domains)
	if len(domains) == 0 {
		return domain.PassResult{State: o.State()}
	}
	return o.runPass(ctx, domains)
}

// Trigger runs a pass over the requested domains (all when empty), ignoring cadence.
func (o *Orchestrator) Trigger(ctx context.Context, domains ...domain.SyncDomain) (domain.PassResult, error) {
	if len(domains) == 0 {
		domains = o.configured()
	}
	for _, d := range domains {
		if !o.known(d) {
			return domain.PassResult{}, fmt.Errorf("domain %s is not scheduled", d)
		}
	}
	if !o.Online() {
		o.enqueue(domains, o.now())
		return domain.PassResult{State: o.State(), Skipped: domains, Offline: true}, nil
	}
	return o.runPass(ctx, domains), nil
}

// SetOnline records connectivity; going online after being offline requests a replay pass.
func (o *Orchestrator) SetOnline(online bool) {
	o.mu.Lock()
	was := o.online
	o.online = online
	o.mu.Unlock()

	if online && !was {
		select {
		case o.reconnected <- struct{}{}:
		default:
		}
	}
	if online != was {
		o.info("connectivity changed", "online", online)
	}
}

// Online reports the last known connectivity.
func (o *Orchestrator) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

// State returns the process-wide sync state.
func (o *Orchestrator) State() domain.SyncState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastPass returns the outcome of the most recent completed pass.
func (o *Orchestrator) LastPass() domain.PassResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastPass
}

// Pending returns the queued offline markers.
func (o *Orchestrator) Pending() []domain.PendingMarker {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.PendingMarker(nil), o.pending...)
}

// SetInterval changes a domain's cadence at runtime.
func (o *Orchestrator) SetInterval(d domain.SyncDomain, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.domains[d]
	if !ok {
		return fmt.Errorf("domain %s is not scheduled", d)
	}
	st.timing.Interval = interval
	return nil
}

// SeedLastSuccess marks restored snapshots as the domains' last success.
func (o *Orchestrator) SeedLastSuccess(restored map[domain.SyncDomain]time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for d, at := range restored {
		if st, ok := o.domains[d]; ok && at.After(st.lastSuccess) {
			st.lastSuccess = at
		}
	}
}

// Schedules reports every domain's cadence and history.
func (o *Orchestrator) Schedules() []domain.DomainSchedule {
	o.mu.Lock()
	defer o.mu.Unlock()

	queued := map[domain.SyncDomain]bool{}
	for _, marker := range o.pending {
		queued[marker.Domain] = true
	}

	out := make([]domain.DomainSchedule, 0, len(o.domains))
	for _, d := range domain.AllDomains {
		st, ok := o.domains[d]
		if !ok {
			continue
		}
		sched := domain.DomainSchedule{
			Domain:      d,
			Interval:    st.timing.Interval,
			LastAttempt: st.lastAttempt,
			LastSuccess: st.lastSuccess,
			Pending:     queued[d],
		}
		if st.lastErr != nil {
			sched.LastError = st.lastErr.Error()
		}
		out = append(out, sched)
	}
	return out
}

// runPass fans out one sync per domain and joins before deciding the pass state.
func (o *Orchestrator) runPass(ctx context.Context, domains []domain.SyncDomain) domain.PassResult {
	o.passMu.Lock()
	defer o.passMu.Unlock()

	start := o.now()
	o.mu.Lock()
	o.state = domain.StateSyncing
	for _, d := range domains {
		o.domains[d].lastAttempt = start
	}
	o.mu.Unlock()

	// domain errors are collected per slot; returning nil keeps siblings running
	results := make([]domain.DomainResult, len(domains))
	var group errgroup.Group
	for i, d := range domains {
		i, d := i, d
		group.Go(func() error {
			stats, err := o.syncer.SyncDomain(ctx, d)
			results[i] = domain.DomainResult{Domain: d, Stats: stats, Err: err}
			return nil
		})
	}
	_ = group.Wait()

	finished := o.now()
	state := domain.StateSuccess

	o.mu.Lock()
	for _, res := range results {
		st := o.domains[res.Domain]
		st.lastErr = res.Err
		if res.Err != nil {
			state = domain.StateError
			metrics.DomainSyncs.WithLabelValues(string(res.Domain), "error").Inc()
			continue
		}
		st.lastSuccess = finished
		metrics.DomainSyncs.WithLabelValues(string(res.Domain), "success").Inc()
	}
	o.removePendingLocked(domains)
	o.state = state
	pass := domain.PassResult{State: state, Results: results}
	o.lastPass = pass
	o.mu.Unlock()

	for _, res := range results {
		if res.Err != nil {
			o.warn("domain sync failed", "domain", res.Domain, "error", res.Err)
		}
	}
	return pass
}

// dueDomains lists domains whose interval elapsed since the last attempt; guarded domains
// also need their interval to have elapsed since the last success.
func (o *Orchestrator) dueDomains(now time.Time) []domain.SyncDomain {
	o.mu.Lock()
	defer o.mu.Unlock()

	var due []domain.SyncDomain
	for _, d := range domain.AllDomains {
		st, ok := o.domains[d]
		if !ok {
			continue
		}
		interval := st.timing.Interval
		if !st.lastAttempt.IsZero() && now.Sub(st.lastAttempt) < interval {
			continue
		}
		if st.timing.RequireElapsedSinceSuccess && !st.lastSuccess.IsZero() && now.Sub(st.lastSuccess) < interval {
			continue
		}
		due = append(due, d)
	}
	return due
}

func (o *Orchestrator) elapsedSinceSuccess(d domain.SyncDomain, now time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.domains[d]
	if !ok {
		return false
	}
	if !st.timing.RequireElapsedSinceSuccess || st.lastSuccess.IsZero() {
		return true
	}
	return now.Sub(st.lastSuccess) >= st.timing.Interval
}

func (o *Orchestrator) enqueue(domains []domain.SyncDomain, at time.Time) {
	if len(domains) == 0 {
		return
	}
	o.mu.Lock()
	queued := map[domain.SyncDomain]bool{}
	for _, marker := range o.pending {
		queued[marker.Domain] = true
	}
	for _, d := range domains {
		if queued[d] {
			continue
		}
		queued[d] = true
		o.pending = append(o.pending, domain.PendingMarker{Domain: d, QueuedAt: at})
	}
	count := len(o.pending)
	o.mu.Unlock()

	metrics.PendingDomains.Set(float64(count))
	o.debug("offline, queued domains", "domains", domains, "pending", count)
}

func (o *Orchestrator) removePendingLocked(domains []domain.SyncDomain) {
	if len(o.pending) == 0 {
		return
	}
	done := map[domain.SyncDomain]bool{}
	for _, d := range domains {
		done[d] = true
	}
	kept := o.pending[:0]
	for _, marker := range o.pending {
		if !done[marker.Domain] {
			kept = append(kept, marker)
		}
	}
	o.pending = kept
	metrics.PendingDomains.Set(float64(len(kept)))
}

func (o *Orchestrator) setIdle() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != domain.StateSyncing {
		o.state = domain.StateIdle
	}
}

func (o *Orchestrator) configured() []domain.SyncDomain {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []domain.SyncDomain
	for _, d := range domain.AllDomains {
		if _, ok := o.domains[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

func (o *Orchestrator) known(d domain.SyncDomain) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.domains[d]
	return ok
}

func (o *Orchestrator) debug(msg string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}

func (o *Orchestrator) info(msg string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}

func (o *Orchestrator) warn(msg string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Warn(msg, args...)
	}
}
