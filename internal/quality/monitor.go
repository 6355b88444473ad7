package quality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"RingsideSync/internal/config"
	"RingsideSync/internal/domain"
	"RingsideSync/internal/metrics"
	"RingsideSync/internal/ports"
)

// Cache keys written on every tick.
const (
	MetricsKey = "quality:metrics"
	AlertsKey  = "quality:alerts"
)

const latencyWindow = 256

// ErrAlertNotFound is returned by Resolve for unknown alert ids.
var ErrAlertNotFound = errors.New("alert not found")

// ArticleView exposes the currently published articles of every domain.
type ArticleView interface {
	Published() []domain.Article
}

// MonitorDeps wires the monitor's collaborators; only View is required.
type MonitorDeps struct {
	Config      config.QualityConfig
	Reliability map[string]float64
	View        ArticleView
	Cache       ports.CacheStore
	Feed        ports.ReliabilityFeed
	Logger      *slog.Logger
	Now         func() time.Time
}

// Monitor aggregates fleet-wide quality metrics and raises threshold alerts.
type Monitor struct {
	cfg    config.QualityConfig
	view   ArticleView
	cache  ports.CacheStore
	feed   ports.ReliabilityFeed
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	reliability map[string]float64
	cycles      map[domain.SyncDomain]domain.CycleStats
	latencies   []time.Duration
	latencyNext int
	alerts      []domain.QualityAlert
	standing    map[string]string

	current atomic.Pointer[domain.QualityMetrics]
}

var _ ports.LatencyRecorder = (*Monitor)(nil)

// NewMonitor seeds reliability from the catalog.
func NewMonitor(deps MonitorDeps) *Monitor {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	m := &Monitor{
		cfg:         deps.Config,
		view:        deps.View,
		cache:       deps.Cache,
		feed:        deps.Feed,
		logger:      deps.Logger,
		now:         now,
		reliability: make(map[string]float64, len(deps.Reliability)),
		cycles:      map[domain.SyncDomain]domain.CycleStats{},
		standing:    map[string]string{},
	}
	for name, v := range deps.Reliability {
		m.reliability[name] = v
	}
	m.current.Store(&domain.QualityMetrics{SourceReliability: map[string]float64{}, ValidationPassRate: 1})
	return m
}

// RecordLatency keeps a bounded window of fetch latencies.
func (m *Monitor) RecordLatency(_ string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.latencies) < latencyWindow {
		m.latencies = append(m.latencies, d)
		return
	}
	m.latencies[m.latencyNext] = d
	m.latencyNext = (m.latencyNext + 1) % latencyWindow
}

// RecordCycle stores the latest stats of a domain sync.
func (m *Monitor) RecordCycle(stats domain.CycleStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles[stats.Domain] = stats
}

// SetReliability overrides one source's reliability.
func (m *Monitor) SetReliability(source string, value float64) error {
	if source == "" {
		return fmt.Errorf("source is required")
	}
	if value < 0 || value > 1 {
		return fmt.Errorf("reliability %.3f outside [0,1]", value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reliability[source] = value
	return nil
}

// Tick recomputes metrics, appends alerts for every breach and persists the result.
func (m *Monitor) Tick(ctx context.Context, at time.Time) domain.QualityMetrics {
	m.refreshReliability(ctx)

	articles := m.publishedArticles()

	m.mu.Lock()
	snapshot := m.computeLocked(articles, at)
	raised := m.raiseLocked(evaluate(snapshot, m.cfg.Thresholds), at)
	m.pruneLocked(at)
	alerts := append([]domain.QualityAlert(nil), m.alerts...)
	m.mu.Unlock()

	m.current.Store(&snapshot)

	for _, alert := range raised {
		metrics.QualityAlerts.WithLabelValues(string(alert.Type), string(alert.Severity)).Inc()
		m.log(alertLevel(alert.Severity), "quality alert", "type", alert.Type, "severity", alert.Severity, "message", alert.Message)
	}
	metrics.QualityScore.Set(overall(subScores(snapshot, m.cfg.Thresholds)))

	m.persist(ctx, snapshot, alerts)
	return snapshot
}

// Metrics returns the most recently computed metrics.
func (m *Monitor) Metrics() domain.QualityMetrics {
	return copyMetrics(*m.current.Load())
}

// Alerts lists alerts oldest first, optionally only the unresolved ones.
func (m *Monitor) Alerts(activeOnly bool) []domain.QualityAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.QualityAlert, 0, len(m.alerts))
	for _, a := range m.alerts {
		if activeOnly && a.Resolved {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Resolve marks an alert resolved.
func (m *Monitor) Resolve(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID != id {
			continue
		}
		m.alerts[i].Resolved = true
		for key, alertID := range m.standing {
			if alertID == id {
				delete(m.standing, key)
			}
		}
		return nil
	}
	return fmt.Errorf("%s: %w", id, ErrAlertNotFound)
}

// Restore reloads persisted alerts and metrics after a restart.
func (m *Monitor) Restore(ctx context.Context) error {
	if m.cache == nil {
		return nil
	}

	if raw, ok, err := m.cache.Get(ctx, AlertsKey); err != nil {
		return fmt.Errorf("load alerts: %w", err)
	} else if ok {
		var alerts []domain.QualityAlert
		if err := json.Unmarshal(raw, &alerts); err != nil {
			return fmt.Errorf("decode alerts: %w", err)
		}
		m.mu.Lock()
		m.alerts = alerts
		m.mu.Unlock()
	}

	if raw, ok, err := m.cache.Get(ctx, MetricsKey); err != nil {
		return fmt.Errorf("load metrics: %w", err)
	} else if ok {
		var snapshot domain.QualityMetrics
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			return fmt.Errorf("decode metrics: %w", err)
		}
		m.current.Store(&snapshot)
	}
	return nil
}

func (m *Monitor) refreshReliability(ctx context.Context) {
	if m.feed == nil {
		return
	}
	scores, err := m.feed.FetchReliability(ctx)
	if err != nil {
		m.log(slog.LevelWarn, "reliability feed failed", "error", err)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, v := range scores {
		if v >= 0 && v <= 1 {
			m.reliability[name] = v
		}
	}
}

// publishedArticles collapses articles published in several domains into one entry per
// ID, keeping the copy with the most interactions. Articles without an ID are kept as is.
func (m *Monitor) publishedArticles() []domain.Article {
	if m.view == nil {
		return nil
	}
	published := m.view.Published()
	out := make([]domain.Article, 0, len(published))
	seen := make(map[string]int, len(published))
	for _, a := range published {
		if a.ID == "" {
			out = append(out, a)
			continue
		}
		if i, ok := seen[a.ID]; ok {
			if a.Engagement.Interactions() > out[i].Engagement.Interactions() {
				out[i] = a
			}
			continue
		}
		seen[a.ID] = len(out)
		out = append(out, a)
	}
	return out
}

func (m *Monitor) computeLocked(articles []domain.Article, at time.Time) domain.QualityMetrics {
	snapshot := domain.QualityMetrics{
		SourceReliability:  make(map[string]float64, len(m.reliability)),
		ValidationPassRate: 1,
		ArticleCount:       len(articles),
		ComputedAt:         at,
	}
	for name, v := range m.reliability {
		snapshot.SourceReliability[name] = v
	}

	if len(articles) > 0 {
		var age time.Duration
		var interactions int64
		for _, a := range articles {
			age += at.Sub(a.PublishedAt)
			interactions += a.Engagement.Interactions()
		}
		snapshot.AverageContentAge = age / time.Duration(len(articles))
		snapshot.MeanEngagement = float64(interactions) / float64(len(articles))
	}

	var parsed, duplicates, validated, valid int
	for _, stats := range m.cycles {
		parsed += stats.Parsed
		duplicates += stats.Duplicates
		validated += stats.Validated
		valid += stats.Valid
	}
	if parsed > 0 {
		snapshot.DuplicationRate = float64(duplicates) / float64(parsed)
	}
	if validated > 0 {
		snapshot.ValidationPassRate = float64(valid) / float64(validated)
	}

	if len(m.latencies) > 0 {
		var total time.Duration
		for _, d := range m.latencies {
			total += d
		}
		snapshot.MeanFetchLatency = total / time.Duration(len(m.latencies))
	}
	return snapshot
}

func (m *Monitor) raiseLocked(found []breach, at time.Time) []domain.QualityAlert {
	var raised []domain.QualityAlert
	breaching := make(map[string]bool, len(found))
	for _, b := range found {
		key := string(b.Type) + "|" + b.Subject
		breaching[key] = true
		if m.cfg.EdgeTriggered {
			if _, standing := m.standing[key]; standing {
				continue
			}
		}
		alert := domain.QualityAlert{
			ID:        uuid.NewString(),
			Type:      b.Type,
			Severity:  b.Severity,
			Subject:   b.Subject,
			Message:   b.Message,
			CreatedAt: at,
		}
		m.alerts = append(m.alerts, alert)
		m.standing[key] = alert.ID
		raised = append(raised, alert)
	}
	for key := range m.standing {
		if !breaching[key] {
			delete(m.standing, key)
		}
	}
	return raised
}

func (m *Monitor) pruneLocked(at time.Time) {
	if m.cfg.AlertRetention <= 0 {
		return
	}
	cutoff := at.Add(-m.cfg.AlertRetention)
	kept := m.alerts[:0]
	for _, a := range m.alerts {
		if !a.CreatedAt.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	m.alerts = kept
}

func (m *Monitor) persist(ctx context.Context, snapshot domain.QualityMetrics, alerts []domain.QualityAlert) {
	if m.cache == nil {
		return
	}
	if raw, err := json.Marshal(snapshot); err == nil {
		if err := m.cache.Put(ctx, MetricsKey, raw, nil); err != nil {
			m.log(slog.LevelWarn, "persist quality metrics", "error", err)
		}
	}
	if raw, err := json.Marshal(alerts); err == nil {
		if err := m.cache.Put(ctx, AlertsKey, raw, nil); err != nil {
			m.log(slog.LevelWarn, "persist quality alerts", "error", err)
		}
	}
}

func (m *Monitor) log(level slog.Level, msg string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Log(context.Background(), level, msg, args...)
	}
}

// breach is a threshold crossing found in one metrics snapshot.
type breach struct {
	Type     domain.AlertType
	Severity domain.Severity
	Subject  string
	Message  string
}

// thresholdSeverity fixes the severity raised for each alert type.
var thresholdSeverity = map[domain.AlertType]domain.Severity{
	domain.AlertSourceReliability: domain.SeverityWarning,
	domain.AlertContentFreshness:  domain.SeverityWarning,
	domain.AlertDuplication:       domain.SeverityError,
	domain.AlertValidation:        domain.SeverityError,
	domain.AlertEngagement:        domain.SeverityInfo,
	domain.AlertLatency:           domain.SeverityWarning,
}

// evaluate lists every breach in fixed alert type order. View-based checks are skipped
// while nothing is published.
func evaluate(snapshot domain.QualityMetrics, t config.Thresholds) []breach {
	var out []breach

	sources := make([]string, 0, len(snapshot.SourceReliability))
	for name := range snapshot.SourceReliability {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	for _, name := range sources {
		if v := snapshot.SourceReliability[name]; v < t.MinSourceReliability {
			out = append(out, newBreach(domain.AlertSourceReliability, name,
				fmt.Sprintf("source %s reliability %.2f below %.2f", name, v, t.MinSourceReliability)))
		}
	}

	if snapshot.ArticleCount > 0 && t.MaxContentAge > 0 && snapshot.AverageContentAge > t.MaxContentAge {
		out = append(out, newBreach(domain.AlertContentFreshness, "",
			fmt.Sprintf("average content age %s exceeds %s", snapshot.AverageContentAge.Round(time.Minute), t.MaxContentAge)))
	}
	if snapshot.DuplicationRate > t.MaxDuplicationRate {
		out = append(out, newBreach(domain.AlertDuplication, "",
			fmt.Sprintf("duplication rate %.2f above %.2f", snapshot.DuplicationRate, t.MaxDuplicationRate)))
	}
	if snapshot.ValidationPassRate < t.MinValidationPassRate {
		out = append(out, newBreach(domain.AlertValidation, "",
			fmt.Sprintf("validation pass rate %.2f below %.2f", snapshot.ValidationPassRate, t.MinValidationPassRate)))
	}
	if snapshot.ArticleCount > 0 && snapshot.MeanEngagement < t.MinEngagement {
		out = append(out, newBreach(domain.AlertEngagement, "",
			fmt.Sprintf("mean engagement %.2f below %.2f", snapshot.MeanEngagement, t.MinEngagement)))
	}
	if t.MaxFetchLatency > 0 && snapshot.MeanFetchLatency > t.MaxFetchLatency {
		out = append(out, newBreach(domain.AlertLatency, "",
			fmt.Sprintf("mean fetch latency %s above %s", snapshot.MeanFetchLatency.Round(time.Millisecond), t.MaxFetchLatency)))
	}
	return out
}

func newBreach(kind domain.AlertType, subject, message string) breach {
	return breach{Type: kind, Severity: thresholdSeverity[kind], Subject: subject, Message: message}
}

func alertLevel(s domain.Severity) slog.Level {
	switch s {
	case domain.SeverityError, domain.SeverityCritical, domain.SeverityHigh:
		return slog.LevelError
	case domain.SeverityWarning, domain.SeverityMedium:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func copyMetrics(in domain.QualityMetrics) domain.QualityMetrics {
	out := in
	out.SourceReliability = make(map[string]float64, len(in.SourceReliability))
	for k, v := range in.SourceReliability {
		out.SourceReliability[k] = v
	}
	return out
}
