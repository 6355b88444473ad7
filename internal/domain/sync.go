package domain

import (
	"fmt"
	"time"
)

// SyncDomain is an independently scheduled category of synchronized data.
type SyncDomain string

const (
	DomainCritical    SyncDomain = "critical"
	DomainNews        SyncDomain = "news"
	DomainRoster      SyncDomain = "roster"
	DomainMerchandise SyncDomain = "merchandise"
)

// AllDomains lists the domains in scheduling priority order.
var AllDomains = []SyncDomain{DomainCritical, DomainNews, DomainRoster, DomainMerchandise}

// ParseSyncDomain maps a config or API string to a SyncDomain.
func ParseSyncDomain(value string) (SyncDomain, error) {
	switch SyncDomain(value) {
	case DomainCritical, DomainNews, DomainRoster, DomainMerchandise:
		return SyncDomain(value), nil
	case "critical-events", "live":
		return DomainCritical, nil
	}
	return "", fmt.Errorf("unknown sync domain %q", value)
}

// SyncState is the process-wide orchestrator state.
type SyncState string

const (
	StateIdle    SyncState = "idle"
	StateSyncing SyncState = "syncing"
	StateSuccess SyncState = "success"
	StateError   SyncState = "error"
)

// DomainSchedule is the externally visible schedule of one domain.
type DomainSchedule struct {
	Domain      SyncDomain    `json:"domain"`
	Interval    time.Duration `json:"interval"`
	LastAttempt time.Time     `json:"lastAttempt"`
	LastSuccess time.Time     `json:"lastSuccess"`
	LastError   string        `json:"lastError,omitempty"`
	Pending     bool          `json:"pending"`
}

// PendingMarker records a domain sync skipped while offline.
type PendingMarker struct {
	Domain   SyncDomain `json:"domain"`
	QueuedAt time.Time  `json:"queuedAt"`
}

// DomainResult is the outcome of one domain sync inside a pass.
type DomainResult struct {
	Domain SyncDomain
	Stats  CycleStats
	Err    error
}

// PassResult is the joined outcome of one orchestrator pass.
type PassResult struct {
	State   SyncState
	Results []DomainResult
	Skipped []SyncDomain
	Offline bool
}
