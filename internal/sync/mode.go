// Package sync ingests crawl manifests into a network's site index
package sync

import "time"

// Mode is the kind of sync to run
type Mode string

const (
	// ModeFull reindexes every page of the manifest
	ModeFull Mode = "full"
	// ModeIncremental only indexes pages updated since the last sync
	ModeIncremental Mode = "incremental"
)

// DefaultFullSyncInterval forces a full sync when the last one is older than this
const DefaultFullSyncInterval = 7 * 24 * time.Hour

// SyncModeDecision represents the inputs for deciding sync mode
type SyncModeDecision struct {
	ForceFullSync     bool
	LastSyncTime      time.Time
	LastFullSyncTime  time.Time
	FullSyncInterval  time.Duration
	LoadSyncTimeError error
}

// Decide returns the appropriate sync mode
// currentTime allows for deterministic testing
func (d *SyncModeDecision) Decide(currentTime time.Time) Mode {
	if d.ForceFullSync || d.LoadSyncTimeError != nil || d.LastSyncTime.IsZero() {
		return ModeFull
	}

	if !d.LastFullSyncTime.IsZero() && currentTime.Sub(d.LastFullSyncTime) > d.FullSyncInterval {
		return ModeFull
	}

	return ModeIncremental
}
