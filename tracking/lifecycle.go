package tracking

import (
	"context"
	"sync"
	"time"
)

const (
	// ExpiryWindow is the maximum observation age before it is purged.
	ExpiryWindow = 1000 * time.Millisecond
	// SweepInterval is how often the periodic expiry sweep runs.
	SweepInterval = 500 * time.Millisecond
)

// Lifecycle keeps the active observation sets and expires stale entries. The
// sweep only removes data and never blocks frame producers.
type Lifecycle struct {
	mu       sync.RWMutex
	vehicles []VehicleObservation
	plates   []PlateObservation
}

// NewLifecycle creates an empty observation lifecycle.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// Run drives the periodic sweep until the context is cancelled.
func (l *Lifecycle) Run(ctx context.Context) {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now)
		}
	}
}

// Publish replaces the active observation sets with a completed frame's
// results, assigning plate ownership first and dropping anything already
// stale.
func (l *Lifecycle) Publish(vehicles []VehicleObservation, plates []PlateObservation, now time.Time) {
	AssignOwners(plates, vehicles)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.vehicles = filterVehicles(vehicles, now)
	l.plates = filterPlates(plates, now)
}

// Sweep removes observations whose age meets or exceeds the expiry window.
func (l *Lifecycle) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.vehicles = filterVehicles(l.vehicles, now)
	l.plates = filterPlates(l.plates, now)
}

// Vehicles returns a copy of the live vehicle observations.
func (l *Lifecycle) Vehicles() []VehicleObservation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]VehicleObservation, len(l.vehicles))
	copy(out, l.vehicles)
	return out
}

// Plates returns a copy of the live plate observations.
func (l *Lifecycle) Plates() []PlateObservation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]PlateObservation, len(l.plates))
	copy(out, l.plates)
	return out
}

func filterVehicles(in []VehicleObservation, now time.Time) []VehicleObservation {
	out := in[:0:0]
	for _, v := range in {
		if now.Sub(v.DetectedAt) < ExpiryWindow {
			out = append(out, v)
		}
	}
	return out
}

func filterPlates(in []PlateObservation, now time.Time) []PlateObservation {
	out := in[:0:0]
	for _, p := range in {
		if now.Sub(p.DetectedAt) < ExpiryWindow {
			out = append(out, p)
		}
	}
	return out
}
