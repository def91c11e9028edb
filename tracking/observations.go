// Package tracking - per-frame observation records and their lifecycle.
package tracking

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/anpr-ai/go-anpr/colors"
	"github.com/anpr-ai/go-anpr/images"
)

// VehicleObservation is one detected vehicle in one frame. Observations are
// immutable; the next frame's detection of the "same" vehicle supersedes this
// one rather than mutating it.
type VehicleObservation struct {
	// ID is stable across a single pipeline run, not globally unique.
	ID             string
	Box            images.Rect
	Confidence     float32
	Class          string
	PrimaryColor   colors.Color
	SecondaryColor colors.Color
	DetectedAt     time.Time
}

// PlateObservation is one detected license plate in one frame.
type PlateObservation struct {
	Box        images.Rect
	Confidence float32
	// RawText is the recognizer output before normalization.
	RawText string
	// Text is the normalized, formatted plate.
	Text string
	// Valid reports whether Text conforms to a configured plate format.
	Valid bool
	// VehicleID links the plate to its owning vehicle observation, assigned
	// post-hoc by spatial containment. Empty when no owner was found.
	VehicleID  string
	DetectedAt time.Time
}

// DeriveID produces a deterministic observation id from class, box and
// timestamp via FNV-1a. Stable within a run; restarts may repeat ids.
func DeriveID(class string, box images.Rect, ts time.Time) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%.1f|%.1f|%.1f|%.1f|%d", class, box.X1, box.Y1, box.X2, box.Y2, ts.UnixNano())
	return fmt.Sprintf("%016x", h.Sum64())
}

// AssignOwners links each plate to a vehicle observation whose box intersects
// the plate's box or contains the plate's center. The first matching vehicle
// wins; plates with no spatial match keep an empty VehicleID.
func AssignOwners(plates []PlateObservation, vehicles []VehicleObservation) {
	for i := range plates {
		cx, cy := plates[i].Box.Center()
		for _, v := range vehicles {
			if v.Box.Intersects(plates[i].Box) || v.Box.ContainsPoint(cx, cy) {
				plates[i].VehicleID = v.ID
				break
			}
		}
	}
}
