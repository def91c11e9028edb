// Package watchlist - user-defined watch entries and match decisions.
package watchlist

import (
	"context"

	"github.com/anpr-ai/go-anpr/colors"
)

// Entry is one watchlist row. All fields are optional; the active detection
// mode decides which ones a match compares.
type Entry struct {
	ID          int64
	Plate       string
	VehicleType string
	Color       colors.Color
}

// Store is the read surface the match engine depends on.
type Store interface {
	GetAllEntries(ctx context.Context) ([]Entry, error)
}
