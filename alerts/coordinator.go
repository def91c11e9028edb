// Package alerts - converts match decisions into audible alert events.
package alerts

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Duration is the fixed length of one alert. An alert always plays to
// completion; nothing cancels it.
const Duration = 2 * time.Second

// Player is the platform sound hook. PlayAlert is fire-and-forget.
type Player interface {
	PlayAlert()
}

// Event records one emitted alert.
type Event struct {
	ID        string
	StartedAt time.Time
}

// Coordinator turns the stream of match decisions into non-repeating alert
// events: exactly one alert per no-match to match transition, and never a
// second overlapping alert while one is active.
type Coordinator struct {
	mu          sync.Mutex
	player      Player
	log         zerolog.Logger
	lastMatch   bool
	activeUntil time.Time
	now         func() time.Time
}

// NewCoordinator creates an alert coordinator around the given player.
func NewCoordinator(player Player, log zerolog.Logger) *Coordinator {
	return &Coordinator{player: player, log: log, now: time.Now}
}

// Update feeds the latest match decision to the coordinator.
//
// Arguments:
//   - match: The current watchlist match state.
//
// Returns:
//   - *Event: The emitted alert when this update fired one, nil otherwise.
func (c *Coordinator) Update(match bool) *Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	fire := match && !c.lastMatch && !now.Before(c.activeUntil)
	c.lastMatch = match
	if !fire {
		return nil
	}

	c.activeUntil = now.Add(Duration)
	ev := &Event{ID: uuid.NewString(), StartedAt: now}
	c.log.Info().Str("alert_id", ev.ID).Msg("watchlist match, playing alert")
	if c.player != nil {
		go c.player.PlayAlert()
	}
	return ev
}

// Active reports whether an alert is currently playing.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Before(c.activeUntil)
}
