package pipeline

import (
	"image"
	"sync"
	"time"
)

// Frame is one captured camera frame queued for processing.
type Frame struct {
	Image image.Image
	// Rotation is the capture rotation in degrees; the frame source is
	// expected to deliver upright pixels, the value is informational.
	Rotation  int
	Timestamp time.Time
}

// frameSlot is a single-slot "latest pending frame" buffer. A new frame
// replaces any queued-but-not-started one; older frames are discarded, never
// processed. This is the request queue of depth 1 in front of the exclusive
// inference engine.
type frameSlot struct {
	mu      sync.Mutex
	pending *Frame
}

// offer queues the frame, replacing any pending one. Returns whether an
// unprocessed frame was discarded.
func (s *frameSlot) offer(f Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := s.pending != nil
	s.pending = &f
	return replaced
}

// peek reports whether a frame is pending without consuming it.
func (s *frameSlot) peek() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// take removes and returns the pending frame, if any.
func (s *frameSlot) take() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Frame{}, false
	}
	f := *s.pending
	s.pending = nil
	return f, true
}

// clear drops any pending frame.
func (s *frameSlot) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}
