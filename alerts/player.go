package alerts

import (
	"os/exec"

	"github.com/rs/zerolog"
)

// CommandPlayer shells out to a system audio player with a fixed clip. The
// call is fire-and-forget: playback failures are logged and swallowed.
type CommandPlayer struct {
	// Command is the player binary, e.g. "aplay" or "afplay".
	Command string
	// ClipPath is the alert sound file.
	ClipPath string
	Log      zerolog.Logger
}

// PlayAlert starts playback of the alert clip.
func (p *CommandPlayer) PlayAlert() {
	cmd := exec.Command(p.Command, p.ClipPath)
	if err := cmd.Run(); err != nil {
		p.Log.Warn().Err(err).Str("command", p.Command).Msg("alert playback failed")
	}
}

// NopPlayer discards alerts; useful in tests and headless runs.
type NopPlayer struct{}

// PlayAlert does nothing.
func (NopPlayer) PlayAlert() {}
