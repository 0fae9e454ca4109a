package web

import (
	"image"

	"github.com/quadify/quadify/internal/playback"
	"github.com/quadify/quadify/internal/screens"
	"go.uber.org/zap"
)

// ModeSwitcher abstracts the mode controller used by the API.
//
// The concrete implementation is typically *app.Controller.
type ModeSwitcher interface {
	Mode() string
	Modes() []string
	// RequestMode queues a switch; it must not block the request.
	RequestMode(name string)
}

// Commander forwards transport commands to the active screen. Both methods
// report false when the active screen does not accept the command.
type Commander interface {
	AdjustVolume(delta int) bool
	TogglePlayPause() bool
}

// StateSource is the read side of a playback source.
type StateSource interface {
	playback.Subscriber
	CurrentState() (playback.State, bool)
}

// FrameSource returns the frame currently on the display.
type FrameSource interface {
	Snapshot() (image.Image, bool)
}

type ClockConfigurer interface {
	Settings() screens.ClockSettings
	Configure(s screens.ClockSettings)
}

// APIV1Deps holds the collaborators of the /api/v1 routes. A nil field turns
// its routes into 501 responses.
type APIV1Deps struct {
	Modes    ModeSwitcher
	Commands Commander
	State    StateSource
	Frames   FrameSource
	Clock    ClockConfigurer
	Logger   *zap.Logger
}

func (d APIV1Deps) withDefaults() APIV1Deps {
	out := d
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	return out
}
