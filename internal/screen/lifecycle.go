package screen

import (
	"image"

	"github.com/quadify/quadify/internal/playback"
)

// Status is the mode membership of a screen. Screens start Inactive and only
// StartMode/StopMode change it.
type Status int32

const (
	Inactive Status = iota
	Active
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	default:
		return "inactive"
	}
}

// ModeSource reports the currently selected operating mode.
type ModeSource interface {
	Mode() string
}

// ModeFunc adapts a function to ModeSource.
type ModeFunc func() string

func (f ModeFunc) Mode() string { return f() }

// Composer builds a full frame from a playback state.
type Composer interface {
	Compose(st playback.State) image.Image
}

// ComposerFunc adapts a function to Composer.
type ComposerFunc func(st playback.State) image.Image

func (f ComposerFunc) Compose(st playback.State) image.Image { return f(st) }
