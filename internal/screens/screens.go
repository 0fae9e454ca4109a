// Package screens holds the concrete screens shown on the display.
package screens

import (
	"image"

	"github.com/quadify/quadify/internal/playback"
	"github.com/quadify/quadify/internal/render"
	"github.com/quadify/quadify/internal/screen"
	"go.uber.org/zap"
	"golang.org/x/image/font"
)

// Mode names.
const (
	ModeAirPlay    = "airplay"
	ModeWebRadio   = "webradio"
	ModeClock      = "clock"
	ModeSystemInfo = "systeminfo"
	ModeModern     = "modern"
	ModeMinimal    = "minimal"
)

// PlaybackModes are the general playback screens a user can choose between.
// Playback from services without a dedicated screen opens the chosen one.
var PlaybackModes = []string{ModeModern, ModeMinimal}

// Service tags reported by the player.
const (
	ServiceAirPlay  = "airplay_emulation"
	ServiceWebRadio = "webradio"
)

// Assets is what screens need from the asset resolver.
type Assets interface {
	Font(key string) font.Face
	HasFont(key string) bool
	Icon(key string) image.Image
	AlbumArt(ref string, size int) (image.Image, bool)
}

// Deps are the collaborators shared by every screen.
type Deps struct {
	Surface render.Surface
	Modes   screen.ModeSource
	Source  playback.Source
	Assets  Assets
	Logger  *zap.Logger
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// screenOptions prepends the options every screen gets from Deps.
func (d Deps) screenOptions(opts []screen.Option) []screen.Option {
	base := []screen.Option{screen.WithLogger(d.logger())}
	if d.Source != nil {
		base = append(base, screen.WithRequester(d.Source))
	}
	return append(base, opts...)
}

func (d Deps) size() (int, int) {
	b := d.Surface.Bounds()
	return b.Dx(), b.Dy()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
