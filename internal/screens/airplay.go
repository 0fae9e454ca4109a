package screens

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/quadify/quadify/internal/playback"
	"github.com/quadify/quadify/internal/render"
	"github.com/quadify/quadify/internal/render/layout"
	"github.com/quadify/quadify/internal/screen"
	"golang.org/x/image/font"
)

const (
	airplayIconSize   = 60
	airplayMaskWidth  = 15
	airplayTitleY     = 0
	airplayArtistY    = 17
	airplayDividerY   = 37
	airplayServiceY   = airplayDividerY + 3
	airplayQualityY   = airplayDividerY + 15
	airplayTitleText  = "AirPlay"
	airplayNoArtist   = "No Info Available"
	airplayModeLabel  = "AirPlay Mode"
	unknownQualityTag = "N/A"
)

// AirPlay shows the track pushed by an AirPlay receiver next to a static
// AirPlay icon. Title and artist scroll independently when too wide.
type AirPlay struct {
	*screen.EventScreen

	transport transport
	width     int
	height    int

	titleFace font.Face
	smallFace font.Face
	labelFace font.Face
	icon      image.Image

	// Owned by the worker goroutine.
	title      screen.Scroller
	artist     screen.Scroller
	lastTitle  string
	lastArtist string
}

func NewAirPlay(d Deps, opts ...screen.Option) *AirPlay {
	w, h := d.size()
	a := &AirPlay{
		width:     w,
		height:    h,
		titleFace: d.Assets.Font("radio_title"),
		smallFace: d.Assets.Font("radio_small"),
		labelFace: d.Assets.Font("radio_bitrate"),
		icon:      imaging.Resize(d.Assets.Icon("airplay"), airplayIconSize, airplayIconSize, imaging.Lanczos),
	}
	a.EventScreen = screen.NewEventScreen(ModeAirPlay, ServiceAirPlay, d.Surface, d.Modes, a, d.screenOptions(opts)...)
	a.transport = newTransport(d, a.Latest, d.logger().Named(ModeAirPlay))
	return a
}

// Quality formats bit depth and sample rate the way the panel shows them.
func Quality(st playback.State) string {
	return fmt.Sprintf("%s  %s", orDefault(st.BitDepth, unknownQualityTag), orDefault(st.SampleRate, unknownQualityTag))
}

func (a *AirPlay) Compose(st playback.State) image.Image {
	c := render.NewCanvas(a.width, a.height)
	c.FillBackground()

	title := orDefault(st.Title, airplayTitleText)
	artist := orDefault(st.Artist, airplayNoArtist)
	if title != a.lastTitle {
		a.title.Reset()
		a.lastTitle = title
	}
	if artist != a.lastArtist {
		a.artist.Reset()
		a.lastArtist = artist
	}

	scrollable := a.width - airplayIconSize - airplayMaskWidth
	a.title.Draw(c, title, airplayTitleY, scrollable, render.TextStyle{Face: a.titleFace})
	a.artist.Draw(c, artist, airplayArtistY, scrollable, render.TextStyle{Face: a.smallFace})

	c.DrawLine(0, airplayDividerY, scrollable, airplayDividerY, render.Foreground)
	c.DrawText(airplayModeLabel, 0, airplayServiceY, render.TextStyle{Face: a.smallFace})
	c.DrawText(Quality(st), 0, airplayQualityY, render.TextStyle{Face: a.labelFace})

	// Scrolling text enters from under the icon; mask everything right of
	// the scroll area before placing the icon.
	c.FillRect(layout.RightOf(c.Image().Bounds(), scrollable), render.Background)
	c.DrawImage(a.icon, a.width-airplayIconSize, 0)
	return c.Image()
}

func (a *AirPlay) AdjustVolume(delta int) { a.transport.adjustVolume(delta) }

func (a *AirPlay) TogglePlayPause() { a.transport.togglePlayPause() }
