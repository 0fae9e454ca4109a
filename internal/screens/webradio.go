package screens

import (
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/quadify/quadify/internal/playback"
	"github.com/quadify/quadify/internal/render"
	"github.com/quadify/quadify/internal/render/layout"
	"github.com/quadify/quadify/internal/screen"
	"golang.org/x/image/font"
)

const (
	webradioMargin  = 5
	webradioTextY   = 8
	webradioLabelY  = webradioTextY + 20
	webradioArtSize = 48
	webradioLabel   = "WebRadio"
	webradioNoInfo  = "Radio"
)

// WebRadio shows the station or current track of an internet radio stream
// with the station logo on the right.
type WebRadio struct {
	*screen.EventScreen

	assets Assets
	width  int
	height int

	titleFace font.Face
	labelFace font.Face
	fallback  image.Image

	// Owned by the worker goroutine.
	station     screen.Scroller
	lastStation string
}

func NewWebRadio(d Deps, opts ...screen.Option) *WebRadio {
	w, h := d.size()
	r := &WebRadio{
		assets:    d.Assets,
		width:     w,
		height:    h,
		titleFace: d.Assets.Font("radio_title"),
		labelFace: d.Assets.Font("radio_bitrate"),
		fallback:  imaging.Fit(d.Assets.Icon("webradio"), webradioArtSize, webradioArtSize, imaging.Lanczos),
	}
	r.EventScreen = screen.NewEventScreen(ModeWebRadio, ServiceWebRadio, d.Surface, d.Modes, r, d.screenOptions(opts)...)
	return r
}

// StationText picks the line to show. Stations that put the station name in
// the title and the track in the artist show the artist; otherwise the
// title, or a generic placeholder.
func StationText(st playback.State) string {
	switch {
	case st.Artist != "" && !strings.Contains(st.Title, st.Artist):
		return st.Artist
	case st.Title != "":
		return st.Title
	default:
		return webradioNoInfo
	}
}

func (r *WebRadio) Compose(st playback.State) image.Image {
	c := render.NewCanvas(r.width, r.height)
	c.FillBackground()

	artRect := layout.AnchorTopRight(
		layout.Inset(image.Rect(0, 0, r.width, r.height), webradioMargin),
		webradioArtSize, webradioArtSize)
	textLeft := webradioMargin
	textWidth := artRect.Min.X - webradioMargin - textLeft

	text := StationText(st)
	if text != r.lastStation {
		r.station.Reset()
		r.lastStation = text
	}
	style := render.TextStyle{Face: r.titleFace}
	m := c.MeasureText(text, style)
	x, scrolled := r.station.Advance(m.Width, textWidth)
	if !scrolled {
		x = layout.CenterOffset(textWidth, m.Width)
	}
	c.DrawText(text, textLeft+x, webradioTextY, style)

	// Clip the marquee to the text column.
	c.FillRect(image.Rect(0, 0, textLeft, r.height), render.Background)
	c.FillRect(layout.RightOf(c.Image().Bounds(), artRect.Min.X-webradioMargin), render.Background)

	c.DrawText(webradioLabel, textLeft+textWidth/2, webradioLabelY,
		render.TextStyle{Face: r.labelFace, Align: render.TextAlignCenter})

	art, ok := r.assets.AlbumArt(st.AlbumArt, webradioArtSize)
	if !ok {
		art = r.fallback
	}
	c.DrawImageInRect(art, artRect, render.ScaleModeFit)
	return c.Image()
}
