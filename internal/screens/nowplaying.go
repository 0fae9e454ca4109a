package screens

import (
	"fmt"
	"image"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/quadify/quadify/internal/playback"
	"github.com/quadify/quadify/internal/render"
	"github.com/quadify/quadify/internal/render/layout"
	"github.com/quadify/quadify/internal/screen"
	"golang.org/x/image/font"
)

// Layout selects how a NowPlaying screen arranges the track.
type Layout int

const (
	// LayoutModern shows artist and title marquees, the stream quality, the
	// volume and a progress bar.
	LayoutModern Layout = iota
	// LayoutMinimal shows the service, the stream quality and a large volume.
	LayoutMinimal
)

func (l Layout) Mode() string {
	if l == LayoutMinimal {
		return ModeMinimal
	}
	return ModeModern
}

const (
	modernMargin      = 5
	modernArtistY     = 0
	modernTitleY      = 11
	modernInfoY       = 30
	modernBarBottom   = 4
	modernBarTick     = 2
	modernTimeGap     = 4
	modernVolumeIcon  = 10
	modernVolumeRise  = 22
	modernVolumeLeft  = 30
	minimalServiceX   = 110
	minimalServiceY   = 8
	minimalVolumeEdge = 40

	unknownTitle   = "Unknown Title"
	unknownArtist  = "Unknown Artist"
	defaultService = "Network"
)

// Streaming services Volumio plays through mpd and reports in trackType.
var mpdTrackServices = map[string]bool{"tidal": true, "qobuz": true, "spotify": true}

// NowPlaying is the general playback screen. It accepts states from every
// service, so it shows whatever plays without a dedicated screen.
type NowPlaying struct {
	*screen.EventScreen

	transport transport
	layout    Layout
	width     int
	height    int
	now       func() time.Time

	titleFace   font.Face
	artistFace  font.Face
	dataFace    font.Face
	volumeFace  font.Face
	serviceFace font.Face
	volumeIcon  image.Image

	// Owned by the worker goroutine.
	title      screen.Scroller
	artist     screen.Scroller
	lastTitle  string
	lastArtist string
}

func NewNowPlaying(d Deps, l Layout, opts ...screen.Option) *NowPlaying {
	w, h := d.size()
	n := &NowPlaying{
		layout:      l,
		width:       w,
		height:      h,
		now:         time.Now,
		titleFace:   d.Assets.Font("song_font"),
		artistFace:  d.Assets.Font("artist_font"),
		dataFace:    d.Assets.Font("data_font"),
		volumeFace:  d.Assets.Font("minimal_volume"),
		serviceFace: d.Assets.Font("minimal_service"),
		volumeIcon:  imaging.Resize(d.Assets.Icon("volume"), modernVolumeIcon, modernVolumeIcon, imaging.Lanczos),
	}
	n.EventScreen = screen.NewEventScreen(l.Mode(), "", d.Surface, d.Modes, n, d.screenOptions(opts)...)
	n.transport = newTransport(d, n.Latest, d.logger().Named(l.Mode()))
	return n
}

func (n *NowPlaying) AdjustVolume(delta int) { n.transport.adjustVolume(delta) }

func (n *NowPlaying) TogglePlayPause() { n.transport.togglePlayPause() }

// ServiceLabel names the service for display. Streaming services played
// through mpd are named after their track type.
func ServiceLabel(st playback.State) string {
	service := strings.ToLower(strings.TrimSpace(st.Service))
	if service == "mpd" && mpdTrackServices[st.TrackType] {
		service = st.TrackType
	}
	if service == "" {
		return defaultService
	}
	return strings.ToUpper(service[:1]) + service[1:]
}

// FormatPosition renders d as m:ss.
func FormatPosition(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func nowPlayingInfo(st playback.State) string {
	return orDefault(st.SampleRate, unknownQualityTag) + " / " + orDefault(st.BitDepth, unknownQualityTag)
}

func (n *NowPlaying) Compose(st playback.State) image.Image {
	c := render.NewCanvas(n.width, n.height)
	c.FillBackground()
	if n.layout == LayoutMinimal {
		n.composeMinimal(c, st)
	} else {
		n.composeModern(c, st, n.now())
	}
	return c.Image()
}

func (n *NowPlaying) composeModern(c *render.Canvas, st playback.State, now time.Time) {
	title := orDefault(st.Title, unknownTitle)
	artist := orDefault(st.Artist, unknownArtist)
	if title != n.lastTitle {
		n.title.Reset()
		n.lastTitle = title
	}
	if artist != n.lastArtist {
		n.artist.Reset()
		n.lastArtist = artist
	}

	avail := n.width - 2*modernMargin
	n.marquee(c, &n.artist, artist, modernArtistY, avail, n.artistFace)
	n.marquee(c, &n.title, title, modernTitleY, avail, n.titleFace)
	// Keep the marquees inside the margins.
	c.FillRect(image.Rect(0, 0, modernMargin, modernInfoY), render.Background)
	c.FillRect(layout.RightOf(image.Rect(0, 0, n.width, modernInfoY), n.width-modernMargin), render.Background)

	data := render.TextStyle{Face: n.dataFace}
	c.DrawText(nowPlayingInfo(st), n.width/2, modernInfoY, render.TextStyle{Face: n.dataFace, Align: render.TextAlignCenter})

	barWidth := n.width * 7 / 10
	barX := layout.CenterOffset(n.width, barWidth)
	barY := n.height - modernBarBottom

	iconY := barY - modernVolumeRise
	c.DrawImage(n.volumeIcon, barX-modernVolumeLeft, iconY)
	c.DrawText(strconv.Itoa(st.VolumeOr(playback.DefaultVolume)), barX-modernVolumeLeft+modernVolumeIcon+2, iconY-2, data)

	// Live streams have no duration and get no bar.
	if st.Duration <= 0 {
		return
	}
	timeY := barY - c.MeasureText("0:00", data).Height/2
	c.DrawText(FormatPosition(st.Elapsed(now)), barX-modernTimeGap, timeY,
		render.TextStyle{Face: n.dataFace, Align: render.TextAlignRight})
	c.DrawText(FormatPosition(st.Duration), barX+barWidth+modernTimeGap, timeY, data)

	c.DrawLine(barX, barY, barX+barWidth, barY, render.Foreground)
	x := barX + int(float64(barWidth)*st.Progress(now))
	c.DrawLine(x, barY-modernBarTick, x, barY+modernBarTick, render.Foreground)
}

func (n *NowPlaying) marquee(c *render.Canvas, s *screen.Scroller, text string, y, avail int, face font.Face) {
	style := render.TextStyle{Face: face}
	m := c.MeasureText(text, style)
	x, scrolled := s.Advance(m.Width, avail)
	if !scrolled {
		x = layout.CenterOffset(avail, m.Width)
	}
	c.DrawText(text, modernMargin+x, y, style)
}

func (n *NowPlaying) composeMinimal(c *render.Canvas, st playback.State) {
	service := c.DrawText(ServiceLabel(st), minimalServiceX, minimalServiceY,
		render.TextStyle{Face: n.serviceFace, Align: render.TextAlignRight})
	c.DrawText(nowPlayingInfo(st), minimalServiceX, minimalServiceY+service.Height+1,
		render.TextStyle{Face: n.dataFace, Align: render.TextAlignRight})

	vol := strconv.Itoa(st.VolumeOr(playback.DefaultVolume))
	style := render.TextStyle{Face: n.volumeFace, Align: render.TextAlignRight}
	m := c.MeasureText(vol, style)
	c.DrawText(vol, n.width-minimalVolumeEdge, (n.height-m.Height)/5, style)
}
