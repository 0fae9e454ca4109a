package screens

import (
	"image"
	"sync"
	"time"

	"github.com/quadify/quadify/internal/render"
	"github.com/quadify/quadify/internal/render/layout"
	"github.com/quadify/quadify/internal/screen"
	"go.uber.org/zap"
	"golang.org/x/image/font"
)

const DefaultClockFont = "clock_digital"

// ClockSettings select the clock design.
type ClockSettings struct {
	FontKey     string `json:"font_key"`
	ShowSeconds bool   `json:"show_seconds"`
	ShowDate    bool   `json:"show_date"`
}

// Per-design vertical nudges, line gaps and matching date fonts.
var (
	clockYOffsets = map[string]int{
		"clock_sans":    -15,
		"clock_dots":    -10,
		"clock_digital": 0,
		"clock_bold":    -5,
	}
	clockLineGaps = map[string]int{
		"clock_sans":    15,
		"clock_dots":    10,
		"clock_digital": 8,
		"clock_bold":    12,
	}
	clockDateFonts = map[string]string{
		"clock_sans":    "clockdate_sans",
		"clock_dots":    "clockdate_dots",
		"clock_digital": "clockdate_digital",
		"clock_bold":    "clockdate_bold",
	}
)

const defaultClockLineGap = 10

// Clock is a tick-driven screen showing the time and optionally the date.
type Clock struct {
	*screen.TickScreen

	assets Assets
	logger *zap.Logger
	width  int
	height int

	mu       sync.Mutex
	settings ClockSettings
	faces    map[string]font.Face
}

func NewClock(d Deps, settings ClockSettings, opts ...screen.Option) *Clock {
	w, h := d.size()
	c := &Clock{
		assets:   d.Assets,
		logger:   d.logger().Named(ModeClock),
		width:    w,
		height:   h,
		settings: settings,
		faces:    make(map[string]font.Face),
	}
	c.TickScreen = screen.NewTickScreen(ModeClock, d.Surface, c, d.screenOptions(opts)...)
	return c
}

func (c *Clock) Settings() ClockSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Configure replaces the settings; the next tick picks them up.
func (c *Clock) Configure(s ClockSettings) {
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
}

// face caches one face per key. Callers hold c.mu.
func (c *Clock) face(key string) font.Face {
	if f, ok := c.faces[key]; ok {
		return f
	}
	f := c.assets.Font(key)
	c.faces[key] = f
	return f
}

type clockLine struct {
	text string
	face font.Face
	m    render.TextMetrics
}

func (c *Clock) ComposeAt(now time.Time) image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.settings
	timeKey := s.FontKey
	if timeKey == "" {
		timeKey = DefaultClockFont
	}
	if !c.assets.HasFont(timeKey) {
		if timeKey != DefaultClockFont {
			c.logger.Warn("clock font not loaded, using default", zap.String("font", timeKey))
		}
		timeKey = DefaultClockFont
	}
	timeFace := c.face(timeKey)
	dateFace := timeFace
	if dateKey, ok := clockDateFonts[timeKey]; ok && c.assets.HasFont(dateKey) {
		dateFace = c.face(dateKey)
	}

	layoutStr := "15:04"
	if s.ShowSeconds {
		layoutStr = "15:04:05"
	}

	canvas := render.NewCanvas(c.width, c.height)
	canvas.FillBackground()

	lines := []clockLine{{text: now.Format(layoutStr), face: timeFace}}
	if s.ShowDate {
		lines = append(lines, clockLine{text: now.Format("02 Jan 2006"), face: dateFace})
	}

	gap, ok := clockLineGaps[timeKey]
	if !ok {
		gap = defaultClockLineGap
	}
	total := 0
	for i := range lines {
		lines[i].m = canvas.MeasureText(lines[i].text, render.TextStyle{Face: lines[i].face})
		total += lines[i].m.Height
	}
	if len(lines) == 2 {
		total += gap
	}

	y := layout.CenterOffset(c.height, total) + clockYOffsets[timeKey]
	for _, l := range lines {
		canvas.DrawText(l.text, c.width/2, y, render.TextStyle{Face: l.face, Align: render.TextAlignCenter})
		y += l.m.Height + gap
	}
	return canvas.Image()
}
