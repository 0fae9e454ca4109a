package screens

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"sync"
	"testing"

	"github.com/quadify/quadify/internal/playback"
	"github.com/quadify/quadify/internal/render"
	"github.com/quadify/quadify/internal/screen"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

type fakeAssets struct {
	fonts map[string]bool
	icon  color.Color
	art   image.Image
}

func (f *fakeAssets) Font(key string) font.Face { return basicfont.Face7x13 }

func (f *fakeAssets) HasFont(key string) bool { return f.fonts[key] }

func (f *fakeAssets) Icon(key string) image.Image { return solid(10, 10, f.icon) }

func (f *fakeAssets) AlbumArt(ref string, size int) (image.Image, bool) {
	if ref == "" || f.art == nil {
		return nil, false
	}
	return f.art, true
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// fakeSource records commands instead of sending them.
type fakeSource struct {
	playback.Hub

	mu        sync.Mutex
	connected bool
	failWith  error
	calls     []string
	requests  int
}

func (s *fakeSource) record(call string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return s.failWith
}

func (s *fakeSource) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeSource) RequestState() error {
	s.mu.Lock()
	s.requests++
	s.mu.Unlock()
	return nil
}

func (s *fakeSource) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSource) VolumeUp() error        { return s.record("up") }
func (s *fakeSource) VolumeDown() error      { return s.record("down") }
func (s *fakeSource) TogglePlayPause() error { return s.record("toggle") }

func (s *fakeSource) SetVolume(v int) error {
	return s.record("set " + strconv.Itoa(v))
}

func newDeps(t *testing.T, mode string, src *fakeSource, assets *fakeAssets) Deps {
	t.Helper()
	if assets == nil {
		assets = &fakeAssets{icon: color.White}
	}
	d := Deps{
		Surface: render.NewMemorySurface(render.CanvasWidth, render.CanvasHeight),
		Modes:   screen.ModeFunc(func() string { return mode }),
		Assets:  assets,
		Logger:  zap.NewNop(),
	}
	if src != nil {
		d.Source = src
	}
	return d
}

func lit(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r+g+b > 0
}

func anyLit(img image.Image, rect image.Rectangle) bool {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if lit(img, x, y) {
				return true
			}
		}
	}
	return false
}

var errCommand = errors.New("socket closed")
