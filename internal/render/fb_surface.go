package render

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	fb "github.com/gonutz/framebuffer"
	"go.uber.org/zap"
)

// FBSurface presents frames on a Linux framebuffer device. Frames are drawn
// at the logical size and nearest-neighbour scaled to the device resolution.
type FBSurface struct {
	Path string

	logger *zap.Logger
	bounds image.Rectangle

	mu    sync.Mutex
	fbDev *fb.Device
	blank *image.RGBA
}

func NewFBSurface(path string, width, height int, logger *zap.Logger) *FBSurface {
	if path == "" {
		path = "/dev/fb0"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FBSurface{
		Path:   path,
		logger: logger.Named("fb"),
		bounds: image.Rect(0, 0, width, height),
	}
}

func (s *FBSurface) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fbDev != nil {
		return nil
	}
	dev, err := fb.Open(s.Path)
	if err != nil {
		return fmt.Errorf("open framebuffer %s: %w", s.Path, err)
	}
	s.fbDev = dev
	b := dev.Bounds()
	s.logger.Info("framebuffer open",
		zap.String("path", s.Path),
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()))
	return nil
}

func (s *FBSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fbDev == nil {
		return nil
	}
	s.fbDev.Close()
	s.fbDev = nil
	return nil
}

func (s *FBSurface) Bounds() image.Rectangle { return s.bounds }

func (s *FBSurface) Show(frame image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fbDev == nil {
		return fmt.Errorf("framebuffer %s not open", s.Path)
	}
	blitToFB(s.fbDev, frame, s.bounds)
	return nil
}

func (s *FBSurface) Clear() error {
	s.mu.Lock()
	if s.blank == nil {
		s.blank = image.NewRGBA(s.bounds)
	}
	blank := s.blank
	s.mu.Unlock()
	return s.Show(blank)
}

// blitToFB writes frame onto the device via nearest-neighbour sampling.
func blitToFB(dev *fb.Device, frame image.Image, logical image.Rectangle) {
	bounds := dev.Bounds()
	fbWidth := bounds.Dx()
	fbHeight := bounds.Dy()
	srcMin := frame.Bounds().Min
	for y := 0; y < fbHeight; y++ {
		sy := srcMin.Y + (y*logical.Dy())/fbHeight
		for x := 0; x < fbWidth; x++ {
			sx := srcMin.X + (x*logical.Dx())/fbWidth
			r, g, b, _ := frame.At(sx, sy).RGBA()
			dev.Set(bounds.Min.X+x, bounds.Min.Y+y, color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0xFF})
		}
	}
}
