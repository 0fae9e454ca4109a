package render

import (
	"image"
	"image/draw"
	"sync"
)

// MemorySurface keeps the last presented frame in memory. When Next is set,
// frames are forwarded to it as well, which lets the web preview mirror a
// hardware panel.
type MemorySurface struct {
	Next Surface

	mu      sync.Mutex
	bounds  image.Rectangle
	last    *image.RGBA
	frames  int
	clears  int
	showErr error
}

func NewMemorySurface(width, height int) *MemorySurface {
	return &MemorySurface{bounds: image.Rect(0, 0, width, height)}
}

// Mirror wraps next so every frame shown on it is also kept in memory.
func Mirror(next Surface) *MemorySurface {
	return &MemorySurface{Next: next, bounds: next.Bounds()}
}

func (s *MemorySurface) Bounds() image.Rectangle { return s.bounds }

func (s *MemorySurface) Show(frame image.Image) error {
	cp := image.NewRGBA(s.bounds)
	draw.Draw(cp, s.bounds, frame, frame.Bounds().Min, draw.Src)

	s.mu.Lock()
	s.last = cp
	s.frames++
	err := s.showErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if s.Next != nil {
		return s.Next.Show(frame)
	}
	return nil
}

func (s *MemorySurface) Clear() error {
	s.mu.Lock()
	s.last = image.NewRGBA(s.bounds)
	s.clears++
	s.mu.Unlock()
	if s.Next != nil {
		return s.Next.Clear()
	}
	return nil
}

// Snapshot returns the last frame, or false when nothing was shown yet.
func (s *MemorySurface) Snapshot() (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, false
	}
	return s.last, true
}

// Frames returns how many frames were shown.
func (s *MemorySurface) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Clears returns how many times the surface was cleared.
func (s *MemorySurface) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

// FailWith makes subsequent Show calls return err; nil restores normal behaviour.
func (s *MemorySurface) FailWith(err error) {
	s.mu.Lock()
	s.showErr = err
	s.mu.Unlock()
}
