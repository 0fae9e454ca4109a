package screen

import (
	"image"
	"sync"
	"time"

	"github.com/quadify/quadify/internal/render"
	"go.uber.org/zap"
)

// FrameComposer builds a frame from wall-clock time alone.
type FrameComposer interface {
	ComposeAt(now time.Time) image.Image
}

// FrameComposerFunc adapts a function to FrameComposer.
type FrameComposerFunc func(now time.Time) image.Image

func (f FrameComposerFunc) ComposeAt(now time.Time) image.Image { return f(now) }

// TickScreen has no worker. An external scheduler calls Tick and the screen
// redraws at most once per tick interval.
type TickScreen struct {
	mode     string
	surface  render.Surface
	composer FrameComposer
	opts     options
	logger   *zap.Logger

	mu       sync.Mutex
	status   Status
	lastDraw time.Time
}

func NewTickScreen(mode string, surface render.Surface, composer FrameComposer, opts ...Option) *TickScreen {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &TickScreen{
		mode:     mode,
		surface:  surface,
		composer: composer,
		opts:     o,
		logger:   o.logger.Named(mode),
	}
}

func (s *TickScreen) ModeName() string { return s.mode }

func (s *TickScreen) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// StartMode activates the screen and draws immediately.
func (s *TickScreen) StartMode() {
	s.mu.Lock()
	s.status = Active
	now := s.opts.now()
	s.lastDraw = now
	s.mu.Unlock()

	s.draw(now)
	s.logger.Info("mode started")
}

// Tick redraws when the screen is active and the interval has elapsed.
func (s *TickScreen) Tick() {
	s.mu.Lock()
	if s.status != Active {
		s.mu.Unlock()
		return
	}
	now := s.opts.now()
	if now.Sub(s.lastDraw) < s.opts.tickInterval {
		s.mu.Unlock()
		return
	}
	s.lastDraw = now
	s.mu.Unlock()

	s.draw(now)
}

func (s *TickScreen) StopMode() {
	s.mu.Lock()
	if s.status != Active {
		s.mu.Unlock()
		s.logger.Debug("stop requested but not active")
		return
	}
	s.status = Inactive
	s.mu.Unlock()

	if err := s.surface.Clear(); err != nil {
		s.logger.Warn("clear failed", zap.Error(err))
	}
	s.logger.Info("mode stopped")
}

func (s *TickScreen) draw(now time.Time) {
	frame := s.composer.ComposeAt(now)
	if frame == nil {
		return
	}
	if err := s.surface.Show(frame); err != nil {
		s.logger.Warn("show failed", zap.Error(err))
	}
}
