package screen

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/quadify/quadify/internal/playback"
	"github.com/quadify/quadify/internal/render"
	"go.uber.org/zap"
)

// EventScreen renders pushed playback state. A background worker waits for
// the mailbox signal or the frame interval, whichever comes first, and
// redraws while the screen is active and its mode is selected. The frame
// interval keeps marquees moving when no new state arrives.
type EventScreen struct {
	mode     string
	service  string
	surface  render.Surface
	modes    ModeSource
	composer Composer
	opts     options
	logger   *zap.Logger

	status   atomic.Int32
	mailbox  *Mailbox[playback.State]
	debounce Debouncer // guarded by the mailbox lock

	lifeMu sync.Mutex
	stop   chan struct{}
	done   chan struct{}
}

// NewEventScreen builds a screen shown in mode that only accepts states whose
// service tag equals service. An empty service accepts every state. The
// worker is started by StartMode.
func NewEventScreen(mode, service string, surface render.Surface, modes ModeSource, composer Composer, opts ...Option) *EventScreen {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if modes == nil {
		modes = ModeFunc(func() string { return mode })
	}
	s := &EventScreen{
		mode:     mode,
		service:  service,
		surface:  surface,
		modes:    modes,
		composer: composer,
		opts:     o,
		logger:   o.logger.Named(mode),
		mailbox:  NewMailbox[playback.State](),
	}
	s.debounce.Window = o.debounceWindow
	return s
}

func (s *EventScreen) ModeName() string { return s.mode }

func (s *EventScreen) Service() string { return s.service }

func (s *EventScreen) Status() Status { return Status(s.status.Load()) }

// Latest returns the newest accepted state, pending or already rendered.
func (s *EventScreen) Latest() (playback.State, bool) { return s.mailbox.Latest() }

// OnStateNotified is the playback.Listener for this screen. It may be called
// from any goroutine and never blocks beyond the mailbox lock.
func (s *EventScreen) OnStateNotified(sender string, st playback.State) {
	if s.Status() != Active {
		s.logger.Debug("ignoring state, screen not active", zap.String("sender", sender))
		return
	}
	if s.service != "" && !st.ServiceIs(s.service) {
		s.logger.Debug("ignoring state for other service",
			zap.String("sender", sender),
			zap.String("service", st.Service))
		return
	}
	accepted := s.mailbox.Put(st, func(v playback.State) (playback.State, bool) {
		now := s.opts.now()
		if !s.debounce.Accept(v.Title, v.Artist, now) {
			return v, false
		}
		return v.WithReceivedAt(now), true
	})
	if !accepted {
		s.logger.Debug("ignoring repeated state for same track", zap.String("title", st.Title))
	}
}

// StartMode activates the screen, asks for fresh state and makes sure a
// worker is running. Calling it while active only forces a redraw.
func (s *EventScreen) StartMode() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.modes.Mode() != s.mode {
		s.logger.Warn("starting while another mode is selected", zap.String("selected", s.modes.Mode()))
	}
	s.status.Store(int32(Active))

	if s.opts.requester != nil {
		if err := s.opts.requester.RequestState(); err != nil {
			s.logger.Warn("state request failed", zap.Error(err))
		}
	}

	if !s.workerRunning() {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.run(s.stop, s.done)
		s.logger.Debug("worker started")
	}
	s.mailbox.Wake()
	s.logger.Info("mode started")
}

// StopMode deactivates the screen, waits up to the join timeout for the
// worker and clears the surface whether or not the worker exited.
func (s *EventScreen) StopMode() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.Status() != Active {
		s.logger.Debug("stop requested but not active")
		return
	}
	s.status.Store(int32(Inactive))

	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	if s.done != nil {
		select {
		case <-s.done:
			s.logger.Debug("worker stopped")
		case <-time.After(s.opts.joinTimeout):
			s.logger.Warn("worker did not stop in time", zap.Duration("timeout", s.opts.joinTimeout))
		}
	}

	if err := s.surface.Clear(); err != nil {
		s.logger.Warn("clear failed", zap.Error(err))
	}
	s.logger.Info("mode stopped")
}

// workerRunning reports whether a worker exists that has not been told to
// stop. A worker still draining after a timed-out join does not count.
func (s *EventScreen) workerRunning() bool {
	if s.stop == nil || s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *EventScreen) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(s.opts.frameInterval)
	defer timer.Stop()

	for {
		signalled := false
		select {
		case <-stop:
			return
		case <-s.mailbox.Signal():
			signalled = true
		case <-timer.C:
		}
		timer.Reset(s.opts.frameInterval)

		st, ok := s.mailbox.Take(signalled)

		select {
		case <-stop:
			return
		default:
		}
		if ok && s.Status() == Active && s.modes.Mode() == s.mode {
			s.draw(st)
		}
	}
}

func (s *EventScreen) draw(st playback.State) {
	frame := s.composer.Compose(st)
	if frame == nil {
		return
	}
	if err := s.surface.Show(frame); err != nil {
		s.logger.Warn("show failed", zap.Error(err))
	}
}
