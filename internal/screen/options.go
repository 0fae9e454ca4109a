package screen

import (
	"time"

	"github.com/quadify/quadify/internal/playback"
	"go.uber.org/zap"
)

const (
	DefaultFrameInterval = 100 * time.Millisecond
	DefaultJoinTimeout   = time.Second
	DefaultTickInterval  = time.Second
)

type options struct {
	now            func() time.Time
	logger         *zap.Logger
	frameInterval  time.Duration
	debounceWindow time.Duration
	joinTimeout    time.Duration
	tickInterval   time.Duration
	requester      playback.Requester
}

func defaultOptions() options {
	return options{
		now:            time.Now,
		logger:         zap.NewNop(),
		frameInterval:  DefaultFrameInterval,
		debounceWindow: DefaultDebounceWindow,
		joinTimeout:    DefaultJoinTimeout,
		tickInterval:   DefaultTickInterval,
	}
}

// Option configures an EventScreen or a TickScreen.
type Option func(*options)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFrameInterval sets how long the worker waits for new data before
// redrawing anyway. It paces scrolling.
func WithFrameInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.frameInterval = d
		}
	}
}

func WithDebounceWindow(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.debounceWindow = d
		}
	}
}

// WithJoinTimeout bounds how long StopMode waits for the worker.
func WithJoinTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.joinTimeout = d
		}
	}
}

// WithTickInterval sets the minimum time between tick-driven redraws.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.tickInterval = d
		}
	}
}

// WithRequester lets StartMode ask the source for a fresh state.
func WithRequester(r playback.Requester) Option {
	return func(o *options) { o.requester = r }
}
