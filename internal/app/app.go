// Package app owns the screens and decides which one drives the display.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quadify/quadify/internal/playback"
	"go.uber.org/zap"
)

// Screen is anything the controller can switch to.
type Screen interface {
	StartMode()
	StopMode()
}

// Ticker screens are redrawn from the controller loop.
type Ticker interface {
	Tick()
}

type VolumeAdjuster interface {
	AdjustVolume(delta int)
}

type PlayToggler interface {
	TogglePlayPause()
}

var ErrUnknownMode = errors.New("unknown mode")

const (
	DefaultTickInterval = 200 * time.Millisecond
	modeRequestBuffer   = 8
)

type Options struct {
	// Initial is the mode entered when Run starts. Empty keeps the display idle.
	Initial string
	// AutoSwitch follows the player: playing services open their screen,
	// stop and pause fall back to IdleMode.
	AutoSwitch   bool
	IdleMode     string
	TickInterval time.Duration
	// ServiceModes maps a service tag to the mode that shows it.
	ServiceModes map[string]string
	// PlaybackMode shows playing services that have no ServiceModes entry.
	PlaybackMode string
	// PlaybackModes are the modes that can serve as PlaybackMode. Entering
	// one makes it the PlaybackMode and hands it to SavePlaybackMode.
	PlaybackModes    []string
	SavePlaybackMode func(mode string) error
}

// Controller serialises mode hand-off so only one screen drives the surface
// at a time. Mode is safe to call from screen workers during a hand-off.
type Controller struct {
	opts   Options
	logger *zap.Logger

	mode     atomic.Pointer[string]
	playback atomic.Pointer[string]

	handoff sync.Mutex // held across StopMode/StartMode/Tick
	screens map[string]Screen
	order   []string

	requests chan string
	exitOnce atomic.Bool
	exitCh   chan error
}

func New(opts Options, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	c := &Controller{
		opts:     opts,
		logger:   logger.Named("app"),
		screens:  make(map[string]Screen),
		requests: make(chan string, modeRequestBuffer),
		exitCh:   make(chan error, 1),
	}
	empty := ""
	c.mode.Store(&empty)
	preferred := opts.PlaybackMode
	c.playback.Store(&preferred)
	return c
}

// Register adds a screen under name. Registering a name twice replaces the
// earlier screen.
func (c *Controller) Register(name string, s Screen) {
	c.handoff.Lock()
	defer c.handoff.Unlock()
	if _, ok := c.screens[name]; !ok {
		c.order = append(c.order, name)
	}
	c.screens[name] = s
}

// Mode returns the selected mode.
func (c *Controller) Mode() string { return *c.mode.Load() }

// PlaybackMode returns the mode shown for services without their own screen.
func (c *Controller) PlaybackMode() string { return *c.playback.Load() }

// Modes lists registered modes in registration order.
func (c *Controller) Modes() []string {
	c.handoff.Lock()
	defer c.handoff.Unlock()
	return append([]string(nil), c.order...)
}

// SetMode switches to name. The mode is published before the previous screen
// stops, so its worker's gate closes first; the new screen starts last.
// Selecting the current mode restarts nothing and only forces a redraw.
func (c *Controller) SetMode(name string) error {
	if err := c.switchTo(name); err != nil {
		return err
	}
	c.rememberPlayback(name)
	return nil
}

func (c *Controller) switchTo(name string) error {
	c.handoff.Lock()
	defer c.handoff.Unlock()

	next, ok := c.screens[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
	prev := c.Mode()
	if prev == name {
		next.StartMode()
		return nil
	}

	c.mode.Store(&name)
	if old, ok := c.screens[prev]; ok {
		old.StopMode()
	}
	next.StartMode()
	c.logger.Info("mode changed", zap.String("from", prev), zap.String("to", name))
	return nil
}

// rememberPlayback records name as the playback mode when it is one of the
// choices and differs from the current one. Save failures are only logged.
func (c *Controller) rememberPlayback(name string) {
	if !slices.Contains(c.opts.PlaybackModes, name) {
		return
	}
	if prev := c.playback.Swap(&name); *prev == name {
		return
	}
	c.logger.Info("playback mode chosen", zap.String("mode", name))
	if c.opts.SavePlaybackMode == nil {
		return
	}
	if err := c.opts.SavePlaybackMode(name); err != nil {
		c.logger.Warn("saving playback mode failed", zap.String("mode", name), zap.Error(err))
	}
}

// RequestMode queues a switch for the Run loop. It never blocks, so it is
// safe to call from playback listeners.
func (c *Controller) RequestMode(name string) {
	select {
	case c.requests <- name:
	default:
		c.logger.Warn("mode request queue full, dropping", zap.String("mode", name))
	}
}

// OnStateNotified is the playback.Listener used for automatic switching.
func (c *Controller) OnStateNotified(sender string, st playback.State) {
	if !c.opts.AutoSwitch {
		return
	}
	target := c.modeFor(st)
	if target == "" || target == c.Mode() {
		return
	}
	c.logger.Debug("auto switching",
		zap.String("sender", sender),
		zap.String("service", st.Service),
		zap.String("status", string(st.Status)),
		zap.String("mode", target))
	c.RequestMode(target)
}

func (c *Controller) modeFor(st playback.State) string {
	switch st.Status {
	case playback.StatusPlay:
		for service, mode := range c.opts.ServiceModes {
			if st.ServiceIs(service) {
				return mode
			}
		}
		return c.PlaybackMode()
	case playback.StatusStop, playback.StatusPause:
		return c.opts.IdleMode
	default:
		return ""
	}
}

// AdjustVolume forwards to the active screen. It reports false when that
// screen has no volume control.
func (c *Controller) AdjustVolume(delta int) bool {
	s, ok := c.active().(VolumeAdjuster)
	if !ok {
		c.logger.Debug("active screen has no volume control", zap.String("mode", c.Mode()))
		return false
	}
	s.AdjustVolume(delta)
	return true
}

func (c *Controller) TogglePlayPause() bool {
	s, ok := c.active().(PlayToggler)
	if !ok {
		c.logger.Debug("active screen has no transport control", zap.String("mode", c.Mode()))
		return false
	}
	s.TogglePlayPause()
	return true
}

func (c *Controller) active() Screen {
	c.handoff.Lock()
	defer c.handoff.Unlock()
	return c.screens[c.Mode()]
}

// Exit asks Run to return err. Only the first call has an effect.
func (c *Controller) Exit(err error) {
	if !c.exitOnce.CompareAndSwap(false, true) {
		return
	}
	select {
	case c.exitCh <- err:
	default:
	}
}

// Run enters the initial mode, then serves mode requests and ticks until ctx
// ends or Exit is called. The active screen is stopped on the way out.
func (c *Controller) Run(ctx context.Context) error {
	if c.opts.Initial != "" {
		if err := c.SetMode(c.opts.Initial); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		case err = <-c.exitCh:
			break loop
		case name := <-c.requests:
			if serr := c.SetMode(name); serr != nil {
				c.logger.Warn("mode request rejected", zap.Error(serr))
			}
		case <-ticker.C:
			c.tick()
		}
	}

	c.stopActive()
	return err
}

func (c *Controller) tick() {
	c.handoff.Lock()
	defer c.handoff.Unlock()
	if t, ok := c.screens[c.Mode()].(Ticker); ok {
		t.Tick()
	}
}

func (c *Controller) stopActive() {
	c.handoff.Lock()
	defer c.handoff.Unlock()
	if s, ok := c.screens[c.Mode()]; ok {
		s.StopMode()
	}
	empty := ""
	c.mode.Store(&empty)
	c.logger.Info("display released")
}
