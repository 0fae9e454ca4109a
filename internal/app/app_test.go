package app

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/quadify/quadify/internal/playback"
)

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeScreen struct {
	name string
	log  *eventLog
	c    *Controller

	mu      sync.Mutex
	ticks   int
	volumes []int
	toggles int
}

func (s *fakeScreen) StartMode() { s.log.add(s.name + ":start") }

// StopMode records the mode the controller reports while stopping.
func (s *fakeScreen) StopMode() { s.log.add(s.name + ":stop(mode=" + s.c.Mode() + ")") }

func (s *fakeScreen) Tick() {
	s.mu.Lock()
	s.ticks++
	s.mu.Unlock()
}

func (s *fakeScreen) tickCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

type commandScreen struct {
	fakeScreen
}

func (s *commandScreen) AdjustVolume(delta int) {
	s.mu.Lock()
	s.volumes = append(s.volumes, delta)
	s.mu.Unlock()
}

func (s *commandScreen) TogglePlayPause() {
	s.mu.Lock()
	s.toggles++
	s.mu.Unlock()
}

func newTestController(opts Options) (*Controller, *eventLog, *commandScreen, *fakeScreen) {
	c := New(opts, nil)
	log := &eventLog{}
	airplay := &commandScreen{fakeScreen{name: "airplay", log: log, c: c}}
	clock := &fakeScreen{name: "clock", log: log, c: c}
	c.Register("clock", clock)
	c.Register("airplay", airplay)
	return c, log, airplay, clock
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSetModeHandOff(t *testing.T) {
	c, log, _, _ := newTestController(Options{})

	if err := c.SetMode("clock"); err != nil {
		t.Fatalf("SetMode(clock) error = %v", err)
	}
	if err := c.SetMode("airplay"); err != nil {
		t.Fatalf("SetMode(airplay) error = %v", err)
	}
	if err := c.SetMode("airplay"); err != nil {
		t.Fatalf("SetMode(airplay) again error = %v", err)
	}

	want := []string{
		"clock:start",
		"clock:stop(mode=airplay)",
		"airplay:start",
		"airplay:start",
	}
	if got := log.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if c.Mode() != "airplay" {
		t.Errorf("Mode() = %q, want airplay", c.Mode())
	}
	if got := c.Modes(); !reflect.DeepEqual(got, []string{"clock", "airplay"}) {
		t.Errorf("Modes() = %v", got)
	}
}

func TestSetModeUnknown(t *testing.T) {
	c, log, _, _ := newTestController(Options{})
	if err := c.SetMode("vu"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("SetMode(vu) error = %v, want ErrUnknownMode", err)
	}
	if len(log.snapshot()) != 0 {
		t.Error("unknown mode should not touch any screen")
	}
}

func TestModeFor(t *testing.T) {
	c := New(Options{
		AutoSwitch:   true,
		IdleMode:     "clock",
		ServiceModes: map[string]string{"airplay_emulation": "airplay", "webradio": "webradio"},
	}, nil)

	tests := []struct {
		st   playback.State
		want string
	}{
		{playback.State{Service: "AirPlay_Emulation", Status: playback.StatusPlay}, "airplay"},
		{playback.State{Service: "webradio", Status: playback.StatusPlay}, "webradio"},
		{playback.State{Service: "mpd", Status: playback.StatusPlay}, ""},
		{playback.State{Service: "webradio", Status: playback.StatusPause}, "clock"},
		{playback.State{Service: "mpd", Status: playback.StatusStop}, "clock"},
		{playback.State{Service: "mpd"}, ""},
	}
	for _, tt := range tests {
		if got := c.modeFor(tt.st); got != tt.want {
			t.Errorf("modeFor(%s/%s) = %q, want %q", tt.st.Service, tt.st.Status, got, tt.want)
		}
	}
}

func TestModeForFallsBackToPlaybackMode(t *testing.T) {
	c := New(Options{
		AutoSwitch:   true,
		IdleMode:     "clock",
		PlaybackMode: "modern",
		ServiceModes: map[string]string{"airplay_emulation": "airplay"},
	}, nil)

	tests := []struct {
		st   playback.State
		want string
	}{
		{playback.State{Service: "mpd", Status: playback.StatusPlay}, "modern"},
		{playback.State{Service: "spop", Status: playback.StatusPlay}, "modern"},
		{playback.State{Service: "airplay_emulation", Status: playback.StatusPlay}, "airplay"},
		{playback.State{Service: "mpd", Status: playback.StatusPause}, "clock"},
	}
	for _, tt := range tests {
		if got := c.modeFor(tt.st); got != tt.want {
			t.Errorf("modeFor(%s/%s) = %q, want %q", tt.st.Service, tt.st.Status, got, tt.want)
		}
	}
}

func TestAutoSwitchMPDToPlaybackScreen(t *testing.T) {
	c, _, _, _ := newTestController(Options{
		Initial:      "clock",
		AutoSwitch:   true,
		IdleMode:     "clock",
		PlaybackMode: "modern",
		ServiceModes: map[string]string{"airplay_emulation": "airplay"},
	})
	log := &eventLog{}
	c.Register("modern", &commandScreen{fakeScreen{name: "modern", log: log, c: c}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	waitFor(t, func() bool { return c.Mode() == "clock" })

	c.OnStateNotified("volumio", playback.State{Title: "Naima", Service: "mpd", Status: playback.StatusPlay})
	waitFor(t, func() bool { return c.Mode() == "modern" })
	if !c.AdjustVolume(1) {
		t.Error("AdjustVolume() = false on the playback screen")
	}

	c.OnStateNotified("volumio", playback.State{Title: "Naima", Service: "mpd", Status: playback.StatusStop})
	waitFor(t, func() bool { return c.Mode() == "clock" })

	cancel()
	<-done
}

func TestPlaybackModeChoicePersists(t *testing.T) {
	var saved []string
	saveErr := errors.New("read-only file system")
	c := New(Options{
		PlaybackMode:  "modern",
		PlaybackModes: []string{"modern", "minimal"},
		SavePlaybackMode: func(mode string) error {
			saved = append(saved, mode)
			if mode == "modern" {
				return saveErr
			}
			return nil
		},
	}, nil)
	log := &eventLog{}
	for _, name := range []string{"clock", "modern", "minimal"} {
		c.Register(name, &fakeScreen{name: name, log: log, c: c})
	}

	steps := []struct {
		mode         string
		wantPlayback string
	}{
		{"clock", "modern"},
		{"modern", "modern"},
		{"minimal", "minimal"},
		{"clock", "minimal"},
		{"minimal", "minimal"},
		{"modern", "modern"},
	}
	for _, step := range steps {
		if err := c.SetMode(step.mode); err != nil {
			t.Fatalf("SetMode(%s) error = %v", step.mode, err)
		}
		if got := c.PlaybackMode(); got != step.wantPlayback {
			t.Errorf("after SetMode(%s) PlaybackMode() = %q, want %q", step.mode, got, step.wantPlayback)
		}
	}
	// A failed save still switches; only real changes are saved.
	if want := []string{"minimal", "modern"}; !reflect.DeepEqual(saved, want) {
		t.Errorf("saved = %v, want %v", saved, want)
	}
	if c.Mode() != "modern" {
		t.Errorf("Mode() = %q, want modern", c.Mode())
	}
	if got := c.modeFor(playback.State{Service: "mpd", Status: playback.StatusPlay}); got != "modern" {
		t.Errorf("modeFor(mpd) = %q, want the chosen playback mode", got)
	}
}

func TestRunAutoSwitchAndTicks(t *testing.T) {
	c, log, _, clock := newTestController(Options{
		Initial:      "clock",
		AutoSwitch:   true,
		IdleMode:     "clock",
		TickInterval: time.Millisecond,
		ServiceModes: map[string]string{"airplay_emulation": "airplay"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	waitFor(t, func() bool { return c.Mode() == "clock" })
	waitFor(t, func() bool { return clock.tickCount() > 0 })

	c.OnStateNotified("volumio", playback.State{Service: "airplay_emulation", Status: playback.StatusPlay})
	waitFor(t, func() bool { return c.Mode() == "airplay" })

	ticks := clock.tickCount()
	time.Sleep(10 * time.Millisecond)
	if clock.tickCount() != ticks {
		t.Error("inactive screen kept ticking")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if c.Mode() != "" {
		t.Errorf("Mode() after Run = %q, want empty", c.Mode())
	}
	events := log.snapshot()
	if last := events[len(events)-1]; last != "airplay:stop(mode=airplay)" {
		t.Errorf("last event = %q, want the active screen stopped", last)
	}
}

func TestAutoSwitchDisabled(t *testing.T) {
	c, _, _, _ := newTestController(Options{IdleMode: "clock"})
	c.OnStateNotified("volumio", playback.State{Status: playback.StatusStop})
	if len(c.requests) != 0 {
		t.Error("auto switching disabled but a mode was requested")
	}
}

func TestExit(t *testing.T) {
	c, _, _, _ := newTestController(Options{Initial: "clock"})
	boom := errors.New("boom")
	c.Exit(boom)
	c.Exit(errors.New("second"))

	if err := c.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
}

func TestRunUnknownInitialMode(t *testing.T) {
	c, _, _, _ := newTestController(Options{Initial: "missing"})
	if err := c.Run(context.Background()); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("Run() error = %v, want ErrUnknownMode", err)
	}
}

func TestCommandRouting(t *testing.T) {
	c, _, airplay, _ := newTestController(Options{})

	_ = c.SetMode("clock")
	if c.AdjustVolume(5) || c.TogglePlayPause() {
		t.Error("clock should not accept transport commands")
	}

	_ = c.SetMode("airplay")
	if !c.AdjustVolume(-3) || !c.TogglePlayPause() {
		t.Fatal("airplay should accept transport commands")
	}
	airplay.mu.Lock()
	defer airplay.mu.Unlock()
	if !reflect.DeepEqual(airplay.volumes, []int{-3}) || airplay.toggles != 1 {
		t.Errorf("volumes = %v toggles = %d", airplay.volumes, airplay.toggles)
	}
}
