package screen

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quadify/quadify/internal/playback"
	"github.com/quadify/quadify/internal/render"
)

const (
	testMode    = "airplay"
	testService = "airplay_emulation"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingComposer remembers every state it was asked to draw. When block
// is set, composing a state whose title matches blockOn waits for release.
type recordingComposer struct {
	mu      sync.Mutex
	titles  []string
	blockOn string
	entered chan struct{}
	release chan struct{}
}

func (c *recordingComposer) Compose(st playback.State) image.Image {
	c.mu.Lock()
	c.titles = append(c.titles, st.Title)
	block := c.blockOn != "" && st.Title == c.blockOn
	if block {
		c.blockOn = ""
	}
	c.mu.Unlock()

	if block {
		close(c.entered)
		<-c.release
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 4))
}

func (c *recordingComposer) Titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.titles...)
}

type fakeRequester struct {
	calls atomic.Int32
	err   error
}

func (r *fakeRequester) RequestState() error {
	r.calls.Add(1)
	return r.err
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestScreen(t *testing.T, mode *atomic.Value, composer Composer, opts ...Option) (*EventScreen, *render.MemorySurface) {
	t.Helper()
	surface := render.NewMemorySurface(4, 4)
	modes := ModeFunc(func() string { return mode.Load().(string) })
	base := []Option{WithFrameInterval(time.Hour)}
	s := NewEventScreen(testMode, testService, surface, modes, composer, append(base, opts...)...)
	t.Cleanup(s.StopMode)
	return s, surface
}

func selectedMode(name string) *atomic.Value {
	var v atomic.Value
	v.Store(name)
	return &v
}

func matching(title, artist string) playback.State {
	return playback.State{Title: title, Artist: artist, Service: testService}
}

func TestInactiveScreenIgnoresState(t *testing.T) {
	s, _ := newTestScreen(t, selectedMode(testMode), &recordingComposer{})

	s.OnStateNotified("volumio", matching("A", "B"))

	if _, ok := s.mailbox.Latest(); ok {
		t.Error("mailbox written while inactive")
	}
	if len(s.mailbox.Signal()) != 0 {
		t.Error("signal raised while inactive")
	}
	if s.Status() != Inactive {
		t.Errorf("Status() = %v, want inactive", s.Status())
	}
}

func TestServiceFilter(t *testing.T) {
	s, _ := newTestScreen(t, selectedMode(testMode), &recordingComposer{})

	for _, active := range []bool{false, true} {
		if active {
			s.StartMode()
		}
		s.OnStateNotified("volumio", playback.State{Title: "A", Artist: "B", Service: "webradio"})
		s.OnStateNotified("volumio", playback.State{Title: "A", Artist: "B"})
		if _, ok := s.Latest(); ok {
			t.Fatalf("active=%v: foreign service reached the mailbox", active)
		}
	}

	s.OnStateNotified("volumio", playback.State{Title: "A", Artist: "B", Service: "AirPlay_Emulation"})
	if _, ok := s.Latest(); !ok {
		t.Error("matching service (different case) was rejected")
	}
}

func TestEmptyServiceAcceptsAny(t *testing.T) {
	surface := render.NewMemorySurface(4, 4)
	s := NewEventScreen(testMode, "", surface, nil, &recordingComposer{}, WithFrameInterval(time.Hour))
	t.Cleanup(s.StopMode)
	s.StartMode()

	for _, service := range []string{"mpd", "spotify", ""} {
		s.OnStateNotified("volumio", playback.State{Title: service + " track", Artist: "B", Service: service})
		st, ok := s.Latest()
		if !ok || st.Service != service {
			t.Errorf("state from service %q = %+v, %v; want accepted", service, st, ok)
		}
	}
}

func TestDebounceScenario(t *testing.T) {
	clock := newFakeClock()
	s, _ := newTestScreen(t, selectedMode("clock"), &recordingComposer{}, WithClock(clock.Now))
	s.StartMode()

	start := clock.Now()
	s.OnStateNotified("volumio", matching("X", "Y"))
	clock.Advance(time.Second)
	s.OnStateNotified("volumio", matching("X", "Y"))

	st, _ := s.Latest()
	if !st.ReceivedAt.Equal(start) {
		t.Fatalf("second notification inside the window was accepted (ReceivedAt %v)", st.ReceivedAt)
	}

	clock.Advance(3 * time.Second)
	s.OnStateNotified("volumio", matching("X", "Y"))

	st, _ = s.Latest()
	if want := start.Add(4 * time.Second); !st.ReceivedAt.Equal(want) {
		t.Errorf("ReceivedAt = %v, want %v", st.ReceivedAt, want)
	}
	_, _, at, _ := s.debounce.Last()
	if !at.Equal(start.Add(4 * time.Second)) {
		t.Errorf("debounce record at %v, want %v", at, start.Add(4*time.Second))
	}
}

func TestAcceptedStateIsCopied(t *testing.T) {
	s, _ := newTestScreen(t, selectedMode("clock"), &recordingComposer{})
	s.StartMode()

	in := matching("A", "B")
	s.OnStateNotified("volumio", in)
	if !in.ReceivedAt.IsZero() {
		t.Error("caller's state was stamped")
	}
	if st, _ := s.Latest(); st.ReceivedAt.IsZero() {
		t.Error("accepted state was not stamped")
	}
}

func TestWorkerObservesOnlyLatestState(t *testing.T) {
	composer := &recordingComposer{
		blockOn: "S0",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s, _ := newTestScreen(t, selectedMode(testMode), composer)
	s.StartMode()

	s.OnStateNotified("volumio", matching("S0", "artist"))
	select {
	case <-composer.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never drew S0")
	}

	s.OnStateNotified("volumio", matching("S1", "artist"))
	s.OnStateNotified("volumio", matching("S2", "artist"))
	close(composer.release)

	waitFor(t, "S2 drawn", func() bool {
		titles := composer.Titles()
		return len(titles) > 0 && titles[len(titles)-1] == "S2"
	})
	for _, title := range composer.Titles() {
		if title == "S1" {
			t.Fatalf("worker drew superseded state S1: %v", composer.Titles())
		}
	}
}

func TestWorkerRedrawsOnFrameInterval(t *testing.T) {
	composer := &recordingComposer{}
	s, surface := newTestScreen(t, selectedMode(testMode), composer, WithFrameInterval(5*time.Millisecond))
	s.StartMode()
	s.OnStateNotified("volumio", matching("A", "B"))

	waitFor(t, "repeated frames", func() bool { return surface.Frames() >= 5 })
}

func TestWorkerRespectsModeGate(t *testing.T) {
	mode := selectedMode("clock")
	composer := &recordingComposer{}
	s, surface := newTestScreen(t, mode, composer, WithFrameInterval(5*time.Millisecond))
	s.StartMode()
	s.OnStateNotified("volumio", matching("A", "B"))

	time.Sleep(50 * time.Millisecond)
	if n := surface.Frames(); n != 0 {
		t.Fatalf("drew %d frames while another mode was selected", n)
	}

	mode.Store(testMode)
	waitFor(t, "frame after mode selected", func() bool { return surface.Frames() > 0 })
}

func TestLifecycleIdempotence(t *testing.T) {
	requester := &fakeRequester{err: errors.New("offline")}
	s, surface := newTestScreen(t, selectedMode(testMode), &recordingComposer{}, WithRequester(requester))

	s.StopMode()
	if surface.Clears() != 0 {
		t.Errorf("StopMode() while inactive cleared the surface")
	}

	s.StartMode()
	firstDone := s.done
	s.StartMode()
	if s.done != firstDone {
		t.Error("second StartMode() spawned another worker")
	}
	if s.Status() != Active {
		t.Errorf("Status() = %v, want active", s.Status())
	}
	if got := requester.calls.Load(); got != 2 {
		t.Errorf("RequestState() calls = %d, want 2", got)
	}

	s.StopMode()
	s.StopMode()
	if s.Status() != Inactive {
		t.Errorf("Status() = %v, want inactive", s.Status())
	}
	if surface.Clears() != 1 {
		t.Errorf("Clears() = %d, want 1", surface.Clears())
	}
	select {
	case <-firstDone:
	default:
		t.Error("worker still running after StopMode")
	}

	s.StartMode()
	if s.done == firstDone || !s.workerRunning() {
		t.Error("StartMode() after stop did not spawn a fresh worker")
	}
}

func TestStopModeIsBounded(t *testing.T) {
	composer := &recordingComposer{
		blockOn: "slow",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s, surface := newTestScreen(t, selectedMode(testMode), composer, WithJoinTimeout(20*time.Millisecond))
	s.StartMode()
	s.OnStateNotified("volumio", matching("slow", "draw"))
	<-composer.entered

	began := time.Now()
	s.StopMode()
	if elapsed := time.Since(began); elapsed > time.Second {
		t.Errorf("StopMode() took %v with a stuck worker", elapsed)
	}
	if surface.Clears() != 1 {
		t.Errorf("Clears() = %d, want 1 even when the join timed out", surface.Clears())
	}

	// A restart while the old worker is still stuck gets its own worker.
	s.StartMode()
	if !s.workerRunning() {
		t.Error("StartMode() did not start a worker while the old one drains")
	}
	close(composer.release)
}
