package main

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quadify/quadify/internal/playback"
)

// Sender is the sender name attached to scripted states.
const Sender = "simulator"

const simVolumeStep = 5

type Track struct {
	Title      string
	Artist     string
	Album      string
	BitDepth   string
	SampleRate string
	AlbumArt   string
	TrackType  string
	Duration   time.Duration
}

// Scenario is a scripted player: a service tag and the tracks it cycles
// through.
type Scenario struct {
	Service string
	Status  playback.Status
	Tracks  []Track
}

var scenarios = map[string]Scenario{
	"airplay": {
		Service: "airplay_emulation",
		Status:  playback.StatusPlay,
		Tracks: []Track{
			{Title: "So What", Artist: "Miles Davis", Album: "Kind of Blue", BitDepth: "16 bit", SampleRate: "44.1 kHz"},
			{Title: "Blue in Green", Artist: "Miles Davis", Album: "Kind of Blue", BitDepth: "16 bit", SampleRate: "44.1 kHz"},
			{Title: "A Love Supreme, Pt. I - Acknowledgement", Artist: "John Coltrane", Album: "A Love Supreme", BitDepth: "24 bit", SampleRate: "96 kHz"},
		},
	},
	"webradio": {
		Service: "webradio",
		Status:  playback.StatusPlay,
		Tracks: []Track{
			{Title: "Radio Paradise - Main Mix", Artist: "Radio Paradise"},
			{Title: "FIP - Thelonious Monk - Round Midnight", Artist: "FIP"},
			{Title: "BBC Radio 3"},
		},
	},
	"library": {
		Service: "mpd",
		Status:  playback.StatusPlay,
		Tracks: []Track{
			{Title: "Naima", Artist: "John Coltrane", Album: "Giant Steps", BitDepth: "24 bit", SampleRate: "192 kHz", TrackType: "flac", Duration: 261 * time.Second},
			{Title: "Teen Town", Artist: "Weather Report", Album: "Heavy Weather", BitDepth: "16 bit", SampleRate: "44.1 kHz", TrackType: "tidal", Duration: 171 * time.Second},
		},
	},
	"idle": {
		Service: "mpd",
		Status:  playback.StatusStop,
	},
}

// ScenarioNames lists the built-in scenarios.
func ScenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SimSource is a playback source driven by a script instead of a player.
type SimSource struct {
	playback.Hub

	interval time.Duration

	mu       sync.Mutex
	name     string
	scenario Scenario
	step     int
	status   playback.Status
	volume   int
	faults   SimFaults
}

func NewSimSource(interval time.Duration) *SimSource {
	return &SimSource{interval: interval, volume: 50}
}

// Load switches to the named scenario and publishes its first state.
func (s *SimSource) Load(name string) error {
	sc, ok := scenarios[name]
	if !ok {
		return fmt.Errorf("unknown scenario %q", name)
	}
	s.mu.Lock()
	s.name = name
	s.scenario = sc
	s.step = 0
	s.status = sc.Status
	st := s.stateLocked()
	s.mu.Unlock()

	s.Publish(Sender, st)
	return nil
}

func (s *SimSource) Scenario() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *SimSource) Faults() SimFaults {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faults
}

func (s *SimSource) SetFaults(f SimFaults) {
	s.mu.Lock()
	s.faults = f
	s.mu.Unlock()
}

func (s *SimSource) stateLocked() playback.State {
	st := playback.State{Service: s.scenario.Service, Status: s.status}
	if len(s.scenario.Tracks) > 0 {
		t := s.scenario.Tracks[s.step%len(s.scenario.Tracks)]
		st.Title = t.Title
		st.Artist = t.Artist
		st.Album = t.Album
		st.BitDepth = t.BitDepth
		st.SampleRate = t.SampleRate
		st.AlbumArt = t.AlbumArt
		st.TrackType = t.TrackType
		st.Duration = t.Duration
	}
	return st.WithVolume(s.volume)
}

// Run advances to the next track every interval until ctx is done.
func (s *SimSource) Run(ctx context.Context) error {
	if s.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Next()
		}
	}
}

// Next skips to the following track. Paused or stopped scripts stay put.
func (s *SimSource) Next() {
	s.mu.Lock()
	if s.status != playback.StatusPlay || len(s.scenario.Tracks) < 2 {
		s.mu.Unlock()
		return
	}
	s.step++
	st := s.stateLocked()
	s.mu.Unlock()
	s.Publish(Sender, st)
}

func (s *SimSource) Connected() bool { return !s.Faults().Disconnected }

// update applies fn under the lock and publishes the result.
func (s *SimSource) update(fn func()) error {
	s.mu.Lock()
	if s.faults.Disconnected {
		s.mu.Unlock()
		return playback.ErrNotConnected
	}
	if s.faults.CommandFail {
		s.mu.Unlock()
		return fmt.Errorf("simulated command failure")
	}
	fn()
	st := s.stateLocked()
	s.mu.Unlock()
	s.Publish(Sender, st)
	return nil
}

func (s *SimSource) RequestState() error { return s.update(func() {}) }

func (s *SimSource) VolumeUp() error {
	return s.update(func() { s.volume = playback.ClampVolume(s.volume + simVolumeStep) })
}

func (s *SimSource) VolumeDown() error {
	return s.update(func() { s.volume = playback.ClampVolume(s.volume - simVolumeStep) })
}

func (s *SimSource) SetVolume(v int) error {
	return s.update(func() { s.volume = playback.ClampVolume(v) })
}

func (s *SimSource) TogglePlayPause() error {
	return s.update(func() {
		if s.status == playback.StatusPlay {
			s.status = playback.StatusPause
		} else {
			s.status = playback.StatusPlay
		}
	})
}

var _ playback.Source = (*SimSource)(nil)
