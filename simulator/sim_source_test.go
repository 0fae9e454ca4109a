package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/quadify/quadify/internal/playback"
)

func TestSimSourceScript(t *testing.T) {
	s := NewSimSource(0)
	var got []playback.State
	cancel := s.Subscribe(func(sender string, st playback.State) {
		if sender != Sender {
			t.Errorf("sender = %q", sender)
		}
		got = append(got, st)
	})
	defer cancel()

	if err := s.Load("webradio"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	s.Next()
	if err := s.TogglePlayPause(); err != nil {
		t.Fatal(err)
	}
	s.Next()

	if len(got) != 3 {
		t.Fatalf("published %d states, want 3", len(got))
	}
	if got[0].Service != "webradio" || got[0].Title != "Radio Paradise - Main Mix" || !got[0].Playing() {
		t.Errorf("first state = %+v", got[0])
	}
	if got[1].Title == got[0].Title {
		t.Error("Next() did not advance the track")
	}
	if got[2].Status != playback.StatusPause {
		t.Errorf("after toggle status = %q, want pause", got[2].Status)
	}

	if err := s.Load("nope"); err == nil {
		t.Error("unknown scenario accepted")
	}
}

func TestSimSourceLibraryScenario(t *testing.T) {
	s := NewSimSource(0)
	var got []playback.State
	cancel := s.Subscribe(func(_ string, st playback.State) { got = append(got, st) })
	defer cancel()

	if err := s.Load("library"); err != nil {
		t.Fatalf("Load(library) error = %v", err)
	}
	s.Next()
	if len(got) != 2 {
		t.Fatalf("published %d states, want 2", len(got))
	}
	if got[0].Service != "mpd" || got[0].Duration != 261*time.Second || !got[0].Playing() {
		t.Errorf("first state = %+v", got[0])
	}
	if got[1].TrackType != "tidal" {
		t.Errorf("second TrackType = %q, want tidal", got[1].TrackType)
	}
}

func TestSimSourceCommands(t *testing.T) {
	s := NewSimSource(0)
	_ = s.Load("airplay")

	if err := s.SetVolume(98); err != nil {
		t.Fatal(err)
	}
	_ = s.VolumeUp()
	if st, _ := s.CurrentState(); st.VolumeOr(0) != 100 {
		t.Errorf("volume = %d, want 100", st.VolumeOr(0))
	}
	_ = s.VolumeDown()
	if st, _ := s.CurrentState(); st.VolumeOr(0) != 95 {
		t.Errorf("volume = %d, want 95", st.VolumeOr(0))
	}

	s.SetFaults(SimFaults{Disconnected: true})
	if s.Connected() {
		t.Error("Connected() = true while disconnected")
	}
	if err := s.VolumeUp(); !errors.Is(err, playback.ErrNotConnected) {
		t.Errorf("VolumeUp() error = %v, want ErrNotConnected", err)
	}
	s.SetFaults(SimFaults{CommandFail: true})
	if err := s.TogglePlayPause(); err == nil {
		t.Error("TogglePlayPause() succeeded with CommandFail set")
	}
}

func TestSimSourceRunStops(t *testing.T) {
	s := NewSimSource(time.Millisecond)
	_ = s.Load("airplay")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop")
	}
}

func TestSimEndpoints(t *testing.T) {
	s := NewSimSource(0)
	c := NewSimControl(s, "")
	if err := c.ApplyScenario(""); err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	c.Register(mux)

	post := func(path, body string) int {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
		return rec.Code
	}

	if code := post("/sim/scenario/idle", ""); code != http.StatusOK {
		t.Errorf("POST /sim/scenario/idle = %d", code)
	}
	if st, _ := s.CurrentState(); st.Status != playback.StatusStop {
		t.Errorf("idle scenario status = %q", st.Status)
	}
	if code := post("/sim/scenario/bogus", ""); code != http.StatusBadRequest {
		t.Errorf("POST /sim/scenario/bogus = %d, want 400", code)
	}
	if code := post("/sim/state", `{"title":"Custom","service":"webradio","status":"play","volume":"30"}`); code != http.StatusOK {
		t.Errorf("POST /sim/state = %d", code)
	}
	if st, _ := s.CurrentState(); st.Title != "Custom" || st.VolumeOr(0) != 30 {
		t.Errorf("state after /sim/state = %+v", st)
	}
	if code := post("/sim/faults", `{"disconnected":true}`); code != http.StatusOK || !s.Faults().Disconnected {
		t.Errorf("POST /sim/faults = %d, faults %+v", code, s.Faults())
	}
	if code := post("/sim/reset", ""); code != http.StatusOK || s.Faults().Disconnected || s.Scenario() != "airplay" {
		t.Errorf("POST /sim/reset = %d, faults %+v, scenario %q", code, s.Faults(), s.Scenario())
	}
}
