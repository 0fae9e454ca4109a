package mpris

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quadify/quadify/internal/mpris/mocks"
	"github.com/quadify/quadify/internal/playback"
	"go.uber.org/mock/gomock"
)

const testOwner = ":1.42"

func connectedSource(m DBusClient) *Source {
	s := New(Config{}, func() (DBusClient, error) { return m, nil }, nil)
	s.conn = m
	s.setOwner(testOwner)
	return s
}

func expectState(m *mocks.MockDBusClient, status string, meta map[string]dbus.Variant, volume *float64) {
	m.EXPECT().GetProperty(DefaultBusName, objectPath, playerInterface+".PlaybackStatus").
		Return(dbus.MakeVariant(status), nil)
	m.EXPECT().GetProperty(DefaultBusName, objectPath, playerInterface+".Metadata").
		Return(dbus.MakeVariant(meta), nil)
	if volume == nil {
		m.EXPECT().GetProperty(DefaultBusName, objectPath, playerInterface+".Volume").
			Return(dbus.Variant{}, errors.New("no such property"))
		return
	}
	m.EXPECT().GetProperty(DefaultBusName, objectPath, playerInterface+".Volume").
		Return(dbus.MakeVariant(*volume), nil)
}

func TestApplyMetadata(t *testing.T) {
	tests := []struct {
		name       string
		meta       map[string]dbus.Variant
		wantTitle  string
		wantArtist string
		wantLength time.Duration
	}{
		{
			name: "artist list",
			meta: map[string]dbus.Variant{
				"xesam:title":  dbus.MakeVariant("Blue in Green"),
				"xesam:artist": dbus.MakeVariant([]string{"Miles Davis", "Bill Evans"}),
				"mpris:length": dbus.MakeVariant(int64(337_000_000)),
			},
			wantTitle:  "Blue in Green",
			wantArtist: "Miles Davis, Bill Evans",
			wantLength: 337 * time.Second,
		},
		{
			name: "artist string",
			meta: map[string]dbus.Variant{
				"xesam:title":  dbus.MakeVariant("Track"),
				"xesam:artist": dbus.MakeVariant("Solo"),
			},
			wantTitle:  "Track",
			wantArtist: "Solo",
		},
		{
			name:       "unexpected types",
			meta:       map[string]dbus.Variant{"xesam:title": dbus.MakeVariant(int32(3)), "xesam:artist": dbus.MakeVariant(int32(1))},
			wantTitle:  "",
			wantArtist: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := playback.State{Title: "old", Artist: "old", Duration: time.Minute}
			st := applyMetadata(prev, tt.meta)
			if st.Title != tt.wantTitle || st.Artist != tt.wantArtist || st.Duration != tt.wantLength {
				t.Errorf("applyMetadata() = (%q, %q, %v), want (%q, %q, %v)",
					st.Title, st.Artist, st.Duration, tt.wantTitle, tt.wantArtist, tt.wantLength)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := map[string]playback.Status{
		"Playing": playback.StatusPlay,
		"Paused":  playback.StatusPause,
		"Stopped": playback.StatusStop,
		"":        playback.StatusStop,
	}
	for in, want := range tests {
		if got := parseStatus(in); got != want {
			t.Errorf("parseStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRequestState(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockDBusClient(ctrl)
	s := connectedSource(m)

	vol := 0.42
	expectState(m, "Playing", map[string]dbus.Variant{
		"xesam:title":  dbus.MakeVariant("So What"),
		"xesam:artist": dbus.MakeVariant([]string{"Miles Davis"}),
		"mpris:artUrl": dbus.MakeVariant("file:///tmp/cover.jpg"),
	}, &vol)

	var got playback.State
	cancel := s.Subscribe(func(sender string, st playback.State) {
		if sender != Sender {
			t.Errorf("sender = %q, want %q", sender, Sender)
		}
		got = st
	})
	defer cancel()

	if err := s.RequestState(); err != nil {
		t.Fatalf("RequestState() error = %v", err)
	}
	if got.Title != "So What" || got.Artist != "Miles Davis" || got.AlbumArt != "file:///tmp/cover.jpg" {
		t.Errorf("published = %+v", got)
	}
	if got.Service != DefaultService || !got.Playing() || got.VolumeOr(0) != 42 {
		t.Errorf("published service/status/volume = %q/%q/%d", got.Service, got.Status, got.VolumeOr(0))
	}
}

func TestRequestStateWithoutVolume(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockDBusClient(ctrl)
	s := connectedSource(m)
	expectState(m, "Paused", nil, nil)

	if err := s.RequestState(); err != nil {
		t.Fatalf("RequestState() error = %v", err)
	}
	st, ok := s.CurrentState()
	if !ok || st.HasVolume || st.Status != playback.StatusPause {
		t.Errorf("CurrentState() = %+v, %v", st, ok)
	}
}

func TestCommandsWhenDisconnected(t *testing.T) {
	s := New(Config{}, nil, nil)
	cmds := map[string]func() error{
		"RequestState":    s.RequestState,
		"VolumeUp":        s.VolumeUp,
		"VolumeDown":      s.VolumeDown,
		"SetVolume":       func() error { return s.SetVolume(10) },
		"TogglePlayPause": s.TogglePlayPause,
	}
	for name, cmd := range cmds {
		if err := cmd(); !errors.Is(err, playback.ErrNotConnected) {
			t.Errorf("%s() error = %v, want ErrNotConnected", name, err)
		}
	}
	if s.Connected() {
		t.Error("Connected() = true without a bus")
	}
}

func TestVolumeCommands(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		send    func(*Source) error
		want    float64
	}{
		{"up", 0.5, (*Source).VolumeUp, 0.55},
		{"down", 0.5, (*Source).VolumeDown, 0.45},
		{"up clamps", 0.98, (*Source).VolumeUp, 1},
		{"down clamps", 0.02, (*Source).VolumeDown, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockDBusClient(ctrl)
			s := connectedSource(m)
			m.EXPECT().GetProperty(DefaultBusName, objectPath, playerInterface+".Volume").
				Return(dbus.MakeVariant(tt.current), nil)
			m.EXPECT().SetProperty(DefaultBusName, objectPath, playerInterface+".Volume", tt.want).Return(nil)

			if err := tt.send(s); err != nil {
				t.Errorf("command error = %v", err)
			}
		})
	}
}

func TestSetVolumeAndToggle(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockDBusClient(ctrl)
	s := connectedSource(m)

	m.EXPECT().SetProperty(DefaultBusName, objectPath, playerInterface+".Volume", 1.0).Return(nil)
	m.EXPECT().Call(DefaultBusName, objectPath, playerInterface+".PlayPause").Return(errors.New("no reply"))

	if err := s.SetVolume(150); err != nil {
		t.Errorf("SetVolume(150) error = %v", err)
	}
	if err := s.TogglePlayPause(); err == nil {
		t.Error("TogglePlayPause() error = nil, want the bus error")
	}
}

func TestRunFollowsSignals(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockDBusClient(ctrl)
	s := New(Config{}, func() (DBusClient, error) { return m, nil }, nil)

	signals := make(chan chan<- *dbus.Signal, 1)
	m.EXPECT().AddMatchSignal(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	m.EXPECT().Signal(gomock.Any()).Do(func(ch chan<- *dbus.Signal) { signals <- ch })
	m.EXPECT().GetNameOwner(DefaultBusName).Return(testOwner, nil)
	expectState(m, "Playing", map[string]dbus.Variant{"xesam:title": dbus.MakeVariant("Intro")}, nil)
	m.EXPECT().Close().Return(nil)

	states := make(chan playback.State, 8)
	cancelSub := s.Subscribe(func(_ string, st playback.State) { states <- st })
	defer cancelSub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	next := func() playback.State {
		t.Helper()
		select {
		case st := <-states:
			return st
		case <-time.After(2 * time.Second):
			t.Fatal("no state published")
			return playback.State{}
		}
	}

	if st := next(); st.Title != "Intro" || !st.Playing() {
		t.Errorf("initial state = %+v", st)
	}
	ch := <-signals

	// Signals from other senders are ignored.
	ch <- &dbus.Signal{
		Sender: ":1.99",
		Name:   propsInterface + ".PropertiesChanged",
		Body:   []any{playerInterface, map[string]dbus.Variant{"PlaybackStatus": dbus.MakeVariant("Stopped")}, []string{}},
	}
	ch <- &dbus.Signal{
		Sender: testOwner,
		Name:   propsInterface + ".PropertiesChanged",
		Body: []any{playerInterface, map[string]dbus.Variant{
			"PlaybackStatus": dbus.MakeVariant("Paused"),
			"Volume":         dbus.MakeVariant(0.3),
		}, []string{}},
	}
	if st := next(); st.Status != playback.StatusPause || st.Title != "Intro" || st.VolumeOr(0) != 30 {
		t.Errorf("after PropertiesChanged = %+v", st)
	}

	ch <- &dbus.Signal{
		Name: "org.freedesktop.DBus.NameOwnerChanged",
		Body: []any{DefaultBusName, testOwner, ""},
	}
	if st := next(); st.Status != playback.StatusStop || st.Service != DefaultService {
		t.Errorf("after owner left = %+v", st)
	}
	if s.Connected() {
		t.Error("Connected() = true after the player left")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRunConnectError(t *testing.T) {
	s := New(Config{}, func() (DBusClient, error) { return nil, errors.New("no bus") }, nil)
	if err := s.Run(context.Background()); err == nil {
		t.Error("Run() error = nil, want connect failure")
	}
}
