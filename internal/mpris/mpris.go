// Package mpris is a playback source fed by an MPRIS player on D-Bus,
// typically Shairport Sync for AirPlay sessions.
package mpris

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quadify/quadify/internal/playback"
	"go.uber.org/zap"
)

const (
	// Sender is the sender name attached to published states.
	Sender = "mpris"

	DefaultBusName = "org.mpris.MediaPlayer2.ShairportSync"
	DefaultService = "airplay_emulation"

	objectPath      = "/org/mpris/MediaPlayer2"
	playerInterface = "org.mpris.MediaPlayer2.Player"
	propsInterface  = "org.freedesktop.DBus.Properties"

	// VolumeStep is the change applied by VolumeUp and VolumeDown, in percent.
	VolumeStep = 5
)

type Config struct {
	BusName string
	// Service is the tag stamped on every published state.
	Service string
}

// Source follows one MPRIS player and republishes its state.
type Source struct {
	playback.Hub

	busName string
	service string
	logger  *zap.Logger
	connect func() (DBusClient, error)

	connected atomic.Bool

	mu    sync.Mutex
	conn  DBusClient
	owner string
}

// New builds a source that dials the bus with connect when Run starts.
func New(cfg Config, connect func() (DBusClient, error), logger *zap.Logger) *Source {
	if cfg.BusName == "" {
		cfg.BusName = DefaultBusName
	}
	if cfg.Service == "" {
		cfg.Service = DefaultService
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		busName: cfg.BusName,
		service: cfg.Service,
		logger:  logger.Named("mpris"),
		connect: connect,
	}
}

// Connected reports whether the player currently owns its bus name.
func (s *Source) Connected() bool { return s.connected.Load() }

// Run subscribes to the player's signals and publishes state changes until
// ctx is done.
func (s *Source) Run(ctx context.Context) error {
	conn, err := s.connect()
	if err != nil {
		return fmt.Errorf("connect to bus: %w", err)
	}
	defer conn.Close()

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(objectPath),
		dbus.WithMatchInterface(propsInterface),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return fmt.Errorf("match PropertiesChanged: %w", err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, s.busName),
	); err != nil {
		return fmt.Errorf("match NameOwnerChanged: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.owner = ""
		s.mu.Unlock()
		s.connected.Store(false)
	}()

	if owner, err := conn.GetNameOwner(s.busName); err == nil {
		s.setOwner(owner)
		if err := s.RequestState(); err != nil {
			s.logger.Warn("initial state request failed", zap.Error(err))
		}
	} else {
		s.logger.Info("player not on the bus yet", zap.String("name", s.busName))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return errors.New("bus connection closed")
			}
			s.handleSignal(sig)
		}
	}
}

func (s *Source) setOwner(owner string) {
	s.mu.Lock()
	s.owner = owner
	s.mu.Unlock()
	s.connected.Store(owner != "")
}

func (s *Source) currentOwner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

func (s *Source) client() (DBusClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || s.owner == "" {
		return nil, playback.ErrNotConnected
	}
	return s.conn, nil
}

func (s *Source) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}
	switch sig.Name {
	case "org.freedesktop.DBus.NameOwnerChanged":
		s.handleOwnerChange(sig)
	case propsInterface + ".PropertiesChanged":
		if owner := s.currentOwner(); owner == "" || (sig.Sender != owner && sig.Sender != s.busName) {
			return
		}
		s.handlePropertiesChanged(sig)
	}
}

func (s *Source) handleOwnerChange(sig *dbus.Signal) {
	if len(sig.Body) < 3 {
		return
	}
	name, _ := sig.Body[0].(string)
	newOwner, _ := sig.Body[2].(string)
	if name != s.busName {
		return
	}
	s.setOwner(newOwner)
	if newOwner == "" {
		s.logger.Info("player left the bus", zap.String("name", name))
		st, _ := s.CurrentState()
		st.Service = s.service
		st.Status = playback.StatusStop
		s.Publish(Sender, st)
		return
	}
	s.logger.Info("player appeared on the bus", zap.String("name", name), zap.String("owner", newOwner))
	if err := s.RequestState(); err != nil {
		s.logger.Warn("state request failed", zap.Error(err))
	}
}

func (s *Source) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	iface, _ := sig.Body[0].(string)
	if iface != playerInterface {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	st, _ := s.CurrentState()
	st.Service = s.service
	touched := false
	if v, ok := changed["Metadata"]; ok {
		if meta, ok := v.Value().(map[string]dbus.Variant); ok {
			st = applyMetadata(st, meta)
			touched = true
		}
	}
	if v, ok := changed["PlaybackStatus"]; ok {
		if status, ok := v.Value().(string); ok {
			st.Status = parseStatus(status)
			touched = true
		}
	}
	if v, ok := changed["Volume"]; ok {
		if vol, ok := v.Value().(float64); ok {
			st = st.WithVolume(volumePercent(vol))
			touched = true
		}
	}
	if !touched {
		return
	}
	s.logger.Debug("state changed",
		zap.String("status", string(st.Status)),
		zap.String("title", st.Title))
	s.Publish(Sender, st)
}

// RequestState reads Metadata, PlaybackStatus and Volume and publishes the
// result.
func (s *Source) RequestState() error {
	conn, err := s.client()
	if err != nil {
		return err
	}
	st, err := s.fetchState(conn)
	if err != nil {
		return err
	}
	s.Publish(Sender, st)
	return nil
}

func (s *Source) fetchState(conn DBusClient) (playback.State, error) {
	st := playback.State{Service: s.service}

	v, err := conn.GetProperty(s.busName, objectPath, playerInterface+".PlaybackStatus")
	if err != nil {
		return st, fmt.Errorf("read PlaybackStatus: %w", err)
	}
	status, _ := v.Value().(string)
	st.Status = parseStatus(status)

	v, err = conn.GetProperty(s.busName, objectPath, playerInterface+".Metadata")
	if err != nil {
		return st, fmt.Errorf("read Metadata: %w", err)
	}
	if meta, ok := v.Value().(map[string]dbus.Variant); ok {
		st = applyMetadata(st, meta)
	}

	// Not every player exposes Volume.
	if v, err := conn.GetProperty(s.busName, objectPath, playerInterface+".Volume"); err == nil {
		if vol, ok := v.Value().(float64); ok {
			st = st.WithVolume(volumePercent(vol))
		}
	}
	return st, nil
}

func parseStatus(status string) playback.Status {
	switch status {
	case "Playing":
		return playback.StatusPlay
	case "Paused":
		return playback.StatusPause
	default:
		return playback.StatusStop
	}
}

// applyMetadata copies the xesam/mpris track fields into st.
func applyMetadata(st playback.State, meta map[string]dbus.Variant) playback.State {
	st.Title = variantString(meta["xesam:title"])
	st.Album = variantString(meta["xesam:album"])
	st.AlbumArt = variantString(meta["mpris:artUrl"])

	st.Artist = ""
	if v, ok := meta["xesam:artist"]; ok {
		switch artists := v.Value().(type) {
		case []string:
			st.Artist = strings.Join(artists, ", ")
		case string:
			st.Artist = artists
		}
	}

	st.Duration = 0
	if v, ok := meta["mpris:length"]; ok {
		switch n := v.Value().(type) {
		case int64:
			st.Duration = time.Duration(n) * time.Microsecond
		case uint64:
			st.Duration = time.Duration(n) * time.Microsecond
		}
	}
	return st
}

func variantString(v dbus.Variant) string {
	s, _ := v.Value().(string)
	return s
}

func volumePercent(v float64) int {
	return playback.ClampVolume(int(math.Round(v * 100)))
}

func (s *Source) setVolume(conn DBusClient, percent int) error {
	level := float64(playback.ClampVolume(percent)) / 100
	if err := conn.SetProperty(s.busName, objectPath, playerInterface+".Volume", level); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	return nil
}

func (s *Source) stepVolume(delta int) error {
	conn, err := s.client()
	if err != nil {
		return err
	}
	v, err := conn.GetProperty(s.busName, objectPath, playerInterface+".Volume")
	if err != nil {
		return fmt.Errorf("read volume: %w", err)
	}
	level, ok := v.Value().(float64)
	if !ok {
		return fmt.Errorf("volume has type %s", v.Signature())
	}
	return s.setVolume(conn, volumePercent(level)+delta)
}

func (s *Source) VolumeUp() error { return s.stepVolume(VolumeStep) }

func (s *Source) VolumeDown() error { return s.stepVolume(-VolumeStep) }

func (s *Source) SetVolume(v int) error {
	conn, err := s.client()
	if err != nil {
		return err
	}
	return s.setVolume(conn, v)
}

func (s *Source) TogglePlayPause() error {
	conn, err := s.client()
	if err != nil {
		return err
	}
	if err := conn.Call(s.busName, objectPath, playerInterface+".PlayPause"); err != nil {
		return fmt.Errorf("play/pause: %w", err)
	}
	return nil
}

var _ playback.Source = (*Source)(nil)
