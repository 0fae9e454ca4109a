package screens

import (
	"github.com/quadify/quadify/internal/playback"
	"go.uber.org/zap"
)

// transport sends volume and play/pause commands on behalf of a playback
// screen. Failures are logged and never returned.
type transport struct {
	commander playback.Commander
	latest    func() (playback.State, bool)
	logger    *zap.Logger
}

func newTransport(d Deps, latest func() (playback.State, bool), logger *zap.Logger) transport {
	t := transport{latest: latest, logger: logger}
	if d.Source != nil {
		t.commander = d.Source
	}
	return t
}

// adjustVolume sends a relative step for a non-zero delta and an absolute
// target otherwise. The current volume comes from the newest accepted state,
// or 100 when none is known.
func (t transport) adjustVolume(delta int) {
	if t.commander == nil {
		t.logger.Error("no playback source, cannot adjust volume")
		return
	}
	if !t.commander.Connected() {
		t.logger.Warn("playback source not connected, dropping volume change", zap.Int("delta", delta))
		return
	}

	st, ok := t.latest()
	if !ok {
		t.logger.Debug("no state yet, assuming default volume", zap.Int("volume", playback.DefaultVolume))
	}
	target := playback.ClampVolume(st.VolumeOr(playback.DefaultVolume) + delta)

	var err error
	switch {
	case delta > 0:
		err = t.commander.VolumeUp()
	case delta < 0:
		err = t.commander.VolumeDown()
	default:
		err = t.commander.SetVolume(target)
	}
	if err != nil {
		t.logger.Warn("volume command failed", zap.Int("delta", delta), zap.Int("target", target), zap.Error(err))
		return
	}
	t.logger.Debug("volume adjusted", zap.Int("delta", delta), zap.Int("target", target))
}

func (t transport) togglePlayPause() {
	if t.commander == nil {
		t.logger.Error("no playback source, cannot toggle playback")
		return
	}
	if !t.commander.Connected() {
		t.logger.Warn("playback source not connected, dropping toggle")
		return
	}
	if err := t.commander.TogglePlayPause(); err != nil {
		t.logger.Warn("toggle command failed", zap.Error(err))
	}
}
