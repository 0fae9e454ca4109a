package playback

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultVolume is assumed whenever the source has not reported a volume yet.
const DefaultVolume = 100

type Status string

const (
	StatusPlay  Status = "play"
	StatusPause Status = "pause"
	StatusStop  Status = "stop"
)

// State is a snapshot of what the player reports. Values are copied across
// package boundaries; use the With* helpers to derive a modified copy.
type State struct {
	Title      string
	Artist     string
	Album      string
	Service    string
	Status     Status
	BitDepth   string
	SampleRate string
	AlbumArt   string
	Stream     string
	TrackType  string
	Volume     int
	HasVolume  bool
	Mute       bool
	Seek       time.Duration
	Duration   time.Duration

	// ReceivedAt is set by the consumer that accepted the state, not by the source.
	ReceivedAt time.Time
}

// WithReceivedAt returns a copy stamped with t.
func (s State) WithReceivedAt(t time.Time) State {
	s.ReceivedAt = t
	return s
}

// WithVolume returns a copy carrying volume v.
func (s State) WithVolume(v int) State {
	s.Volume = v
	s.HasVolume = true
	return s
}

// VolumeOr returns the reported volume or def when none is known.
func (s State) VolumeOr(def int) int {
	if !s.HasVolume {
		return def
	}
	return s.Volume
}

// SameTrack reports whether both states describe the same (title, artist) pair.
func (s State) SameTrack(other State) bool {
	return s.Title == other.Title && s.Artist == other.Artist
}

func (s State) Playing() bool { return s.Status == StatusPlay }

// Elapsed is the play position at now. While playing, the time since the
// state was accepted is added to Seek so a progress bar keeps moving between
// pushes. The result never exceeds a known Duration.
func (s State) Elapsed(now time.Time) time.Duration {
	pos := s.Seek
	if s.Playing() && !s.ReceivedAt.IsZero() && now.After(s.ReceivedAt) {
		pos += now.Sub(s.ReceivedAt)
	}
	if s.Duration > 0 && pos > s.Duration {
		pos = s.Duration
	}
	return pos
}

// Progress is Elapsed as a fraction of Duration, or 0 for streams without one.
func (s State) Progress(now time.Time) float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Elapsed(now)) / float64(s.Duration)
}

// ServiceIs compares the service tag case-insensitively.
func (s State) ServiceIs(service string) bool {
	return strings.EqualFold(strings.TrimSpace(s.Service), service)
}

// FromMap builds a State from a loosely typed key/value mapping such as a
// decoded Volumio pushState payload. Unknown keys are ignored and missing or
// malformed fields are left at their zero value.
func FromMap(m map[string]any) State {
	st := State{
		Title:      stringField(m, "title"),
		Artist:     stringField(m, "artist"),
		Album:      stringField(m, "album"),
		Service:    stringField(m, "service"),
		Status:     Status(strings.ToLower(stringField(m, "status"))),
		BitDepth:   stringField(m, "bitdepth"),
		SampleRate: stringField(m, "samplerate"),
		AlbumArt:   stringField(m, "albumart"),
		Stream:     stringField(m, "stream"),
		TrackType:  strings.ToLower(stringField(m, "trackType")),
	}
	if v, ok := intField(m, "volume"); ok {
		st = st.WithVolume(clampVolume(v))
	}
	if b, ok := m["mute"].(bool); ok {
		st.Mute = b
	}
	if ms, ok := intField(m, "seek"); ok && ms > 0 {
		st.Seek = time.Duration(ms) * time.Millisecond
	}
	if secs, ok := intField(m, "duration"); ok && secs > 0 {
		st.Duration = time.Duration(secs) * time.Second
	}
	return st
}

// ToMap is the inverse of FromMap for the fields the web API exposes.
func (s State) ToMap() map[string]any {
	out := map[string]any{
		"title":      s.Title,
		"artist":     s.Artist,
		"album":      s.Album,
		"service":    s.Service,
		"status":     string(s.Status),
		"bitdepth":   s.BitDepth,
		"samplerate": s.SampleRate,
		"albumart":   s.AlbumArt,
	}
	if s.TrackType != "" {
		out["trackType"] = s.TrackType
	}
	if s.HasVolume {
		out["volume"] = s.Volume
	}
	out["mute"] = s.Mute
	if s.Seek > 0 {
		out["seek"] = s.Seek.Milliseconds()
	}
	if s.Duration > 0 {
		out["duration"] = int64(s.Duration / time.Second)
	}
	if !s.ReceivedAt.IsZero() {
		out["receivedAt"] = s.ReceivedAt.Format(time.RFC3339)
	}
	return out
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ClampVolume bounds v to [0,100].
func ClampVolume(v int) int { return clampVolume(v) }

func stringField(m map[string]any, key string) string {
	raw, ok := m[key]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func intField(m map[string]any, key string) (int, bool) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), true
		}
		if f, err := v.Float64(); err == nil {
			return int(f), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i, true
		}
	}
	return 0, false
}
