package playback

import "errors"

// ErrNotConnected is returned by commanders when the upstream link is down.
var ErrNotConnected = errors.New("playback source not connected")

// Listener receives state notifications. It is invoked on the source's own
// goroutine and must not block.
type Listener func(sender string, st State)

type Subscriber interface {
	// Subscribe registers l and returns a function that removes it again.
	Subscribe(l Listener) (cancel func())
}

type Requester interface {
	// RequestState asks the source to push a fresh state notification.
	RequestState() error
}

// Commander issues transport commands.
type Commander interface {
	Connected() bool
	VolumeUp() error
	VolumeDown() error
	SetVolume(v int) error
	TogglePlayPause() error
}

// Source is the full contract a playback backend implements.
type Source interface {
	Subscriber
	Requester
	Commander
	CurrentState() (State, bool)
}
