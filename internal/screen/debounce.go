package screen

import "time"

// DefaultDebounceWindow suppresses repeated "same track" notifications.
const DefaultDebounceWindow = 3 * time.Second

// Debouncer remembers the last accepted (title, artist) pair. It is not
// synchronised; callers hold the mailbox lock.
type Debouncer struct {
	Window time.Duration

	title  string
	artist string
	at     time.Time
	seen   bool
}

// Accept reports whether an update for (title, artist) at now should pass.
// Accepted updates replace the record.
func (d *Debouncer) Accept(title, artist string, now time.Time) bool {
	if d.seen && title == d.title && artist == d.artist && now.Sub(d.at) < d.Window {
		return false
	}
	d.title, d.artist, d.at, d.seen = title, artist, now, true
	return true
}

// Last returns the current record.
func (d *Debouncer) Last() (title, artist string, at time.Time, ok bool) {
	return d.title, d.artist, d.at, d.seen
}
