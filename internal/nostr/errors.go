package nostr

import "errors"

var (
	ErrNotConnected = errors.New("nostr: not connected")
	ErrNoRelays     = errors.New("nostr: no relays configured")
	ErrInvalidKey   = errors.New("nostr: invalid key")
	ErrInvalidEvent = errors.New("nostr: invalid event")
	ErrBadMessage   = errors.New("nostr: bad relay message")
	ErrRejected     = errors.New("nostr: event rejected by relay")
)
