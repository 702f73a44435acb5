package model

import "errors"

var (
	// ErrUnauthorized rejects a channel-open attempt by a non-administrator or anonymous caller.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTransportFailure covers dropped connections and malformed frames.
	ErrTransportFailure = errors.New("transport failure")
	// ErrSlowConsumer is the reason a channel is evicted when its buffer overflows.
	ErrSlowConsumer = errors.New("slow consumer")
	// ErrPlaybackFailure is logged and swallowed by the alert trigger.
	ErrPlaybackFailure = errors.New("playback failure")
	ErrInvalidEvent    = errors.New("invalid event")
	ErrHubClosed       = errors.New("hub closed")
)
