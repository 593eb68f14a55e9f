package offline

import "errors"

var (
	// ErrInstallFailed is returned when a generation could not be precached
	ErrInstallFailed = errors.New("install failed")
	// ErrNoResponse is returned when neither the network nor the cache produced a response
	ErrNoResponse = errors.New("no response available")
	// ErrUnknownEvent is returned for event kinds without a handler
	ErrUnknownEvent = errors.New("unknown event")
	// ErrInvalidTransition is returned when a lifecycle step runs out of order
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	// ErrNoController is returned for events that need an active generation when none is
	ErrNoController = errors.New("no active cache generation")
	// ErrNotPersisted is returned when a generation cannot be restored from storage
	ErrNotPersisted = errors.New("cache generation not persisted")
)
