package models

import "fmt"

// EventKind names a lifecycle or functional event delivered to the cache manager
type EventKind string

const (
	EventInstall  EventKind = "install"
	EventActivate EventKind = "activate"
	EventFetch    EventKind = "fetch"
	EventSync     EventKind = "sync"
	EventPush     EventKind = "push"
)

// Event is the input of a dispatched handler
type Event struct {
	Kind    EventKind
	Request *Request // fetch
	Tag     string   // sync
	Payload []byte   // push, nil when the push carried no data
}

// WorkerState tracks a cache generation through its lifecycle
type WorkerState int

const (
	StateParsed WorkerState = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActivated
	StateRedundant
)

func (s WorkerState) String() string {
	switch s {
	case StateParsed:
		return "parsed"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	case StateRedundant:
		return "redundant"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s WorkerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
