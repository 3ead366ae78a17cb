// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package session drives one interactive remote shell: it multiplexes remote
// output, local input, terminal geometry changes and device presence in a
// single event loop, and always restores the local terminal on the way out.
package session

// EventKind classifies what arrived from the remote side.
type EventKind int

const (
	EventData EventKind = iota
	EventExtendedData
	EventEOF
	EventExitStatus
	EventExitSignal
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventData:
		return "data"
	case EventExtendedData:
		return "extended-data"
	case EventEOF:
		return "eof"
	case EventExitStatus:
		return "exit-status"
	case EventExitSignal:
		return "exit-signal"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is one message from the remote channel.
type Event struct {
	Kind   EventKind
	Data   []byte
	Status uint32
	Signal string
}

// Remote is the channel-like handle to an established connection.
type Remote interface {
	RequestPTY(term string, cols, rows int) error
	Shell() error
	Send(p []byte) error
	// Events is closed once the remote side is gone.
	Events() <-chan Event
	Resize(cols, rows int) error
	CloseChannel() error
	Disconnect() error
}
