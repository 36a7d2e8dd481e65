package window

import "fmt"

// EventType identifies what happened to a window.
type EventType uint8

const (
	// EventNone is the zero EventType.
	EventNone EventType = iota
	// EventQuit asks the frame loop to stop.
	EventQuit
	// EventResize reports a new client area size in Event.Width and Event.Height.
	EventResize
)

func (t EventType) String() string {
	switch t {
	case EventNone:
		return "none"
	case EventQuit:
		return "quit"
	case EventResize:
		return "resize"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(t))
	}
}

// Event is one message taken from a window's queue.
type Event struct {
	Type EventType

	// Width and Height are set for EventResize.
	Width, Height int
}
