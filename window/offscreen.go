// Package window provides the windows a gfx context renders into.
//
// Offscreen is a headless window: it has a size and an event queue like a
// native window, has no platform handles, and keeps every frame the
// software backend presents to it. It drives tests, the demo and any
// environment without a display.
package window

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gfx/backend"
)

// ErrClosed is returned by PresentFrame after Close.
var ErrClosed = errors.New("window: closed")

// Offscreen is a window without a screen. It is safe for concurrent use:
// Quit and Resize may be called from another goroutine while the frame loop
// polls.
type Offscreen struct {
	mu     sync.Mutex
	width  int
	height int
	scale  float64
	title  string
	queue  []Event
	frame  *image.NRGBA
	frames int
	redraw int
	quit   bool
	closed bool
}

var (
	_ backend.Window    = (*Offscreen)(nil)
	_ backend.Presenter = (*Offscreen)(nil)
)

// Option configures an Offscreen window.
type Option func(*Offscreen)

// WithTitle sets the window title reported by Title.
func WithTitle(title string) Option {
	return func(w *Offscreen) { w.title = title }
}

// WithScaleFactor sets the DPI scale reported to the backends.
// Non-positive values are ignored.
func WithScaleFactor(s float64) Option {
	return func(w *Offscreen) {
		if s > 0 {
			w.scale = s
		}
	}
}

// NewOffscreen creates a headless window with a client area of
// width x height pixels.
func NewOffscreen(width, height int, opts ...Option) *Offscreen {
	w := &Offscreen{width: width, height: height, scale: 1, title: "gfx"}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Size returns the client area size in pixels.
func (w *Offscreen) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// ScaleFactor returns the DPI scale.
func (w *Offscreen) ScaleFactor() float64 { return w.scale }

// Title returns the window title.
func (w *Offscreen) Title() string { return w.title }

// RequestRedraw counts redraw requests. Offscreen windows are redrawn by
// the frame loop, so the request has no other effect.
func (w *Offscreen) RequestRedraw() {
	w.mu.Lock()
	w.redraw++
	w.mu.Unlock()
}

// NativeHandle returns zeros: there is no platform window.
func (w *Offscreen) NativeHandle() (display, window uintptr) { return 0, 0 }

// PresentFrame keeps a copy of frame as the last presented image.
func (w *Offscreen) PresentFrame(frame *image.NRGBA) error {
	if frame == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.frame == nil || w.frame.Rect != frame.Rect {
		w.frame = image.NewNRGBA(frame.Rect)
	}
	copy(w.frame.Pix, frame.Pix)
	w.frames++
	return nil
}

// Frame returns a copy of the last presented frame, or nil if nothing was
// presented yet.
func (w *Offscreen) Frame() *image.NRGBA {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.frame == nil {
		return nil
	}
	out := image.NewNRGBA(w.frame.Rect)
	copy(out.Pix, w.frame.Pix)
	return out
}

// Frames returns the number of frames presented.
func (w *Offscreen) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Quit queues EventQuit.
func (w *Offscreen) Quit() {
	w.post(Event{Type: EventQuit})
}

// Resize changes the client area size and queues EventResize.
func (w *Offscreen) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("window: invalid size %dx%d", width, height)
	}
	w.mu.Lock()
	w.width, w.height = width, height
	w.mu.Unlock()
	w.post(Event{Type: EventResize, Width: width, Height: height})
	return nil
}

func (w *Offscreen) post(e Event) {
	w.mu.Lock()
	w.queue = append(w.queue, e)
	w.mu.Unlock()
}

// PollMessages drains the event queue and returns the events in the order
// they were posted. It reports false once EventQuit has been seen, in this
// call or an earlier one.
func (w *Offscreen) PollMessages() ([]Event, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := w.queue
	w.queue = nil
	for _, e := range events {
		if e.Type == EventQuit {
			w.quit = true
		}
	}
	return events, !w.quit
}

// Close releases the captured frame. Later presents fail with ErrClosed.
func (w *Offscreen) Close() {
	w.mu.Lock()
	w.closed = true
	w.frame = nil
	w.queue = nil
	w.mu.Unlock()
}
