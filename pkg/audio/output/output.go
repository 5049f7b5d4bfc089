// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for callback-driven playback backends
package output

import (
	"errors"

	"github.com/screamsink/screamsink/pkg/audio"
)

// ErrNotSupported is returned by backends that cannot serve a request
var ErrNotSupported = errors.New("output: not supported")

// StreamConfig describes the stream a session needs
type StreamConfig struct {
	SampleRate int
	Channels   int

	// PeriodFrames is the preferred callback size; 0 lets the backend decide
	PeriodFrames int
}

// Filler produces frames for the device. Fill runs on the backend's real-time
// context and must not block.
type Filler interface {
	Fill(frames []audio.Frame)
}

// FillerFunc adapts a function to the Filler interface
type FillerFunc func(frames []audio.Frame)

// Fill calls f(frames)
func (f FillerFunc) Fill(frames []audio.Frame) { f(frames) }

// Stream is one open device stream
type Stream interface {
	// Start begins invoking the Filler
	Start() error

	// Close stops the stream. The Filler is not called after Close returns.
	Close() error
}

// Output represents an audio output device
type Output interface {
	// Name identifies the backend and device for logs
	Name() string

	// Open prepares a stream that pulls frames from src
	Open(config StreamConfig, src Filler) (Stream, error)

	// Close releases output resources
	Close() error
}

// scratchFrames is the number of frames backends preallocate for callbacks
const scratchFrames = 4096

// fillChunked fills n frames through scratch, calling emit for each chunk so
// callbacks larger than scratch never allocate
func fillChunked(src Filler, scratch []audio.Frame, n int, emit func(frames []audio.Frame, offset int)) {
	for offset := 0; offset < n; {
		chunk := n - offset
		if chunk > len(scratch) {
			chunk = len(scratch)
		}
		frames := scratch[:chunk]
		src.Fill(frames)
		emit(frames, offset)
		offset += chunk
	}
}
