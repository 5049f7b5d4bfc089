// ABOUTME: Playback package documentation
// ABOUTME: Describes the rate adaptation engine and session lifecycle
// Package playback turns a stream of decoded frames into glitch-free device
// output.
//
// A Session owns a jitter buffer, an Engine and an open device stream for one
// stream format. The network goroutine pushes frames into the session; the
// device callback asks the Engine to Fill its buffer. On every output frame
// the Engine compares buffer occupancy with the device's pull size and picks
// an OutputMode:
//
//	Stopped        hold the last frame until enough audio is buffered
//	ChuggingAlong  play buffered frames 1:1
//	PlaySlower     repeat every other frame while the buffer is low
//	PlayFaster     skip a frame per output frame while the buffer is high
//
// Between the thresholds the current mode is kept. Underruns replay the last
// frame instead of failing the callback.
//
// Example:
//
//	session, err := playback.NewSession(out, header, playback.Config{}, func(ev playback.Event) {
//	    log.Print(ev)
//	})
//	session.PushPacket(payload)
//	session.Close("no output")
package playback
