// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Output interface and malgo, oto, portaudio and null backends
// Package output provides callback-driven audio playback backends.
//
// A backend opens a Stream per playback session. The stream pulls frames from
// a Filler on the backend's own real-time context and converts them to the
// device sample format.
//
// Backends:
//   - Malgo (miniaudio): default, supports device selection and all formats
//   - Oto: float32 output, one sample rate per process
//   - PortAudio: build with -tags portaudio
//   - Null: discards audio at the stream's sample rate, for headless use
//
// Example:
//
//	out := output.NewMalgo(output.MalgoConfig{})
//	stream, err := out.Open(output.StreamConfig{SampleRate: 48000, Channels: 2}, engine)
//	err = stream.Start()
//	defer stream.Close()
package output
