// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Frame, Format and sample conversion functions
// Package audio provides the fundamental types shared by the receiver pipeline.
//
// A Frame is a fixed-capacity set of normalized float32 samples, one per
// channel, so it can be copied through the jitter buffer and the device
// callback without allocating.
//
// It also provides utilities for converting between sample representations:
//   - 16-bit ↔ 24-bit integer conversions
//   - int32 ↔ packed 24-bit bytes
//   - normalized float → saturated integer device samples
//
// Example:
//
//	frame := audio.Silence(2)
//	frame.Samples[0] = 0.5
//	left := audio.FloatToInt16(frame.Samples[0])
package audio
