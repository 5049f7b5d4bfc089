// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between different sample rates
// Package resample provides streaming sample rate conversion.
//
// Uses linear interpolation between neighbouring frames. State is carried
// between calls, so a stream can be converted in chunks of any size.
//
// Example:
//
//	r := resample.New(22050, 48000, 2)
//	out = r.Resample(in, out[:0])
package resample
