// ABOUTME: Audio type definitions
// ABOUTME: Defines the multichannel frame exchanged with the device and sample conversions
package audio

import "math"

const (
	// MaxChannels is the fixed channel capacity of a Frame
	MaxChannels = 10

	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes a PCM stream format
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Frame is one normalized sample per channel for a single point in time.
// Slots at or beyond Channels hold 0.
type Frame struct {
	Samples  [MaxChannels]float32
	Channels uint8
}

// Silence returns an all-zero frame with the given channel count
func Silence(channels int) Frame {
	return Frame{Channels: uint8(ClampChannels(channels))}
}

// ClampChannels limits a channel count to [1, MaxChannels]
func ClampChannels(channels int) int {
	if channels < 1 {
		return 1
	}
	if channels > MaxChannels {
		return MaxChannels
	}
	return channels
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// FloatToInt16 converts a normalized sample to int16, rounding and saturating
func FloatToInt16(f float32) int16 {
	return int16(scaleClamp(f, math.MinInt16, math.MaxInt16))
}

// FloatToInt24 converts a normalized sample to the 24-bit range, rounding and saturating
func FloatToInt24(f float32) int32 {
	return int32(scaleClamp(f, Min24Bit, Max24Bit))
}

// FloatToInt32 converts a normalized sample to int32, rounding and saturating
func FloatToInt32(f float32) int32 {
	return int32(scaleClamp(f, math.MinInt32, math.MaxInt32))
}

// FloatToUint8 converts a normalized sample to unsigned 8-bit PCM (128 is silence)
func FloatToUint8(f float32) uint8 {
	return uint8(scaleClamp(f, math.MinInt8, math.MaxInt8) + 128)
}

// scaleClamp maps [-1, 1] onto [min, max] with -1 landing exactly on min
func scaleClamp(f float32, min, max int64) int64 {
	if f != f { // NaN
		return 0
	}
	v := math.Round(float64(f) * -float64(min))
	if v > float64(max) {
		return max
	}
	if v < float64(min) {
		return min
	}
	return int64(v)
}
