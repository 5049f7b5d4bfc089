// ABOUTME: PCM frame decoding for Scream payloads
// ABOUTME: Converts little-endian signed integer frames into normalized audio frames
package scream

import (
	"encoding/binary"

	"github.com/screamsink/screamsink/pkg/audio"
)

// Normalize maps a signed integer sample of the given width onto [-1, 1).
// Both signs divide by 2^(bits-1), so the most negative value is exactly -1.
// Unsupported widths yield 0.
func Normalize(v int32, bits int) float32 {
	switch bits {
	case 16:
		return float32(float64(v) / (1 << 15))
	case 24:
		return float32(float64(v) / (1 << 23))
	case 32:
		return float32(float64(v) / (1 << 31))
	default:
		return 0
	}
}

// DecodeFrame converts one interleaved wire frame into a normalized frame.
// Channels missing from a short b are left at 0.
func DecodeFrame(h Header, b []byte) audio.Frame {
	frame := audio.Frame{Channels: uint8(audio.ClampChannels(int(h.Channels)))}

	width := h.BytesPerSample()
	if width == 0 {
		return frame
	}

	for ch := 0; ch < int(frame.Channels); ch++ {
		off := ch * width
		if off+width > len(b) {
			break
		}
		frame.Samples[ch] = decodeSample(b[off:off+width], int(h.BitDepth))
	}
	return frame
}

func decodeSample(b []byte, bits int) float32 {
	switch bits {
	case 16:
		return Normalize(int32(int16(binary.LittleEndian.Uint16(b))), 16)
	case 24:
		return Normalize(audio.SampleFrom24Bit([3]byte{b[0], b[1], b[2]}), 24)
	case 32:
		return Normalize(int32(binary.LittleEndian.Uint32(b)), 32)
	default:
		return 0
	}
}

// ForEachFrame decodes every whole frame of payload in order.
// A trailing partial frame is ignored. It returns the number of frames visited.
func ForEachFrame(h Header, payload []byte, fn func(audio.Frame)) int {
	size := h.FrameSize()
	if size == 0 {
		return 0
	}

	n := 0
	for off := 0; off+size <= len(payload); off += size {
		fn(DecodeFrame(h, payload[off:off+size]))
		n++
	}
	return n
}
