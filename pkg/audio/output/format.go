// ABOUTME: Device sample formats and frame encoding
// ABOUTME: Converts normalized frames into interleaved device bytes
package output

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/screamsink/screamsink/pkg/audio"
)

// SampleFormat is the sample representation a device stream is opened with
type SampleFormat int

const (
	FormatF32 SampleFormat = iota
	FormatS16
	FormatS24
	FormatS32
	FormatU8
)

// ParseSampleFormat parses a format name such as "f32" or "s16"
func ParseSampleFormat(name string) (SampleFormat, error) {
	switch strings.ToLower(name) {
	case "", "f32", "float32":
		return FormatF32, nil
	case "s16", "i16":
		return FormatS16, nil
	case "s24", "i24":
		return FormatS24, nil
	case "s32", "i32":
		return FormatS32, nil
	case "u8":
		return FormatU8, nil
	default:
		return FormatF32, fmt.Errorf("unknown sample format: %s (supported: f32, s16, s24, s32, u8)", name)
	}
}

func (f SampleFormat) String() string {
	switch f {
	case FormatF32:
		return "F32"
	case FormatS16:
		return "S16"
	case FormatS24:
		return "S24"
	case FormatS32:
		return "S32"
	case FormatU8:
		return "U8"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// BytesPerSample returns the size of one channel sample
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatS16:
		return 2
	case FormatS24:
		return 3
	case FormatU8:
		return 1
	default:
		return 4
	}
}

// EncodeFrames writes frames as interleaved little-endian samples into dst and
// returns the number of bytes written. Encoding stops at the last frame that
// fits in dst.
func EncodeFrames(dst []byte, frames []audio.Frame, channels int, format SampleFormat) int {
	width := format.BytesPerSample()
	frameSize := channels * width
	if frameSize == 0 {
		return 0
	}

	n := 0
	for _, frame := range frames {
		if n+frameSize > len(dst) {
			break
		}
		for ch := 0; ch < channels; ch++ {
			var s float32
			if ch < audio.MaxChannels {
				s = frame.Samples[ch]
			}
			putSample(dst[n:n+width], s, format)
			n += width
		}
	}
	return n
}

func putSample(b []byte, s float32, format SampleFormat) {
	switch format {
	case FormatF32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(s))
	case FormatS16:
		binary.LittleEndian.PutUint16(b, uint16(audio.FloatToInt16(s)))
	case FormatS24:
		packed := audio.SampleTo24Bit(audio.FloatToInt24(s))
		copy(b, packed[:])
	case FormatS32:
		binary.LittleEndian.PutUint32(b, uint32(audio.FloatToInt32(s)))
	case FormatU8:
		b[0] = audio.FloatToUint8(s)
	}
}
