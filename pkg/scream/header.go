// ABOUTME: Scream packet header codec
// ABOUTME: Decodes and encodes the 5-byte format header that prefixes every packet
package scream

import (
	"errors"
	"fmt"

	"github.com/screamsink/screamsink/pkg/audio"
)

const (
	// HeaderSize is the length of the format header at the start of each packet
	HeaderSize = 5

	// MaxPacketSize is the largest datagram a Scream source sends
	MaxPacketSize = 1157

	// MaxPayloadSize is the PCM payload capacity of a single packet
	MaxPayloadSize = MaxPacketSize - HeaderSize

	// DefaultChannels is used when the caller does not configure a channel count
	DefaultChannels = 2

	// DefaultGroup and DefaultPort are the well-known multicast endpoint
	DefaultGroup = "239.255.77.77"
	DefaultPort  = 4010

	rate44100Flag  = 0x80
	multiplierMask = 0x7f
	baseRate48000  = 48000
	baseRate44100  = 44100
)

var (
	// ErrShortHeader is returned when a packet is too small to carry a header
	ErrShortHeader = errors.New("scream: packet shorter than header")

	// ErrZeroSampleRate is returned for headers with a rate multiplier of 0
	ErrZeroSampleRate = errors.New("scream: sample rate is zero")

	// ErrInvalidBitDepth is returned for headers whose depth is below one byte
	ErrInvalidBitDepth = errors.New("scream: invalid bit depth")

	// ErrUnsupportedSampleRate is returned when a rate has no header encoding
	ErrUnsupportedSampleRate = errors.New("scream: unsupported sample rate")
)

// Header is the decoded format of a packet. Headers are compared by value;
// Raw keeps the reserved bytes so any change on the wire counts as a new format.
type Header struct {
	SampleRate uint32
	BitDepth   uint8
	Channels   uint16
	Raw        [HeaderSize]byte
}

// ParseHeader decodes the first HeaderSize bytes of b. The channel count is
// not read from the wire; channels <= 0 selects DefaultChannels.
func ParseHeader(b []byte, channels int) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: got %d bytes", ErrShortHeader, len(b))
	}
	if channels <= 0 {
		channels = DefaultChannels
	}

	var h Header
	copy(h.Raw[:], b[:HeaderSize])

	multiplier := uint32(b[0] & multiplierMask)
	if b[0]&rate44100Flag == 0 {
		h.SampleRate = baseRate48000 * multiplier
	} else {
		h.SampleRate = baseRate44100 * multiplier
	}
	h.BitDepth = b[1]
	h.Channels = uint16(audio.ClampChannels(channels))

	return h, nil
}

// Validate reports whether a stream can be built for this header
func (h Header) Validate() error {
	if h.SampleRate == 0 {
		return ErrZeroSampleRate
	}
	if h.BytesPerSample() == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBitDepth, h.BitDepth)
	}
	return nil
}

// BytesPerSample returns the size of one channel sample on the wire
func (h Header) BytesPerSample() int {
	return int(h.BitDepth) / 8
}

// FrameSize returns the size of one interleaved frame on the wire
func (h Header) FrameSize() int {
	return int(h.Channels) * h.BytesPerSample()
}

// Format returns the header as an audio.Format
func (h Header) Format() audio.Format {
	return audio.Format{
		SampleRate: int(h.SampleRate),
		Channels:   int(h.Channels),
		BitDepth:   int(h.BitDepth),
	}
}

func (h Header) String() string {
	return fmt.Sprintf("%dHz/%dbit/%dch", h.SampleRate, h.BitDepth, h.Channels)
}

// EncodeHeader builds the wire header for a format. Byte 2 carries the
// channel count and bytes 3-4 the little-endian speaker mask.
func EncodeHeader(sampleRate, bitDepth, channels int) ([HeaderSize]byte, error) {
	var b [HeaderSize]byte

	var base, flag int
	switch {
	case sampleRate > 0 && sampleRate%baseRate48000 == 0:
		base = baseRate48000
	case sampleRate > 0 && sampleRate%baseRate44100 == 0:
		base, flag = baseRate44100, rate44100Flag
	default:
		return b, fmt.Errorf("%w: %d", ErrUnsupportedSampleRate, sampleRate)
	}

	multiplier := sampleRate / base
	if multiplier > multiplierMask {
		return b, fmt.Errorf("%w: %d", ErrUnsupportedSampleRate, sampleRate)
	}
	if bitDepth < 8 || bitDepth > 255 {
		return b, fmt.Errorf("%w: %d", ErrInvalidBitDepth, bitDepth)
	}

	mask := channelMask(channels)
	b[0] = byte(flag | multiplier)
	b[1] = byte(bitDepth)
	b[2] = byte(channels)
	b[3] = byte(mask)
	b[4] = byte(mask >> 8)
	return b, nil
}

// channelMask returns the conventional speaker layout for common channel counts
func channelMask(channels int) uint16 {
	switch channels {
	case 1:
		return 0x0004 // front center
	case 2:
		return 0x0003 // front left, front right
	case 4:
		return 0x0033
	case 6:
		return 0x003f
	case 8:
		return 0x063f
	default:
		return 0
	}
}
