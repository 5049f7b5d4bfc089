// ABOUTME: Scream packet encoder for the test sender
// ABOUTME: Prefixes interleaved little-endian PCM with the format header
package sender

import (
	"encoding/binary"
	"fmt"

	"github.com/screamsink/screamsink/pkg/audio"
	"github.com/screamsink/screamsink/pkg/scream"
)

// Packetizer turns 24-bit range samples into Scream packets
type Packetizer struct {
	header          [scream.HeaderSize]byte
	bitDepth        int
	channels        int
	framesPerPacket int
	buf             []byte
}

// NewPacketizer creates a packetizer for a stream format
func NewPacketizer(sampleRate, bitDepth, channels int) (*Packetizer, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24, 32)", bitDepth)
	}
	if channels < 1 || channels > audio.MaxChannels {
		return nil, fmt.Errorf("unsupported channel count: %d", channels)
	}

	header, err := scream.EncodeHeader(sampleRate, bitDepth, channels)
	if err != nil {
		return nil, err
	}

	frameSize := channels * bitDepth / 8
	return &Packetizer{
		header:          header,
		bitDepth:        bitDepth,
		channels:        channels,
		framesPerPacket: scream.MaxPayloadSize / frameSize,
		buf:             make([]byte, scream.MaxPacketSize),
	}, nil
}

// FramesPerPacket is the number of whole frames that fit one packet
func (p *Packetizer) FramesPerPacket() int {
	return p.framesPerPacket
}

// Pack encodes whole frames of samples into one packet. The returned slice is
// reused by the next call.
func (p *Packetizer) Pack(samples []int32) []byte {
	frames := len(samples) / p.channels
	if frames > p.framesPerPacket {
		frames = p.framesPerPacket
	}

	copy(p.buf, p.header[:])
	off := scream.HeaderSize
	for _, s := range samples[:frames*p.channels] {
		switch p.bitDepth {
		case 16:
			binary.LittleEndian.PutUint16(p.buf[off:], uint16(audio.SampleToInt16(s)))
			off += 2
		case 24:
			b := audio.SampleTo24Bit(s)
			copy(p.buf[off:], b[:])
			off += 3
		case 32:
			binary.LittleEndian.PutUint32(p.buf[off:], uint32(s<<8))
			off += 4
		}
	}
	return p.buf[:off]
}
