// ABOUTME: Scream protocol package documentation
// ABOUTME: Describes the multicast PCM wire format handled by this package
// Package scream implements the wire format of the Scream network audio protocol.
//
// Every UDP datagram starts with a 5-byte header:
//
//	byte 0   rate: bit 7 selects the base (0 = 48000 Hz, 1 = 44100 Hz),
//	         bits 0-6 are a multiplier
//	byte 1   bits per sample (16, 24 or 32)
//	byte 2-4 channel count and speaker mask (not decoded)
//
// The payload that follows is interleaved little-endian signed PCM.
// The channel count is supplied by the caller rather than read from the wire.
//
// Example:
//
//	h, err := scream.ParseHeader(packet, 2)
//	if err != nil || h.Validate() != nil {
//	    return
//	}
//	scream.ForEachFrame(h, packet[scream.HeaderSize:], func(f audio.Frame) {
//	    // ...
//	})
package scream
