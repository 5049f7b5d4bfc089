// ABOUTME: Real-time Scream multicast sender
// ABOUTME: Paces packets from a source onto the wire at the source sample rate
package sender

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/screamsink/screamsink/pkg/scream"
	"golang.org/x/net/ipv4"
)

const (
	// DefaultTickInterval is how often the pacing loop wakes up
	DefaultTickInterval = 5 * time.Millisecond

	// DefaultLead is how far ahead of real time the sender runs
	DefaultLead = 20 * time.Millisecond

	fallbackSampleRate = 48000
)

// Config holds sender configuration
type Config struct {
	// Group and Port select the destination (default: 239.255.77.77:4010)
	Group string
	Port  int

	// Interface is the outgoing interface name (default: system choice)
	Interface string

	// TTL is the multicast hop limit (default: 1)
	TTL int

	// BitDepth of the encoded stream: 16, 24 or 32 (default: 16)
	BitDepth int

	// SampleRate converts the source to this rate (default: the source rate,
	// or 48000 when the source rate has no header encoding)
	SampleRate int

	// TickInterval and Lead tune pacing
	TickInterval time.Duration
	Lead         time.Duration

	// Source provides the audio
	Source Source
}

func (c Config) withDefaults() Config {
	if c.Group == "" {
		c.Group = scream.DefaultGroup
	}
	if c.Port == 0 {
		c.Port = scream.DefaultPort
	}
	if c.TTL <= 0 {
		c.TTL = 1
	}
	if c.BitDepth == 0 {
		c.BitDepth = 16
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.Lead <= 0 {
		c.Lead = DefaultLead
	}
	return c
}

// Stats are sender counters
type Stats struct {
	Packets uint64
	Frames  uint64
	Bytes   uint64
}

// Sender streams one source as Scream packets
type Sender struct {
	config     Config
	conn       net.PacketConn
	dst        net.Addr
	packetizer *Packetizer
	samples    []int32

	packets atomic.Uint64
	frames  atomic.Uint64
	bytes   atomic.Uint64
}

// Dial opens a multicast socket for config.Group
func Dial(config Config) (*Sender, error) {
	config = config.withDefaults()

	groupIP := net.ParseIP(config.Group)
	if groupIP == nil || groupIP.To4() == nil {
		return nil, fmt.Errorf("invalid group address: %q", config.Group)
	}

	conn, err := net.ListenPacket("udp4", "0.0.0.0:0")
	if err != nil {
		return nil, fmt.Errorf("failed to open socket: %w", err)
	}

	if groupIP.IsMulticast() {
		p := ipv4.NewPacketConn(conn)
		if err := p.SetMulticastTTL(config.TTL); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set multicast TTL: %w", err)
		}
		if err := p.SetMulticastLoopback(true); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable multicast loopback: %w", err)
		}
		if config.Interface != "" {
			ifi, err := net.InterfaceByName(config.Interface)
			if err != nil {
				conn.Close()
				return nil, fmt.Errorf("unknown interface %q: %w", config.Interface, err)
			}
			if err := p.SetMulticastInterface(ifi); err != nil {
				conn.Close()
				return nil, fmt.Errorf("failed to select interface %s: %w", ifi.Name, err)
			}
		}
	}

	s, err := New(conn, &net.UDPAddr{IP: groupIP, Port: config.Port}, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// New creates a sender writing to dst over an existing connection
func New(conn net.PacketConn, dst net.Addr, config Config) (*Sender, error) {
	config = config.withDefaults()
	if config.Source == nil {
		return nil, errors.New("sender: no source configured")
	}

	rate := config.SampleRate
	if rate == 0 {
		rate = config.Source.SampleRate()
		if _, err := scream.EncodeHeader(rate, config.BitDepth, config.Source.Channels()); errors.Is(err, scream.ErrUnsupportedSampleRate) {
			log.Printf("Source rate %dHz cannot be sent, resampling to %dHz", rate, fallbackSampleRate)
			rate = fallbackSampleRate
		}
	}
	if rate != config.Source.SampleRate() {
		config.Source = NewResampledSource(config.Source, rate)
	}

	packetizer, err := NewPacketizer(config.Source.SampleRate(), config.BitDepth, config.Source.Channels())
	if err != nil {
		return nil, fmt.Errorf("cannot encode %s: %w", config.Source.Title(), err)
	}

	return &Sender{
		config:     config,
		conn:       conn,
		dst:        dst,
		packetizer: packetizer,
		samples:    make([]int32, packetizer.FramesPerPacket()*config.Source.Channels()),
	}, nil
}

// Run sends packets until ctx is cancelled or the source fails. The
// connection is closed on return.
func (s *Sender) Run(ctx context.Context) error {
	defer s.conn.Close()

	rate := float64(s.config.Source.SampleRate())
	lead := int64(s.config.Lead.Seconds() * rate)
	perPacket := int64(s.packetizer.FramesPerPacket())

	log.Printf("Sending %s to %s (%dHz, %d-bit, %d channels, %d frames per packet)",
		s.config.Source.Title(), s.dst, s.config.Source.SampleRate(), s.config.BitDepth,
		s.config.Source.Channels(), perPacket)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	start := time.Now()
	var sent int64

	for {
		due := int64(time.Since(start).Seconds()*rate) + lead
		for sent+perPacket <= due {
			n, err := s.sendPacket()
			if err != nil {
				return err
			}
			sent += int64(n)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// sendPacket reads one packet worth of frames and writes it
func (s *Sender) sendPacket() (int, error) {
	n, err := s.config.Source.Read(s.samples)
	if err != nil {
		return 0, fmt.Errorf("failed to read audio: %w", err)
	}
	if n < s.config.Source.Channels() {
		return 0, errors.New("audio source returned no samples")
	}

	pkt := s.packetizer.Pack(s.samples[:n])
	if _, err := s.conn.WriteTo(pkt, s.dst); err != nil {
		return 0, fmt.Errorf("failed to send packet: %w", err)
	}

	frames := n / s.config.Source.Channels()
	s.packets.Add(1)
	s.frames.Add(uint64(frames))
	s.bytes.Add(uint64(len(pkt)))
	return frames, nil
}

// Stats returns a snapshot of the sender counters
func (s *Sender) Stats() Stats {
	return Stats{
		Packets: s.packets.Load(),
		Frames:  s.frames.Load(),
		Bytes:   s.bytes.Load(),
	}
}
