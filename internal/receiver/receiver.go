// ABOUTME: Multicast ingestion loop for Scream packets
// ABOUTME: Parses headers, manages the playback session and tears it down on silence
package receiver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/screamsink/screamsink/pkg/audio/output"
	"github.com/screamsink/screamsink/pkg/playback"
	"github.com/screamsink/screamsink/pkg/scream"
)

const (
	// DefaultReadTimeout is the silence interval after which audio stops
	DefaultReadTimeout = time.Second

	// failureLogInterval limits how often repeated session failures are logged
	failureLogInterval = 5 * time.Second
)

// Config holds receiver configuration
type Config struct {
	// Group and Port select the multicast endpoint (default: 239.255.77.77:4010)
	Group string
	Port  int

	// Interface is an interface name or a local address to join on (default: any)
	Interface string

	// ReadTimeout is the silence interval that stops audio (default: 1s)
	ReadTimeout time.Duration

	// Channels is the channel count of the incoming stream (default: 2)
	Channels int

	// Session tunes each playback session
	Session playback.Config

	// Output is the device backend sessions play on
	Output output.Output

	// OnEvent receives playback events (optional)
	OnEvent playback.Observer
}

func (c Config) withDefaults() Config {
	if c.Group == "" {
		c.Group = scream.DefaultGroup
	}
	if c.Port == 0 {
		c.Port = scream.DefaultPort
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.Channels <= 0 {
		c.Channels = scream.DefaultChannels
	}
	return c
}

// Stats is a snapshot of receiver counters
type Stats struct {
	Packets         uint64
	Bytes           uint64
	Malformed       uint64
	Sessions        uint64
	SessionFailures uint64
	Timeouts        uint64
	LastPacket      time.Time

	// Active is false when no session exists; Session is then the zero value
	Active  bool
	Session playback.Stats
}

// Receiver reads Scream packets and plays them. Run must be called from a
// single goroutine; Stats may be called from any goroutine.
type Receiver struct {
	config Config
	conn   net.PacketConn
	buf    []byte

	session   *playback.Session
	current   atomic.Pointer[playback.Session]
	failures  *limitedLogger
	malformed *limitedLogger

	packets         atomic.Uint64
	bytes           atomic.Uint64
	malformedCount  atomic.Uint64
	sessions        atomic.Uint64
	sessionFailures atomic.Uint64
	timeouts        atomic.Uint64
	lastPacket      atomic.Int64
}

// Listen binds the multicast endpoint and joins the group
func Listen(config Config) (*Receiver, error) {
	config = config.withDefaults()
	if config.Output == nil {
		return nil, errors.New("receiver: no output configured")
	}

	conn, err := joinGroup(config.Group, config.Port, config.Interface)
	if err != nil {
		return nil, err
	}

	log.Printf("Listening for Scream audio on %s:%d", config.Group, config.Port)
	return New(conn, config), nil
}

// New creates a receiver reading from an existing connection
func New(conn net.PacketConn, config Config) *Receiver {
	config = config.withDefaults()

	return &Receiver{
		config:    config,
		conn:      conn,
		buf:       make([]byte, scream.MaxPacketSize),
		failures:  newLimitedLogger(failureLogInterval),
		malformed: newLimitedLogger(failureLogInterval),
	}
}

// Addr returns the local address packets are read on
func (r *Receiver) Addr() net.Addr {
	return r.conn.LocalAddr()
}

// Run reads packets until ctx is cancelled. It closes the connection and the
// active session before returning.
func (r *Receiver) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		r.conn.Close()
	})
	defer stop()
	defer r.closeSession("shutdown")

	for {
		if err := r.conn.SetReadDeadline(time.Now().Add(r.config.ReadTimeout)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, _, err := r.conn.ReadFrom(r.buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				r.handleTimeout()
				continue
			}
			return fmt.Errorf("failed to read packet: %w", err)
		}

		r.handlePacket(r.buf[:n])
	}
}

// handlePacket applies one datagram: replace the session on a format change,
// then queue the payload
func (r *Receiver) handlePacket(pkt []byte) {
	r.packets.Add(1)
	r.bytes.Add(uint64(len(pkt)))
	r.lastPacket.Store(time.Now().UnixNano())

	h, err := scream.ParseHeader(pkt, r.config.Channels)
	if err == nil {
		err = h.Validate()
	}
	if err != nil {
		r.malformedCount.Add(1)
		r.malformed.Printf("Dropping packet: %v", err)
		return
	}

	if r.session != nil && r.session.Header() != h {
		log.Printf("Stream format changed: %s -> %s", r.session.Header(), h)
		r.closeSession("format changed")
	}

	if r.session == nil {
		session, err := playback.NewSession(r.config.Output, h, r.config.Session, r.observe)
		if err != nil {
			r.sessionFailures.Add(1)
			r.failures.Printf("Failed to start audio for %s: %v", h, err)
			return
		}
		r.failures.Reset()
		r.session = session
		r.current.Store(session)
		r.sessions.Add(1)
	}

	r.session.PushPacket(pkt[scream.HeaderSize:])
}

func (r *Receiver) handleTimeout() {
	if r.session == nil {
		return
	}
	r.timeouts.Add(1)
	log.Printf("No output, stopping audio.")
	r.closeSession("no output")
}

func (r *Receiver) closeSession(reason string) {
	if r.session == nil {
		return
	}
	if err := r.session.Close(reason); err != nil {
		log.Printf("Error closing audio stream: %v", err)
	}
	r.session = nil
	r.current.Store(nil)
}

// observe logs playback events and forwards them to OnEvent
func (r *Receiver) observe(ev playback.Event) {
	log.Print(ev)
	if r.config.OnEvent != nil {
		r.config.OnEvent(ev)
	}
}

// Stats returns a snapshot of the receiver and active session counters
func (r *Receiver) Stats() Stats {
	stats := Stats{
		Packets:         r.packets.Load(),
		Bytes:           r.bytes.Load(),
		Malformed:       r.malformedCount.Load(),
		Sessions:        r.sessions.Load(),
		SessionFailures: r.sessionFailures.Load(),
		Timeouts:        r.timeouts.Load(),
	}
	if ns := r.lastPacket.Load(); ns != 0 {
		stats.LastPacket = time.Unix(0, ns)
	}
	if session := r.current.Load(); session != nil {
		stats.Active = true
		stats.Session = session.Stats()
	}
	return stats
}
