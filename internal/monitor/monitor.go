// ABOUTME: HTTP and WebSocket status endpoint for the receiver
// ABOUTME: Streams periodic stats snapshots and playback events as JSON
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/screamsink/screamsink/internal/receiver"
	"github.com/screamsink/screamsink/pkg/playback"
)

const (
	// DefaultInterval is how often status snapshots are pushed
	DefaultInterval = time.Second

	writeDeadline  = 10 * time.Second
	pingInterval   = 30 * time.Second
	clientQueueLen = 32
)

// Config holds monitor configuration
type Config struct {
	// Addr is the listen address, e.g. ":8090"
	Addr string

	// Interval between status pushes (default: 1s)
	Interval time.Duration

	// Stats returns the current receiver snapshot
	Stats func() receiver.Stats
}

// Server serves /status and /ws
type Server struct {
	config   Config
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	clients   map[*client]struct{}
	clientsMu sync.RWMutex
	wg        sync.WaitGroup
}

type client struct {
	conn     *websocket.Conn
	sendChan chan Message
}

// New creates a monitor server
func New(config Config) *Server {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Stats == nil {
		config.Stats = func() receiver.Stats { return receiver.Stats{} }
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Read-only status on a trusted LAN
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}

	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run listens on Addr and pushes status until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{Handler: s.mux}
	log.Printf("Status monitor listening on %s", ln.Addr())

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	var serveErr error
loop:
	for {
		select {
		case <-ticker.C:
			s.BroadcastStatus()
		case err := <-errChan:
			serveErr = err
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Status monitor shutdown error: %v", err)
	}

	// Hijacked websocket connections are not closed by Shutdown
	s.closeClients()
	s.wg.Wait()

	if serveErr != nil {
		return fmt.Errorf("status monitor failed: %w", serveErr)
	}
	return nil
}

// Publish sends a playback event to every connected client
func (s *Server) Publish(ev playback.Event) {
	s.broadcast(newEventMessage(ev, time.Now()))
}

// BroadcastStatus sends the current snapshot to every connected client
func (s *Server) BroadcastStatus() {
	s.broadcast(newStatusMessage(s.config.Stats(), time.Now()))
}

// Clients returns the number of connected websocket clients
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) broadcast(msg Message) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for c := range s.clients {
		select {
		case c.sendChan <- msg:
		default:
			// Slow client, drop the message
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(newStatus(s.config.Stats())); err != nil {
		log.Printf("Error writing status: %v", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	c := &client{
		conn:     conn,
		sendChan: make(chan Message, clientQueueLen),
	}
	c.sendChan <- newStatusMessage(s.config.Stats(), time.Now())

	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	s.clientsMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(c)
	}()

	// Clients only listen; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}

	s.removeClient(c)
}

func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.sendChan)
	}
}

func (s *Server) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for c := range s.clients {
		delete(s.clients, c)
		close(c.sendChan)
	}
}

// clientWriter sends queued messages to one client
func (s *Server) clientWriter(c *client) {
	defer c.conn.Close()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("Error writing status message: %v", err)
				s.removeClient(c)
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				s.removeClient(c)
				return
			}
		}
	}
}
