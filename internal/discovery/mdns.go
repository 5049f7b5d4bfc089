// ABOUTME: mDNS service discovery for Scream sinks
// ABOUTME: Advertises this receiver and lets senders browse for receivers on the LAN
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/mdns"
	"github.com/screamsink/screamsink/internal/version"
)

// ServiceType is the mDNS service a Scream sink advertises
const ServiceType = "_scream._udp"

// Config holds discovery configuration
type Config struct {
	// InstanceName is the human readable sink name
	InstanceName string

	// Group and Port are the multicast endpoint the sink listens on
	Group string
	Port  int

	// ID identifies the sink across restarts (default: random UUID)
	ID string
}

// Manager handles mDNS operations
type Manager struct {
	config Config
	ctx    context.Context
	cancel context.CancelFunc
}

// SinkInfo describes a discovered sink
type SinkInfo struct {
	Name    string
	Host    string
	Group   string
	Port    int
	ID      string
	Version string
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.ID == "" {
		config.ID = uuid.New().String()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the advertised sink id
func (m *Manager) ID() string {
	return m.config.ID
}

// Advertise advertises this sink via mDNS until Stop is called
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.InstanceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		txtRecords(m.config),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s (type: %s, group %s:%d)",
		m.config.InstanceName, ServiceType, m.config.Group, m.config.Port)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Stop stops advertising
func (m *Manager) Stop() {
	m.cancel()
}

// Browse queries the network for sinks for the given duration
func Browse(ctx context.Context, timeout time.Duration) ([]SinkInfo, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan []SinkInfo, 1)

	go func() {
		seen := make(map[string]bool)
		var sinks []SinkInfo
		for entry := range entries {
			if !strings.Contains(entry.Name, ServiceType) {
				continue
			}
			sink := sinkFromEntry(entry)
			key := sink.ID
			if key == "" {
				key = entry.Name
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			sinks = append(sinks, sink)
		}
		done <- sinks
	}()

	params := &mdns.QueryParam{
		Service: ServiceType,
		Domain:  "local",
		Timeout: timeout,
		Entries: entries,
	}

	err := mdns.QueryContext(ctx, params)
	close(entries)
	sinks := <-done

	if err != nil && ctx.Err() == nil {
		return sinks, fmt.Errorf("mdns query failed: %w", err)
	}
	return sinks, nil
}

func txtRecords(config Config) []string {
	return []string{
		"group=" + config.Group,
		"port=" + strconv.Itoa(config.Port),
		"id=" + config.ID,
		"version=" + version.Version,
	}
}

func parseTXT(fields []string) map[string]string {
	values := make(map[string]string, len(fields))
	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		values[key] = value
	}
	return values
}

func sinkFromEntry(entry *mdns.ServiceEntry) SinkInfo {
	txt := parseTXT(entry.InfoFields)

	sink := SinkInfo{
		Name:    instanceName(entry.Name),
		Port:    entry.Port,
		Group:   txt["group"],
		ID:      txt["id"],
		Version: txt["version"],
	}
	if entry.AddrV4 != nil {
		sink.Host = entry.AddrV4.String()
	} else if entry.AddrV6 != nil {
		sink.Host = entry.AddrV6.String()
	}
	if port, err := strconv.Atoi(txt["port"]); err == nil {
		sink.Port = port
	}
	return sink
}

// instanceName strips the service and domain from a full entry name
func instanceName(name string) string {
	if i := strings.Index(name, "."+ServiceType); i > 0 {
		name = name[:i]
	}
	return strings.ReplaceAll(name, `\ `, " ")
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
