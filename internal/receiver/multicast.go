// ABOUTME: Multicast socket setup for the receiver
// ABOUTME: Binds the Scream port and joins the group on the selected interface
package receiver

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// joinGroup binds port on all addresses and joins group on iface
func joinGroup(group string, port int, iface string) (net.PacketConn, error) {
	groupIP := net.ParseIP(group)
	if groupIP == nil || groupIP.To4() == nil || !groupIP.IsMulticast() {
		return nil, fmt.Errorf("invalid multicast group: %q", group)
	}

	ifi, err := resolveInterface(iface)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenPacket("udp4", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to bind port %d: %w", port, err)
	}

	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(ifi, &net.UDPAddr{IP: groupIP}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to join multicast group %s: %w", group, err)
	}
	if err := p.SetMulticastLoopback(true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable multicast loopback: %w", err)
	}

	return conn, nil
}

// resolveInterface accepts an interface name or one of its addresses.
// An empty string selects the system default.
func resolveInterface(name string) (*net.Interface, error) {
	if name == "" {
		return nil, nil
	}

	if ifi, err := net.InterfaceByName(name); err == nil {
		return ifi, nil
	}

	ip := net.ParseIP(name)
	if ip == nil {
		return nil, fmt.Errorf("unknown interface: %q", name)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.Equal(ip) {
				return &ifaces[i], nil
			}
		}
	}
	return nil, fmt.Errorf("no interface has address %s", ip)
}
