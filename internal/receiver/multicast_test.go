// ABOUTME: Tests for multicast socket helpers
// ABOUTME: Covers group validation and interface resolution
package receiver

import (
	"net"
	"testing"
	"time"
)

func TestJoinGroupRejectsUnicast(t *testing.T) {
	if _, err := joinGroup("10.0.0.1", 0, ""); err == nil {
		t.Error("expected error for unicast group")
	}
	if _, err := joinGroup("not-an-ip", 0, ""); err == nil {
		t.Error("expected error for invalid group")
	}
}

func TestResolveInterface(t *testing.T) {
	ifi, err := resolveInterface("")
	if err != nil || ifi != nil {
		t.Errorf("expected default interface, got %v, %v", ifi, err)
	}

	if _, err := resolveInterface("no-such-iface0"); err == nil {
		t.Error("expected error for unknown interface")
	}

	if _, err := resolveInterface("192.0.2.123"); err == nil {
		t.Error("expected error for address not on any interface")
	}

	ifi, err = resolveInterface("127.0.0.1")
	if err != nil {
		t.Skipf("loopback address not configured: %v", err)
	}
	if ifi.Flags&net.FlagLoopback == 0 {
		t.Errorf("expected loopback interface, got %s", ifi.Name)
	}
}

func TestLimitedLogger(t *testing.T) {
	now := time.Unix(1000, 0)
	l := newLimitedLogger(5 * time.Second)
	l.now = func() time.Time { return now }

	if !l.Printf("first") {
		t.Error("expected first message to be logged")
	}
	if l.Printf("second") {
		t.Error("expected message within interval to be suppressed")
	}

	now = now.Add(6 * time.Second)
	if !l.Printf("third") {
		t.Error("expected message after interval to be logged")
	}
	if l.suppressed != 0 {
		t.Errorf("expected suppressed count reset, got %d", l.suppressed)
	}

	l.Printf("fourth")
	l.Reset()
	if !l.Printf("fifth") {
		t.Error("expected message after reset to be logged")
	}
}
