package transport

import (
	"net"
	"testing"
)

func TestPeerString(t *testing.T) {
	p := Peer{Host: "10.0.0.5", Port: 9001}
	if p.String() != "10.0.0.5:9001" {
		t.Fatalf("Peer.String() = %s, want 10.0.0.5:9001", p.String())
	}
}

func TestPeerSetAddRemoveContains(t *testing.T) {
	s := NewPeerSet()
	p := Peer{Host: "127.0.0.1", Port: 9001}
	if s.Contains(p) {
		t.Fatalf("new PeerSet already contains a peer")
	}
	if !s.Add(p) {
		t.Fatalf("Add reported peer already present on first insert")
	}
	if s.Add(p) {
		t.Fatalf("Add reported success on duplicate insert")
	}
	if !s.Contains(p) {
		t.Fatalf("Contains false after Add")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	s.Remove(p)
	if s.Contains(p) {
		t.Fatalf("Contains true after Remove")
	}
}

func TestValidatorSetAddRemove(t *testing.T) {
	s := NewValidatorSet()
	s.Add("127.0.0.1:9001")
	s.Add("127.0.0.1:9002")
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	s.Remove("127.0.0.1:9001")
	remaining := s.ToSlice()
	if len(remaining) != 1 || remaining[0] != "127.0.0.1:9002" {
		t.Fatalf("unexpected remaining validators: %v", remaining)
	}
}

func TestParseDiscoveryReply(t *testing.T) {
	cases := []struct {
		msg      string
		wantOK   bool
		wantPeer Peer
		wantLdr  bool
	}{
		{"192.168.1.5:9001:True", true, Peer{Host: "192.168.1.5", Port: 9001}, true},
		{"192.168.1.5:9001:False", true, Peer{Host: "192.168.1.5", Port: 9001}, false},
		{"DISCOVER", false, Peer{}, false},
		{"not:enough", false, Peer{}, false},
		{"host:notaport:True", false, Peer{}, false},
		{"host:9001:Maybe", false, Peer{}, false},
	}
	for _, c := range cases {
		reply, ok := parseDiscoveryReply(c.msg)
		if ok != c.wantOK {
			t.Fatalf("parseDiscoveryReply(%q) ok = %v, want %v", c.msg, ok, c.wantOK)
		}
		if !ok {
			continue
		}
		if reply.Peer != c.wantPeer || reply.IsLeader != c.wantLdr {
			t.Fatalf("parseDiscoveryReply(%q) = %+v, want peer %+v leader %v", c.msg, reply, c.wantPeer, c.wantLdr)
		}
	}
}

func TestLocalIPReturnsAParseableAddress(t *testing.T) {
	ip := LocalIP()
	if net.ParseIP(ip) == nil {
		t.Fatalf("LocalIP() = %q, not a parseable IP", ip)
	}
}

func TestBoolString(t *testing.T) {
	if boolString(true) != "True" {
		t.Fatalf("boolString(true) = %s, want True", boolString(true))
	}
	if boolString(false) != "False" {
		t.Fatalf("boolString(false) = %s, want False", boolString(false))
	}
}
