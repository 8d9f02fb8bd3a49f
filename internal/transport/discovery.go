package transport

import (
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LocalIP reports this machine's outbound LAN IP address, the one peers on
// other machines can actually dial: it opens a UDP "connection" to a public
// address (no packet is ever sent) and reads back the local address the
// kernel would route through. Falls back to the loopback address if that
// fails, e.g. on a host with no route to the internet.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}

// DiscoveryPort is the fixed UDP port discovery traffic uses network-wide.
const DiscoveryPort = 9000

// DiscoveryPeriod is how often the broadcaster announces itself.
const DiscoveryPeriod = 5 * time.Second

const discoverMessage = "DISCOVER"

// enableBroadcast turns on SO_BROADCAST for conn's underlying file
// descriptor. net.ListenUDP never exposes this socket option, so sending
// to a broadcast address (e.g. 255.255.255.255) would otherwise fail with
// EACCES; this is the one place solnode drops to a raw syscall.
func enableBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("transport: get raw conn: %w", err)
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	})
	if err != nil {
		return fmt.Errorf("transport: control raw conn: %w", err)
	}
	return sockErr
}

// DiscoveryReply is what a discovery packet's sender reports about itself:
// the advertised peer and whether it currently claims the leader role.
type DiscoveryReply struct {
	Peer     Peer
	IsLeader bool
}

// BroadcastDiscover sends DiscoveryPeriod-spaced DISCOVER packets to the
// IPv4 broadcast address until stop is closed.
func BroadcastDiscover(stop <-chan struct{}) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return fmt.Errorf("transport: open discovery broadcaster socket: %w", err)
	}
	defer conn.Close()
	if err := enableBroadcast(conn); err != nil {
		return err
	}

	broadcastAddr := &net.UDPAddr{IP: net.IPv4bcast, Port: DiscoveryPort}
	ticker := time.NewTicker(DiscoveryPeriod)
	defer ticker.Stop()

	for {
		if _, err := conn.WriteToUDP([]byte(discoverMessage), broadcastAddr); err != nil {
			log.Printf("TRANSPORT: discovery broadcast failed: %v", err)
		}
		select {
		case <-stop:
			return nil
		case <-ticker.C:
		}
	}
}

// ListenDiscovery answers DISCOVER requests on DiscoveryPort with
// "<host>:<port>:<True|False>", and forwards decoded replies from other
// nodes' answers to onReply. It runs until stop is closed.
func ListenDiscovery(selfHost string, selfPort int, isLeader func() bool, onReply func(DiscoveryReply), stop <-chan struct{}) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: DiscoveryPort})
	if err != nil {
		return fmt.Errorf("transport: listen discovery udp: %w", err)
	}
	go func() {
		<-stop
		conn.Close()
	}()

	buf := make([]byte, 1024)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-stop:
				return nil
			default:
				log.Printf("TRANSPORT: discovery read error: %v", err)
				continue
			}
		}
		msg := string(buf[:n])

		if msg == discoverMessage {
			reply := fmt.Sprintf("%s:%d:%s", selfHost, selfPort, boolString(isLeader()))
			if _, err := conn.WriteToUDP([]byte(reply), addr); err != nil {
				log.Printf("TRANSPORT: discovery reply failed: %v", err)
			}
			continue
		}

		reply, ok := parseDiscoveryReply(msg)
		if !ok {
			continue
		}
		if reply.Peer.Host == selfHost && reply.Peer.Port == selfPort {
			continue
		}
		onReply(reply)
	}
}

func boolString(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// parseDiscoveryReply decodes "<host>:<port>:<True|False>".
func parseDiscoveryReply(msg string) (DiscoveryReply, bool) {
	parts := strings.Split(msg, ":")
	if len(parts) != 3 {
		return DiscoveryReply{}, false
	}
	port, err := strconv.Atoi(parts[1])
	if err != nil {
		return DiscoveryReply{}, false
	}
	var isLeader bool
	switch parts[2] {
	case "True":
		isLeader = true
	case "False":
		isLeader = false
	default:
		return DiscoveryReply{}, false
	}
	return DiscoveryReply{Peer: Peer{Host: parts[0], Port: port}, IsLeader: isLeader}, true
}
