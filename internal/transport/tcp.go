package transport

import (
	"fmt"
	"io"
	"log"
	"net"
	"time"
)

// Handler is invoked with the raw bytes of one inbound message. It is
// called from the TCP server's accept loop; handlers that need to mutate
// shared consensus state should enqueue the bytes rather than process them
// inline, to preserve the single-consumer ordering guarantee.
type Handler func(data []byte)

// ServeTCP accepts connections on host:port until stop is closed. Each
// connection carries exactly one message: the server reads to EOF, then
// hands the full buffer to handler. Errors accepting or reading a single
// connection are logged and do not stop the listener.
func ServeTCP(host string, port int, handler Handler, stop <-chan struct{}) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("transport: listen tcp %s: %w", addr, err)
	}
	go func() {
		<-stop
		ln.Close()
	}()

	log.Printf("TRANSPORT: tcp listener up on %s", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-stop:
				return nil
			default:
				log.Printf("TRANSPORT: accept error: %v", err)
				continue
			}
		}
		go func(c net.Conn) {
			defer c.Close()
			data, err := io.ReadAll(c)
			if err != nil {
				log.Printf("TRANSPORT: read error from %s: %v", c.RemoteAddr(), err)
				return
			}
			handler(data)
		}(conn)
	}
}

// dialTimeout bounds how long a single best-effort send may block a
// connecting peer that is unreachable or slow to accept.
const dialTimeout = 3 * time.Second

// Send delivers data to a single peer over a fresh TCP connection, then
// closes it. Delivery is best-effort and at-most-once: any dial or write
// failure is returned to the caller, never retried.
func Send(peer Peer, data []byte) error {
	conn, err := net.DialTimeout("tcp", peer.String(), dialTimeout)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", peer, err)
	}
	defer conn.Close()
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("transport: write to %s: %w", peer, err)
	}
	return nil
}

// Broadcast sends data to every peer in peers, logging (not propagating)
// any individual delivery failure.
func Broadcast(peers []Peer, data []byte) {
	for _, peer := range peers {
		if err := Send(peer, data); err != nil {
			log.Printf("TRANSPORT: broadcast to %s failed: %v", peer, err)
		}
	}
}
