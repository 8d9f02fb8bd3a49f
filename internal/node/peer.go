package node

import (
	"strconv"
	"strings"

	"github.com/empower1ds/solnode/internal/transport"
)

// parsePeer parses a "host:port" string, as produced by transport.Peer's
// String method and used as the key space for coordinator election and
// validator-set membership.
func parsePeer(hostPort string) (transport.Peer, bool) {
	idx := strings.LastIndex(hostPort, ":")
	if idx < 0 {
		return transport.Peer{}, false
	}
	port, err := strconv.Atoi(hostPort[idx+1:])
	if err != nil {
		return transport.Peer{}, false
	}
	return transport.Peer{Host: hostPort[:idx], Port: port}, true
}
