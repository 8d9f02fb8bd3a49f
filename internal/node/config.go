package node

import "github.com/empower1ds/solnode/internal/consensus"

// Config is everything New needs to construct a Node. Wallet loading,
// config-file parsing and port selection are the caller's (cmd/solnoded's)
// responsibility; Config takes already-resolved values.
type Config struct {
	// Host is this node's externally reachable address, advertised to
	// peers via discovery and embedded in share_block/disconnect payloads.
	Host string
	// Port is this node's TCP listen port.
	Port int
	// Role is LEADER or USER.
	Role consensus.Role
	// PrivateKeyB64 is this node's base64 SECP256k1 private key.
	PrivateKeyB64 string
}
