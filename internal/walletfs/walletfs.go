// Package walletfs implements wallet-file persistence and port selection,
// the two startup-time collaborators the core node treats as external: a
// single file holding the base64 private key as plain text, and a helper
// that finds a free local TCP port the way the reference CLI did.
package walletfs

import (
	"fmt"
	"math/rand"
	"net"
	"os"
	"strings"

	"github.com/empower1ds/solnode/internal/crypto"
)

// Load reads the base64 private key stored in filename. A missing wallet
// file is a lifecycle failure the caller should treat as fatal.
func Load(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("walletfs: load %s: %w", filename, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes privKeyB64 to filename as plain text, overwriting any
// existing content.
func Save(filename, privKeyB64 string) error {
	if err := os.WriteFile(filename, []byte(privKeyB64), 0o600); err != nil {
		return fmt.Errorf("walletfs: save %s: %w", filename, err)
	}
	return nil
}

// EnsureWallet loads the wallet at filename, generating and persisting a
// fresh keypair first if the file does not already exist.
func EnsureWallet(filename string) (privKeyB64 string, err error) {
	if _, statErr := os.Stat(filename); os.IsNotExist(statErr) {
		priv, _, genErr := crypto.GenerateKeypair()
		if genErr != nil {
			return "", fmt.Errorf("walletfs: generate wallet: %w", genErr)
		}
		if err := Save(filename, priv); err != nil {
			return "", err
		}
		return priv, nil
	}
	return Load(filename)
}

// defaultPort and maxPortAttempts mirror the reference CLI's port-picking
// policy: a random offset from a base port, retried a bounded number of
// times against an actual bind-and-close probe.
const (
	defaultPort     = 5000
	portSpread      = 1000
	maxPortAttempts = 100
)

// PickPort finds a free local TCP port near defaultPort by actually
// binding and releasing a probe listener, the same approach the original
// CLI used to avoid colliding with another local node.
func PickPort() (int, error) {
	for i := 0; i < maxPortAttempts; i++ {
		port := defaultPort + rand.Intn(portSpread+1)
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("walletfs: failed to select a free port after %d attempts", maxPortAttempts)
}
