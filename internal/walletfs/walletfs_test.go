package walletfs

import (
	"path/filepath"
	"testing"

	"github.com/empower1ds/solnode/internal/crypto"
)

func TestEnsureWalletGeneratesThenLoadsSameKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallet.txt")

	priv1, err := EnsureWallet(path)
	if err != nil {
		t.Fatalf("EnsureWallet (generate): %v", err)
	}
	if _, err := crypto.PublicKey(priv1); err != nil {
		t.Fatalf("generated wallet key is not a valid private key: %v", err)
	}

	priv2, err := EnsureWallet(path)
	if err != nil {
		t.Fatalf("EnsureWallet (load): %v", err)
	}
	if priv1 != priv2 {
		t.Fatalf("second EnsureWallet call regenerated the key instead of loading it")
	}
}

func TestLoadMissingWalletErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "does-not-exist.txt")); err == nil {
		t.Fatalf("Load succeeded on a missing wallet file")
	}
}

func TestSaveThenLoadTrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallet.txt")
	if err := Save(path, "  abc123==\n"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "abc123==" {
		t.Fatalf("Load() = %q, want %q", got, "abc123==")
	}
}

func TestPickPortReturnsAPortInRange(t *testing.T) {
	port, err := PickPort()
	if err != nil {
		t.Fatalf("PickPort: %v", err)
	}
	if port < defaultPort || port > defaultPort+portSpread {
		t.Fatalf("port %d out of expected range [%d, %d]", port, defaultPort, defaultPort+portSpread)
	}
}
