// Package crypto wraps the SECP256k1 primitives solnode uses for wallet
// keypairs, transaction signatures and block signatures. It treats every
// key and signature as the base64 encoding of raw curve bytes, matching the
// wire contract described by the node's message codec.
package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Errors returned by the package. Verify never returns one of these; it
// reports failure by returning false.
var (
	ErrInvalidPrivateKey = errors.New("crypto: invalid private key encoding")
	ErrInvalidPublicKey  = errors.New("crypto: invalid public key encoding")
)

const uncompressedPrefix = 0x04

// GenerateKeypair produces a new SECP256k1 keypair. Both halves are base64
// encodings of raw curve-point bytes: 32 bytes for the private scalar, 64
// bytes (X||Y, no point-format prefix) for the public key.
func GenerateKeypair() (privB64, pubB64 string, err error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return "", "", fmt.Errorf("crypto: generate keypair: %w", err)
	}
	privB64 = base64.StdEncoding.EncodeToString(priv.Serialize())
	pubB64 = base64.StdEncoding.EncodeToString(rawPubKey(priv.PubKey()))
	return privB64, pubB64, nil
}

// PublicKey derives the base64 public key for a base64-encoded private key.
func PublicKey(privB64 string) (string, error) {
	priv, err := decodePrivate(privB64)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(rawPubKey(priv.PubKey())), nil
}

// Address returns the 64-character lowercase hex address for a base64
// public key: the SHA-256 hex digest of the decoded public key bytes.
func Address(pubB64 string) (string, error) {
	pubBytes, err := base64.StdEncoding.DecodeString(pubB64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	sum := sha256.Sum256(pubBytes)
	return hex.EncodeToString(sum[:]), nil
}

// Sign signs message under the given base64 private key, returning a base64
// DER signature. The message is hashed with SHA-256 before signing, since
// the underlying ECDSA primitive operates on a fixed-size digest rather than
// an arbitrary-length message.
func Sign(privB64 string, message []byte) (string, error) {
	priv, err := decodePrivate(privB64)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(message)
	sig := ecdsa.Sign(priv, digest[:])
	return base64.StdEncoding.EncodeToString(sig.Serialize()), nil
}

// Verify reports whether sigB64 is a valid signature over message under the
// base64 public key pubB64. Any malformed input (bad base64, bad key, bad
// signature encoding) yields false rather than an error.
func Verify(pubB64 string, message []byte, sigB64 string) bool {
	pub, err := decodePublic(pubB64)
	if err != nil {
		return false
	}
	sigBytes, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(message)
	return sig.Verify(digest[:], pub)
}

func rawPubKey(pub *secp256k1.PublicKey) []byte {
	// SerializeUncompressed is 0x04 || X || Y; strip the point-format byte
	// to keep the wire format a bare 64-byte curve point.
	return pub.SerializeUncompressed()[1:]
}

func decodePrivate(privB64 string) (*secp256k1.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(privB64)
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidPrivateKey
	}
	return secp256k1.PrivKeyFromBytes(raw), nil
}

func decodePublic(pubB64 string) (*secp256k1.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(pubB64)
	if err != nil || len(raw) != 64 {
		return nil, ErrInvalidPublicKey
	}
	withPrefix := make([]byte, 0, 65)
	withPrefix = append(withPrefix, uncompressedPrefix)
	withPrefix = append(withPrefix, raw...)
	return secp256k1.ParsePubKey(withPrefix)
}
