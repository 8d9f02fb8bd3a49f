package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"

	"github.com/empower1ds/solnode/internal/txn"
)

// GenesisLeaderID is the sentinel leader_id carried by the genesis block.
const GenesisLeaderID = "genesis"

// ZeroHash is the previous_hash of the genesis block: 64 ASCII zeros.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Block is one entry in the append-only chain: a proposed set of
// transactions anchored to the previous block via both its full hash and
// the proof-of-history chain, plus the validator signatures collected over
// its content hash.
type Block struct {
	Index               int64              `json:"index"`
	PreviousHash        string             `json:"previous_hash"`
	Transactions        []txn.Transaction  `json:"transactions"`
	LeaderID            string             `json:"leader_id"`
	PoH                 string             `json:"poh"`
	ValidatorSignatures *SignatureMap      `json:"validator_signatures"`
}

// txsHash is the SHA-256 hex digest of the concatenation of every
// transaction's own hash, in order.
func txsHash(txs []txn.Transaction) string {
	h := sha256.New()
	for _, tx := range txs {
		h.Write([]byte(txn.Hash(tx)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeContentPreimage writes index || previous_hash || leader_id || poh ||
// txs_hash to h: the shared input both ContentHash and FullHash hash over.
func writeContentPreimage(h io.Writer, b Block) {
	h.Write([]byte(strconv.FormatInt(b.Index, 10)))
	h.Write([]byte(b.PreviousHash))
	h.Write([]byte(b.LeaderID))
	h.Write([]byte(b.PoH))
	h.Write([]byte(txsHash(b.Transactions)))
}

// ContentHash is the digest validators sign: it excludes
// ValidatorSignatures so signing a block does not change the value being
// signed.
func ContentHash(b Block) string {
	h := sha256.New()
	writeContentPreimage(h, b)
	return hex.EncodeToString(h.Sum(nil))
}

// FullHash extends the content preimage with the validator-signature map's
// keys, in insertion order, and hashes the whole thing in one pass — it is
// not a hash of ContentHash's digest.
func FullHash(b Block) string {
	h := sha256.New()
	writeContentPreimage(h, b)
	if b.ValidatorSignatures != nil {
		for _, addr := range b.ValidatorSignatures.Keys() {
			h.Write([]byte(addr))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
