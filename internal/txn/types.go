// Package txn implements the transaction model: instructions, account
// metadata, canonical hashing and multi-signature containers described by
// the node's data model.
package txn

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/empower1ds/solnode/internal/crypto"
)

// SystemProgramID is the only program_id the node's transaction-application
// logic recognizes.
const SystemProgramID = "SystemProgram"

// AccountMeta describes one account referenced by an Instruction.
type AccountMeta struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

// Instruction is one opaque program call within a Transaction. The only
// program_id the chain engine understands is SystemProgramID; its Data is a
// strictly-decoded JSON object, never an evaluated expression.
type Instruction struct {
	ProgramID string        `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      string        `json:"data"`
}

// Transaction is an ordered list of instructions anchored to a recent
// blockhash, plus a set of signatures keyed by base64 public key.
type Transaction struct {
	Instructions    []Instruction     `json:"instructions"`
	RecentBlockhash string            `json:"recent_blockhash"`
	Signatures      map[string]string `json:"signatures"`
}

// SystemProgramData is the strict decode target for a SystemProgram
// instruction's Data field. Extra fields are ignored; this is deliberately
// not an expression evaluator (see ErrUnsupportedSystem for why the
// source's use of eval() was replaced).
type SystemProgramData struct {
	Type   string `json:"type"`
	Amount uint64 `json:"amount"`
}

// DecodeSystemProgramData strictly JSON-decodes instr.Data. Non-JSON input,
// and any JSON value other than an object, returns an error; a well-formed
// JSON object with missing fields decodes with those fields zero-valued
// rather than erroring, matching the reference implementation's own
// handling. Callers in package chain treat a decode error as a no-op
// instruction rather than a crash.
func DecodeSystemProgramData(data string) (SystemProgramData, error) {
	var object map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &object); err != nil {
		return SystemProgramData{}, fmt.Errorf("%w: %v", ErrUnsupportedSystem, err)
	}
	if object == nil {
		return SystemProgramData{}, fmt.Errorf("%w: not a JSON object", ErrUnsupportedSystem)
	}
	var payload SystemProgramData
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return SystemProgramData{}, fmt.Errorf("%w: %v", ErrUnsupportedSystem, err)
	}
	return payload, nil
}

// canonicalValue builds the JSON-marshalable representation of tx used for
// hashing. Go's encoding/json sorts map[string]any keys lexicographically on
// marshal, which gives the same canonical, sorted-key ordering the original
// protocol produced with Python's json.dumps(sort_keys=True).
func (tx Transaction) canonicalValue(includeSignatures bool) map[string]any {
	instructions := make([]any, len(tx.Instructions))
	for i, instr := range tx.Instructions {
		accounts := make([]any, len(instr.Accounts))
		for j, acc := range instr.Accounts {
			accounts[j] = map[string]any{
				"pubkey":      acc.Pubkey,
				"is_signer":   acc.IsSigner,
				"is_writable": acc.IsWritable,
			}
		}
		instructions[i] = map[string]any{
			"program_id": instr.ProgramID,
			"accounts":   accounts,
			"data":       instr.Data,
		}
	}
	value := map[string]any{
		"instructions":     instructions,
		"recent_blockhash": tx.RecentBlockhash,
	}
	if includeSignatures {
		sigs := make(map[string]any, len(tx.Signatures))
		for k, v := range tx.Signatures {
			sigs[k] = v
		}
		value["signatures"] = sigs
	}
	return value
}

// Hash is the SHA-256 hex digest of tx's canonical JSON serialization,
// excluding the signatures field. It is stable under reordering of
// tx.Signatures, since signatures never participate in it.
func Hash(tx Transaction) string {
	value := tx.canonicalValue(false)
	encoded, err := json.Marshal(value)
	if err != nil {
		// value is built entirely from strings, bools and slices/maps of
		// those; it cannot fail to marshal.
		panic("txn: canonical transaction value failed to marshal: " + err.Error())
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// Sign computes tx's hash, signs its ASCII bytes with privB64, and records
// the resulting signature under the corresponding base64 public key.
func Sign(tx *Transaction, privB64 string) error {
	pubB64, err := crypto.PublicKey(privB64)
	if err != nil {
		return err
	}
	digestHex := Hash(*tx)
	sigB64, err := crypto.Sign(privB64, []byte(digestHex))
	if err != nil {
		return err
	}
	if tx.Signatures == nil {
		tx.Signatures = make(map[string]string)
	}
	tx.Signatures[pubB64] = sigB64
	return nil
}

// Verify reports whether every signature in tx.Signatures verifies against
// tx's hash under its mapped public key. An empty signature map verifies
// trivially; acceptance policy is the caller's responsibility.
func Verify(tx Transaction) bool {
	digestHex := Hash(tx)
	for pubB64, sigB64 := range tx.Signatures {
		if !crypto.Verify(pubB64, []byte(digestHex), sigB64) {
			return false
		}
	}
	return true
}

// NewTransfer builds an unsigned single-instruction SystemProgram transfer
// transaction, the shape the node's transaction-submission entry points
// construct before signing and broadcasting.
func NewTransfer(fromAddress, toAddress string, amount uint64, recentBlockhash string) (Transaction, error) {
	data, err := json.Marshal(SystemProgramData{Type: "transfer", Amount: amount})
	if err != nil {
		return Transaction{}, err
	}
	instr := Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{Pubkey: fromAddress, IsSigner: true, IsWritable: true},
			{Pubkey: toAddress, IsSigner: false, IsWritable: true},
		},
		Data: string(data),
	}
	return Transaction{
		Instructions:    []Instruction{instr},
		RecentBlockhash: recentBlockhash,
		Signatures:      make(map[string]string),
	}, nil
}
