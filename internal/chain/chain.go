// Package chain implements the append-only block ledger: genesis
// construction, proof-of-history advancement, transaction application over
// account balances, and longest-chain replacement during sync.
package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/empower1ds/solnode/internal/txn"
)

// BlockReward is credited to a block's leader once the block is applied.
const BlockReward = 10

var (
	// ErrNotLonger is returned by TryToUpdateChain when the candidate is no
	// longer than the local chain.
	ErrNotLonger = errors.New("chain: candidate chain is not longer than local chain")
	// ErrReplayFailed is returned by TryToUpdateChain when strict replay
	// validation rejects a block in the candidate chain.
	ErrReplayFailed = errors.New("chain: candidate chain failed replay validation")
)

// Account is the ledger entry for one address.
type Account struct {
	Balance *uint256.Int `json:"balance"`
}

// Chain owns the append-only block list, the pending-transaction pool, the
// account ledger and the PoH tip. All mutation happens through its
// exported methods, which take the internal lock; this mirrors how the
// node orchestrator's single message-queue consumer is the only writer in
// practice, while still being safe if called from elsewhere (CLI
// inspection, tests).
type Chain struct {
	mu       sync.RWMutex
	blocks   []Block
	accounts map[string]*Account
	pending  []txn.Transaction
	lastPoH  string
}

// GenesisPoH is the proof-of-history seed every chain starts from.
func GenesisPoH() string {
	sum := sha256.Sum256([]byte("genesis"))
	return hex.EncodeToString(sum[:])
}

// NewChain constructs a chain containing only the genesis block. Genesis is
// identical across every freshly constructed chain: fixed index, zero
// previous_hash, the "genesis" leader_id, GenesisPoH, no transactions and
// no validator signatures.
func NewChain() *Chain {
	genesis := Block{
		Index:               0,
		PreviousHash:        ZeroHash,
		Transactions:        nil,
		LeaderID:            GenesisLeaderID,
		PoH:                 GenesisPoH(),
		ValidatorSignatures: NewSignatureMap(),
	}
	return &Chain{
		blocks:   []Block{genesis},
		accounts: make(map[string]*Account),
		lastPoH:  genesis.PoH,
	}
}

// AddTransaction appends tx to the pending pool. No validation is performed
// at this layer; acceptance policy belongs to the consensus stage gate.
func (c *Chain) AddTransaction(tx txn.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, tx)
}

// Pending returns a copy of the current pending-transaction pool.
func (c *Chain) Pending() []txn.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]txn.Transaction, len(c.pending))
	copy(out, c.pending)
	return out
}

// CurrentHeight returns the number of blocks in the chain, genesis included.
func (c *Chain) CurrentHeight() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// LastBlock returns a copy of the chain tip.
func (c *Chain) LastBlock() Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

// Blocks returns a copy of the full block list, in order.
func (c *Chain) Blocks() []Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Balance reports address's current balance, or zero if it has never
// appeared in the ledger.
func (c *Chain) Balance(address string) *uint256.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	acct, ok := c.accounts[address]
	if !ok {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(acct.Balance)
}

// ProduceBlock constructs a candidate block naming leaderID as proposer. The
// candidate peeks the next PoH value without consuming it: last_poh only
// advances once the block is actually applied via AddExternalBlock. The
// candidate does not mutate chain state.
func (c *Chain) ProduceBlock(leaderID string) Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	last := c.blocks[len(c.blocks)-1]
	return Block{
		Index:               int64(len(c.blocks)),
		PreviousHash:        FullHash(last),
		Transactions:        append([]txn.Transaction(nil), c.pending...),
		LeaderID:            leaderID,
		PoH:                 nextPoH(c.lastPoH),
		ValidatorSignatures: NewSignatureMap(),
	}
}

// ValidateBlock reports whether block legally extends the current chain
// tip: its previous_hash must equal the tip's full hash, and its poh must
// equal SHA-256(last_poh). Signature-threshold checks belong to the
// consensus layer, not here.
func (c *Chain) ValidateBlock(block Block) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.validateBlockLocked(block)
}

func (c *Chain) validateBlockLocked(block Block) bool {
	last := c.blocks[len(c.blocks)-1]
	return block.PreviousHash == FullHash(last) && block.PoH == nextPoH(c.lastPoH)
}

// AddExternalBlock validates block against the current tip and, if valid,
// advances the PoH chain, applies every transaction, appends the block,
// clears the pending pool and credits BlockReward to block.LeaderID. The
// reward is credited after transaction application so a leader cannot
// spend it within the same block.
func (c *Chain) AddExternalBlock(block Block) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.validateBlockLocked(block) {
		return false
	}
	c.lastPoH = block.PoH
	for _, tx := range block.Transactions {
		c.applyTransactionLocked(tx)
	}
	c.blocks = append(c.blocks, block)
	c.pending = nil
	c.creditLocked(block.LeaderID, BlockReward)
	return true
}

// applyTransactionLocked applies every SystemProgram transfer instruction in
// tx to the account ledger. A malformed or unrecognized instruction, or one
// naming insufficient sender funds, is silently skipped: this mirrors the
// source protocol's no-op-on-failure semantics, not a bug.
func (c *Chain) applyTransactionLocked(tx txn.Transaction) {
	for _, instr := range tx.Instructions {
		if instr.ProgramID != txn.SystemProgramID {
			continue
		}
		if len(instr.Accounts) < 2 {
			continue
		}
		payload, err := txn.DecodeSystemProgramData(instr.Data)
		if err != nil {
			continue
		}
		sender := instr.Accounts[0].Pubkey
		receiver := instr.Accounts[1].Pubkey
		amount := new(uint256.Int).SetUint64(payload.Amount)

		senderAcct, ok := c.accounts[sender]
		if !ok || senderAcct.Balance.Lt(amount) {
			continue
		}
		senderAcct.Balance.Sub(senderAcct.Balance, amount)
		c.creditLocked(receiver, 0)
		c.accounts[receiver].Balance.Add(c.accounts[receiver].Balance, amount)
	}
}

// creditLocked adds amount to address's balance, lazily creating the
// account with a zero balance first if it has never been seen.
func (c *Chain) creditLocked(address string, amount uint64) {
	acct, ok := c.accounts[address]
	if !ok {
		acct = &Account{Balance: uint256.NewInt(0)}
		c.accounts[address] = acct
	}
	if amount != 0 {
		acct.Balance.AddUint64(acct.Balance, amount)
	}
}

// TryToUpdateChain replaces the local chain with candidate if candidate is
// strictly longer. Unlike the lax original, this is a stricter redesign:
// every block in candidate is replayed through full PoH/previous-hash
// validation, and the swap is aborted (keeping the existing chain) if any
// block fails. See DESIGN.md for the rationale.
func (c *Chain) TryToUpdateChain(candidate []Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(candidate) <= len(c.blocks) {
		return ErrNotLonger
	}
	if len(candidate) == 0 {
		return fmt.Errorf("%w: empty candidate chain", ErrReplayFailed)
	}

	accounts := make(map[string]*Account)
	lastPoH := GenesisPoH()
	for i, block := range candidate {
		if i == 0 {
			if block.PreviousHash != ZeroHash || block.LeaderID != GenesisLeaderID || block.PoH != lastPoH {
				return fmt.Errorf("%w: genesis mismatch", ErrReplayFailed)
			}
			continue
		}
		prev := candidate[i-1]
		if block.Index != int64(i) {
			return fmt.Errorf("%w: block %d carries index %d", ErrReplayFailed, i, block.Index)
		}
		if block.PreviousHash != FullHash(prev) {
			return fmt.Errorf("%w: block %d previous_hash mismatch", ErrReplayFailed, i)
		}
		if block.PoH != nextPoH(lastPoH) {
			return fmt.Errorf("%w: block %d poh mismatch", ErrReplayFailed, i)
		}
		lastPoH = block.PoH
		applyTransactionsTo(accounts, block.Transactions)
		creditTo(accounts, block.LeaderID, BlockReward)
	}

	c.blocks = append([]Block(nil), candidate...)
	c.accounts = accounts
	c.pending = nil
	c.lastPoH = lastPoH
	return nil
}

// applyTransactionsTo is the replay-time twin of applyTransactionLocked,
// operating on a scratch account map instead of the live chain.
func applyTransactionsTo(accounts map[string]*Account, txs []txn.Transaction) {
	for _, tx := range txs {
		for _, instr := range tx.Instructions {
			if instr.ProgramID != txn.SystemProgramID || len(instr.Accounts) < 2 {
				continue
			}
			payload, err := txn.DecodeSystemProgramData(instr.Data)
			if err != nil {
				continue
			}
			sender := instr.Accounts[0].Pubkey
			receiver := instr.Accounts[1].Pubkey
			amount := new(uint256.Int).SetUint64(payload.Amount)

			senderAcct, ok := accounts[sender]
			if !ok || senderAcct.Balance.Lt(amount) {
				continue
			}
			senderAcct.Balance.Sub(senderAcct.Balance, amount)
			creditTo(accounts, receiver, 0)
			accounts[receiver].Balance.Add(accounts[receiver].Balance, amount)
		}
	}
}

func creditTo(accounts map[string]*Account, address string, amount uint64) {
	acct, ok := accounts[address]
	if !ok {
		acct = &Account{Balance: uint256.NewInt(0)}
		accounts[address] = acct
	}
	if amount != 0 {
		acct.Balance.AddUint64(acct.Balance, amount)
	}
}

// nextPoH advances the proof-of-history chain by one hop.
func nextPoH(previous string) string {
	sum := sha256.Sum256([]byte(previous))
	return hex.EncodeToString(sum[:])
}
