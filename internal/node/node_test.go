package node

import (
	"testing"

	"github.com/empower1ds/solnode/internal/consensus"
	"github.com/empower1ds/solnode/internal/crypto"
	"github.com/empower1ds/solnode/internal/protocol"
	"github.com/empower1ds/solnode/internal/transport"
	"github.com/empower1ds/solnode/internal/txn"
)

type fakeOutbound struct {
	sent       []sentRecord
	broadcasts [][]byte
}

type sentRecord struct {
	peer transport.Peer
	data []byte
}

func (f *fakeOutbound) Send(peer transport.Peer, data []byte) error {
	f.sent = append(f.sent, sentRecord{peer: peer, data: data})
	return nil
}

func (f *fakeOutbound) Broadcast(peers []transport.Peer, data []byte) {
	f.broadcasts = append(f.broadcasts, data)
}

func newTestNode(t *testing.T, role consensus.Role) (*Node, *fakeOutbound) {
	t.Helper()
	priv, _, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	n, err := New(Config{Host: "127.0.0.1", Port: 9001, Role: role, PrivateKeyB64: priv})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fake := &fakeOutbound{}
	n.out = fake
	return n, fake
}

// drainOnce pops one message off the node's own queue and dispatches it, as
// consumeLoop would, asserting something was actually enqueued.
func drainOnce(t *testing.T, n *Node) {
	t.Helper()
	data, ok := n.queue.Pop()
	if !ok {
		t.Fatalf("expected a self-enqueued message, queue was empty/closed")
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("protocol.Decode: %v", err)
	}
	n.handle(msg)
}

func TestSoloLeaderProducesAndFinalizesABlock(t *testing.T) {
	n, fake := newTestNode(t, consensus.RoleLeader)

	n.handleChooseCreator() // solo leader is trivially its own coordinator and creator
	if n.stage.Get() != consensus.StageMining {
		t.Fatalf("stage after choose_creator = %s, want MINING", n.stage.Get())
	}
	drainOnce(t, n) // creator
	if n.tempBlock == nil {
		t.Fatalf("tempBlock not set after creator self-dispatch")
	}
	drainOnce(t, n) // share_block
	drainOnce(t, n) // signature -> should reach finalization and enqueue finalize_block
	drainOnce(t, n) // finalize_block

	if n.stage.Get() != consensus.StageTX {
		t.Fatalf("stage after finalize_block = %s, want TX", n.stage.Get())
	}
	if n.tempBlock != nil {
		t.Fatalf("tempBlock not cleared after finalize_block")
	}
	if got := n.chain.CurrentHeight(); got != 2 {
		t.Fatalf("chain height = %d, want 2 (genesis + produced block)", got)
	}
	if got := n.chain.Balance(n.address).Uint64(); got != BlockReward {
		t.Fatalf("leader balance = %d, want %d", got, BlockReward)
	}
	if len(fake.broadcasts) == 0 {
		t.Fatalf("expected at least one broadcast during the mining round")
	}
}

func TestSubmitTransactionGatedByStage(t *testing.T) {
	n, _ := newTestNode(t, consensus.RoleUser)
	tx, err := txn.NewTransfer(n.address, "receiver-addr", 1, "blockhash")
	if err != nil {
		t.Fatalf("NewTransfer: %v", err)
	}
	if err := n.SubmitTransaction(tx); err != nil {
		t.Fatalf("SubmitTransaction in TX stage: %v", err)
	}
	if len(n.chain.Pending()) != 1 {
		t.Fatalf("pending count = %d, want 1", len(n.chain.Pending()))
	}

	n.stage.Set(consensus.StageMining)
	if err := n.SubmitTransaction(tx); err != ErrWrongStage {
		t.Fatalf("SubmitTransaction in MINING stage = %v, want ErrWrongStage", err)
	}
}

func TestHandleDisconnectRemovesPeer(t *testing.T) {
	n, _ := newTestNode(t, consensus.RoleUser)
	peer := transport.Peer{Host: "10.0.0.2", Port: 9001}
	n.peers.Add(peer)
	n.handleDisconnect(protocol.DisconnectPayload{Host: peer.Host, Port: peer.Port})
	if n.peers.Contains(peer) {
		t.Fatalf("peer still present after disconnect")
	}
}

func TestHandleRequestChainBroadcastsChain(t *testing.T) {
	n, fake := newTestNode(t, consensus.RoleLeader)
	n.handleRequestChain()
	if len(fake.broadcasts) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(fake.broadcasts))
	}
	msg, err := protocol.Decode(fake.broadcasts[0])
	if err != nil {
		t.Fatalf("decode broadcast chain message: %v", err)
	}
	payload, ok := msg.Payload.(protocol.ChainPayload)
	if !ok {
		t.Fatalf("payload type = %T, want ChainPayload", msg.Payload)
	}
	if len(payload.Blocks) != 1 {
		t.Fatalf("broadcast chain length = %d, want 1 (genesis only)", len(payload.Blocks))
	}
}

func TestHandleChainAdoptsLongerValidChain(t *testing.T) {
	leader, _ := newTestNode(t, consensus.RoleLeader)
	leader.handleChooseCreator()
	drainOnce(t, leader) // creator
	drainOnce(t, leader) // share_block
	drainOnce(t, leader) // signature
	drainOnce(t, leader) // finalize_block

	follower, _ := newTestNode(t, consensus.RoleUser)
	follower.handleChain(protocol.ChainPayload{Blocks: leader.chain.Blocks()})

	if follower.chain.CurrentHeight() != leader.chain.CurrentHeight() {
		t.Fatalf("follower height = %d, want %d", follower.chain.CurrentHeight(), leader.chain.CurrentHeight())
	}
	if follower.chain.Balance(leader.address).Uint64() != leader.chain.Balance(leader.address).Uint64() {
		t.Fatalf("follower did not replay leader's balance correctly")
	}
}
