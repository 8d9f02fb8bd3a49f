// Package node wires the chain, consensus, transport and protocol packages
// together into the long-running node orchestrator: it owns the TCP
// listener, discovery listener and broadcaster, the mining timer, and the
// single-consumer message-queue loop that performs every consensus-state
// mutation.
package node

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/empower1ds/solnode/internal/chain"
	"github.com/empower1ds/solnode/internal/consensus"
	"github.com/empower1ds/solnode/internal/crypto"
	"github.com/empower1ds/solnode/internal/protocol"
	"github.com/empower1ds/solnode/internal/transport"
	"github.com/empower1ds/solnode/internal/txn"
)

// BlockReward mirrors chain.BlockReward for callers that only import node.
const BlockReward = chain.BlockReward

// TimeToSleep is how long the mining timer waits between coordinator ticks.
const TimeToSleep = 10 * time.Second

// ErrWrongStage is returned by SubmitTransaction when the node is not
// currently accepting transactions.
var ErrWrongStage = errors.New("node: not accepting transactions outside TX stage")

// outbound is the subset of package transport that Node depends on for
// sending. It exists so tests can inject an in-memory fake instead of
// opening real sockets.
type outbound interface {
	Send(peer transport.Peer, data []byte) error
	Broadcast(peers []transport.Peer, data []byte)
}

type liveOutbound struct{}

func (liveOutbound) Send(peer transport.Peer, data []byte) error {
	return transport.Send(peer, data)
}

func (liveOutbound) Broadcast(peers []transport.Peer, data []byte) {
	transport.Broadcast(peers, data)
}

// Node is one participant in the network: its chain, its consensus stage,
// its known peers/validators, and the background activities that drive it.
type Node struct {
	cfg        Config
	sessionID  uuid.UUID
	address    string
	publicKey  string
	self       transport.Peer

	chain      *chain.Chain
	stage      *consensus.StageFlag
	peers      *transport.PeerSet
	validators *transport.ValidatorSet
	queue      *messageQueue
	out        outbound
	rng        *rand.Rand

	// tempBlock is touched only by the queue consumer goroutine, per the
	// single-consumer ordering guarantee; it needs no lock of its own.
	tempBlock *chain.Block

	rearmCh chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New constructs a Node from cfg. It derives the node's public key and
// address from cfg.PrivateKeyB64; a malformed key is a lifecycle failure
// the caller should treat as fatal before starting the node.
func New(cfg Config) (*Node, error) {
	pub, err := crypto.PublicKey(cfg.PrivateKeyB64)
	if err != nil {
		return nil, fmt.Errorf("node: derive public key: %w", err)
	}
	addr, err := crypto.Address(pub)
	if err != nil {
		return nil, fmt.Errorf("node: derive address: %w", err)
	}
	return &Node{
		cfg:        cfg,
		sessionID:  uuid.New(),
		address:    addr,
		publicKey:  pub,
		self:       transport.Peer{Host: cfg.Host, Port: cfg.Port},
		chain:      chain.NewChain(),
		stage:      consensus.NewStageFlag(),
		peers:      transport.NewPeerSet(),
		validators: transport.NewValidatorSet(),
		queue:      newMessageQueue(),
		out:        liveOutbound{},
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		rearmCh:    make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}, nil
}

// Address is this node's SHA-256 account address.
func (n *Node) Address() string { return n.address }

// Chain exposes the node's ledger for read-only external inspection (CLI,
// benchmarking harness); callers tolerate eventual consistency with the
// queue consumer, per the concurrency model.
func (n *Node) Chain() *chain.Chain { return n.chain }

// Stage reports the node's current consensus stage.
func (n *Node) Stage() consensus.Stage { return n.stage.Get() }

// Start launches every background activity: the TCP listener, the
// discovery listener and broadcaster, the message-queue consumer, and the
// mining timer. It returns once all goroutines have been launched; Stop
// tears them down.
func (n *Node) Start() error {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.consumeLoop()
	}()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := transport.ServeTCP(n.cfg.Host, n.cfg.Port, n.onWireMessage, n.stopCh); err != nil {
			log.Printf("NODE: tcp listener exited: %v", err)
		}
	}()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		err := transport.ListenDiscovery(n.cfg.Host, n.cfg.Port, n.isLeaderRole, n.onDiscoveryReply, n.stopCh)
		if err != nil {
			log.Printf("NODE: discovery listener exited: %v", err)
		}
	}()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := transport.BroadcastDiscover(n.stopCh); err != nil {
			log.Printf("NODE: discovery broadcaster exited: %v", err)
		}
	}()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.miningTimerLoop()
	}()

	log.Printf("NODE[%s]: started as %s (%s) at %s", n.sessionID, n.address, n.cfg.Role, n.self)
	return nil
}

// Stop announces a disconnect to every known peer, then tears down every
// background activity. There is no graceful drain of in-flight messages;
// this mirrors the spec's exit-behavior contract.
func (n *Node) Stop() {
	data, err := protocol.Encode(protocol.TypeDisconnect, protocol.DisconnectPayload{Host: n.cfg.Host, Port: n.cfg.Port})
	if err == nil {
		n.out.Broadcast(n.peers.ToSlice(), data)
	}
	close(n.stopCh)
	n.queue.Close()
	n.wg.Wait()
}

// SubmitTransaction accepts a locally-originated transaction onto the
// mempool and broadcasts it, but only while the node is in the TX stage.
func (n *Node) SubmitTransaction(tx txn.Transaction) error {
	if n.stage.Get() != consensus.StageTX {
		return ErrWrongStage
	}
	n.chain.AddTransaction(tx)
	data, err := protocol.Encode(protocol.TypeTx, tx)
	if err != nil {
		return fmt.Errorf("node: encode tx: %w", err)
	}
	n.out.Broadcast(n.peers.ToSlice(), data)
	return nil
}

func (n *Node) isLeaderRole() bool {
	return n.cfg.Role == consensus.RoleLeader
}

// onDiscoveryReply handles a decoded UDP discovery reply from a peer: it
// updates the peer and validator sets, and triggers a chain-sync request if
// this node still only has the genesis block.
func (n *Node) onDiscoveryReply(reply transport.DiscoveryReply) {
	n.peers.Add(reply.Peer)
	if reply.IsLeader {
		n.validators.Add(reply.Peer.String())
	} else {
		n.validators.Remove(reply.Peer.String())
	}
	if n.chain.CurrentHeight() == 1 {
		data, err := protocol.Encode(protocol.TypeRequestChain, nil)
		if err != nil {
			log.Printf("NODE: encode request_chain: %v", err)
			return
		}
		n.out.Broadcast(n.peers.ToSlice(), data)
	}
}

// onWireMessage is the TCP server's handler: it only enqueues, preserving
// the single-consumer ordering guarantee.
func (n *Node) onWireMessage(data []byte) {
	n.queue.Push(data)
}

func (n *Node) consumeLoop() {
	for {
		data, ok := n.queue.Pop()
		if !ok {
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			log.Printf("NODE: dropping unparseable message: %v", err)
			continue
		}
		n.handle(msg)
	}
}

func (n *Node) miningTimerLoop() {
	timer := time.NewTimer(TimeToSleep)
	defer timer.Stop()
	for {
		select {
		case <-n.stopCh:
			return
		case <-timer.C:
			n.mineTick()
			timer.Reset(TimeToSleep)
		case <-n.rearmCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(TimeToSleep)
		}
	}
}

func (n *Node) rearmMiningTimer() {
	select {
	case n.rearmCh <- struct{}{}:
	default:
	}
}

// mineTick is what the mining timer does on every tick: only the
// coordinator drives the network into a new round.
func (n *Node) mineTick() {
	if !consensus.IsCoordinator(n.self.String(), peerStrings(n.peers.ToSlice())) {
		return
	}
	data, err := protocol.Encode(protocol.TypeChooseCreator, nil)
	if err != nil {
		log.Printf("NODE: encode choose_creator: %v", err)
		return
	}
	n.out.Broadcast(n.peers.ToSlice(), data)
	n.queue.Push(data)
}

func peerStrings(peers []transport.Peer) []string {
	out := make([]string, len(peers))
	for i, p := range peers {
		out[i] = p.String()
	}
	return out
}
