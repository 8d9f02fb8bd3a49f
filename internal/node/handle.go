package node

import (
	"log"

	"github.com/empower1ds/solnode/internal/chain"
	"github.com/empower1ds/solnode/internal/consensus"
	"github.com/empower1ds/solnode/internal/crypto"
	"github.com/empower1ds/solnode/internal/protocol"
	"github.com/empower1ds/solnode/internal/transport"
	"github.com/empower1ds/solnode/internal/txn"
)

// handle performs every consensus-state mutation for one decoded message.
// It is called only from consumeLoop, the single queue-consumer goroutine,
// so tempBlock and the chain/stage/peer/validator mutations it triggers
// never race with each other.
func (n *Node) handle(msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeTx:
		n.handleTx(msg.Payload.(txn.Transaction))
	case protocol.TypeChooseCreator:
		n.handleChooseCreator()
	case protocol.TypeCreator:
		n.handleCreator()
	case protocol.TypeShareBlock:
		n.handleShareBlock(msg.Payload.(protocol.ShareBlockPayload))
	case protocol.TypeSignature:
		n.handleSignature(msg.Payload.(protocol.SignaturePayload))
	case protocol.TypeFinalizeBlock:
		n.handleFinalizeBlock(msg.Payload.(chain.Block))
	case protocol.TypeRequestChain:
		n.handleRequestChain()
	case protocol.TypeChain:
		n.handleChain(msg.Payload.(protocol.ChainPayload))
	case protocol.TypeDisconnect:
		n.handleDisconnect(msg.Payload.(protocol.DisconnectPayload))
	case protocol.TypeRebroadcast:
		// Defined at the codec level but never dispatched by the
		// reference node either; nothing to do.
	default:
		log.Printf("NODE: dropping message of unknown type %q", msg.Type)
	}
}

func (n *Node) handleTx(tx txn.Transaction) {
	n.chain.AddTransaction(tx)
}

func (n *Node) handleChooseCreator() {
	n.stage.Set(consensus.StageMining)
	if !consensus.IsCoordinator(n.self.String(), peerStrings(n.peers.ToSlice())) {
		return
	}
	creator, ok := consensus.ChooseCreator(n.rng, n.validators.ToSlice(), n.self.String(), n.isLeaderRole())
	if !ok {
		return
	}
	data, err := protocol.Encode(protocol.TypeCreator, nil)
	if err != nil {
		log.Printf("NODE: encode creator: %v", err)
		return
	}
	if creator == n.self.String() {
		n.queue.Push(data)
		return
	}
	peer, ok := parsePeer(creator)
	if !ok {
		log.Printf("NODE: could not parse chosen creator %q", creator)
		return
	}
	if err := n.out.Send(peer, data); err != nil {
		log.Printf("NODE: send creator to %s failed: %v", peer, err)
	}
}

func (n *Node) handleCreator() {
	n.stage.Set(consensus.StageMining)
	if !n.isLeaderRole() {
		return
	}
	block := n.chain.ProduceBlock(n.address)
	n.tempBlock = &block

	payload := protocol.ShareBlockPayload{Block: block, Host: n.cfg.Host, Port: n.cfg.Port}
	data, err := protocol.Encode(protocol.TypeShareBlock, payload)
	if err != nil {
		log.Printf("NODE: encode share_block: %v", err)
		return
	}
	n.out.Broadcast(n.peers.ToSlice(), data)
	n.queue.Push(data)
}

func (n *Node) handleShareBlock(p protocol.ShareBlockPayload) {
	n.stage.Set(consensus.StageMining)
	if !n.isLeaderRole() {
		return
	}
	if !n.chain.ValidateBlock(p.Block) {
		log.Printf("NODE: rejecting proposed block from %s:%d: fails validation", p.Host, p.Port)
		return
	}
	sigB64, err := crypto.Sign(n.cfg.PrivateKeyB64, []byte(chain.ContentHash(p.Block)))
	if err != nil {
		log.Printf("NODE: sign block content hash: %v", err)
		return
	}
	data, err := protocol.Encode(protocol.TypeSignature, protocol.SignaturePayload{Signature: sigB64, Address: n.address})
	if err != nil {
		log.Printf("NODE: encode signature: %v", err)
		return
	}
	proposer := transport.Peer{Host: p.Host, Port: p.Port}
	if proposer == n.self {
		n.queue.Push(data)
		return
	}
	if err := n.out.Send(proposer, data); err != nil {
		log.Printf("NODE: send signature to %s failed: %v", proposer, err)
	}
}

func (n *Node) handleSignature(p protocol.SignaturePayload) {
	if n.tempBlock == nil {
		return
	}
	n.tempBlock.ValidatorSignatures.Set(p.Address, p.Signature)

	if !consensus.FinalizationReached(n.tempBlock.ValidatorSignatures.Len(), n.validators.Len()) {
		return
	}
	data, err := protocol.Encode(protocol.TypeFinalizeBlock, *n.tempBlock)
	if err != nil {
		log.Printf("NODE: encode finalize_block: %v", err)
		return
	}
	n.out.Broadcast(n.peers.ToSlice(), data)
	n.queue.Push(data)
}

func (n *Node) handleFinalizeBlock(block chain.Block) {
	n.tempBlock = nil
	if !n.chain.AddExternalBlock(block) {
		log.Printf("NODE: finalize_block for index %d failed validation, dropping", block.Index)
	}
	n.stage.Set(consensus.StageTX)
	n.rearmMiningTimer()
}

func (n *Node) handleRequestChain() {
	data, err := protocol.Encode(protocol.TypeChain, protocol.ChainPayload{Blocks: n.chain.Blocks()})
	if err != nil {
		log.Printf("NODE: encode chain: %v", err)
		return
	}
	n.out.Broadcast(n.peers.ToSlice(), data)
}

func (n *Node) handleChain(p protocol.ChainPayload) {
	if err := n.chain.TryToUpdateChain(p.Blocks); err != nil {
		log.Printf("NODE: try_to_update_chain: %v", err)
	}
}

func (n *Node) handleDisconnect(p protocol.DisconnectPayload) {
	n.peers.Remove(transport.Peer{Host: p.Host, Port: p.Port})
}
