// Package protocol implements the node's wire message codec: a tagged
// envelope carrying one of a fixed set of typed payloads between peers.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/empower1ds/solnode/internal/chain"
	"github.com/empower1ds/solnode/internal/txn"
)

// Type is the envelope's type tag.
type Type string

// The complete set of message types the node's consensus and sync logic
// understands. Any other tag decodes as Unknown.
const (
	TypeTx            Type = "tx"
	TypeShareBlock    Type = "share_block"
	TypeRequestChain  Type = "request_chain"
	TypeChain         Type = "chain"
	TypeChooseCreator Type = "choose_creator"
	TypeCreator       Type = "creator"
	TypeSignature     Type = "signature"
	TypeFinalizeBlock Type = "finalize_block"
	TypeRebroadcast   Type = "rebroadcast"
	TypeDisconnect    Type = "disconnect"
	TypeUnknown       Type = "unknown"
)

// ErrUnknownType is returned by Decode when the envelope's type tag is not
// one of the recognized constants. The codec is total: callers are
// expected to log and drop rather than treat this as fatal.
var ErrUnknownType = errors.New("protocol: unknown message type")

// envelopeWire is the on-the-wire shape: {"type": ..., "data": ...}.
type envelopeWire struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Message is a decoded envelope: its type tag plus the concrete payload
// value, which callers type-switch on. Unknown carries no payload.
type Message struct {
	Type    Type
	Payload any
}

// ShareBlockPayload is carried by TypeShareBlock: a proposed block together
// with the host/port identifying its proposer, so signers know where to
// send their signature back.
type ShareBlockPayload struct {
	Block chain.Block `json:"block"`
	Host  string      `json:"host"`
	Port  int         `json:"port"`
}

// ChainPayload is carried by TypeChain: a full candidate block list for
// TryToUpdateChain.
type ChainPayload struct {
	Blocks []chain.Block `json:"blocks"`
}

// SignaturePayload is carried by TypeSignature. Field names matter: the
// original reference decoder assigned signature's value to BOTH fields,
// silently destroying validator identity. This type reads each field from
// its own named key and must never be "fixed" back to that behavior.
type SignaturePayload struct {
	Signature string `json:"signature"`
	Address   string `json:"address"`
}

// RebroadcastPayload is carried by TypeRebroadcast.
type RebroadcastPayload struct {
	Host  string      `json:"host"`
	Port  int         `json:"port"`
	Block chain.Block `json:"block"`
}

// DisconnectPayload is carried by TypeDisconnect: the peer announcing its
// own departure.
type DisconnectPayload struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Encode builds the wire bytes for a message of the given type and payload.
// payload must be the concrete type documented for typ (a txn.Transaction
// for TypeTx, a chain.Block for TypeFinalizeBlock, nil for the
// payload-less types, etc).
func Encode(typ Type, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("protocol: encode %s payload: %w", typ, err)
		}
		raw = encoded
	}
	return json.Marshal(envelopeWire{Type: typ, Data: raw})
}

// Decode parses the wire bytes of one envelope, dispatching on its type tag
// to populate Message.Payload with the concrete payload type for that tag.
// An unrecognized tag or malformed payload yields (Message{Type:
// TypeUnknown}, ErrUnknownType) / a wrapped decode error respectively;
// callers log and drop rather than propagate.
func Decode(data []byte) (Message, error) {
	var wire envelopeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Message{Type: TypeUnknown}, fmt.Errorf("protocol: decode envelope: %w", err)
	}

	switch wire.Type {
	case TypeTx:
		var tx txn.Transaction
		if err := unmarshalPayload(wire.Data, &tx); err != nil {
			return Message{Type: TypeUnknown}, err
		}
		return Message{Type: TypeTx, Payload: tx}, nil

	case TypeShareBlock:
		var p ShareBlockPayload
		if err := unmarshalPayload(wire.Data, &p); err != nil {
			return Message{Type: TypeUnknown}, err
		}
		return Message{Type: TypeShareBlock, Payload: p}, nil

	case TypeRequestChain:
		return Message{Type: TypeRequestChain}, nil

	case TypeChain:
		var p ChainPayload
		if err := unmarshalPayload(wire.Data, &p); err != nil {
			return Message{Type: TypeUnknown}, err
		}
		return Message{Type: TypeChain, Payload: p}, nil

	case TypeChooseCreator:
		return Message{Type: TypeChooseCreator}, nil

	case TypeCreator:
		return Message{Type: TypeCreator}, nil

	case TypeSignature:
		var p SignaturePayload
		if err := unmarshalPayload(wire.Data, &p); err != nil {
			return Message{Type: TypeUnknown}, err
		}
		return Message{Type: TypeSignature, Payload: p}, nil

	case TypeFinalizeBlock:
		var b chain.Block
		if err := unmarshalPayload(wire.Data, &b); err != nil {
			return Message{Type: TypeUnknown}, err
		}
		return Message{Type: TypeFinalizeBlock, Payload: b}, nil

	case TypeRebroadcast:
		var p RebroadcastPayload
		if err := unmarshalPayload(wire.Data, &p); err != nil {
			return Message{Type: TypeUnknown}, err
		}
		return Message{Type: TypeRebroadcast, Payload: p}, nil

	case TypeDisconnect:
		var p DisconnectPayload
		if err := unmarshalPayload(wire.Data, &p); err != nil {
			return Message{Type: TypeUnknown}, err
		}
		return Message{Type: TypeDisconnect, Payload: p}, nil

	default:
		return Message{Type: TypeUnknown}, fmt.Errorf("%w: %q", ErrUnknownType, wire.Type)
	}
}

func unmarshalPayload(data json.RawMessage, target any) error {
	if len(data) == 0 {
		return fmt.Errorf("protocol: missing payload data")
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("protocol: decode payload: %w", err)
	}
	return nil
}
