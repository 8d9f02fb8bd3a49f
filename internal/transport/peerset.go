// Package transport implements peer discovery and message delivery: UDP
// broadcast discovery, TCP one-message-per-connection delivery, and the
// concurrent-safe peer/validator sets the discovery listener and the
// consensus consumer both touch.
package transport

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// Peer identifies a node by its advertised host and port.
type Peer struct {
	Host string
	Port int
}

// String renders the peer as "host:port", the key format used for
// coordinator election and validator-set membership.
func (p Peer) String() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// PeerSet is the concurrent-safe set of known peers, written by the
// discovery listener goroutine and read/written by the consensus queue
// consumer.
type PeerSet struct {
	set mapset.Set[Peer]
}

// NewPeerSet returns an empty PeerSet.
func NewPeerSet() *PeerSet {
	return &PeerSet{set: mapset.NewSet[Peer]()}
}

// Add records peer, returning true if it was not already present.
func (s *PeerSet) Add(peer Peer) bool {
	return s.set.Add(peer)
}

// Remove drops peer from the set.
func (s *PeerSet) Remove(peer Peer) {
	s.set.Remove(peer)
}

// Contains reports whether peer is currently known.
func (s *PeerSet) Contains(peer Peer) bool {
	return s.set.Contains(peer)
}

// ToSlice returns a snapshot of the current peer set.
func (s *PeerSet) ToSlice() []Peer {
	return s.set.ToSlice()
}

// Len reports the number of known peers.
func (s *PeerSet) Len() int {
	return s.set.Cardinality()
}

// ValidatorSet is the concurrent-safe set of "host:port" strings currently
// advertising as leaders, used to compute the finalization threshold and to
// pick a block creator.
type ValidatorSet struct {
	set mapset.Set[string]
}

// NewValidatorSet returns an empty ValidatorSet.
func NewValidatorSet() *ValidatorSet {
	return &ValidatorSet{set: mapset.NewSet[string]()}
}

// Add records hostPort as an active validator.
func (s *ValidatorSet) Add(hostPort string) {
	s.set.Add(hostPort)
}

// Remove drops hostPort from the validator set.
func (s *ValidatorSet) Remove(hostPort string) {
	s.set.Remove(hostPort)
}

// ToSlice returns a snapshot of the current validator set.
func (s *ValidatorSet) ToSlice() []string {
	return s.set.ToSlice()
}

// Len reports the number of active validators.
func (s *ValidatorSet) Len() int {
	return s.set.Cardinality()
}
