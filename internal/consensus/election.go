package consensus

import "math/rand"

// IsCoordinator reports whether self is the lexicographically smallest
// host:port among self and peers. Ties and IP reuse are known, deliberate
// fragility of this toy election scheme; a production system would need a
// real view-change protocol instead.
func IsCoordinator(self string, peers []string) bool {
	for _, p := range peers {
		if p < self {
			return false
		}
	}
	return true
}

// ChooseCreator picks a block creator uniformly at random from validators,
// plus self when selfIsLeader is true. It returns ("", false) if there is
// no eligible candidate at all.
func ChooseCreator(rng *rand.Rand, validators []string, self string, selfIsLeader bool) (string, bool) {
	candidates := make([]string, 0, len(validators)+1)
	candidates = append(candidates, validators...)
	if selfIsLeader {
		candidates = append(candidates, self)
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[rng.Intn(len(candidates))], true
}

// FinalizationReached reports whether the number of collected validator
// signatures clears the two-thirds threshold, counting the proposer itself
// (the "+1") alongside the known validator set.
func FinalizationReached(signatureCount, validatorCount int) bool {
	return 3*signatureCount >= 2*(validatorCount+1)
}
