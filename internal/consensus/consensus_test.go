package consensus

import (
	"math/rand"
	"testing"
)

func TestStageFlagDefaultsToTX(t *testing.T) {
	f := NewStageFlag()
	if f.Get() != StageTX {
		t.Fatalf("initial stage = %s, want TX", f.Get())
	}
}

func TestStageFlagSetGet(t *testing.T) {
	f := NewStageFlag()
	f.Set(StageMining)
	if f.Get() != StageMining {
		t.Fatalf("stage after Set(MINING) = %s, want MINING", f.Get())
	}
}

func TestIsCoordinatorLexicographicallySmallest(t *testing.T) {
	if !IsCoordinator("10.0.0.1:9001", []string{"10.0.0.2:9001", "10.0.0.3:9001"}) {
		t.Fatalf("smallest host:port should be coordinator")
	}
	if IsCoordinator("10.0.0.3:9001", []string{"10.0.0.1:9001", "10.0.0.2:9001"}) {
		t.Fatalf("largest host:port should not be coordinator")
	}
}

func TestIsCoordinatorNoPeersIsTrivialCoordinator(t *testing.T) {
	if !IsCoordinator("10.0.0.1:9001", nil) {
		t.Fatalf("a node with no peers must be its own coordinator")
	}
}

func TestChooseCreatorIncludesSelfOnlyWhenLeader(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, ok := ChooseCreator(rng, nil, "self:9001", false)
	if ok {
		t.Fatalf("ChooseCreator found a candidate with no validators and a non-leader self")
	}
	creator, ok := ChooseCreator(rng, nil, "self:9001", true)
	if !ok || creator != "self:9001" {
		t.Fatalf("ChooseCreator should have picked self when self is the only leader candidate")
	}
}

func TestChooseCreatorPicksAmongValidators(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	validators := []string{"a:9001", "b:9001", "c:9001"}
	for i := 0; i < 20; i++ {
		creator, ok := ChooseCreator(rng, validators, "self:9001", false)
		if !ok {
			t.Fatalf("ChooseCreator failed with a non-empty validator set")
		}
		found := false
		for _, v := range validators {
			if v == creator {
				found = true
			}
		}
		if !found {
			t.Fatalf("ChooseCreator returned %s, not in validator set", creator)
		}
	}
}

func TestFinalizationReached(t *testing.T) {
	cases := []struct {
		sigs, validators int
		want             bool
	}{
		{0, 0, false},
		{1, 0, true},  // 3*1 >= 2*(0+1) -> 3 >= 2
		{2, 2, true},  // 3*2=6 >= 2*3=6
		{1, 2, false}, // 3*1=3 < 2*3=6
		{3, 3, true},  // 3*3=9 >= 2*4=8
	}
	for _, c := range cases {
		got := FinalizationReached(c.sigs, c.validators)
		if got != c.want {
			t.Fatalf("FinalizationReached(%d, %d) = %v, want %v", c.sigs, c.validators, got, c.want)
		}
	}
}
