package arena

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"strconv"
)

// SwitchTag namespaces the presentation-order seed.
const SwitchTag = "is_switched_outputs"

// Randomizer decides whether a question is shown with its answers swapped.
// The decision depends only on the tag, the question text and the seed.
type Randomizer struct {
	tag     string
	seed    int64
	enabled bool
}

// NewRandomizer returns a randomizer. A disabled randomizer never swaps.
func NewRandomizer(seed int64, enabled bool) *Randomizer {
	return &Randomizer{tag: SwitchTag, seed: seed, enabled: enabled}
}

// Enabled reports whether swaps can happen.
func (r *Randomizer) Enabled() bool { return r.enabled }

// IsSwitched reports whether question should be presented swapped. A fresh
// generator is seeded for every call from a digest of tag+question+seed.
func (r *Randomizer) IsSwitched(question string) bool {
	if !r.enabled {
		return false
	}
	sum := sha256.Sum256([]byte(r.tag + question + strconv.FormatInt(r.seed, 10)))
	src := rand.NewPCG(binary.LittleEndian.Uint64(sum[:8]), binary.LittleEndian.Uint64(sum[8:16]))
	return rand.New(src).IntN(2) == 1
}
