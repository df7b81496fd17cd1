package arena

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomizer_Deterministic(t *testing.T) {
	r1 := NewRandomizer(123, true)
	r2 := NewRandomizer(123, true)

	for i := range 50 {
		q := fmt.Sprintf("question %d", i)
		assert.Equal(t, r1.IsSwitched(q), r1.IsSwitched(q), "repeat call differs for %q", q)
		assert.Equal(t, r1.IsSwitched(q), r2.IsSwitched(q), "instances differ for %q", q)
	}
}

func TestRandomizer_InputsMatter(t *testing.T) {
	a := NewRandomizer(123, true)
	b := NewRandomizer(124, true)

	seedChanged, textChanged := false, false
	for i := range 200 {
		q := fmt.Sprintf("question %d", i)
		if a.IsSwitched(q) != b.IsSwitched(q) {
			seedChanged = true
		}
		if a.IsSwitched(q) != a.IsSwitched(q+"?") {
			textChanged = true
		}
	}
	assert.True(t, seedChanged, "changing the seed never changed a decision")
	assert.True(t, textChanged, "changing the question never changed a decision")
}

func TestRandomizer_Balance(t *testing.T) {
	r := NewRandomizer(123, true)
	const n = 2000
	switched := 0
	for i := range n {
		if r.IsSwitched(fmt.Sprintf("distinct question #%d", i)) {
			switched++
		}
	}
	assert.InDelta(t, n/2, switched, n*0.1, "switch rate far from 50%%: %d/%d", switched, n)
}

func TestRandomizer_Disabled(t *testing.T) {
	r := NewRandomizer(123, false)
	assert.False(t, r.Enabled())
	for i := range 100 {
		assert.False(t, r.IsSwitched(fmt.Sprintf("q%d", i)))
	}
}
