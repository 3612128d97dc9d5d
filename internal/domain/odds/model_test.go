package odds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImpliedProbability(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.5, ImpliedProbability(2.0), 1e-9)
	assert.InDelta(t, 0.25, ImpliedProbability(4.0), 1e-9)

	// Odds at or below even money carry no information.
	assert.Zero(t, ImpliedProbability(1.0))
	assert.Zero(t, ImpliedProbability(0))
	assert.Zero(t, ImpliedProbability(-3))
}
