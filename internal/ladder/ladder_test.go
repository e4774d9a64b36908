package ladder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name     string
		from     Rank
		expected Rank
		ok       bool
	}{{
		"within a tier",
		Rank{TierBronze, "IV"},
		Rank{TierBronze, "III"},
		true,
	}, {
		"tier boundary",
		Rank{TierBronze, "I"},
		Rank{TierSilver, "IV"},
		true,
	}, {
		"into three-numeral tier",
		Rank{TierSilver, "I"},
		Rank{TierGold, "III"},
		true,
	}, {
		"guest maps to the floor",
		Rank{TierGuest, ""},
		Rank{TierBronze, "IV"},
		true,
	}, {
		"evaluation maps to the floor",
		Rank{TierEvaluation, "N/A"},
		Rank{TierBronze, "IV"},
		true,
	}, {
		"ceiling has no successor",
		Rank{TierDiamond, "I"},
		Rank{},
		false,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			next, ok := Next(test.from)
			assert.Equal(t, test.ok, ok)
			if ok {
				assert.Equal(t, test.expected, next)
			}
		})
	}
}

// Walking Next from the floor must visit every rank exactly once and
// stop at the ceiling, so the ordering is total and cycle-free.
func TestLadderOrderingIsTotal(t *testing.T) {
	seen := map[Rank]bool{}
	r := Floor()
	seen[r] = true

	for {
		next, ok := Next(r)
		if !ok {
			break
		}
		require.False(t, seen[next], "ladder must not revisit %s", next)
		seen[next] = true
		r = next
	}

	assert.Equal(t, Ceiling(), r)
	assert.Len(t, seen, len(Ranks()))
}

func TestIsImmediatelyAbove(t *testing.T) {
	assert.True(t, IsImmediatelyAbove(Rank{TierBronze, "III"}, Rank{TierBronze, "IV"}))
	assert.True(t, IsImmediatelyAbove(Rank{TierSilver, "IV"}, Rank{TierBronze, "I"}))
	assert.False(t, IsImmediatelyAbove(Rank{TierBronze, "IV"}, Rank{TierBronze, "III"}))
	assert.False(t, IsImmediatelyAbove(Rank{TierBronze, "II"}, Rank{TierBronze, "IV"}))
}

func TestCapacity(t *testing.T) {
	assert.Equal(t, 18, Capacity(Rank{TierBronze, "IV"}))
	assert.Equal(t, 1, Capacity(Rank{TierDiamond, "I"}))
	assert.Equal(t, 0, Capacity(Rank{"Copper", "IX"}))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(Rank{TierGold, "III"}))
	assert.False(t, Valid(Rank{TierGold, "IV"}))
	assert.False(t, Valid(Rank{TierGuest, "N/A"}))
}

type fakeOccupancy map[Rank]int

func (f fakeOccupancy) CountActiveByRank(_ context.Context, tier, numeral string) (int, error) {
	return f[Rank{tier, numeral}], nil
}

func TestCanPromote(t *testing.T) {
	ctx := context.Background()

	t.Run("legal swap", func(t *testing.T) {
		l := New(fakeOccupancy{{TierBronze, "IV"}: 5})
		ok, reason, err := l.CanPromote(ctx, Rank{TierBronze, "IV"}, Rank{TierBronze, "III"})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, reason)
	})

	t.Run("winner not immediately below", func(t *testing.T) {
		l := New(fakeOccupancy{})
		ok, reason, err := l.CanPromote(ctx, Rank{TierBronze, "IV"}, Rank{TierBronze, "II"})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Contains(t, reason, "not immediately below")
	})

	t.Run("destination full", func(t *testing.T) {
		l := New(fakeOccupancy{{TierBronze, "IV"}: Capacity(Rank{TierBronze, "IV"})})
		ok, reason, err := l.CanPromote(ctx, Rank{TierBronze, "IV"}, Rank{TierBronze, "III"})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Contains(t, reason, "destination full")
	})
}
