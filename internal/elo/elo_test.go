package elo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDelta(t *testing.T) {
	tests := []struct {
		name         string
		winnerRating int
		loserRating  int
		winnerGames  int
		loserGames   int
		expected     int
	}{{
		"even provisional players exchange half of K_provisional",
		1000, 1000, 5, 5,
		16,
	}, {
		"even established players exchange half of K_established",
		1000, 1000, 50, 50,
		8,
	}, {
		"one provisional side raises the shared K",
		1000, 1000, 50, 5,
		16,
	}, {
		"favorite beating underdog gains little",
		1400, 1000, 20, 20,
		1,
	}, {
		"underdog beating favorite gains a lot",
		1000, 1400, 20, 20,
		15,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dw, dl, err := ComputeDelta(test.winnerRating, test.loserRating, test.winnerGames, test.loserGames)
			require.NoError(t, err)
			assert.Equal(t, test.expected, dw)
			assert.Equal(t, -test.expected, dl)
		})
	}
}

func TestComputeDeltaZeroSum(t *testing.T) {
	ratings := []int{0, 100, 800, 1000, 1234, 1999, 2600}
	games := []int{0, 3, 9, 10, 100}

	for _, wr := range ratings {
		for _, lr := range ratings {
			for _, wg := range games {
				for _, lg := range games {
					dw, dl, err := ComputeDelta(wr, lr, wg, lg)
					require.NoError(t, err)
					assert.Zero(t, dw+dl, "deltas for %d/%d must cancel", wr, lr)
					assert.GreaterOrEqual(t, dw, 0)
				}
			}
		}
	}
}

func TestComputeDeltaInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		wr   int
		lr   int
		wg   int
		lg   int
	}{
		{"negative winner games", 1000, 1000, -1, 5},
		{"negative loser games", 1000, 1000, 5, -1},
		{"negative rating", -50, 1000, 5, 5},
		{"absurd rating", 1000, 50000, 5, 5},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := ComputeDelta(test.wr, test.lr, test.wg, test.lg)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestWinProbability(t *testing.T) {
	assert.InDelta(t, 0.5, WinProbability(1000, 1000), 1e-9)
	assert.InDelta(t, 1.0/11, WinProbability(1000, 1400), 1e-9)
	assert.InDelta(t, 10.0/11, WinProbability(1400, 1000), 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-10))
	assert.Equal(t, 0, Clamp(0))
	assert.Equal(t, 42, Clamp(42))
}
