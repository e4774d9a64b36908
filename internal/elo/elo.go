// Package elo computes rating adjustments for recorded duels.
package elo

import (
	"errors"
	"math"
)

const (
	StartingRating = 1000

	// Players under the threshold converge faster.
	KProvisional         = 32
	KEstablished         = 16
	ProvisionalThreshold = 10

	maxRating = 10000
)

var ErrInvalidInput = errors.New("invalid rating input")

// ComputeDelta returns the rating deltas for the winner and loser of a
// match. Both sides share a single K-factor, the larger of the two
// per-player factors, so the exchange is exactly zero-sum while new
// players still move faster.
func ComputeDelta(winnerRating, loserRating, winnerGames, loserGames int) (int, int, error) {
	if winnerGames < 0 || loserGames < 0 {
		return 0, 0, ErrInvalidInput
	}
	if winnerRating < 0 || winnerRating > maxRating || loserRating < 0 || loserRating > maxRating {
		return 0, 0, ErrInvalidInput
	}

	k := kFactor(winnerGames)
	if kl := kFactor(loserGames); kl > k {
		k = kl
	}

	expected := expectedScore(winnerRating, loserRating)
	winnerDelta := int(math.Round(float64(k) * (1 - expected)))

	return winnerDelta, -winnerDelta, nil
}

// WinProbability is the expected score of player against opponent.
func WinProbability(playerRating, opponentRating int) float64 {
	return expectedScore(playerRating, opponentRating)
}

// Clamp keeps a post-delta rating at or above the floor of 0.
func Clamp(rating int) int {
	if rating < 0 {
		return 0
	}
	return rating
}

func kFactor(gamesPlayed int) int {
	if gamesPlayed < ProvisionalThreshold {
		return KProvisional
	}
	return KEstablished
}

func expectedScore(playerRating, opponentRating int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponentRating-playerRating)/400))
}
