// Package ladder models the fixed rank hierarchy and its capacity rules.
package ladder

import (
	"context"
	"fmt"
)

// Rank is a (tier, numeral) pair, e.g. "Gold III". Within a tier the
// numerals ascend towards I; tiers ascend Bronze through Diamond.
type Rank struct {
	Tier    string
	Numeral string
}

func (r Rank) String() string {
	return fmt.Sprintf("%s %s", r.Tier, r.Numeral)
}

const (
	TierBronze   = "Bronze"
	TierSilver   = "Silver"
	TierGold     = "Gold"
	TierPlatinum = "Platinum"
	TierDiamond  = "Diamond"

	// Placeholder tiers for members not yet on the ladder.
	TierGuest      = "Guest"
	TierEvaluation = "Evaluation"
)

type tierSpec struct {
	name string
	// numerals from lowest to highest rank
	numerals   []string
	capacities map[string]int
}

var tiers = []tierSpec{
	{TierBronze, []string{"IV", "III", "II", "I"}, map[string]int{"IV": 18, "III": 12, "II": 8, "I": 3}},
	{TierSilver, []string{"IV", "III", "II", "I"}, map[string]int{"IV": 12, "III": 9, "II": 5, "I": 2}},
	{TierGold, []string{"III", "II", "I"}, map[string]int{"III": 10, "II": 6, "I": 2}},
	{TierPlatinum, []string{"III", "II", "I"}, map[string]int{"III": 5, "II": 3, "I": 1}},
	{TierDiamond, []string{"II", "I"}, map[string]int{"II": 3, "I": 1}},
}

// EvaluationRanks are the only ranks an evaluation may place a user in.
var EvaluationRanks = []Rank{
	{TierBronze, "IV"},
	{TierSilver, "IV"},
	{TierGold, "III"},
}

// Floor is the lowest rank on the ladder.
func Floor() Rank {
	return Rank{tiers[0].name, tiers[0].numerals[0]}
}

// Ceiling is the topmost rank, the one with no successor.
func Ceiling() Rank {
	top := tiers[len(tiers)-1]
	return Rank{top.name, top.numerals[len(top.numerals)-1]}
}

// Valid reports whether r names an actual ladder rank.
func Valid(r Rank) bool {
	for _, t := range tiers {
		if t.name != r.Tier {
			continue
		}
		for _, n := range t.numerals {
			if n == r.Numeral {
				return true
			}
		}
	}
	return false
}

// Unranked reports whether the tier is a placeholder outside the ladder.
func Unranked(tier string) bool {
	return tier == TierGuest || tier == TierEvaluation || tier == ""
}

// Next returns the immediate successor of r. Placeholder ranks map to
// the ladder floor. ok is false only at the ceiling.
func Next(r Rank) (next Rank, ok bool) {
	if Unranked(r.Tier) {
		return Floor(), true
	}

	for ti, t := range tiers {
		if t.name != r.Tier {
			continue
		}
		for ni, n := range t.numerals {
			if n != r.Numeral {
				continue
			}
			if ni+1 < len(t.numerals) {
				return Rank{t.name, t.numerals[ni+1]}, true
			}
			if ti+1 < len(tiers) {
				up := tiers[ti+1]
				return Rank{up.name, up.numerals[0]}, true
			}
			return Rank{}, false
		}
	}
	return Rank{}, false
}

// IsImmediatelyAbove reports whether candidate is the direct successor
// of reference.
func IsImmediatelyAbove(candidate, reference Rank) bool {
	next, ok := Next(reference)
	return ok && next == candidate
}

// Capacity returns the occupancy limit of a rank, or 0 for ranks that
// do not exist.
func Capacity(r Rank) int {
	for _, t := range tiers {
		if t.name == r.Tier {
			return t.capacities[r.Numeral]
		}
	}
	return 0
}

// Ranks lists every ladder rank from floor to ceiling.
func Ranks() []Rank {
	var out []Rank
	for _, t := range tiers {
		for _, n := range t.numerals {
			out = append(out, Rank{t.name, n})
		}
	}
	return out
}

// Tiers lists tier names from lowest to highest.
func Tiers() []string {
	out := make([]string, len(tiers))
	for i, t := range tiers {
		out[i] = t.name
	}
	return out
}

// Numerals lists a tier's numerals from lowest to highest rank.
func Numerals(tier string) []string {
	for _, t := range tiers {
		if t.name == tier {
			return t.numerals
		}
	}
	return nil
}

// OccupancyCounter answers live head counts per rank; the storage layer
// implements it over the users table.
type OccupancyCounter interface {
	CountActiveByRank(ctx context.Context, tier, numeral string) (int, error)
}

// Ladder couples the static structure with a live occupancy source.
type Ladder struct {
	occupancy OccupancyCounter
}

func New(occupancy OccupancyCounter) *Ladder {
	return &Ladder{occupancy: occupancy}
}

func (l *Ladder) Occupancy(ctx context.Context, r Rank) (int, error) {
	n, err := l.occupancy.CountActiveByRank(ctx, r.Tier, r.Numeral)
	if err != nil {
		return 0, fmt.Errorf("counting occupancy of %s: %w", r, err)
	}
	return n, nil
}

// CanPromote decides whether a promotion-match win by winner against
// loser may swap their ranks. The winner must sit immediately below the
// loser, and the rank the loser would drop into (the winner's current
// rank) must have room. A false answer is a business outcome, not an
// error; reason says which rule blocked it.
func (l *Ladder) CanPromote(ctx context.Context, winner, loser Rank) (bool, string, error) {
	if !IsImmediatelyAbove(loser, winner) {
		return false, fmt.Sprintf("winner's rank is not immediately below %s", loser), nil
	}

	count, err := l.Occupancy(ctx, winner)
	if err != nil {
		return false, "", err
	}
	if count >= Capacity(winner) {
		return false, fmt.Sprintf("destination full: %s has no room for the demoted player", winner), nil
	}

	return true, "", nil
}
