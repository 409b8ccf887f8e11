// Package campaign holds the immutable per-campaign scoring configuration.
// Values are loaded once at init and never mutated; alternative tunings are
// added as new named configs, not by editing these in place.
package campaign

import (
	"fmt"
	"math"
	"strings"
)

// Campaign selects one of the two independent progression tracks.
type Campaign string

const (
	Master Campaign = "master"
	Club   Campaign = "club"
)

// All lists every campaign, in display order.
var All = []Campaign{Master, Club}

func Parse(s string) (Campaign, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "master":
		return Master, nil
	case "club":
		return Club, nil
	default:
		return "", fmt.Errorf("unknown campaign %q", s)
	}
}

// Weights distribute the battle score across its three components.
type Weights struct {
	Moves      float64
	Quality    float64
	Evaluation float64

	MovesMultiplier float64 // points per move before weighting
	EvalMultiplier  float64 // scaling applied to (eval + 3)
}

// PenaltyMultipliers shrink the base score by final-position band.
type PenaltyMultipliers struct {
	Catastrophic float64
	Poor         float64
	Acceptable   float64
}

// EvalThresholds split final evaluations into penalty bands.
type EvalThresholds struct {
	Catastrophic float64
	Poor         float64
}

// TrickyTier qualifies a low-ranked move when the player's win-percentage
// advantage meets the tier minimum for the move's historical game count.
type TrickyTier struct {
	MinGames        int
	MaxGames        int
	MinWinAdvantage float64
}

// TrickyMove configures the rank-5..20 qualification window.
type TrickyMove struct {
	Enabled bool
	MinRank int
	MaxRank int
	Tiers   []TrickyTier
}

// Tier returns the tier matching totalGames, or false when none applies.
func (t TrickyMove) Tier(totalGames int) (TrickyTier, bool) {
	for _, tier := range t.Tiers {
		if totalGames >= tier.MinGames && totalGames <= tier.MaxGames {
			return tier, true
		}
	}
	return TrickyTier{}, false
}

// BonusTier is one step of the hidden accuracy bonus, keyed by move count.
type BonusTier struct {
	MinMoves int
	MaxMoves int
	Bonus    int
	Name     string
}

// AccuracyBonus rewards sustained quality over longer sessions. Awarded only
// when the final evaluation is at least MinEval.
type AccuracyBonus struct {
	MinQuality int
	MinEval    float64
	Tiers      []BonusTier
}

// Bonus returns the bonus and tier name for the given session shape, or zero.
func (a AccuracyBonus) Bonus(playerMoves, qualityPercent int, playerEval float64) (int, string) {
	if qualityPercent < a.MinQuality || playerEval < a.MinEval {
		return 0, ""
	}
	for _, tier := range a.Tiers {
		if playerMoves >= tier.MinMoves && playerMoves <= tier.MaxMoves {
			return tier.Bonus, tier.Name
		}
	}
	return 0, ""
}

// BattleRankThresholds are the score bands shared by both campaigns.
type BattleRankThresholds struct {
	Imperator int
	Triarius  int
	Principes int
	Hastatus  int
}

// Config is the full scoring configuration for one campaign.
type Config struct {
	Campaign Campaign

	Weights  Weights
	Penalty  PenaltyMultipliers
	Eval     EvalThresholds
	Tricky   TrickyMove
	Accuracy AccuracyBonus
	Ranks    BattleRankThresholds

	// Quality check is skipped (auto-qualified) for the first N player moves.
	SkipQualityMoves int

	// Theory ends when the position has fewer recorded games than this.
	MinTheoryGames int

	// Rating buckets appended to Club explorer queries.
	RatingBuckets []int
}

var sharedAccuracy = AccuracyBonus{
	MinQuality: 90,
	MinEval:    0.5,
	Tiers: []BonusTier{
		{MinMoves: 12, MaxMoves: 15, Bonus: 2, Name: "Tactical Precision"},
		{MinMoves: 16, MaxMoves: 20, Bonus: 4, Name: "Strategic Mastery"},
		{MinMoves: 21, MaxMoves: math.MaxInt, Bonus: 6, Name: "Legendary Discipline"},
	},
}

var sharedRanks = BattleRankThresholds{Imperator: 85, Triarius: 70, Principes: 55, Hastatus: 40}

var masterConfig = Config{
	Campaign: Master,
	Weights: Weights{
		Moves:           0.25,
		Quality:         0.40,
		Evaluation:      0.35,
		MovesMultiplier: 4,
		EvalMultiplier:  12,
	},
	Penalty: PenaltyMultipliers{Catastrophic: 0.3, Poor: 0.8, Acceptable: 1.0},
	Eval:    EvalThresholds{Catastrophic: -3, Poor: -1.5},
	Tricky: TrickyMove{
		Enabled: true,
		MinRank: 5,
		MaxRank: 20,
		Tiers: []TrickyTier{
			{MinGames: 5000, MaxGames: math.MaxInt, MinWinAdvantage: 10},
			{MinGames: 1000, MaxGames: 4999, MinWinAdvantage: 20},
			{MinGames: 1, MaxGames: 999, MinWinAdvantage: 30},
		},
	},
	Accuracy:         sharedAccuracy,
	Ranks:            sharedRanks,
	SkipQualityMoves: 4,
	MinTheoryGames:   5,
}

var clubConfig = Config{
	Campaign: Club,
	Weights: Weights{
		Moves:           0.30,
		Quality:         0.35,
		Evaluation:      0.35,
		MovesMultiplier: 4,
		EvalMultiplier:  12,
	},
	// More forgiving than Master across the board.
	Penalty: PenaltyMultipliers{Catastrophic: 0.4, Poor: 0.85, Acceptable: 1.0},
	Eval:    EvalThresholds{Catastrophic: -3.5, Poor: -2.0},
	Tricky: TrickyMove{
		Enabled: true,
		MinRank: 5,
		MaxRank: 20,
		Tiers: []TrickyTier{
			{MinGames: 5000, MaxGames: math.MaxInt, MinWinAdvantage: 8},
			{MinGames: 1000, MaxGames: 4999, MinWinAdvantage: 15},
			{MinGames: 1, MaxGames: 999, MinWinAdvantage: 25},
		},
	},
	Accuracy:         sharedAccuracy,
	Ranks:            sharedRanks,
	SkipQualityMoves: 4,
	MinTheoryGames:   20,
	RatingBuckets:    []int{1600, 1800, 2000, 2200, 2500},
}

// For returns the configuration for the given campaign.
func For(c Campaign) Config {
	if c == Club {
		return clubConfig
	}
	return masterConfig
}
