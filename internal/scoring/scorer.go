// Package scoring converts a finished training session into a battle score,
// a battle rank, and a persistent legion rank update. Everything here is a
// pure function of its inputs; collaborator failures are handled upstream.
package scoring

import (
	"math"

	"github.com/shrinivas105/chess-theory-trainer/internal/campaign"
)

// BattleRank is the per-session outcome label, weakest to strongest.
type BattleRank string

const (
	Levy      BattleRank = "Levy"
	Hastatus  BattleRank = "Hastatus"
	Principes BattleRank = "Principes"
	Triarius  BattleRank = "Triarius"
	Imperator BattleRank = "Imperator"
)

// Elite reports whether the rank counts toward excellence requirements.
func (r BattleRank) Elite() bool { return r == Triarius || r == Imperator }

// Weak reports whether the rank triggers zero-tolerance demotion rules.
func (r BattleRank) Weak() bool { return r == Levy || r == Hastatus }

// PenaltyBand classifies the final evaluation for penalty purposes.
type PenaltyBand string

const (
	BandNone         PenaltyBand = ""
	BandPoor         PenaltyBand = "poor"
	BandCatastrophic PenaltyBand = "catastrophic"
)

// ScoreResult is the bounded battle score plus the context needed to render it.
type ScoreResult struct {
	Score          int
	Band           PenaltyBand
	QualityPercent int
	Bonus          int
	BonusTier      string
}

// PlayerEval flips a White-perspective evaluation to the player's perspective.
func PlayerEval(raw float64, playerIsWhite bool) float64 {
	if playerIsWhite {
		return raw
	}
	return -raw
}

// QualityPercent is the rounded qualifying-move ratio, 0 when nothing tracked.
func QualityPercent(qualifying, tracked int) int {
	if tracked <= 0 {
		return 0
	}
	return int(math.Round(float64(qualifying) / float64(tracked) * 100))
}

// TotalScore combines move count, move quality, and final evaluation into a
// single score. The evaluation gates the result twice: a catastrophic eval
// zeroes the eval component, and the penalty band caps the total at 30/60/100.
// The hidden accuracy bonus is added after capping and may exceed the cap.
func TotalScore(cfg campaign.Config, playerMoves, qualifying, tracked int, finalEval float64) ScoreResult {
	w := cfg.Weights

	moveScore := float64(playerMoves) * w.MovesMultiplier * w.Moves

	qp := QualityPercent(qualifying, tracked)
	qualityScore := float64(qp) * w.Quality

	var evalScore float64
	if finalEval >= cfg.Eval.Catastrophic {
		evalScore = math.Max(0, (finalEval+3)*w.EvalMultiplier*w.Evaluation)
	}

	base := moveScore + qualityScore + evalScore

	mul := cfg.Penalty.Acceptable
	band := BandNone
	switch {
	case finalEval <= cfg.Eval.Catastrophic:
		mul = cfg.Penalty.Catastrophic
		band = BandCatastrophic
	case finalEval < cfg.Eval.Poor:
		mul = cfg.Penalty.Poor
		band = BandPoor
	}

	penalized := base * mul

	maxScore := 100.0
	switch band {
	case BandCatastrophic:
		maxScore = 30
	case BandPoor:
		maxScore = 60
	}

	bonus, tierName := cfg.Accuracy.Bonus(playerMoves, qp, finalEval)

	var score int
	if bonus > 0 {
		score = int(math.Round(math.Min(penalized, maxScore) + float64(bonus)))
	} else {
		score = int(math.Min(math.Round(penalized), maxScore))
	}
	if score < 0 {
		score = 0
	}

	return ScoreResult{
		Score:          score,
		Band:           band,
		QualityPercent: qp,
		Bonus:          bonus,
		BonusTier:      tierName,
	}
}

// Rank maps a score to its battle rank, gated by the final evaluation: a lost
// position can never yield a high rank regardless of the score.
func Rank(cfg campaign.Config, score int, finalEval float64) BattleRank {
	t := cfg.Ranks
	switch {
	case finalEval <= cfg.Eval.Catastrophic:
		return Levy
	case finalEval < cfg.Eval.Poor:
		if score >= t.Hastatus {
			return Hastatus
		}
		return Levy
	}
	switch {
	case score >= t.Imperator:
		return Imperator
	case score >= t.Triarius:
		return Triarius
	case score >= t.Principes:
		return Principes
	case score >= t.Hastatus:
		return Hastatus
	default:
		return Levy
	}
}
