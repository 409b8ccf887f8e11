// Package quality classifies player moves against the historical database
// and accumulates the qualifying-move ratio for one session.
package quality

import (
	"context"

	"go.uber.org/zap"

	"github.com/shrinivas105/chess-theory-trainer/internal/campaign"
	"github.com/shrinivas105/chess-theory-trainer/internal/explorer"
	"github.com/shrinivas105/chess-theory-trainer/internal/obslog"
	"github.com/shrinivas105/chess-theory-trainer/internal/scoring"
)

// Source is the slice of the explorer the tracker needs.
type Source interface {
	Moves(ctx context.Context, camp campaign.Campaign, fen string) ([]explorer.Move, error)
}

// topChoices is how many leading moves auto-qualify (subject to the
// bad-top-move override).
const topChoices = 3

// badTopGapPoints is the win-percentage-point gap over the player's move
// that, combined with the ratio checks, marks a popular move as a trap.
const badTopGapPoints = 20

// Tracker accumulates move quality for a single session. Not safe for
// concurrent use; a session processes one move at a time.
type Tracker struct {
	cfg           campaign.Config
	source        Source
	playerIsWhite bool

	tracked    int
	qualifying int
}

func NewTracker(cfg campaign.Config, source Source, playerIsWhite bool) *Tracker {
	return &Tracker{cfg: cfg, source: source, playerIsWhite: playerIsWhite}
}

// Counts returns the raw accumulator values.
func (t *Tracker) Counts() (qualifying, tracked int) { return t.qualifying, t.tracked }

// QualityPercent is the rounded qualifying ratio, 0 before any move.
func (t *Tracker) QualityPercent() int {
	return scoring.QualityPercent(t.qualifying, t.tracked)
}

// RecordMove classifies one player move made from the position prevFEN.
// playerMoveCount is the 1-based count of player moves including this one.
func (t *Tracker) RecordMove(ctx context.Context, prevFEN string, playerMoveCount int, playerUCI string) {
	t.tracked++
	if Classify(ctx, t.cfg, t.source, t.playerIsWhite, prevFEN, playerMoveCount, playerUCI) {
		t.qualifying++
	}
}

// Classify reports whether one player move qualifies. Collaborator failures
// leave the move unqualified and never propagate.
func Classify(ctx context.Context, cfg campaign.Config, source Source, playerIsWhite bool, prevFEN string, playerMoveCount int, playerUCI string) bool {
	// Opening-book moves are not penalized.
	if playerMoveCount <= cfg.SkipQualityMoves {
		return true
	}

	moves, err := source.Moves(ctx, cfg.Campaign, prevFEN)
	if err != nil {
		obslog.L().Warn("quality_source_error",
			zap.String("campaign", string(cfg.Campaign)),
			zap.String("uci", playerUCI),
			zap.Error(err),
		)
		return false
	}
	if len(moves) == 0 {
		return false
	}

	idx := findMove(moves, playerUCI)
	if idx < 0 {
		return false
	}

	if idx < topChoices {
		if isBadTopMove(moves, idx, playerIsWhite) {
			obslog.L().Debug("quality_bad_top_move",
				zap.String("uci", playerUCI),
				zap.Int("rank", idx+1),
			)
			return false
		}
		return true
	}

	return isTrickyMove(cfg, moves[idx], idx, playerIsWhite)
}

// findMove locates the player's move by UCI, falling back to the castling SAN
// the database uses for O-O / O-O-O.
func findMove(moves []explorer.Move, playerUCI string) int {
	castleSAN := ""
	switch playerUCI {
	case "e1g1", "e8g8":
		castleSAN = "O-O"
	case "e1c1", "e8c8":
		castleSAN = "O-O-O"
	}
	for i, m := range moves {
		if m.UCI == playerUCI {
			return i
		}
		if castleSAN != "" && m.SAN == castleSAN {
			return i
		}
	}
	return -1
}

func winStats(m explorer.Move, playerIsWhite bool) (playerPct, opponentPct, ratio float64) {
	white, black := m.WinPercents()
	if playerIsWhite {
		playerPct, opponentPct = white, black
	} else {
		playerPct, opponentPct = black, white
	}
	ratio = 999
	if opponentPct > 0 {
		ratio = playerPct / opponentPct
	}
	return
}

// isBadTopMove disqualifies a top-3 move that is popular but objectively
// weaker than its peers: both other top moves clearly win more often and
// score above parity while the player's move scores below it. Needs at least
// two other top-3 moves to compare against.
func isBadTopMove(moves []explorer.Move, idx int, playerIsWhite bool) bool {
	playerPct, _, playerRatio := winStats(moves[idx], playerIsWhite)

	lowestOtherPct := -1.0
	othersAboveParity := true
	others := 0
	for i := 0; i < topChoices && i < len(moves); i++ {
		if i == idx {
			continue
		}
		pct, _, ratio := winStats(moves[i], playerIsWhite)
		if lowestOtherPct < 0 || pct < lowestOtherPct {
			lowestOtherPct = pct
		}
		if ratio <= 1.0 {
			othersAboveParity = false
		}
		others++
	}
	if others < 2 {
		return false
	}

	return lowestOtherPct-playerPct > badTopGapPoints && playerRatio < 1.0 && othersAboveParity
}

// isTrickyMove qualifies a rank-5..20 move whose win-percentage advantage
// meets the campaign tier for its historical game count.
func isTrickyMove(cfg campaign.Config, m explorer.Move, idx int, playerIsWhite bool) bool {
	tc := cfg.Tricky
	if !tc.Enabled || idx < tc.MinRank-1 || idx > tc.MaxRank-1 {
		return false
	}

	total := m.TotalGames()
	playerPct, opponentPct, _ := winStats(m, playerIsWhite)
	advantage := playerPct - opponentPct

	tier, ok := tc.Tier(total)
	if !ok {
		return false
	}
	if advantage < tier.MinWinAdvantage {
		return false
	}

	obslog.L().Debug("quality_tricky_move",
		zap.Int("rank", idx+1),
		zap.Int("games", total),
		zap.Float64("win_advantage", advantage),
	)
	return true
}
