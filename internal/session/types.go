// Package session runs one training battle per player: the player walks a
// theory line against a historically sampled opponent until the database runs
// dry, then the battle is scored and folded into the campaign ledger.
package session

import (
	"time"

	"github.com/shrinivas105/chess-theory-trainer/internal/campaign"
	"github.com/shrinivas105/chess-theory-trainer/internal/explorer"
	"github.com/shrinivas105/chess-theory-trainer/internal/scoring"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusAwaitingPlayer   Status = "AWAITING_PLAYER"
	StatusAwaitingOpponent Status = "AWAITING_OPPONENT"
	StatusEnded            Status = "ENDED"
	StatusAbandoned        Status = "ABANDONED"
)

// Color is a side of the board.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// Result is filled in when the session ends and the battle is scored.
type Result struct {
	Score          int                  `json:"score"`
	Band           scoring.PenaltyBand  `json:"band,omitempty"`
	QualityPercent int                  `json:"quality_percent"`
	FinalEval      float64              `json:"final_eval"` // player perspective
	BattleRank     scoring.BattleRank   `json:"battle_rank"`
	Change         scoring.RankChange   `json:"rank_change,omitempty"`
	OldTitle       scoring.LegionTitle  `json:"old_title"`
	NewTitle       scoring.LegionTitle  `json:"new_title"`
	Demotion       *scoring.Demotion    `json:"demotion,omitempty"`
	LegionRank     scoring.LegionRank   `json:"legion_rank"`
	Games          []explorer.GameRecord `json:"games,omitempty"`
	PGN            string               `json:"pgn,omitempty"`
}

// Session is the full state of one battle, stored as a single redis value.
type Session struct {
	ID          string            `json:"id"`
	PlayerID    string            `json:"player_id"`
	Campaign    campaign.Campaign `json:"campaign"`
	PlayerColor Color             `json:"player_color"`

	FEN      string   `json:"fen"`
	MovesUCI []string `json:"moves_uci"`
	MovesSAN []string `json:"moves_san"`

	// Quality bookkeeping: player moves made, moves checked, moves passing.
	PlayerMoves    int `json:"player_moves"`
	QualityTracked int `json:"quality_tracked"`
	Qualifying     int `json:"qualifying"`

	HintUsed bool   `json:"hint_used"`
	Status   Status `json:"status"`

	Result *Result `json:"result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlayerTurn reports whether it is the player's move in the current position.
func (s *Session) PlayerTurn() bool { return s.Status == StatusAwaitingPlayer }

// Active reports whether the session can still accept moves.
func (s *Session) Active() bool {
	return s.Status == StatusAwaitingPlayer || s.Status == StatusAwaitingOpponent
}
