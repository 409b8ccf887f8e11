package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shrinivas105/chess-theory-trainer/internal/campaign"
	"github.com/shrinivas105/chess-theory-trainer/internal/explorer"
	"github.com/shrinivas105/chess-theory-trainer/internal/obslog"
	"github.com/shrinivas105/chess-theory-trainer/internal/pgn"
	"github.com/shrinivas105/chess-theory-trainer/internal/progress"
	"github.com/shrinivas105/chess-theory-trainer/internal/quality"
	"github.com/shrinivas105/chess-theory-trainer/internal/scoring"
)

var (
	ErrNoSession       = errors.New("no active session")
	ErrNotPlayerTurn   = errors.New("not the player's turn")
	ErrNotOpponentTurn = errors.New("not the opponent's turn")
	ErrIllegalMove     = errors.New("illegal move")
	ErrConflict        = errors.New("concurrent update, try again")
)

// hintCount is how many continuations a hint reveals.
const hintCount = 5

// thinShareDivisor drops opponent candidates played in under a tenth of the
// recorded continuations.
const thinShareDivisor = 10

// TheorySource is the slice of the explorer client the manager needs.
type TheorySource interface {
	Stats(ctx context.Context, camp campaign.Campaign, fen string) (explorer.PositionStats, error)
	Moves(ctx context.Context, camp campaign.Campaign, fen string) ([]explorer.Move, error)
	Games(ctx context.Context, camp campaign.Campaign, fen string) ([]explorer.GameRecord, error)
	Evaluate(ctx context.Context, fen string) (float64, error)
}

// ProgressStore is the slice of the progress store the manager needs.
type ProgressStore interface {
	Load(ctx context.Context, playerID string) (*progress.Record, error)
	ApplyOutcome(ctx context.Context, playerID string, camp campaign.Campaign, outcome scoring.BattleRank, score int, color string) (scoring.ApplyResult, *progress.Record, error)
}

// Manager runs the battle lifecycle. One session per player, keyed by player
// ID; starting a new battle replaces any unfinished one.
type Manager struct {
	rdb    *redis.Client
	source TheorySource
	store  ProgressStore
	ttl    time.Duration
}

func NewManager(rdb *redis.Client, source TheorySource, store ProgressStore, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{rdb: rdb, source: source, store: store, ttl: ttl}
}

func sessionKey(playerID string) string { return "theory:session:" + playerID }

// Start opens a new battle. The player's color alternates with the color of
// their previous battle in the same campaign. When the player takes Black the
// opponent's first move is played before returning. The returned warning is
// the commander's pre-battle demotion warning, nil when the ledger is safe.
func (m *Manager) Start(ctx context.Context, playerID string, camp campaign.Campaign) (*Session, *scoring.Warning, error) {
	if strings.TrimSpace(playerID) == "" {
		return nil, nil, fmt.Errorf("player id required")
	}

	rec, err := m.store.Load(ctx, playerID)
	if err != nil {
		return nil, nil, err
	}
	ledger := rec.Ledger(camp)

	color := White
	if ledger.LastColor == string(White) {
		color = Black
	}

	now := time.Now()
	s := &Session{
		ID:          uuid.NewString(),
		PlayerID:    playerID,
		Campaign:    camp,
		PlayerColor: color,
		FEN:         nchess.NewGame().FEN(),
		MovesUCI:    []string{},
		MovesSAN:    []string{},
		Status:      StatusAwaitingPlayer,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if color == Black {
		s.Status = StatusAwaitingOpponent
	}
	if err := m.save(ctx, s); err != nil {
		return nil, nil, err
	}

	warning := scoring.DemotionWarning(scoring.LegionRankFor(ledger.Merit).Title, ledger.Recent, ledger.Merit)

	obslog.L().Info("session_start",
		zap.String("session_id", s.ID),
		zap.String("player_id", playerID),
		zap.String("campaign", string(camp)),
		zap.String("color", string(color)),
	)

	if color == Black {
		s, err = m.OpponentMove(ctx, playerID)
		if err != nil {
			return nil, nil, err
		}
	}
	return s, warning, nil
}

// Get returns the player's current session, ErrNoSession when none exists.
func (m *Manager) Get(ctx context.Context, playerID string) (*Session, error) {
	raw, err := m.rdb.Get(ctx, sessionKey(playerID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// PlayMove applies one player move. The move is validated and classified
// against the database first, then committed under WATCH so a concurrent
// writer cannot double-apply it.
func (m *Manager) PlayMove(ctx context.Context, playerID, moveStr string) (*Session, error) {
	s, err := m.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if !s.Active() {
		return s, ErrNoSession
	}
	if !s.PlayerTurn() {
		return s, ErrNotPlayerTurn
	}

	game := reconstruct(s.MovesUCI)
	if game == nil {
		return nil, fmt.Errorf("failed to reconstruct game")
	}
	uci, san, err := applyMove(game, moveStr)
	if err != nil {
		return s, ErrIllegalMove
	}

	// Classification hits the network, so it happens before the transaction.
	cfg := campaign.For(s.Campaign)
	qualifies := quality.Classify(ctx, cfg, m.source, s.PlayerColor == White, s.FEN, s.PlayerMoves+1, uci)

	oldLen := len(s.MovesUCI)
	key := sessionKey(playerID)
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readSession(ctx, tx, key)
		if err != nil {
			return err
		}
		if cur.Status != StatusAwaitingPlayer || len(cur.MovesUCI) != oldLen {
			return redis.TxFailedErr
		}

		cur.MovesUCI = append(cur.MovesUCI, uci)
		cur.MovesSAN = append(cur.MovesSAN, san)
		cur.FEN = game.FEN()
		cur.PlayerMoves++
		cur.QualityTracked++
		if qualifies {
			cur.Qualifying++
		}
		cur.Status = StatusAwaitingOpponent
		cur.UpdatedAt = time.Now()

		raw, _ := json.Marshal(cur)
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, raw, m.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		s = cur
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return s, ErrConflict
	}
	if err != nil {
		return nil, err
	}

	obslog.L().Info("session_player_move",
		zap.String("session_id", s.ID),
		zap.String("uci", uci),
		zap.Bool("qualifies", qualifies),
	)
	return s, nil
}

// OpponentMove plays the historical opponent's reply, sampled from the
// database weighted by game count. When the position has dropped out of
// theory the session ends and the battle is scored instead.
func (m *Manager) OpponentMove(ctx context.Context, playerID string) (*Session, error) {
	s, err := m.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusAwaitingOpponent {
		return s, ErrNotOpponentTurn
	}

	cfg := campaign.For(s.Campaign)
	stats, err := m.source.Stats(ctx, s.Campaign, s.FEN)
	if err != nil {
		obslog.L().Warn("session_theory_lookup_failed", zap.String("session_id", s.ID), zap.Error(err))
		return m.endSession(ctx, s)
	}
	if stats.TotalGames() < cfg.MinTheoryGames || len(stats.Moves) == 0 {
		return m.endSession(ctx, s)
	}

	chosen := sampleMove(stats.Moves)
	game := reconstruct(s.MovesUCI)
	if game == nil {
		return nil, fmt.Errorf("failed to reconstruct game")
	}
	uci, san, err := applyMove(game, chosen.UCI)
	if err != nil {
		// Some database entries only carry SAN.
		uci, san, err = applyMove(game, chosen.SAN)
		if err != nil {
			obslog.L().Warn("session_opponent_move_invalid",
				zap.String("session_id", s.ID),
				zap.String("uci", chosen.UCI),
				zap.String("san", chosen.SAN),
			)
			return m.endSession(ctx, s)
		}
	}

	oldLen := len(s.MovesUCI)
	key := sessionKey(playerID)
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readSession(ctx, tx, key)
		if err != nil {
			return err
		}
		if cur.Status != StatusAwaitingOpponent || len(cur.MovesUCI) != oldLen {
			return redis.TxFailedErr
		}

		cur.MovesUCI = append(cur.MovesUCI, uci)
		cur.MovesSAN = append(cur.MovesSAN, san)
		cur.FEN = game.FEN()
		cur.Status = StatusAwaitingPlayer
		cur.UpdatedAt = time.Now()

		raw, _ := json.Marshal(cur)
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, raw, m.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		s = cur
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return s, ErrConflict
	}
	if err != nil {
		return nil, err
	}

	obslog.L().Info("session_opponent_move",
		zap.String("session_id", s.ID),
		zap.String("uci", uci),
		zap.Int("games", chosen.TotalGames()),
	)
	return s, nil
}

// Hints returns the leading continuations for the current position and marks
// the session as having used a hint.
func (m *Manager) Hints(ctx context.Context, playerID string) ([]explorer.Move, error) {
	s, err := m.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if !s.PlayerTurn() {
		return nil, ErrNotPlayerTurn
	}

	moves, err := m.source.Moves(ctx, s.Campaign, s.FEN)
	if err != nil {
		return nil, err
	}
	if len(moves) > hintCount {
		moves = moves[:hintCount]
	}

	if !s.HintUsed {
		s.HintUsed = true
		if err := m.save(ctx, s); err != nil {
			return nil, err
		}
	}
	return moves, nil
}

// End finishes the player's active session on demand, scoring the position
// as it stands.
func (m *Manager) End(ctx context.Context, playerID string) (*Session, error) {
	s, err := m.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if !s.Active() {
		return s, nil
	}
	return m.endSession(ctx, s)
}

// Abandon discards the session without scoring it.
func (m *Manager) Abandon(ctx context.Context, playerID string) error {
	s, err := m.Get(ctx, playerID)
	if err != nil {
		return err
	}
	if err := m.rdb.Del(ctx, sessionKey(playerID)).Err(); err != nil {
		return err
	}
	obslog.L().Info("session_abandon",
		zap.String("session_id", s.ID),
		zap.String("player_id", playerID),
	)
	return nil
}

// endSession scores the battle and folds it into the campaign ledger. An
// unreachable evaluation service scores the position as level.
func (m *Manager) endSession(ctx context.Context, s *Session) (*Session, error) {
	cfg := campaign.For(s.Campaign)

	eval, err := m.source.Evaluate(ctx, s.FEN)
	if err != nil {
		obslog.L().Warn("session_eval_failed", zap.String("session_id", s.ID), zap.Error(err))
		eval = 0
	}
	playerEval := scoring.PlayerEval(eval, s.PlayerColor == White)

	scoreRes := scoring.TotalScore(cfg, s.PlayerMoves, s.Qualifying, s.QualityTracked, playerEval)
	rank := scoring.Rank(cfg, scoreRes.Score, playerEval)

	applied, rec, err := m.store.ApplyOutcome(ctx, s.PlayerID, s.Campaign, rank, scoreRes.Score, string(s.PlayerColor))
	if err != nil {
		return nil, err
	}

	games, gerr := m.source.Games(ctx, s.Campaign, s.FEN)
	if gerr != nil {
		obslog.L().Warn("session_games_panel_failed", zap.String("session_id", s.ID), zap.Error(gerr))
	}

	s.Result = &Result{
		Score:          scoreRes.Score,
		Band:           scoreRes.Band,
		QualityPercent: scoreRes.QualityPercent,
		FinalEval:      playerEval,
		BattleRank:     rank,
		Change:         applied.Change,
		OldTitle:       applied.OldTitle,
		NewTitle:       applied.NewTitle,
		Demotion:       applied.Demotion,
		LegionRank:     rec.Rank(s.Campaign),
		Games:          games,
		PGN: pgn.Build(pgn.Params{
			Campaign:       s.Campaign,
			PlayerIsWhite:  s.PlayerColor == White,
			MovesSAN:       s.MovesSAN,
			BattleRank:     string(rank),
			Score:          scoreRes.Score,
			QualityPercent: scoreRes.QualityPercent,
			FinalEval:      playerEval,
			EndedAt:        time.Now(),
		}),
	}
	s.Status = StatusEnded
	s.UpdatedAt = time.Now()
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}

	obslog.L().Info("session_end",
		zap.String("session_id", s.ID),
		zap.String("player_id", s.PlayerID),
		zap.String("campaign", string(s.Campaign)),
		zap.Int("score", scoreRes.Score),
		zap.String("battle_rank", string(rank)),
		zap.String("rank_change", string(applied.Change)),
		zap.Int("merit", applied.State.Merit),
	)
	return s, nil
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, sessionKey(s.PlayerID), raw, m.ttl).Err()
}

func readSession(ctx context.Context, tx *redis.Tx, key string) (*Session, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Game replays the session's stored moves into a playable game, nil when the
// stored move list is corrupt.
func (s *Session) Game() *nchess.Game { return reconstruct(s.MovesUCI) }

// reconstruct replays the stored UCI moves from the start position.
func reconstruct(moves []string) *nchess.Game {
	game := nchess.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil
		}
	}
	return game
}

// applyMove plays moveStr, trying UCI first and SAN second, and returns the
// canonical UCI and SAN of the move made.
func applyMove(game *nchess.Game, moveStr string) (uci, san string, err error) {
	raw := strings.TrimSpace(moveStr)
	if raw == "" {
		return "", "", fmt.Errorf("empty move")
	}
	pos := game.Position()

	if mv, derr := (nchess.UCINotation{}).Decode(pos, strings.ToLower(raw)); derr == nil {
		san = nchess.AlgebraicNotation{}.Encode(pos, mv)
		if err := game.Move(mv, nil); err != nil {
			return "", "", err
		}
		return mv.String(), san, nil
	}

	if err := game.PushNotationMove(raw, nchess.AlgebraicNotation{}, nil); err != nil {
		return "", "", err
	}
	last := lastMove(game)
	if last == nil {
		return "", "", fmt.Errorf("move not recorded")
	}
	return last.String(), nchess.AlgebraicNotation{}.Encode(pos, last), nil
}

func lastMove(game *nchess.Game) *nchess.Move {
	moves := game.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}

// sampleMove picks an opponent reply weighted by historical game count, after
// dropping rarely played continuations.
func sampleMove(moves []explorer.Move) explorer.Move {
	listed := 0
	for _, m := range moves {
		listed += m.TotalGames()
	}

	pool := make([]explorer.Move, 0, len(moves))
	for _, m := range moves {
		if m.TotalGames()*thinShareDivisor >= listed {
			pool = append(pool, m)
		}
	}
	if len(pool) == 0 {
		pool = moves
	}

	total := 0
	for _, m := range pool {
		total += m.TotalGames()
	}
	if total <= 0 {
		return pool[0]
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(total)))
	if err != nil {
		return pool[0]
	}
	pick := int(n.Int64())
	for _, m := range pool {
		pick -= m.TotalGames()
		if pick < 0 {
			return m
		}
	}
	return pool[len(pool)-1]
}
