package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shrinivas105/chess-theory-trainer/internal/campaign"
	"github.com/shrinivas105/chess-theory-trainer/internal/explorer"
	"github.com/shrinivas105/chess-theory-trainer/internal/progress"
	"github.com/shrinivas105/chess-theory-trainer/internal/scoring"
)

// fakeSource serves one scripted continuation per side until its budget runs
// out, then reports the position as out of theory.
type fakeSource struct {
	whiteReply explorer.Move
	blackReply explorer.Move
	budget     int
	eval       float64
	games      []explorer.GameRecord
}

func (f *fakeSource) Stats(ctx context.Context, camp campaign.Campaign, fen string) (explorer.PositionStats, error) {
	if f.budget <= 0 {
		return explorer.PositionStats{}, nil
	}
	f.budget--
	mv := f.whiteReply
	if fields := strings.Fields(fen); len(fields) >= 2 && fields[1] == "b" {
		mv = f.blackReply
	}
	return explorer.PositionStats{White: 400, Draws: 300, Black: 300, Moves: []explorer.Move{mv}}, nil
}

func (f *fakeSource) Moves(ctx context.Context, camp campaign.Campaign, fen string) ([]explorer.Move, error) {
	stats, err := f.Stats(ctx, camp, fen)
	if err != nil {
		return nil, err
	}
	return stats.Moves, nil
}

func (f *fakeSource) Games(ctx context.Context, camp campaign.Campaign, fen string) ([]explorer.GameRecord, error) {
	return f.games, nil
}

func (f *fakeSource) Evaluate(ctx context.Context, fen string) (float64, error) {
	return f.eval, nil
}

func newTestManager(t *testing.T, src TheorySource) (*Manager, *progress.RedisStore) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store := progress.NewRedisStore(rdb)
	return NewManager(rdb, src, store, time.Hour), store
}

func TestFullSessionAsWhite(t *testing.T) {
	src := &fakeSource{
		whiteReply: explorer.Move{UCI: "e2e4", SAN: "e4", White: 400, Draws: 300, Black: 300},
		blackReply: explorer.Move{UCI: "e7e5", SAN: "e5", White: 300, Draws: 400, Black: 300},
		budget:     1, // one opponent reply, then theory ends
		eval:       0.8,
		games:      []explorer.GameRecord{{ID: "g1", Winner: "white"}},
	}
	m, store := newTestManager(t, src)
	ctx := context.Background()

	s, warning, err := m.Start(ctx, "p1", campaign.Master)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if warning != nil {
		t.Fatalf("fresh ledger produced a warning: %+v", warning)
	}
	if s.PlayerColor != White || s.Status != StatusAwaitingPlayer {
		t.Fatalf("color=%s status=%s", s.PlayerColor, s.Status)
	}

	s, err = m.PlayMove(ctx, "p1", "e2e4")
	if err != nil {
		t.Fatalf("PlayMove: %v", err)
	}
	if s.Status != StatusAwaitingOpponent || s.PlayerMoves != 1 || s.Qualifying != 1 {
		t.Fatalf("after player move: %+v", s)
	}

	s, err = m.OpponentMove(ctx, "p1")
	if err != nil {
		t.Fatalf("OpponentMove: %v", err)
	}
	if s.Status != StatusAwaitingPlayer || len(s.MovesSAN) != 2 || s.MovesSAN[1] != "e5" {
		t.Fatalf("after opponent move: %+v", s)
	}

	s, err = m.PlayMove(ctx, "p1", "g1f3")
	if err != nil {
		t.Fatalf("second PlayMove: %v", err)
	}

	// Budget exhausted: the next opponent turn ends the battle.
	s, err = m.OpponentMove(ctx, "p1")
	if err != nil {
		t.Fatalf("final OpponentMove: %v", err)
	}
	if s.Status != StatusEnded || s.Result == nil {
		t.Fatalf("session did not end: %+v", s)
	}

	// 2 moves, 100% quality, +0.8: 2 + 40 + 15.96 rounds to 58.
	if s.Result.Score != 58 || s.Result.BattleRank != scoring.Principes {
		t.Fatalf("score=%d rank=%s, want 58 Principes", s.Result.Score, s.Result.BattleRank)
	}
	if s.Result.QualityPercent != 100 || s.Result.FinalEval != 0.8 {
		t.Fatalf("quality=%d eval=%v", s.Result.QualityPercent, s.Result.FinalEval)
	}
	if len(s.Result.Games) != 1 || s.Result.PGN == "" {
		t.Fatalf("result extras missing: %+v", s.Result)
	}

	rec, err := store.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("progress load: %v", err)
	}
	if rec.MasterMerit != 58 || rec.GamesPlayedMaster != 1 || rec.LastColorMaster != "white" {
		t.Fatalf("ledger not updated: %+v", rec)
	}
	if len(rec.RecentRanksMaster) != 1 || rec.RecentRanksMaster[0] != scoring.Principes {
		t.Fatalf("window = %v", rec.RecentRanksMaster)
	}
}

func TestColorAlternates(t *testing.T) {
	src := &fakeSource{
		whiteReply: explorer.Move{UCI: "e2e4", SAN: "e4", White: 400, Draws: 300, Black: 300},
		blackReply: explorer.Move{UCI: "e7e5", SAN: "e5", White: 300, Draws: 400, Black: 300},
		budget:     1,
		eval:       0.2,
	}
	m, store := newTestManager(t, src)
	ctx := context.Background()

	// Previous battle as White: next one starts as Black with the opponent
	// already having moved.
	if _, _, err := store.ApplyOutcome(ctx, "p1", campaign.Master, scoring.Principes, 60, "white"); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	s, _, err := m.Start(ctx, "p1", campaign.Master)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.PlayerColor != Black {
		t.Fatalf("color = %s, want black", s.PlayerColor)
	}
	if s.Status != StatusAwaitingPlayer || len(s.MovesUCI) != 1 || s.MovesUCI[0] != "e2e4" {
		t.Fatalf("opponent opening move missing: %+v", s)
	}
}

func TestIllegalAndOutOfTurnMoves(t *testing.T) {
	src := &fakeSource{budget: 0, eval: 0}
	m, _ := newTestManager(t, src)
	ctx := context.Background()

	if _, err := m.PlayMove(ctx, "p1", "e2e4"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("move without session: %v", err)
	}

	if _, _, err := m.Start(ctx, "p1", campaign.Club); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := m.PlayMove(ctx, "p1", "e2e5"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("illegal move: %v", err)
	}
	if _, err := m.OpponentMove(ctx, "p1"); !errors.Is(err, ErrNotOpponentTurn) {
		t.Fatalf("opponent move on player turn: %v", err)
	}
}

func TestHintsMarkSession(t *testing.T) {
	src := &fakeSource{
		whiteReply: explorer.Move{UCI: "e2e4", SAN: "e4", White: 400, Draws: 300, Black: 300},
		budget:     2,
	}
	m, _ := newTestManager(t, src)
	ctx := context.Background()

	if _, _, err := m.Start(ctx, "p1", campaign.Master); err != nil {
		t.Fatalf("Start: %v", err)
	}
	moves, err := m.Hints(ctx, "p1")
	if err != nil {
		t.Fatalf("Hints: %v", err)
	}
	if len(moves) != 1 || moves[0].UCI != "e2e4" {
		t.Fatalf("hints = %+v", moves)
	}
	s, err := m.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !s.HintUsed {
		t.Fatal("hint use not recorded")
	}
}

func TestAbandonDiscardsSession(t *testing.T) {
	src := &fakeSource{budget: 0}
	m, store := newTestManager(t, src)
	ctx := context.Background()

	if _, _, err := m.Start(ctx, "p1", campaign.Master); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Abandon(ctx, "p1"); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if _, err := m.Get(ctx, "p1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("session survived abandon: %v", err)
	}

	rec, err := store.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.GamesPlayedMaster != 0 || rec.MasterMerit != 0 {
		t.Fatalf("abandoned session touched the ledger: %+v", rec)
	}
}
