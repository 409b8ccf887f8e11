package progress

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shrinivas105/chess-theory-trainer/internal/campaign"
	"github.com/shrinivas105/chess-theory-trainer/internal/scoring"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb)
}

func TestLoadMissingRecord(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Load(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.PlayerID != "p1" || rec.MasterMerit != 0 || rec.GamesPlayedClub != 0 {
		t.Fatalf("fresh record not zeroed: %+v", rec)
	}
}

func TestApplyOutcomePersists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	applied, rec, err := s.ApplyOutcome(ctx, "p1", campaign.Master, scoring.Principes, 60, "white")
	if err != nil {
		t.Fatalf("ApplyOutcome: %v", err)
	}
	if applied.State.Merit != 60 || rec.MasterMerit != 60 {
		t.Fatalf("merit = %d/%d, want 60", applied.State.Merit, rec.MasterMerit)
	}
	if rec.GamesPlayedMaster != 1 || rec.LastColorMaster != "white" {
		t.Fatalf("session bookkeeping wrong: %+v", rec)
	}

	loaded, err := s.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("Load after apply: %v", err)
	}
	if loaded.MasterMerit != 60 || len(loaded.RecentRanksMaster) != 1 {
		t.Fatalf("reload mismatch: %+v", loaded)
	}
	if loaded.RecentRanksMaster[0] != scoring.Principes {
		t.Fatalf("window = %v", loaded.RecentRanksMaster)
	}
}

func TestCampaignsAreIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, _, err := s.ApplyOutcome(ctx, "p1", campaign.Master, scoring.Triarius, 70, "white"); err != nil {
		t.Fatalf("master apply: %v", err)
	}
	if _, _, err := s.ApplyOutcome(ctx, "p1", campaign.Club, scoring.Levy, 10, "black"); err != nil {
		t.Fatalf("club apply: %v", err)
	}

	rec, err := s.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.MasterMerit != 70 || rec.ClubMerit != 10 {
		t.Fatalf("merits = %d/%d, want 70/10", rec.MasterMerit, rec.ClubMerit)
	}
	if rec.LastColorMaster != "white" || rec.LastColorClub != "black" {
		t.Fatalf("colors = %q/%q", rec.LastColorMaster, rec.LastColorClub)
	}
}

func TestResetClearsRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, _, err := s.ApplyOutcome(ctx, "p1", campaign.Master, scoring.Principes, 60, "white"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := s.Reset(ctx, "p1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	rec, err := s.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.MasterMerit != 0 || rec.GamesPlayedMaster != 0 {
		t.Fatalf("record survived reset: %+v", rec)
	}
}
