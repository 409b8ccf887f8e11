package progress

import (
	"context"

	"go.uber.org/zap"

	"github.com/shrinivas105/chess-theory-trainer/internal/campaign"
	"github.com/shrinivas105/chess-theory-trainer/internal/obslog"
	"github.com/shrinivas105/chess-theory-trainer/internal/scoring"
)

// Store layers the remote repository over the redis store. Redis serves every
// read and write; the repository is consulted on first load and mirrored on
// writes, and its failures never fail the caller.
type Store struct {
	local  *RedisStore
	remote *Repository // nil when no database is configured
}

func NewStore(local *RedisStore, remote *Repository) *Store {
	return &Store{local: local, remote: remote}
}

// Load returns the player's record. A stored remote record takes precedence
// and is mirrored into redis, so progression follows the player across
// redeployments.
func (s *Store) Load(ctx context.Context, playerID string) (*Record, error) {
	if s.remote != nil {
		rec, err := s.remote.LoadProgress(ctx, playerID)
		if err != nil {
			obslog.L().Warn("progress_remote_load_failed", zap.String("player_id", playerID), zap.Error(err))
		} else if rec != nil {
			if serr := s.local.Save(ctx, rec); serr != nil {
				return nil, serr
			}
			return rec, nil
		}
	}
	return s.local.Load(ctx, playerID)
}

// ApplyOutcome updates the campaign ledger in redis, then mirrors the new
// record to the repository best-effort.
func (s *Store) ApplyOutcome(ctx context.Context, playerID string, camp campaign.Campaign, outcome scoring.BattleRank, score int, color string) (scoring.ApplyResult, *Record, error) {
	applied, rec, err := s.local.ApplyOutcome(ctx, playerID, camp, outcome, score, color)
	if err != nil {
		return scoring.ApplyResult{}, nil, err
	}
	s.mirror(ctx, rec)
	return applied, rec, nil
}

// Reset wipes the player's progression in both stores.
func (s *Store) Reset(ctx context.Context, playerID string) error {
	if err := s.local.Reset(ctx, playerID); err != nil {
		return err
	}
	if s.remote != nil {
		if err := s.remote.DeleteProgress(ctx, playerID); err != nil {
			obslog.L().Warn("progress_remote_reset_failed", zap.String("player_id", playerID), zap.Error(err))
		}
	}
	return nil
}

func (s *Store) mirror(ctx context.Context, rec *Record) {
	if s.remote == nil || rec == nil {
		return
	}
	if err := s.remote.SaveProgress(ctx, rec); err != nil {
		obslog.L().Warn("progress_remote_save_failed", zap.String("player_id", rec.PlayerID), zap.Error(err))
	}
}
