package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shrinivas105/chess-theory-trainer/internal/campaign"
	"github.com/shrinivas105/chess-theory-trainer/internal/scoring"
)

const casRetries = 5

func progressKey(playerID string) string { return "theory:progress:" + playerID }

// OpenRedis connects and pings a redis client from a redis:// URL. The client
// is shared by the progress store and the session manager.
func OpenRedis(redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}

// RedisStore is the authoritative progression store. Records never expire.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Load returns the player's record, or a fresh zero record when none exists.
func (s *RedisStore) Load(ctx context.Context, playerID string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, progressKey(playerID)).Bytes()
	if err == redis.Nil {
		return &Record{PlayerID: playerID}, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	rec.PlayerID = playerID
	return &rec, nil
}

// Save overwrites the player's record unconditionally. Used for mirroring a
// remote record; session results go through ApplyOutcome instead.
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	rec.UpdatedAt = time.Now()
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, progressKey(rec.PlayerID), raw, 0).Err()
}

// ApplyOutcome folds one finished session into the player's campaign ledger
// under optimistic concurrency: the record is re-read and the fold re-run
// whenever a concurrent writer touches the key.
func (s *RedisStore) ApplyOutcome(ctx context.Context, playerID string, camp campaign.Campaign, outcome scoring.BattleRank, score int, color string) (scoring.ApplyResult, *Record, error) {
	key := progressKey(playerID)

	var applied scoring.ApplyResult
	var rec Record

	for attempt := 0; attempt < casRetries; attempt++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			cur := Record{PlayerID: playerID}
			raw, err := tx.Get(ctx, key).Bytes()
			if err != nil && err != redis.Nil {
				return err
			}
			if err == nil {
				if jerr := json.Unmarshal(raw, &cur); jerr != nil {
					return jerr
				}
				cur.PlayerID = playerID
			}

			applied = scoring.Apply(cur.Ledger(camp), outcome, score, color)
			cur.SetLedger(camp, applied.State)
			cur.UpdatedAt = time.Now()

			newRaw, _ := json.Marshal(&cur)
			pipe := tx.TxPipeline()
			pipe.Set(ctx, key, newRaw, 0)
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
			rec = cur
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return scoring.ApplyResult{}, nil, err
		}
		return applied, &rec, nil
	}
	return scoring.ApplyResult{}, nil, errors.New("progress update kept conflicting")
}

// Reset deletes the player's record entirely.
func (s *RedisStore) Reset(ctx context.Context, playerID string) error {
	return s.rdb.Del(ctx, progressKey(playerID)).Err()
}
