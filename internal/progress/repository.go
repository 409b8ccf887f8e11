package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/shrinivas105/chess-theory-trainer/internal/scoring"
)

// Repository mirrors progression records into Postgres so they survive a
// redis wipe and can be read by reporting tools.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveProgress upserts a player's record.
func (r *Repository) SaveProgress(ctx context.Context, rec *Record) error {
	if r == nil || r.db == nil || rec == nil {
		return nil
	}

	ranksMaster, _ := json.Marshal(rec.RecentRanksMaster)
	ranksClub, _ := json.Marshal(rec.RecentRanksClub)

	q := `INSERT INTO player_progress (
        player_id, master_merit, lichess_merit,
        games_played_master, games_played_lichess,
        recent_battle_ranks_master, recent_battle_ranks_lichess,
        last_color_master, last_color_lichess, updated_at
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
      ) ON CONFLICT (player_id) DO UPDATE SET
        master_merit=EXCLUDED.master_merit,
        lichess_merit=EXCLUDED.lichess_merit,
        games_played_master=EXCLUDED.games_played_master,
        games_played_lichess=EXCLUDED.games_played_lichess,
        recent_battle_ranks_master=EXCLUDED.recent_battle_ranks_master,
        recent_battle_ranks_lichess=EXCLUDED.recent_battle_ranks_lichess,
        last_color_master=EXCLUDED.last_color_master,
        last_color_lichess=EXCLUDED.last_color_lichess,
        updated_at=EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, q,
		rec.PlayerID,
		rec.MasterMerit, rec.ClubMerit,
		rec.GamesPlayedMaster, rec.GamesPlayedClub,
		string(ranksMaster), string(ranksClub),
		rec.LastColorMaster, rec.LastColorClub,
		rec.UpdatedAt,
	)
	return err
}

// LoadProgress fetches a player's record, nil when none is stored.
func (r *Repository) LoadProgress(ctx context.Context, playerID string) (*Record, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}

	q := `SELECT master_merit, lichess_merit,
	        games_played_master, games_played_lichess,
	        recent_battle_ranks_master, recent_battle_ranks_lichess,
	        last_color_master, last_color_lichess, updated_at
	      FROM player_progress WHERE player_id = $1`

	rec := Record{PlayerID: playerID}
	var ranksMaster, ranksClub string
	err := r.db.QueryRowContext(ctx, q, playerID).Scan(
		&rec.MasterMerit, &rec.ClubMerit,
		&rec.GamesPlayedMaster, &rec.GamesPlayedClub,
		&ranksMaster, &ranksClub,
		&rec.LastColorMaster, &rec.LastColorClub,
		&rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.RecentRanksMaster = decodeRanks(ranksMaster)
	rec.RecentRanksClub = decodeRanks(ranksClub)
	return &rec, nil
}

// DeleteProgress removes a player's record.
func (r *Repository) DeleteProgress(ctx context.Context, playerID string) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM player_progress WHERE player_id = $1`, playerID)
	return err
}

func decodeRanks(raw string) []scoring.BattleRank {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var ranks []scoring.BattleRank
	if err := json.Unmarshal([]byte(raw), &ranks); err != nil {
		return nil
	}
	return ranks
}
