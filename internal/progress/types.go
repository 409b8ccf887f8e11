// Package progress persists per-player campaign progression: merit, the
// rolling battle-rank window, games played, and last color. Redis is the
// authoritative store; a database repository mirrors it for durability.
package progress

import (
	"time"

	"github.com/shrinivas105/chess-theory-trainer/internal/campaign"
	"github.com/shrinivas105/chess-theory-trainer/internal/scoring"
)

// Record is one player's saved progression across both campaigns. Field names
// are fixed by previously saved data; the club campaign keeps its historical
// "lichess" naming on the wire.
type Record struct {
	PlayerID string `json:"player_id"`

	MasterMerit int `json:"master_merit"`
	ClubMerit   int `json:"lichess_merit"`

	GamesPlayedMaster int `json:"games_played_master"`
	GamesPlayedClub   int `json:"games_played_lichess"`

	RecentRanksMaster []scoring.BattleRank `json:"recent_battle_ranks_master"`
	RecentRanksClub   []scoring.BattleRank `json:"recent_battle_ranks_lichess"`

	LastColorMaster string `json:"last_color_master"`
	LastColorClub   string `json:"last_color_lichess"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Ledger extracts one campaign's ledger state.
func (r *Record) Ledger(camp campaign.Campaign) scoring.LedgerState {
	if camp == campaign.Master {
		return scoring.LedgerState{
			Merit:       r.MasterMerit,
			Recent:      append([]scoring.BattleRank(nil), r.RecentRanksMaster...),
			GamesPlayed: r.GamesPlayedMaster,
			LastColor:   r.LastColorMaster,
		}
	}
	return scoring.LedgerState{
		Merit:       r.ClubMerit,
		Recent:      append([]scoring.BattleRank(nil), r.RecentRanksClub...),
		GamesPlayed: r.GamesPlayedClub,
		LastColor:   r.LastColorClub,
	}
}

// SetLedger writes one campaign's ledger state back into the record.
func (r *Record) SetLedger(camp campaign.Campaign, st scoring.LedgerState) {
	if camp == campaign.Master {
		r.MasterMerit = st.Merit
		r.RecentRanksMaster = st.Recent
		r.GamesPlayedMaster = st.GamesPlayed
		r.LastColorMaster = st.LastColor
		return
	}
	r.ClubMerit = st.Merit
	r.RecentRanksClub = st.Recent
	r.GamesPlayedClub = st.GamesPlayed
	r.LastColorClub = st.LastColor
}

// Rank derives the current legion rank for one campaign.
func (r *Record) Rank(camp campaign.Campaign) scoring.LegionRank {
	if camp == campaign.Master {
		return scoring.LegionRankFor(r.MasterMerit)
	}
	return scoring.LegionRankFor(r.ClubMerit)
}
