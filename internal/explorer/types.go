package explorer

// Move is one historical move option at a position. Lists returned by the
// explorer are ordered by total game count descending; no stability beyond
// "frequency-descending" is assumed across queries.
type Move struct {
	SAN   string `json:"san"`
	UCI   string `json:"uci"`
	White int    `json:"white"`
	Draws int    `json:"draws"`
	Black int    `json:"black"`
}

// TotalGames is the number of recorded games continuing with this move.
func (m Move) TotalGames() int { return m.White + m.Draws + m.Black }

// WinPercents returns the white and black win percentages for this move.
func (m Move) WinPercents() (white, black float64) {
	total := m.TotalGames()
	if total == 0 {
		return 0, 0
	}
	return float64(m.White) / float64(total) * 100, float64(m.Black) / float64(total) * 100
}

// PlayerRef identifies one side of a historical game. Rating is absent for
// some master-database records.
type PlayerRef struct {
	Name   string `json:"name"`
	Rating *int   `json:"rating,omitempty"`
}

// GameRecord is one historical game shown in the end-of-session panel.
type GameRecord struct {
	ID     string    `json:"id"`
	Winner string    `json:"winner,omitempty"` // "white" | "black" | "" for draw
	Year   *int      `json:"year,omitempty"`
	Month  string    `json:"month,omitempty"`
	White  PlayerRef `json:"white"`
	Black  PlayerRef `json:"black"`
}

// PositionStats is the explorer response for one position.
type PositionStats struct {
	White       int          `json:"white"`
	Draws       int          `json:"draws"`
	Black       int          `json:"black"`
	Moves       []Move       `json:"moves"`
	TopGames    []GameRecord `json:"topGames,omitempty"`
	RecentGames []GameRecord `json:"recentGames,omitempty"`
}

// TotalGames is the number of recorded games reaching this position.
func (s PositionStats) TotalGames() int { return s.White + s.Draws + s.Black }

type cloudEvalResponse struct {
	PVs []struct {
		CP   *int `json:"cp,omitempty"`
		Mate *int `json:"mate,omitempty"`
	} `json:"pvs"`
}
