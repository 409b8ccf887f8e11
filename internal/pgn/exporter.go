// Package pgn renders a finished training session as a PGN document with the
// battle annotations embedded as extra tags.
package pgn

import (
	"fmt"
	"strings"
	"time"

	"github.com/shrinivas105/chess-theory-trainer/internal/campaign"
)

// Params describes one finished session.
type Params struct {
	Campaign       campaign.Campaign
	PlayerIsWhite  bool
	MovesSAN       []string
	BattleRank     string
	Score          int
	QualityPercent int
	FinalEval      float64 // player perspective
	EndedAt        time.Time
}

// Build renders the PGN. The result tag encodes the session verdict: a final
// evaluation at or beyond ±3 counts as decisive, anything else as a draw.
func Build(p Params) string {
	result := "1/2-1/2"
	switch {
	case p.FinalEval <= -3:
		result = "0-1"
		if !p.PlayerIsWhite {
			result = "1-0"
		}
	case p.FinalEval >= 3:
		result = "1-0"
		if !p.PlayerIsWhite {
			result = "0-1"
		}
	}

	campaignName := "Club"
	if p.Campaign == campaign.Master {
		campaignName = "Masters"
	}
	white, black := "Player", "Computer"
	if !p.PlayerIsWhite {
		white, black = "Computer", "Player"
	}

	at := p.EndedAt
	if at.IsZero() {
		at = time.Now()
	}

	evalText := fmt.Sprintf("%.1f", p.FinalEval)
	if p.FinalEval > 0 {
		evalText = "+" + evalText
	}

	var b strings.Builder
	tag := func(name, value string) {
		fmt.Fprintf(&b, "[%s %q]\n", name, value)
	}
	tag("Event", fmt.Sprintf("Lines of the Legion - %s Training", campaignName))
	tag("Site", "linesofthelegion.vercel.app")
	tag("Date", at.Format("2006.01.02"))
	tag("Time", at.Format("15:04:05"))
	tag("Round", "1")
	tag("White", white)
	tag("Black", black)
	tag("Result", result)
	tag("BattleRank", p.BattleRank)
	tag("BattleScore", fmt.Sprintf("%d/100", p.Score))
	tag("MoveQuality", fmt.Sprintf("%d%%", p.QualityPercent))
	tag("FinalEval", evalText)
	tag("Variant", "Standard")

	b.WriteString("\n")
	for i, san := range p.MovesSAN {
		if i%2 == 0 {
			fmt.Fprintf(&b, "%d. %s ", i/2+1, san)
		} else {
			b.WriteString(san + " ")
		}
		// Line break every eight full moves.
		if (i+1)%16 == 0 {
			b.WriteString("\n")
		}
	}
	b.WriteString(result)
	b.WriteString("\n")
	return b.String()
}
