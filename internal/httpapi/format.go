package httpapi

import (
	"strings"

	"github.com/shrinivas105/chess-theory-trainer/internal/explorer"
	"github.com/shrinivas105/chess-theory-trainer/internal/msgcat"
	"github.com/shrinivas105/chess-theory-trainer/internal/scoring"
	"github.com/shrinivas105/chess-theory-trainer/internal/session"
)

// Formatter turns session outcomes into the commander's voice via the
// message catalog.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter { return &Formatter{cat: cat} }

// BattleMessage returns the headline and subtext for a battle rank. A penalty
// band replaces the headline with the rout report.
func (f *Formatter) BattleMessage(rank scoring.BattleRank, band scoring.PenaltyBand) (msg, sub string) {
	key := "battle." + strings.ToLower(string(rank))
	msg = f.cat.MustRender(key+".msg", nil, string(rank))
	sub = f.cat.MustRender(key+".sub", nil, "")
	if band != scoring.BandNone {
		msg = f.cat.MustRender("penalty."+string(band), nil, msg)
	}
	return msg, sub
}

// RankChange renders the promotion or demotion announcement, empty when the
// rank held.
func (f *Formatter) RankChange(res *session.Result) string {
	switch res.Change {
	case scoring.ChangePromoted:
		return f.cat.MustRender("rank.promotion", map[string]any{"Title": string(res.NewTitle)}, "Promoted to "+string(res.NewTitle))
	case scoring.ChangeDemoted, scoring.ChangeReset:
		if res.Demotion == nil {
			return ""
		}
		variant := ".drop"
		if res.Demotion.SafetyNet {
			variant = ".safety"
		}
		key := "rank.demotion." + string(res.Demotion.Reason) + variant
		return f.cat.MustRender(key, map[string]any{
			"Title": string(res.Demotion.NewTitle),
			"Merit": res.Demotion.NewMerit,
		}, "Demoted to "+string(res.Demotion.NewTitle))
	}
	return ""
}

// Warning renders the pre-battle demotion warning.
func (f *Formatter) Warning(w *scoring.Warning) string {
	if w == nil {
		return ""
	}
	variant := ".drop"
	if w.InSafetyNet {
		variant = ".safety"
	}
	return f.cat.MustRender("warning."+w.Kind+variant, map[string]any{
		"Needed": w.NeededElite,
		"Left":   w.BattlesLeft,
	}, "")
}

// Hint renders the scout report for the leading continuations.
func (f *Formatter) Hint(moves []explorer.Move) string {
	sans := make([]string, 0, len(moves))
	for _, m := range moves {
		sans = append(sans, m.SAN)
	}
	return f.cat.MustRender("session.hint", map[string]any{
		"Moves": strings.Join(sans, ", "),
	}, strings.Join(sans, ", "))
}

// TheoryEnd renders the end-of-theory notice.
func (f *Formatter) TheoryEnd() string {
	return f.cat.MustRender("session.theory_end", nil, "Theory has ended.")
}
