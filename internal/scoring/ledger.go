package scoring

// WindowSize is the length of the rolling battle-rank history.
const WindowSize = 5

// eliteNeeded is how many Triarius/Imperator outcomes a Tribunus must show
// inside the rolling window to hold the rank.
const eliteNeeded = 3

// DemotionReason keys the commander message for a demotion.
type DemotionReason string

const (
	ReasonRepeatedLevy        DemotionReason = "repeated_levy"
	ReasonRepeatedWeak        DemotionReason = "repeated_weak"
	ReasonCenturionWeakBattle DemotionReason = "centurion_weak_battle"
	ReasonCenturionNoElite    DemotionReason = "centurion_no_elite"
	ReasonTribunusWeakBattle  DemotionReason = "tribunus_weak_battle"
	ReasonTribunusOutOfReach  DemotionReason = "tribunus_out_of_reach"
)

// Demotion describes a demotion or safety-net merit reset.
type Demotion struct {
	NewTitle  LegionTitle
	NewMerit  int
	SafetyNet bool // merit reset, rank kept
	Reason    DemotionReason
}

func tally(recent []BattleRank) (levy, hastatus, elite int) {
	for _, r := range recent {
		switch {
		case r == Levy:
			levy++
		case r == Hastatus:
			hastatus++
		case r.Elite():
			elite++
		}
	}
	return
}

// demotionFor applies the safety net: above the net threshold the player keeps
// the rank and resets to its floor, otherwise they drop one level.
func demotionFor(title LegionTitle, meritBefore int, reason DemotionReason) *Demotion {
	level := legionLevel(title)
	if net, ok := SafetyNetThreshold(title); ok && meritBefore >= net {
		return &Demotion{NewTitle: title, NewMerit: LegionFloor(level), SafetyNet: true, Reason: reason}
	}
	prev := level - 1
	if prev < 0 {
		prev = 0
	}
	return &Demotion{NewTitle: legionTitles[prev], NewMerit: LegionFloor(prev), Reason: reason}
}

// CheckDemotion evaluates the demotion rules for the rank held before this
// session. recent must already include the newest outcome, trimmed to the
// window. Returns nil when no rule fires. Recruit and Legatus never demote.
func CheckDemotion(title LegionTitle, recent []BattleRank, newest BattleRank, meritBefore int) *Demotion {
	if title == Recruit || title == Legatus {
		return nil
	}

	levy, hastatus, elite := tally(recent)

	switch title {
	case Legionary:
		if levy >= 2 {
			return demotionFor(title, meritBefore, ReasonRepeatedLevy)
		}
	case Optio:
		if levy >= 2 || hastatus >= 2 || (levy >= 1 && hastatus >= 1) {
			return demotionFor(title, meritBefore, ReasonRepeatedWeak)
		}
	case Centurion:
		// Zero tolerance for a weak battle at Centurion and above.
		if newest.Weak() {
			return demotionFor(title, meritBefore, ReasonCenturionWeakBattle)
		}
		if len(recent) >= WindowSize && elite == 0 {
			return demotionFor(title, meritBefore, ReasonCenturionNoElite)
		}
	case Tribunus:
		if newest.Weak() {
			return demotionFor(title, meritBefore, ReasonTribunusWeakBattle)
		}
		// Demote as soon as 3 elite outcomes become unreachable in the window.
		battlesLeft := WindowSize - len(recent)
		if eliteNeeded-elite > battlesLeft {
			return demotionFor(title, meritBefore, ReasonTribunusOutOfReach)
		}
	}
	return nil
}

// CanPromote reports whether the candidate merit and recent window satisfy
// the promotion gates for the rank above title.
func CanPromote(title LegionTitle, merit int, recent []BattleRank) bool {
	level := legionLevel(title)
	if level >= len(legionTitles)-1 {
		return true // already terminal
	}
	next := legionTitles[level+1]
	if merit < LegionFloor(level+1) {
		return false
	}
	_, _, elite := tally(recent)
	if next == Tribunus && elite < 1 {
		return false
	}
	if next == Legatus && elite < eliteNeeded {
		return false
	}
	return true
}

// LedgerState is one campaign's persistent progression state.
type LedgerState struct {
	Merit       int
	Recent      []BattleRank
	GamesPlayed int
	LastColor   string // "white" | "black"
}

// RankChange tags what Apply did to the legion rank.
type RankChange string

const (
	ChangeNone     RankChange = ""
	ChangePromoted RankChange = "promoted"
	ChangeDemoted  RankChange = "demoted"
	ChangeReset    RankChange = "merit_reset" // safety net
)

// ApplyResult reports the ledger update for one finished session.
type ApplyResult struct {
	State    LedgerState
	OldTitle LegionTitle
	NewTitle LegionTitle
	Change   RankChange
	Demotion *Demotion
}

// Apply folds one battle outcome into the ledger: push the outcome into the
// rolling window, check demotion first, otherwise promotion, otherwise bank
// the score. Exactly one of {no change, demotion, promotion} happens.
// Promotion discards merit above the new floor; any rank change clears the
// window. The caller is responsible for making the read-modify-write atomic.
func Apply(prev LedgerState, outcome BattleRank, score int, color string) ApplyResult {
	recent := append(append([]BattleRank(nil), prev.Recent...), outcome)
	if len(recent) > WindowSize {
		recent = recent[len(recent)-WindowSize:]
	}

	oldRank := LegionRankFor(prev.Merit)
	candidate := prev.Merit + score
	tentative := LegionRankFor(candidate)

	res := ApplyResult{OldTitle: oldRank.Title}

	if d := CheckDemotion(oldRank.Title, recent, outcome, prev.Merit); d != nil {
		res.Demotion = d
		res.NewTitle = d.NewTitle
		res.Change = ChangeDemoted
		if d.SafetyNet {
			res.Change = ChangeReset
		}
		res.State = LedgerState{Merit: d.NewMerit}
	} else if tentative.Level > oldRank.Level && CanPromote(oldRank.Title, candidate, recent) {
		res.NewTitle = tentative.Title
		res.Change = ChangePromoted
		res.State = LedgerState{Merit: LegionFloor(tentative.Level)}
	} else {
		res.NewTitle = oldRank.Title
		res.State = LedgerState{Merit: candidate, Recent: recent}
	}

	res.State.GamesPlayed = prev.GamesPlayed + 1
	res.State.LastColor = color
	return res
}

// Warning is a pre-demotion commander warning derived from the current window.
type Warning struct {
	Kind        string // msgcat key suffix
	InSafetyNet bool
	NeededElite int
	BattlesLeft int
}

// DemotionWarning inspects a campaign's window and merit and returns the
// warning the commander should bark before the next battle, or nil.
func DemotionWarning(title LegionTitle, recent []BattleRank, merit int) *Warning {
	if title == Recruit || title == Legatus || len(recent) == 0 {
		return nil
	}

	levy, hastatus, elite := tally(recent)
	played := len(recent)
	left := WindowSize - played

	inNet := false
	if net, ok := SafetyNetThreshold(title); ok && merit >= net {
		inNet = true
	}

	switch title {
	case Legionary:
		if levy == 1 {
			return &Warning{Kind: "legionary_one_levy", InSafetyNet: inNet}
		}
	case Optio:
		if levy == 1 || hastatus == 1 {
			return &Warning{Kind: "optio_one_weak", InSafetyNet: inNet}
		}
	case Centurion:
		if played >= 4 && elite == 0 {
			return &Warning{Kind: "centurion_no_elite", InSafetyNet: inNet}
		}
	case Tribunus:
		needed := eliteNeeded - elite
		if needed <= 0 {
			return nil
		}
		w := &Warning{Kind: "tribunus_elite_needed", InSafetyNet: inNet, NeededElite: needed, BattlesLeft: left}
		switch played {
		case 1, 2:
			if elite == 0 {
				return w
			}
		case 3:
			// Only warn while the requirement is still achievable.
			if needed == 1 || needed == 2 {
				return w
			}
		case 4:
			if needed == 1 {
				return w
			}
		}
	}
	return nil
}
