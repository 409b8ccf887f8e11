package scoring

// LegionTitle is the persistent cumulative tier, derived from merit points.
type LegionTitle string

const (
	Recruit   LegionTitle = "Recruit"
	Legionary LegionTitle = "Legionary"
	Optio     LegionTitle = "Optio"
	Centurion LegionTitle = "Centurion"
	Tribunus  LegionTitle = "Tribunus"
	Legatus   LegionTitle = "Legatus"
)

var (
	legionTitles     = []LegionTitle{Recruit, Legionary, Optio, Centurion, Tribunus, Legatus}
	legionThresholds = []int{0, 200, 500, 900, 1300, 1750}
)

// LegionRank is the derived rank for a merit total. Not persisted.
type LegionRank struct {
	Title        LegionTitle
	Level        int
	Merit        int
	NextTitle    LegionTitle // empty at Legatus
	PointsNeeded int
}

// LegionRankFor derives the rank for the given merit.
func LegionRankFor(merit int) LegionRank {
	level := 0
	for i, th := range legionThresholds {
		if merit >= th {
			level = i
		} else {
			break
		}
	}
	r := LegionRank{Title: legionTitles[level], Level: level, Merit: merit}
	if level < len(legionTitles)-1 {
		r.NextTitle = legionTitles[level+1]
		r.PointsNeeded = legionThresholds[level+1] - merit
	}
	return r
}

// LegionFloor returns the merit threshold of the given level.
func LegionFloor(level int) int {
	if level < 0 {
		level = 0
	}
	if level >= len(legionThresholds) {
		level = len(legionThresholds) - 1
	}
	return legionThresholds[level]
}

func legionLevel(t LegionTitle) int {
	for i, title := range legionTitles {
		if title == t {
			return i
		}
	}
	return 0
}

// SafetyNetThreshold is the merit above which a demotion becomes a reset to
// the current rank's own floor instead of a drop: floor plus half the
// distance to the next threshold. Recruit and Legatus have no net.
func SafetyNetThreshold(t LegionTitle) (int, bool) {
	level := legionLevel(t)
	if level == 0 || level >= len(legionThresholds)-1 {
		return 0, false
	}
	floor := legionThresholds[level]
	next := legionThresholds[level+1]
	return floor + (next-floor)/2, true
}
