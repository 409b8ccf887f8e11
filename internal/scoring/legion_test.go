package scoring

import "testing"

func TestLegionRankBoundaries(t *testing.T) {
	cases := []struct {
		merit int
		title LegionTitle
	}{
		{0, Recruit},
		{199, Recruit},
		{200, Legionary},
		{499, Legionary},
		{500, Optio},
		{899, Optio},
		{900, Centurion},
		{1300, Tribunus},
		{1749, Tribunus},
		{1750, Legatus},
		{9000, Legatus},
	}
	for _, tc := range cases {
		if r := LegionRankFor(tc.merit); r.Title != tc.title {
			t.Errorf("merit %d: title = %s, want %s", tc.merit, r.Title, tc.title)
		}
	}
}

func TestLegionRankProgress(t *testing.T) {
	r := LegionRankFor(450)
	if r.NextTitle != Optio || r.PointsNeeded != 50 {
		t.Fatalf("next=%s needed=%d, want Optio/50", r.NextTitle, r.PointsNeeded)
	}
	top := LegionRankFor(2000)
	if top.NextTitle != "" || top.PointsNeeded != 0 {
		t.Fatalf("Legatus should have no next rank, got %s/%d", top.NextTitle, top.PointsNeeded)
	}
}

func TestSafetyNetThresholds(t *testing.T) {
	cases := []struct {
		title LegionTitle
		net   int
		ok    bool
	}{
		{Recruit, 0, false},
		{Legionary, 350, true},
		{Optio, 700, true},
		{Centurion, 1100, true},
		{Tribunus, 1525, true},
		{Legatus, 0, false},
	}
	for _, tc := range cases {
		net, ok := SafetyNetThreshold(tc.title)
		if ok != tc.ok || net != tc.net {
			t.Errorf("%s: net=%d ok=%v, want %d/%v", tc.title, net, ok, tc.net, tc.ok)
		}
	}
}
