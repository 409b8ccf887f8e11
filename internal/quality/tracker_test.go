package quality

import (
	"context"
	"errors"
	"testing"

	"github.com/shrinivas105/chess-theory-trainer/internal/campaign"
	"github.com/shrinivas105/chess-theory-trainer/internal/explorer"
)

type fakeSource struct {
	moves []explorer.Move
	err   error
	calls int
}

func (f *fakeSource) Moves(ctx context.Context, camp campaign.Campaign, fen string) ([]explorer.Move, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.moves, nil
}

func mv(uci, san string, white, draws, black int) explorer.Move {
	return explorer.Move{UCI: uci, SAN: san, White: white, Draws: draws, Black: black}
}

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestOpeningMovesAutoQualify(t *testing.T) {
	src := &fakeSource{}
	tr := NewTracker(campaign.For(campaign.Master), src, true)

	for i := 1; i <= 4; i++ {
		tr.RecordMove(context.Background(), startFEN, i, "e2e4")
	}

	if q, tracked := tr.Counts(); q != 4 || tracked != 4 {
		t.Fatalf("counts = %d/%d, want 4/4", q, tracked)
	}
	if src.calls != 0 {
		t.Fatalf("source queried %d times during the skip window", src.calls)
	}
	if pct := tr.QualityPercent(); pct != 100 {
		t.Fatalf("quality = %d, want 100", pct)
	}
}

func TestTopThreeQualifies(t *testing.T) {
	src := &fakeSource{moves: []explorer.Move{
		mv("e2e4", "e4", 4000, 3000, 3000),
		mv("d2d4", "d4", 3500, 3000, 2500),
		mv("g1f3", "Nf3", 2000, 2000, 1500),
		mv("c2c4", "c4", 1000, 900, 800),
	}}
	tr := NewTracker(campaign.For(campaign.Master), src, true)

	tr.RecordMove(context.Background(), startFEN, 5, "g1f3")
	if q, _ := tr.Counts(); q != 1 {
		t.Fatalf("rank-3 move did not qualify")
	}

	tr.RecordMove(context.Background(), startFEN, 6, "h2h4")
	if q, tracked := tr.Counts(); q != 1 || tracked != 2 {
		t.Fatalf("unknown move counted as qualifying: %d/%d", q, tracked)
	}
}

func TestBadTopMoveOverride(t *testing.T) {
	// Rank 1 by volume but clearly losing: both peers win 25+ points more
	// and score above parity while the player's move scores below it.
	trap := []explorer.Move{
		mv("f2f4", "f4", 3000, 3000, 4000),
		mv("e2e4", "e4", 5500, 2000, 2500),
		mv("d2d4", "d4", 5600, 2000, 2400),
	}
	src := &fakeSource{moves: trap}
	tr := NewTracker(campaign.For(campaign.Master), src, true)

	tr.RecordMove(context.Background(), startFEN, 5, "f2f4")
	if q, _ := tr.Counts(); q != 0 {
		t.Fatalf("trap move qualified")
	}

	// Same shape with a narrow gap stays qualified.
	mild := []explorer.Move{
		mv("f2f4", "f4", 3800, 2500, 3700),
		mv("e2e4", "e4", 5000, 2500, 2500),
		mv("d2d4", "d4", 5100, 2500, 2400),
	}
	src.moves = mild
	tr2 := NewTracker(campaign.For(campaign.Master), src, true)
	tr2.RecordMove(context.Background(), startFEN, 5, "f2f4")
	if q, _ := tr2.Counts(); q != 1 {
		t.Fatalf("mildly inferior top move did not qualify")
	}
}

func TestBadTopMoveNeedsTwoPeers(t *testing.T) {
	src := &fakeSource{moves: []explorer.Move{
		mv("f2f4", "f4", 3000, 3000, 4000),
		mv("e2e4", "e4", 5500, 2000, 2500),
	}}
	tr := NewTracker(campaign.For(campaign.Master), src, true)

	tr.RecordMove(context.Background(), startFEN, 5, "f2f4")
	if q, _ := tr.Counts(); q != 1 {
		t.Fatalf("override fired with a single peer")
	}
}

func TestTrickyMoveTiers(t *testing.T) {
	leaders := []explorer.Move{
		mv("e2e4", "e4", 40000, 30000, 30000),
		mv("d2d4", "d4", 35000, 30000, 25000),
		mv("g1f3", "Nf3", 20000, 20000, 15000),
		mv("c2c4", "c4", 10000, 9000, 8000),
		mv("g2g3", "g3", 8000, 7000, 6000),
	}

	cases := []struct {
		name string
		move explorer.Move
		want int
	}{
		// 6000 games, +12 point advantage: clears the >=5000 tier (+10).
		{"large_sample_qualifies", mv("b2b3", "b3", 3000, 720, 2280), 1},
		// 6000 games, +7 points: below the tier minimum.
		{"large_sample_short", mv("b2b3", "b3", 2910, 600, 2490), 0},
		// 1200 games, +22 points: clears the 1000..4999 tier (+20).
		{"mid_sample_qualifies", mv("b2b3", "b3", 612, 240, 348), 1},
		// 300 games, +22 points: below the 1..999 tier minimum (+30).
		{"small_sample_short", mv("b2b3", "b3", 150, 84, 66), 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakeSource{moves: append(append([]explorer.Move(nil), leaders...), tc.move)}
			tr := NewTracker(campaign.For(campaign.Master), src, true)
			tr.RecordMove(context.Background(), startFEN, 5, "b2b3")
			if q, _ := tr.Counts(); q != tc.want {
				t.Fatalf("qualifying = %d, want %d", q, tc.want)
			}
		})
	}
}

func TestCastlingSANFallback(t *testing.T) {
	src := &fakeSource{moves: []explorer.Move{
		mv("", "O-O", 5000, 3000, 2000),
		mv("d2d4", "d4", 3000, 2500, 2000),
		mv("a2a4", "a4", 1000, 900, 800),
	}}
	tr := NewTracker(campaign.For(campaign.Master), src, true)

	tr.RecordMove(context.Background(), "r1bqk2r/pppp1ppp/2n2n2/2b1p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4", 5, "e1g1")
	if q, _ := tr.Counts(); q != 1 {
		t.Fatalf("castling move not matched by SAN")
	}
}

func TestSourceFailureIsSilent(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	tr := NewTracker(campaign.For(campaign.Club), src, false)

	tr.RecordMove(context.Background(), startFEN, 5, "e7e5")
	if q, tracked := tr.Counts(); q != 0 || tracked != 1 {
		t.Fatalf("counts = %d/%d after source failure, want 0/1", q, tracked)
	}
}

func TestBlackPerspective(t *testing.T) {
	// Same stats qualify for Black only when Black's side of the split wins.
	moves := []explorer.Move{
		mv("g8f6", "Nf6", 30000, 25000, 25000),
		mv("e7e5", "e5", 25000, 25000, 20000),
		mv("c7c5", "c5", 20000, 20000, 15000),
		mv("d7d5", "d5", 10000, 9000, 8000),
		mv("g7g6", "g6", 8000, 7000, 6000),
		// 6000 games, Black wins 50% vs White 38%.
		mv("b7b6", "b6", 2280, 720, 3000),
	}
	src := &fakeSource{moves: moves}
	tr := NewTracker(campaign.For(campaign.Master), src, false)

	tr.RecordMove(context.Background(), "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1", 5, "b7b6")
	if q, _ := tr.Counts(); q != 1 {
		t.Fatalf("tricky move did not qualify from Black's perspective")
	}
}
