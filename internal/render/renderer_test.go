package render

import (
	"bytes"
	"context"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func TestRenderStartPosition(t *testing.T) {
	r := NewBoardRenderer()
	game := nchess.NewGame()

	png, err := r.RenderPNG(context.Background(), game.Position().Board(), nil)
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if !bytes.HasPrefix(png, []byte{0x89, 'P', 'N', 'G'}) {
		t.Fatalf("output is not a PNG, got %d bytes", len(png))
	}
}

func TestRenderWithHighlight(t *testing.T) {
	r := NewBoardRenderer()
	game := nchess.NewGame()
	if err := game.PushNotationMove("e2e4", nchess.UCINotation{}, nil); err != nil {
		t.Fatalf("push move: %v", err)
	}
	moves := game.Moves()
	last := moves[len(moves)-1]

	png, err := r.RenderPNG(context.Background(), game.Position().Board(), &Highlight{From: last.S1(), To: last.S2()})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if len(png) == 0 {
		t.Fatal("empty image")
	}
}

func TestPieceAssetsComplete(t *testing.T) {
	pieces := []nchess.Piece{
		nchess.WhiteKing, nchess.WhiteQueen, nchess.WhiteRook, nchess.WhiteBishop, nchess.WhiteKnight, nchess.WhitePawn,
		nchess.BlackKing, nchess.BlackQueen, nchess.BlackRook, nchess.BlackBishop, nchess.BlackKnight, nchess.BlackPawn,
	}
	for _, p := range pieces {
		if _, err := pieceImage(p, squareSize); err != nil {
			t.Errorf("piece %v: %v", p, err)
		}
	}
}
