// Package render draws a position as a PNG for the battle report. No HUD,
// no coordinates: a plain board with an optional last-move highlight.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	nchess "github.com/corentings/chess/v2"
)

// Highlight marks the last move played.
type Highlight struct {
	From nchess.Square
	To   nchess.Square
}

// BoardRenderer renders a board to an image format.
type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *nchess.Board, highlight *Highlight) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewBoardRenderer() BoardRenderer { return &svgBoardRenderer{} }

const (
	squareSize   = 64
	boardSquares = 8
	boardSize    = squareSize * boardSquares
)

var (
	lightSquare   = color.RGBA{233, 207, 163, 255}
	darkSquare    = color.RGBA{187, 136, 96, 255}
	highlightFill = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
)

var (
	boardRanks = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	boardFiles = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board *nchess.Board, highlight *Highlight) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, boardSize, boardSize))
	drawSquares(img)
	if highlight != nil {
		drawOverlay(img, highlight.From)
		drawOverlay(img, highlight.To)
	}
	if err := drawPieces(img, board); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func squareRect(sq nchess.Square) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	x := col * squareSize
	y := row * squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func drawSquares(dst imagedraw.Image) {
	for row, rank := range boardRanks {
		for col, file := range boardFiles {
			sq := nchess.NewSquare(file, rank)
			clr := lightSquare
			if (int(sq.File())+int(sq.Rank()))%2 == 0 {
				clr = darkSquare
			}
			x := col * squareSize
			y := row * squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawOverlay(dst imagedraw.Image, sq nchess.Square) {
	imagedraw.Draw(dst, squareRect(sq), image.NewUniform(highlightFill), image.Point{}, imagedraw.Over)
}

func drawPieces(dst imagedraw.Image, board *nchess.Board) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := pieceImage(piece, squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, squareRect(sq), img, image.Point{}, imagedraw.Over)
	}
	return nil
}
