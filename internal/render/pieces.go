package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
)

// supersample rasterizes pieces at this multiple of the target size, then
// scales down for smoother edges.
const supersample = 2

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func pieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	name := pieceAssetName(piece)
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	big := size * supersample
	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(big)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(big)
	}
	icon.SetTarget(0, 0, float64(big), float64(big))

	large := image.NewRGBA(image.Rect(0, 0, big, big))
	draw.Draw(large, large.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(big, big, large, large.Bounds())
	raster := rasterx.NewDasher(big, big, scanner)
	icon.Draw(raster, 1.0)

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(img, img.Bounds(), large, large.Bounds(), xdraw.Over, nil)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}

func pieceAssetName(piece nchess.Piece) string {
	prefix := "b"
	if piece.Color() == nchess.White {
		prefix = "w"
	}

	var suffix string
	switch piece.Type() {
	case nchess.King:
		suffix = "K"
	case nchess.Queen:
		suffix = "Q"
	case nchess.Rook:
		suffix = "R"
	case nchess.Bishop:
		suffix = "B"
	case nchess.Knight:
		suffix = "N"
	case nchess.Pawn:
		suffix = "P"
	}
	return fmt.Sprintf("assets/pieces/%s%s.svg", prefix, suffix)
}

// sanitizeSVG normalizes style quirks the rasterizer trips over.
func sanitizeSVG(svg []byte) []byte {
	fixed := bytes.ReplaceAll(svg, []byte("fill: #"), []byte("fill:#"))
	fixed = bytes.ReplaceAll(fixed, []byte("stroke: #"), []byte("stroke:#"))
	fixed = bytes.ReplaceAll(fixed, []byte("stop-color: #"), []byte("stop-color:#"))
	return fixed
}
