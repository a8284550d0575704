// Package typeface loads TrueType fonts and measures text the way the card
// layout expects: bounding boxes relative to the ascender line.
package typeface

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmorgan81/wishcard/internal/layout"
	"github.com/dmorgan81/wishcard/internal/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

const dpi = 72

// Font is a parsed font file. It is safe to share; faces are not, so each
// request takes its own Faces.
type Font struct {
	parsed *opentype.Font
}

func Load(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("font %s: %w", path, err)
	}
	return f, nil
}

func Parse(data []byte) (*Font, error) {
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Font{parsed: parsed}, nil
}

// Faces starts a face set for one request, logging through ctx's logger.
func (f *Font) Faces(ctx context.Context) *Faces {
	return &Faces{
		log:     log.FromContextOrDiscard(ctx).WithGroup("typeface"),
		cache:   make(map[int]font.Face),
		newFace: f.newFace,
	}
}

func (f *Font) newFace(size int) (font.Face, error) {
	return opentype.NewFace(f.parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
}

// Faces caches one face per point size. Not safe for concurrent use.
type Faces struct {
	log     *slog.Logger
	cache   map[int]font.Face
	newFace func(size int) (font.Face, error)
}

func (fs *Faces) Face(size int) (font.Face, error) {
	if face, ok := fs.cache[size]; ok {
		return face, nil
	}
	face, err := fs.newFace(size)
	if err != nil {
		return nil, fmt.Errorf("face at %dpt: %w", size, err)
	}
	fs.cache[size] = face
	return face, nil
}

// Measure implements layout.Measurer. A size the font cannot produce a face
// for is logged and measures as empty; drawing at that size fails later with
// the same error.
func (fs *Faces) Measure(size int, text string) layout.Extent {
	face, err := fs.Face(size)
	if err != nil {
		fs.log.Error("measuring text failed", "size", size, "error", err)
		return layout.Extent{}
	}
	bounds, _ := font.BoundString(face, text)
	ascent := face.Metrics().Ascent
	return layout.Extent{
		Left:   bounds.Min.X.Floor(),
		Top:    (ascent + bounds.Min.Y).Floor(),
		Right:  bounds.Max.X.Ceil(),
		Bottom: (ascent + bounds.Max.Y).Ceil(),
		Ascent: ascent.Round(),
	}
}

// Close releases every cached face.
func (fs *Faces) Close() error {
	for size, face := range fs.cache {
		face.Close()
		delete(fs.cache, size)
	}
	return nil
}
