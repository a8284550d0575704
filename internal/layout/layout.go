// Package layout places the wishes and name text blocks on a card. It is
// pure: text is measured through a Measurer and randomness arrives as
// jitter fractions, so the same inputs always give the same block.
package layout

import (
	"math"
	"strings"

	"github.com/samber/lo"
)

const (
	MinSize  = 10
	sizeStep = 2

	WishesDivisor = 10.0
	NameDivisor   = 12.0

	WishesBudget = 0.9
	NameBudget   = 0.8

	wishesTop    = 0.05
	wishesMinTop = 0.02
	lineSpacing  = 0.02

	nameBottom    = 0.05
	nameMinBottom = 0.02
	nameMaxTop    = 0.5
)

// Extent is the bounding box of rendered text. The vertical origin is the
// ascender line, so Top is usually a small positive offset.
type Extent struct {
	Left, Top, Right, Bottom int
	Ascent                   int
}

func (e Extent) Width() int  { return e.Right - e.Left }
func (e Extent) Height() int { return e.Bottom - e.Top }

type Measurer interface {
	Measure(size int, text string) Extent
}

type LineMode int

const (
	Single LineMode = iota
	Double
)

// ParseLineMode accepts "double"; everything else is a single line.
func ParseLineMode(s string) LineMode {
	return lo.Ternary(s == "double", Double, Single)
}

func (m LineMode) String() string {
	return lo.Ternary(m == Double, "double", "single")
}

// Line is one row of text. X and Y address the ascender line at the left
// edge of the text origin.
type Line struct {
	Text   string
	X, Y   float64
	Extent Extent
}

type Block struct {
	Size  int
	Lines []Line
}

func InitialSize(height int, divisor, multiplier float64) int {
	return max(int(float64(height)/divisor*multiplier), MinSize)
}

// SplitWishes breaks text in two at the space closest to, and not after, its
// midpoint. Splitting only happens for double mode on portrait images; empty
// halves are dropped.
func SplitWishes(text string, mode LineMode, width, height int) []string {
	if mode != Double || !strings.Contains(text, " ") || height <= width {
		return []string{text}
	}

	r := []rune(text)
	split := -1
	for i := min(len(r)/2+len(r)%2, len(r)-1); i > 0; i-- {
		if r[i] == ' ' {
			split = i
			break
		}
	}
	if split == -1 {
		split = lo.IndexOf(r, ' ')
	}

	halves := []string{
		strings.TrimSpace(string(r[:split])),
		strings.TrimSpace(string(r[split+1:])),
	}
	return lo.Filter(halves, func(s string, _ int) bool { return s != "" })
}

// FitSize steps the font size down from initial until every line fits the
// width budget or the size reaches MinSize. Text may still overflow at
// MinSize.
func FitSize(lines []string, initial int, budget float64, m Measurer) int {
	size := initial
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for float64(m.Measure(size, line).Right) > budget && size > MinSize {
			size = max(size-sizeStep, MinSize)
		}
	}
	return size
}

// Wishes lays out the top block. jitter is a fraction of the image height.
func Wishes(width, height int, text string, mode LineMode, multiplier, jitter float64, m Measurer) Block {
	w, h := float64(width), float64(height)
	lines := SplitWishes(text, mode, width, height)
	size := FitSize(lines, InitialSize(height, WishesDivisor, multiplier), w*WishesBudget, m)

	block := Block{Size: size}
	y := math.Max(h*wishesTop+h*jitter, h*wishesMinTop)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e := m.Measure(size, line)
		block.Lines = append(block.Lines, Line{
			Text:   line,
			X:      (w - float64(e.Width())) / 2,
			Y:      y,
			Extent: e,
		})
		y += float64(e.Height()) + h*lineSpacing
	}
	return block
}

// Name lays out the bottom block, kept above the bottom margin and inside
// the lower half of the image.
func Name(width, height int, text string, multiplier, jitter float64, m Measurer) Block {
	w, h := float64(width), float64(height)
	size := FitSize([]string{text}, InitialSize(height, NameDivisor, multiplier), w*NameBudget, m)

	e := m.Measure(size, text)
	th := float64(e.Height())
	y := h - th - h*nameBottom + h*jitter
	y = math.Min(y, h-th-h*nameMinBottom)
	y = math.Max(y, h*nameMaxTop)

	return Block{
		Size: size,
		Lines: []Line{{
			Text:   text,
			X:      (w - float64(e.Width())) / 2,
			Y:      y,
			Extent: e,
		}},
	}
}
