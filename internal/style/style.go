package style

import (
	"context"
	"image/color"
	"math/rand"
	"sync"
	"time"

	"github.com/dmorgan81/wishcard/internal/log"
	"github.com/samber/do"
)

// Style is a text fill with an optional outline.
type Style struct {
	Fill        color.RGBA
	Stroke      *color.RGBA
	StrokeWidth int
}

func (s Style) HasStroke() bool {
	return s.Stroke != nil && s.StrokeWidth > 0
}

func outlined(fill, stroke color.RGBA, width int) Style {
	return Style{Fill: fill, Stroke: &stroke, StrokeWidth: width}
}

var WishesPalette = []Style{
	outlined(color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 255}, 2),
	outlined(color.RGBA{255, 220, 0, 255}, color.RGBA{50, 50, 0, 255}, 2),
	outlined(color.RGBA{20, 20, 20, 255}, color.RGBA{220, 220, 220, 255}, 2),
	{Fill: color.RGBA{230, 230, 230, 255}},
	{Fill: color.RGBA{255, 255, 0, 255}},
}

var NamePalette = []Style{
	outlined(color.RGBA{255, 220, 0, 255}, color.RGBA{50, 50, 0, 255}, 3),
	outlined(color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 255}, 3),
	outlined(color.RGBA{50, 200, 255, 255}, color.RGBA{0, 0, 50, 255}, 3),
	outlined(color.RGBA{255, 100, 150, 255}, color.RGBA{50, 0, 0, 255}, 3),
}

const (
	wishesJitter = 0.03
	nameJitter   = 0.02
)

// Randomizer picks styles and vertical jitter from an injected source. The
// choice is purely random; image content is not inspected.
type Randomizer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomizer(i *do.Injector) (*Randomizer, error) {
	return New(rand.New(rand.NewSource(time.Now().UTC().UnixNano()))), nil
}

func New(rnd *rand.Rand) *Randomizer {
	return &Randomizer{rnd: rnd}
}

// Choice is everything random about one card.
type Choice struct {
	Wishes       Style
	WishesJitter float64
	Name         Style
	NameJitter   float64
}

func (r *Randomizer) Choose(ctx context.Context) Choice {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := Choice{
		Wishes:       WishesPalette[r.rnd.Intn(len(WishesPalette))],
		WishesJitter: r.uniform(wishesJitter),
		Name:         NamePalette[r.rnd.Intn(len(NamePalette))],
		NameJitter:   r.uniform(nameJitter),
	}
	log.FromContextOrDiscard(ctx).Debug("chose card style",
		"wishes_jitter", c.WishesJitter, "name_jitter", c.NameJitter)
	return c
}

// uniform returns a value in [-limit, limit).
func (r *Randomizer) uniform(limit float64) float64 {
	return -limit + 2*limit*r.rnd.Float64()
}
