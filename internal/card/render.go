// Package card turns a photo and its background-removed cutout into a
// greeting card. Layers, bottom to top: the original photo, the wishes text,
// the cutout, the name text. The wishes therefore sit behind the subject
// while the name is never covered.
package card

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/dmorgan81/wishcard/internal/layout"
	"github.com/dmorgan81/wishcard/internal/log"
	"github.com/dmorgan81/wishcard/internal/style"
	"github.com/dmorgan81/wishcard/internal/typeface"
	"github.com/fogleman/gg"
	"github.com/nfnt/resize"
	"github.com/samber/do"
)

type Params struct {
	Wishes           string
	Name             string
	Lines            layout.LineMode
	WishesMultiplier float64
	NameMultiplier   float64
}

type Renderer struct {
	wishesFont *typeface.Font
	nameFont   *typeface.Font
	styles     *style.Randomizer
}

func NewRenderer(i *do.Injector) (*Renderer, error) {
	return New(
		do.MustInvokeNamed[*typeface.Font](i, "wishes_font"),
		do.MustInvokeNamed[*typeface.Font](i, "name_font"),
		do.MustInvoke[*style.Randomizer](i),
	), nil
}

func New(wishesFont, nameFont *typeface.Font, styles *style.Randomizer) *Renderer {
	return &Renderer{wishesFont: wishesFont, nameFont: nameFont, styles: styles}
}

func (r *Renderer) Render(ctx context.Context, original, cutout image.Image, params Params) (*image.NRGBA, error) {
	out := toNRGBA(original)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	choice := r.styles.Choose(ctx)

	wishesFaces := r.wishesFont.Faces(ctx)
	defer wishesFaces.Close()
	wishes := layout.Wishes(w, h, params.Wishes, params.Lines, params.WishesMultiplier, choice.WishesJitter, wishesFaces)
	if err := drawBlock(out, wishes, choice.Wishes, wishesFaces); err != nil {
		return nil, fmt.Errorf("draw wishes: %w", err)
	}

	overlay(out, cutout)

	nameFaces := r.nameFont.Faces(ctx)
	defer nameFaces.Close()
	name := layout.Name(w, h, params.Name, params.NameMultiplier, choice.NameJitter, nameFaces)
	if err := drawBlock(out, name, choice.Name, nameFaces); err != nil {
		return nil, fmt.Errorf("draw name: %w", err)
	}

	log.FromContextOrDiscard(ctx).WithGroup("renderer").Info("rendered card",
		"width", w,
		"height", h,
		"wishes_size", wishes.Size,
		"wishes_lines", len(wishes.Lines),
		"name_size", name.Size,
	)
	return out, nil
}

// overlay pastes the cutout over dst, resampling it to dst's size first
// when they differ.
func overlay(dst *image.NRGBA, cutout image.Image) {
	b := dst.Bounds()
	if cb := cutout.Bounds(); cb.Dx() != b.Dx() || cb.Dy() != b.Dy() {
		cutout = resize.Resize(uint(b.Dx()), uint(b.Dy()), cutout, resize.Lanczos3)
	}
	paste(dst, cutout, b)
}

// drawBlock renders the block onto a transparent layer and pastes the
// layer's occupied area onto dst.
func drawBlock(dst *image.NRGBA, block layout.Block, s style.Style, faces *typeface.Faces) error {
	if len(block.Lines) == 0 {
		return nil
	}
	face, err := faces.Face(block.Size)
	if err != nil {
		return err
	}

	b := dst.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.SetFontFace(face)
	var area image.Rectangle
	for _, line := range block.Lines {
		baseline := line.Y + float64(line.Extent.Ascent)
		if s.HasStroke() {
			dc.SetColor(*s.Stroke)
			for _, d := range strokeOffsets(s.StrokeWidth) {
				dc.DrawString(line.Text, line.X+float64(d.X), baseline+float64(d.Y))
			}
		}
		dc.SetColor(s.Fill)
		dc.DrawString(line.Text, line.X, baseline)
		area = area.Union(lineArea(line, s))
	}
	paste(dst, dc.Image(), area)
	return nil
}

// lineArea bounds everything drawn for line, outline included, with slack
// for hinting and antialiasing.
func lineArea(line layout.Line, s style.Style) image.Rectangle {
	pad := 2
	if s.HasStroke() {
		pad += s.StrokeWidth
	}
	x, y := int(math.Floor(line.X)), int(math.Floor(line.Y))
	return image.Rect(
		x+line.Extent.Left-pad,
		y+line.Extent.Top-pad,
		x+line.Extent.Right+pad+1,
		y+line.Extent.Bottom+pad+1,
	)
}

// paste blends src onto dst inside r using src's alpha as the mask. Every
// channel, alpha included, is interpolated on straight values, so pixels src
// leaves transparent are not touched at all.
func paste(dst *image.NRGBA, src image.Image, r image.Rectangle) {
	r = r.Intersect(dst.Bounds())
	sp := src.Bounds().Min
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(sp.X+x, sp.Y+y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}
			p := dst.Pix[dst.PixOffset(x, y):]
			if c.A == 0xff {
				p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
				continue
			}
			a := uint32(c.A)
			p[0] = mix(c.R, p[0], a)
			p[1] = mix(c.G, p[1], a)
			p[2] = mix(c.B, p[2], a)
			p[3] = mix(c.A, p[3], a)
		}
	}
}

func mix(s, d uint8, a uint32) uint8 {
	return uint8((uint32(s)*a + uint32(d)*(0xff-a) + 0x7f) / 0xff)
}

// strokeOffsets lists every offset within radius, excluding the origin.
func strokeOffsets(radius int) []image.Point {
	var pts []image.Point
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if (dx != 0 || dy != 0) && dx*dx+dy*dy <= radius*radius {
				pts = append(pts, image.Pt(dx, dy))
			}
		}
	}
	return pts
}
