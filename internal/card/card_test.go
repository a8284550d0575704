package card

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/dmorgan81/wishcard/internal/layout"
	"github.com/dmorgan81/wishcard/internal/style"
	"github.com/dmorgan81/wishcard/internal/typeface"
	"golang.org/x/image/font/gofont/goregular"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 30, 50))
	img, err := Decode(encodePNG(t, src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := img.Bounds(); got != image.Rect(0, 0, 20, 30) {
		t.Errorf("bounds = %v", got)
	}
}

func TestDecodeUnrecognized(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"))
	if !errors.Is(err, ErrUnrecognized) {
		t.Fatalf("expected ErrUnrecognized, got %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := encodePNG(t, solid(8, 8, color.White))
	_, err := Decode(data[:len(data)/2])
	if err == nil || errors.Is(err, ErrUnrecognized) {
		t.Fatalf("expected a decode error that is not ErrUnrecognized, got %v", err)
	}
}

func TestEncodeIsOpaqueJPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	img.Set(0, 0, color.RGBA{200, 0, 0, 255})

	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := jpeg.Decode(&buf)
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if out.Bounds().Dx() != 16 || out.Bounds().Dy() != 16 {
		t.Errorf("bounds = %v", out.Bounds())
	}
	if _, _, _, a := out.At(8, 8).RGBA(); a != 0xffff {
		t.Errorf("expected opaque pixel, alpha = %d", a)
	}
}

func transparentWhite(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
		if i%4 == 3 {
			img.Pix[i] = 0
		}
	}
	return img
}

func TestTransparentColorSurvivesEncode(t *testing.T) {
	img, err := Decode(encodePNG(t, transparentWhite(40, 40)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := img.NRGBAAt(20, 20); got != (color.NRGBA{255, 255, 255, 0}) {
		t.Fatalf("decoded pixel = %v", got)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := jpeg.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := out.At(20, 20).RGBA()
	if r>>8 < 250 || g>>8 < 250 || b>>8 < 250 {
		t.Errorf("transparent white flattened to rgb(%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestPaste(t *testing.T) {
	dst := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	dst.SetNRGBA(0, 0, color.NRGBA{100, 100, 100, 255})
	dst.SetNRGBA(1, 0, color.NRGBA{10, 20, 30, 0})
	dst.SetNRGBA(2, 0, color.NRGBA{100, 100, 100, 255})

	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	src.SetNRGBA(0, 0, color.NRGBA{200, 0, 0, 128})
	src.SetNRGBA(1, 0, color.NRGBA{0, 0, 0, 0})
	src.SetNRGBA(2, 0, color.NRGBA{1, 2, 3, 255})

	paste(dst, src, dst.Bounds())

	want := []color.NRGBA{{150, 50, 50, 191}, {10, 20, 30, 0}, {1, 2, 3, 255}}
	for x, w := range want {
		if got := dst.NRGBAAt(x, 0); got != w {
			t.Errorf("pixel %d = %v, want %v", x, got, w)
		}
	}
}

func TestFilename(t *testing.T) {
	tests := map[string]string{
		"Ann":       "Ann_card.jpg",
		"Mary Jane": "Mary_Jane_card.jpg",
		" a  b ":    "_a__b__card.jpg",
	}
	for name, want := range tests {
		if got := Filename(name); got != want {
			t.Errorf("Filename(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestStrokeOffsets(t *testing.T) {
	if n := len(strokeOffsets(0)); n != 0 {
		t.Errorf("radius 0: %d offsets", n)
	}
	if n := len(strokeOffsets(1)); n != 4 {
		t.Errorf("radius 1: %d offsets, want 4", n)
	}
	for _, p := range strokeOffsets(3) {
		if p == (image.Point{}) || p.X*p.X+p.Y*p.Y > 9 {
			t.Errorf("unexpected offset %v", p)
		}
	}
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	f, err := typeface.Parse(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	return New(f, f, style.New(rand.New(rand.NewSource(1))))
}

func TestRenderKeepsSizeAndLayers(t *testing.T) {
	const w, h = 400, 300
	blue := color.NRGBA{0, 0, 255, 255}
	original := solid(w, h, blue)

	// Cutout covers the middle band with an opaque green subject and is
	// transparent everywhere else.
	green := color.NRGBA{0, 255, 0, 255}
	cutout := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 100; y < 200; y++ {
		for x := 0; x < w; x++ {
			cutout.Set(x, y, green)
		}
	}

	out, err := newRenderer(t).Render(context.Background(), original, cutout, Params{
		Wishes:           "Happy birthday",
		Name:             "Ann",
		Lines:            layout.Single,
		WishesMultiplier: 1,
		NameMultiplier:   1,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out.Bounds() != original.Bounds() {
		t.Fatalf("bounds = %v, want %v", out.Bounds(), original.Bounds())
	}
	if got := out.NRGBAAt(w/2, 150); got != green {
		t.Errorf("subject pixel = %v, want %v", got, green)
	}
	if got := out.NRGBAAt(2, h/2-60); got != blue {
		t.Errorf("background pixel = %v, want %v", got, blue)
	}
	if !changed(out, original, image.Rect(0, 0, w, 100)) {
		t.Error("expected wishes text in the top band")
	}
	if !changed(out, original, image.Rect(0, 200, w, h)) {
		t.Error("expected name text in the bottom band")
	}
}

func TestRenderResizesCutout(t *testing.T) {
	original := solid(200, 100, color.White)
	red := color.NRGBA{255, 0, 0, 255}
	cutout := solid(50, 25, red)

	out, err := newRenderer(t).Render(context.Background(), original, cutout, Params{
		Wishes:           "Hi",
		Name:             "Bo",
		Lines:            layout.Single,
		WishesMultiplier: 1,
		NameMultiplier:   1,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// the opaque cutout covers the whole frame after resampling, and only
	// the name can be drawn over it
	if got := out.NRGBAAt(100, 40); got != red {
		t.Errorf("center pixel = %v, want %v", got, red)
	}
}

func TestRenderKeepsColorUnderTransparency(t *testing.T) {
	original := transparentWhite(200, 200)
	cutout := image.NewNRGBA(image.Rect(0, 0, 200, 200))

	out, err := newRenderer(t).Render(context.Background(), original, cutout, Params{
		Wishes: "Hi", Name: "Bo", Lines: layout.Single, WishesMultiplier: 1, NameMultiplier: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := out.NRGBAAt(1, 1); got != (color.NRGBA{255, 255, 255, 0}) {
		t.Errorf("untouched corner = %v", got)
	}
	if !changed(out, original, image.Rect(0, 0, 200, 100)) {
		t.Error("expected wishes text on the transparent canvas")
	}
}

func TestRenderLeavesInputsUntouched(t *testing.T) {
	original := solid(120, 120, color.White)
	cutout := image.NewRGBA(image.Rect(0, 0, 120, 120))
	before := append([]uint8(nil), original.Pix...)

	if _, err := newRenderer(t).Render(context.Background(), original, cutout, Params{
		Wishes: "x", Name: "y", Lines: layout.Double, WishesMultiplier: 1, NameMultiplier: 1,
	}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, original.Pix) {
		t.Error("Render modified the original image")
	}
}

func changed(a *image.NRGBA, b image.Image, r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if a.NRGBAAt(x, y) != color.NRGBAModel.Convert(b.At(x, y)) {
				return true
			}
		}
	}
	return false
}
