package card

import (
	"image"
	"image/jpeg"
	"io"
	"strings"
)

const Quality = 90

// Encode drops the alpha channel and writes a JPEG. Every pixel keeps its
// straight color, so a transparent pixel shows whatever color it stored.
func Encode(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, flatten(img), &jpeg.Options{Quality: Quality})
}

func flatten(img image.Image) *image.RGBA {
	n := toNRGBA(img)
	for i := 3; i < len(n.Pix); i += 4 {
		n.Pix[i] = 0xff
	}
	// opaque NRGBA and RGBA share a pixel layout
	return &image.RGBA{Pix: n.Pix, Stride: n.Stride, Rect: n.Rect}
}

// Filename is the suggested download name for a card made for name.
func Filename(name string) string {
	return strings.ReplaceAll(name, " ", "_") + "_card.jpg"
}
