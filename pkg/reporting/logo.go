package reporting

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/rcourtman/energy-reports/internal/resources"
)

const logoPixels = 96

// logoPNG draws the report badge: a disc in the theme color with a white
// ring and a white centre dot.
func logoPNG(theme resources.RGB) ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, logoPixels, logoPixels))
	fill := color.NRGBA{R: uint8(theme[0]), G: uint8(theme[1]), B: uint8(theme[2]), A: 255}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	c := float64(logoPixels-1) / 2
	outer := c
	ringOuter := c * 0.72
	ringInner := c * 0.60
	dot := c * 0.28

	for y := 0; y < logoPixels; y++ {
		for x := 0; x < logoPixels; x++ {
			dx, dy := float64(x)-c, float64(y)-c
			d2 := dx*dx + dy*dy
			switch {
			case d2 > outer*outer:
				// transparent
			case d2 <= dot*dot:
				img.SetNRGBA(x, y, white)
			case d2 <= ringOuter*ringOuter && d2 >= ringInner*ringInner:
				img.SetNRGBA(x, y, white)
			default:
				img.SetNRGBA(x, y, fill)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode logo: %w", err)
	}
	return buf.Bytes(), nil
}
