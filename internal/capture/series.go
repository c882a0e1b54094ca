package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/rcourtman/energy-reports/internal/models"
	"github.com/rcourtman/energy-reports/internal/resources"
)

// Point is one plotted value.
type Point struct {
	Year  int
	Value float64
}

// SeriesChart rasterizes a year/value line chart in process.
type SeriesChart struct {
	Points []Point
	Width  int
	Height int
	Line   resources.RGB
}

var (
	chartBackground = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	chartAxis       = color.NRGBA{R: 120, G: 120, B: 120, A: 255}
	chartGrid       = color.NRGBA{R: 225, G: 225, B: 225, A: 255}
)

const chartPadding = 24

// NewSeriesChart plots the active records, in year order.
func NewSeriesChart(records []models.GenerationRecord, line resources.RGB) *SeriesChart {
	active := models.Active(models.CloneRecords(records))
	models.SortByYear(active)

	points := make([]Point, 0, len(active))
	for _, r := range active {
		points = append(points, Point{Year: r.Year, Value: r.GenerationValue})
	}
	return &SeriesChart{Points: points, Width: 960, Height: 480, Line: line}
}

// Snapshot draws the chart and encodes it as PNG.
func (s *SeriesChart) Snapshot(ctx context.Context) ([]byte, error) {
	if len(s.Points) == 0 {
		return nil, ErrNotReady
	}
	w, h := s.Width, s.Height
	if w <= 2*chartPadding || h <= 2*chartPadding {
		return nil, fmt.Errorf("chart size %dx%d too small", w, h)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: chartBackground}, image.Point{}, draw.Src)

	left, right := chartPadding, w-chartPadding
	top, bottom := chartPadding, h-chartPadding

	for i := 0; i <= 4; i++ {
		y := top + (bottom-top)*i/4
		hline(img, left, right, y, chartGrid)
	}
	hline(img, left, right, bottom, chartAxis)
	vline(img, left, top, bottom, chartAxis)

	maxValue := 0.0
	for _, p := range s.Points {
		maxValue = math.Max(maxValue, p.Value)
	}
	if maxValue == 0 {
		maxValue = 1
	}

	px := func(i int) int {
		if len(s.Points) == 1 {
			return (left + right) / 2
		}
		return left + (right-left)*i/(len(s.Points)-1)
	}
	py := func(v float64) int {
		return bottom - int(math.Round(v/maxValue*float64(bottom-top)))
	}

	line := color.NRGBA{R: uint8(s.Line[0]), G: uint8(s.Line[1]), B: uint8(s.Line[2]), A: 255}
	for i := 1; i < len(s.Points); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		segment(img, px(i-1), py(s.Points[i-1].Value), px(i), py(s.Points[i].Value), line)
	}
	for i, p := range s.Points {
		dot(img, px(i), py(p.Value), 4, line)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func hline(img *image.NRGBA, x0, x1, y int, c color.NRGBA) {
	for x := x0; x <= x1; x++ {
		img.SetNRGBA(x, y, c)
	}
}

func vline(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	for y := y0; y <= y1; y++ {
		img.SetNRGBA(x, y, c)
	}
}

// segment draws a two-pixel-thick line with Bresenham's algorithm.
func segment(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetNRGBA(x0, y0, c)
		img.SetNRGBA(x0, y0+1, c)
		img.SetNRGBA(x0+1, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func dot(img *image.NRGBA, cx, cy, r int, c color.NRGBA) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				img.SetNRGBA(cx+x, cy+y, c)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
