package chart

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
)

// ErrNoPoints is returned when asked to render an empty series
var ErrNoPoints = errors.New("chart needs at least one point")

// Point is one (time, amount) sample of a series
type Point struct {
	At     time.Time
	Amount int64
}

// Renderer draws a price series as an image
type Renderer interface {
	Render(title string, points []Point) ([]byte, error)
	ContentType() string
}

type pngRenderer struct {
	width  int
	height int
}

// NewPNGRenderer creates a Renderer producing PNG line charts of the given size
func NewPNGRenderer(width, height int) Renderer {
	return &pngRenderer{width: width, height: height}
}

func (r *pngRenderer) ContentType() string {
	return "image/png"
}

func (r *pngRenderer) Render(title string, points []Point) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}

	xs := make([]time.Time, 0, len(points)+1)
	ys := make([]float64, 0, len(points)+1)
	minY, maxY := float64(points[0].Amount), float64(points[0].Amount)
	for _, p := range points {
		y := float64(p.Amount)
		xs = append(xs, p.At)
		ys = append(ys, y)
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}

	// go-chart rejects zero-width ranges, so a lone sample is drawn as a flat day-long segment.
	if xs[0].Equal(xs[len(xs)-1]) {
		xs = append(xs, xs[0].Add(24*time.Hour))
		ys = append(ys, ys[len(ys)-1])
	}

	yAxis := gochart.YAxis{Name: "Amount"}
	if minY == maxY {
		yAxis.Range = &gochart.ContinuousRange{Min: minY - 1, Max: maxY + 1}
	}

	graph := gochart.Chart{
		Title:  title,
		Width:  r.width,
		Height: r.height,
		XAxis: gochart.XAxis{
			Name:           "Date",
			ValueFormatter: gochart.TimeValueFormatterWithFormat("2006-01-02"),
		},
		YAxis: yAxis,
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    "Price",
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}
