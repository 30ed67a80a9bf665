package chart

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestRenderProducesPNG(t *testing.T) {
	renderer := NewPNGRenderer(640, 320)
	start := time.Date(2025, 5, 29, 9, 0, 0, 0, time.UTC)

	cases := map[string][]Point{
		"series": {
			{At: start, Amount: 100},
			{At: start.Add(24 * time.Hour), Amount: 150},
			{At: start.Add(72 * time.Hour), Amount: 120},
		},
		"single point": {{At: start, Amount: 100}},
		"flat series": {
			{At: start, Amount: 100},
			{At: start.Add(time.Hour), Amount: 100},
		},
	}

	for name, points := range cases {
		t.Run(name, func(t *testing.T) {
			img, err := renderer.Render("Price history", points)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(img, pngSignature), "output is not a PNG image")
		})
	}

	assert.Equal(t, "image/png", renderer.ContentType())
}

func TestRenderRejectsEmptySeries(t *testing.T) {
	_, err := NewPNGRenderer(640, 320).Render("empty", nil)
	assert.ErrorIs(t, err, ErrNoPoints)
}
