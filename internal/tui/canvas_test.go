package tui

import (
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/voxelsand/internal/device"
)

func TestCanvas_Render(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		lines         int
	}{
		{"even height", 4, 4, 2},
		{"odd height", 3, 5, 3},
		{"single row", 6, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := device.NewFrame(tt.width, tt.height)
			out := NewCanvas().Render(f)
			lines := strings.Split(out, "\n")
			require.Len(t, lines, tt.lines)
			for _, l := range lines {
				assert.Equal(t, tt.width, strings.Count(l, upperHalf))
			}
		})
	}
}

func TestCanvas_ReusesStyles(t *testing.T) {
	f := device.NewFrame(8, 8)
	for i := range f.Pix {
		f.Pix[i] = color.RGBA{R: uint8(i % 2 * 255), A: 255}
	}
	c := NewCanvas()
	c.Render(f)
	assert.Len(t, c.styles, 2)
}

func TestHex(t *testing.T) {
	assert.Equal(t, "#ff8000", hex(color.RGBA{R: 255, G: 128, A: 255}))
	assert.Equal(t, "#000000", hex(color.RGBA{}))
}
