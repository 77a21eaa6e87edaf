package tui

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/voxelsand/internal/device"
)

// upperHalf draws the top pixel of a cell in the foreground color and the
// bottom pixel in the background color.
const upperHalf = "▀"

// Canvas turns frames into half-block text, two pixel rows per line.
type Canvas struct {
	styles map[[2]color.RGBA]lipgloss.Style
}

func NewCanvas() *Canvas {
	return &Canvas{styles: make(map[[2]color.RGBA]lipgloss.Style)}
}

func (c *Canvas) style(top, bottom color.RGBA) lipgloss.Style {
	key := [2]color.RGBA{top, bottom}
	if s, ok := c.styles[key]; ok {
		return s
	}
	s := lipgloss.NewStyle().
		Foreground(lipgloss.Color(hex(top))).
		Background(lipgloss.Color(hex(bottom)))
	c.styles[key] = s
	return s
}

// Render returns ceil(Height/2) lines of Width cells. A missing last row
// renders black.
func (c *Canvas) Render(f *device.Frame) string {
	var b strings.Builder
	for y := 0; y < f.Height; y += 2 {
		for x := 0; x < f.Width; x++ {
			bottom := color.RGBA{A: 255}
			if y+1 < f.Height {
				bottom = f.At(x, y+1)
			}
			b.WriteString(c.style(f.At(x, y), bottom).Render(upperHalf))
		}
		if y+2 < f.Height {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
