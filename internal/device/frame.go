package device

import "image/color"

// Frame is an RGBA color buffer with row 0 at the top.
type Frame struct {
	Width, Height int
	Pix           []color.RGBA
}

func NewFrame(w, h int) *Frame {
	return &Frame{Width: w, Height: h, Pix: make([]color.RGBA, w*h)}
}

func (f *Frame) At(x, y int) color.RGBA {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return color.RGBA{}
	}
	return f.Pix[y*f.Width+x]
}

func (f *Frame) Set(x, y int, c color.RGBA) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	f.Pix[y*f.Width+x] = c
}

// CopyFrom resizes f to src and copies its pixels.
func (f *Frame) CopyFrom(src *Frame) {
	if len(f.Pix) != len(src.Pix) {
		f.Pix = make([]color.RGBA, len(src.Pix))
	}
	f.Width, f.Height = src.Width, src.Height
	copy(f.Pix, src.Pix)
}

func (f *Frame) Equal(o *Frame) bool {
	if o == nil || f.Width != o.Width || f.Height != o.Height {
		return false
	}
	for i := range f.Pix {
		if f.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}
