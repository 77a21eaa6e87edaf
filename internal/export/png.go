// Package export writes rendered frames to image files.
package export

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/san-kum/voxelsand/internal/device"
)

// Image converts f to an image.RGBA.
func Image(f *device.Frame) *image.RGBA {
	img := &image.RGBA{
		Stride: 4 * f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
		Pix:    make([]uint8, 4*len(f.Pix)),
	}
	for i, c := range f.Pix {
		img.Pix[4*i+0] = c.R
		img.Pix[4*i+1] = c.G
		img.Pix[4*i+2] = c.B
		img.Pix[4*i+3] = c.A
	}
	return img
}

func PNG(w io.Writer, f *device.Frame) error {
	if f == nil || f.Width == 0 || f.Height == 0 {
		return fmt.Errorf("export: empty frame")
	}
	return png.Encode(w, Image(f))
}

// SavePNG writes f to path.
func SavePNG(path string, f *device.Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := PNG(file, f); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
