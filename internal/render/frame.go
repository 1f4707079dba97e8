// Package render turns the world's display genes into pixels: single
// frames, JPEG frame sequences and a poster of frames sampled over a run.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
)

// DisplaySource is anything with a grid of RGB cells; *world.World
// satisfies it.
type DisplaySource interface {
	Size() (width, height int)
	RGB(x, y int) (r, g, b uint8)
}

// Frame is a row-major RGB buffer of Width*Height*3 bytes.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// Capture reads every cell of src into a new frame.
func Capture(src DisplaySource) *Frame {
	w, h := src.Size()
	f := &Frame{Width: w, Height: h, Pix: make([]byte, w*h*3)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			f.Pix[i], f.Pix[i+1], f.Pix[i+2] = src.RGB(x, y)
		}
	}
	return f
}

func (f *Frame) At(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Image returns the frame as an RGBA image, each cell scaled to a
// scale x scale block.
func (f *Frame) Image(scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	src := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.At(x, y)
			src.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 0xFF})
		}
	}
	if scale == 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, f.Width*scale, f.Height*scale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// FramePath names frame n of a movie: <dir>/<prefix>.NNNN.jpg.
func FramePath(dir, prefix string, n uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%04d.jpg", prefix, n))
}

func WriteJPEG(path string, f *Frame, scale, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(out, f.Image(scale), &jpeg.Options{Quality: quality}); err != nil {
		_ = out.Close()
		return fmt.Errorf("jpeg encode: %w", err)
	}
	return out.Close()
}
