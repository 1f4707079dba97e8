package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
)

var ErrPosterFull = errors.New("poster full")

var (
	posterBackground = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xFF}
	posterGutter     = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// Poster tiles Cols x Rows frames left to right, top to bottom, separated
// by 1px gutters and surrounded by a margin.
type Poster struct {
	cols, rows int
	margin     int
	scale      int
	tileW      int
	tileH      int

	img  *image.RGBA
	next int
}

func NewPoster(cols, rows, margin, scale, frameW, frameH int) (*Poster, error) {
	if cols < 1 || rows < 1 || frameW < 1 || frameH < 1 {
		return nil, fmt.Errorf("poster %dx%d of %dx%d frames", cols, rows, frameW, frameH)
	}
	if margin < 0 {
		margin = 0
	}
	if scale < 1 {
		scale = 1
	}
	p := &Poster{
		cols:   cols,
		rows:   rows,
		margin: margin,
		scale:  scale,
		tileW:  frameW * scale,
		tileH:  frameH * scale,
	}
	w := 2*margin + cols*p.tileW + (cols - 1)
	h := 2*margin + rows*p.tileH + (rows - 1)
	p.img = image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(p.img, p.img.Bounds(), &image.Uniform{C: posterBackground}, image.Point{}, draw.Src)
	inner := image.Rect(margin, margin, w-margin, h-margin)
	draw.Draw(p.img, inner, &image.Uniform{C: posterGutter}, image.Point{}, draw.Src)
	return p, nil
}

// SampleEvery is the iteration stride that spreads cols*rows frames evenly
// over a run.
func SampleEvery(iterations, cols, rows int) int {
	n := cols * rows
	if n < 1 || iterations < n {
		return 1
	}
	return iterations / n
}

func (p *Poster) Capacity() int           { return p.cols * p.rows }
func (p *Poster) Len() int                { return p.next }
func (p *Poster) Full() bool              { return p.next >= p.Capacity() }
func (p *Poster) Bounds() image.Rectangle { return p.img.Bounds() }

// TileRect is the pixel rectangle of tile i.
func (p *Poster) TileRect(i int) image.Rectangle {
	col, row := i%p.cols, i/p.cols
	x := p.margin + col*(p.tileW+1)
	y := p.margin + row*(p.tileH+1)
	return image.Rect(x, y, x+p.tileW, y+p.tileH)
}

// Add draws f into the next free tile.
func (p *Poster) Add(f *Frame) error {
	if p.Full() {
		return ErrPosterFull
	}
	src := f.Image(p.scale)
	r := p.TileRect(p.next)
	draw.Draw(p.img, r, src, src.Bounds().Min, draw.Src)
	p.next++
	return nil
}

func (p *Poster) Image() image.Image { return p.img }

func (p *Poster) WritePNG(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, p.img); err != nil {
		_ = out.Close()
		return fmt.Errorf("png encode: %w", err)
	}
	return out.Close()
}
