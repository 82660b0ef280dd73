// Package heatmap paints anomaly hotspots onto a transparent surface that
// shares the submitted image's native pixel space, so the overlay lines up
// with the image at any display size.
package heatmap

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/okian/fakemeh/internal/domain/model"
)

// FallbackMessage is shown instead of an overlay when no points were returned.
const FallbackMessage = "No manipulation points detected"

const (
	defaultRadius    = 30.0
	defaultIntensity = 0.5
	// kappa places cubic control points so four curves approximate a circle.
	kappa = 0.5522847498
)

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithRadius sets the disc radius in native pixels.
func WithRadius(radius float64) Option {
	return func(r *Renderer) {
		if radius > 0 {
			r.radius = radius
		}
	}
}

// WithDefaultIntensity sets the opacity used for points without intensity.
func WithDefaultIntensity(intensity float64) Option {
	return func(r *Renderer) {
		if intensity > 0 && intensity <= 1 {
			r.defaultIntensity = intensity
		}
	}
}

// WithColor sets the disc fill colour. Its alpha is ignored.
func WithColor(c color.NRGBA) Option {
	return func(r *Renderer) {
		r.fill = c
	}
}

// Overlay is the outcome of one render.
type Overlay struct {
	// Surface is transparent except for the painted discs. Nil when nothing
	// was painted.
	Surface  *image.NRGBA
	Painted  int
	Fallback string // FallbackMessage when there were no points
}

// Renderer owns a paint surface that is reset before every render.
// It is not safe for concurrent use.
type Renderer struct {
	radius           float64
	defaultIntensity float64
	fill             color.NRGBA

	surface *image.NRGBA
	raster  *vector.Rasterizer
	mask    *image.Alpha
}

// NewRenderer creates a Renderer with configuration options.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		radius:           defaultRadius,
		defaultIntensity: defaultIntensity,
		fill:             color.NRGBA{R: 255, A: 255},
	}
	for _, opt := range opts {
		opt(r)
	}
	side := int(math.Ceil(2*r.radius)) + 2
	r.raster = vector.NewRasterizer(side, side)
	r.mask = image.NewAlpha(image.Rect(0, 0, side, side))
	return r
}

// Render paints points onto a surface sized to img's native bounds. Calling
// it twice with the same input yields identical pixels.
func (r *Renderer) Render(img image.Image, points []model.AnomalyPoint) (*Overlay, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	size := img.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return nil, ErrEmptyImage
	}

	r.reset(size)
	if len(points) == 0 {
		return &Overlay{Fallback: FallbackMessage}, nil
	}

	for _, p := range points {
		r.paintDisc(p.X, p.Y, r.intensity(p.Intensity))
	}

	out := image.NewNRGBA(r.surface.Rect)
	copy(out.Pix, r.surface.Pix)
	return &Overlay{Surface: out, Painted: len(points)}, nil
}

// reset (re)allocates the surface at size or clears the existing one.
func (r *Renderer) reset(size image.Point) {
	if r.surface == nil || r.surface.Rect.Size() != size {
		r.surface = image.NewNRGBA(image.Rectangle{Max: size})
		return
	}
	clear(r.surface.Pix)
}

func (r *Renderer) intensity(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return r.defaultIntensity
	}
	return min(v, 1)
}

// paintDisc rasterizes a disc into the local mask and composites it onto
// the surface. The mask is local so that discs hanging over an edge are
// clipped by DrawMask rather than by the rasterizer.
func (r *Renderer) paintDisc(cx, cy, alpha float64) {
	ox := math.Floor(cx - r.radius)
	oy := math.Floor(cy - r.radius)
	lx := float32(cx - ox)
	ly := float32(cy - oy)
	rad := float32(r.radius)
	k := rad * kappa

	side := r.mask.Rect.Dx()
	z := r.raster
	z.Reset(side, side)
	z.DrawOp = draw.Src
	z.MoveTo(lx+rad, ly)
	z.CubeTo(lx+rad, ly+k, lx+k, ly+rad, lx, ly+rad)
	z.CubeTo(lx-k, ly+rad, lx-rad, ly+k, lx-rad, ly)
	z.CubeTo(lx-rad, ly-k, lx-k, ly-rad, lx, ly-rad)
	z.CubeTo(lx+k, ly-rad, lx+rad, ly-k, lx+rad, ly)
	z.ClosePath()
	z.Draw(r.mask, r.mask.Rect, image.Opaque, image.Point{})

	fill := r.fill
	fill.A = uint8(math.Round(alpha * 255))
	dst := image.Rect(int(ox), int(oy), int(ox)+side, int(oy)+side)
	draw.DrawMask(r.surface, dst, image.NewUniform(fill), image.Point{}, r.mask, image.Point{}, draw.Over)
}
