package heatmap

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	"image/png"
	"io"
	"math"
	"strings"

	_ "golang.org/x/image/bmp" // register decoder
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp" // register decoder
)

// DefaultOverlayOpacity is the opacity the overlay is shown with on top of
// the image.
const DefaultOverlayOpacity = 0.7

// DefaultMaxPixels is the largest width*height Decode accepts by default.
const DefaultMaxPixels = 40_000_000

// Decode reads an uploaded image in any registered format. The header is
// checked first: images declaring more than maxPixels pixels are refused
// before any pixel buffer is allocated. maxPixels <= 0 uses DefaultMaxPixels.
func Decode(data []byte, maxPixels int) (image.Image, string, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Join(ErrDecodeImage, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, "", errors.Join(ErrDecodeImage,
			fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Join(ErrDecodeImage, err)
	}
	return img, format, nil
}

// Composite draws overlay onto a copy of base with the given opacity. Both
// share the same native pixel space. A nil overlay returns the unmarked copy.
func Composite(base image.Image, overlay *image.NRGBA, opacity float64) *image.NRGBA {
	b := base.Bounds()
	out := image.NewNRGBA(image.Rectangle{Max: b.Size()})
	draw.Draw(out, out.Rect, base, b.Min, draw.Src)
	if overlay == nil {
		return out
	}
	opacity = math.Max(0, math.Min(1, opacity))
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
	draw.DrawMask(out, out.Rect, overlay, image.Point{}, mask, image.Point{}, draw.Over)
	return out
}

// Fit scales img down to width, keeping the aspect ratio so that overlay
// registration is preserved. Images already narrower than width are
// returned unchanged.
func Fit(img image.Image, width int) image.Image {
	b := img.Bounds()
	if width <= 0 || b.Dx() <= width {
		return img
	}
	height := max(1, int(math.Round(float64(b.Dy())*float64(width)/float64(b.Dx()))))
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Rect, img, b, xdraw.Src, nil)
	return dst
}

// Annotate writes text near the bottom-left corner of a copy of img.
func Annotate(img image.Image, text string) image.Image {
	if img == nil || strings.TrimSpace(text) == "" {
		return img
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)

	pad := 6
	face := basicfont.Face7x13
	textCol := image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	dr := &font.Drawer{Dst: rgba, Src: textCol, Face: face}
	tw := dr.MeasureString(text).Ceil()
	x := b.Min.X + 8
	y := b.Max.Y - 6

	bg := image.NewUniform(color.RGBA{A: 200})
	rect := image.Rect(x-pad, y-face.Metrics().Ascent.Ceil()-pad, x+tw+pad, y+pad/2)
	draw.Draw(rgba, rect, bg, image.Point{}, draw.Over)

	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(text)
	return rgba
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}
