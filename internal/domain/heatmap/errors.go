package heatmap

import "errors"

// Sentinel kinds for heatmap errors.
var (
	ErrNoImage     = errors.New("no image to render on")
	ErrEmptyImage  = errors.New("image has no pixels")
	ErrDecodeImage = errors.New("decode image failed")
	// ErrImageTooLarge is joined with ErrDecodeImage when the header
	// declares more pixels than allowed.
	ErrImageTooLarge = errors.New("image dimensions too large")
)
