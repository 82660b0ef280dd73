package service

import (
	"context"
	"image"

	"github.com/okian/fakemeh/internal/domain/heatmap"
	"github.com/okian/fakemeh/internal/domain/model"
	"github.com/okian/fakemeh/pkg/logger"
	"github.com/okian/fakemeh/pkg/metrics"
)

// Heatmap render results for metrics.
const (
	renderPainted  = "painted"
	renderFallback = "fallback"
	renderFailed   = "failed"
	renderSkipped  = "skipped"
)

// renderResult fills res.Display and res.Fallback. A render failure only
// loses the overlay; the unmarked image is shown instead.
func (s *Session) renderResult(ctx context.Context, sub model.Submission, verdict model.Verdict, res *Result) {
	if len(verdict.AnomalyPoints) == 0 {
		res.Fallback = heatmap.FallbackMessage
	}
	if !sub.HasImage() {
		metrics.RecordHeatmapRender(renderSkipped)
		return
	}

	img, _, err := heatmap.Decode(sub.ImageData, s.maxImagePixels)
	if err != nil {
		res.HeatmapErr = err
		metrics.RecordHeatmapRender(renderFailed)
		s.logger.Warn(ctx, "uploaded image unreadable, no overlay", logger.Error(err))
		return
	}

	var frame image.Image
	if res.Fallback != "" {
		frame = heatmap.Annotate(heatmap.Composite(img, nil, 0), res.Fallback)
		metrics.RecordHeatmapRender(renderFallback)
	} else {
		ov, err := s.renderer.Render(img, verdict.AnomalyPoints)
		if err != nil {
			res.HeatmapErr = err
			frame = heatmap.Composite(img, nil, 0)
			metrics.RecordHeatmapRender(renderFailed)
			s.logger.Warn(ctx, "heatmap render failed, showing unmarked image", logger.Error(err))
		} else {
			frame = heatmap.Composite(img, ov.Surface, s.overlayOpacity)
			metrics.RecordHeatmapRender(renderPainted)
		}
	}
	res.Display = heatmap.Fit(frame, s.displayWidth)
}
