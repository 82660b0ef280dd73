package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/okian/fakemeh/internal/domain/model"
	"github.com/okian/fakemeh/pkg/logger"
)

const defaultUploadName = "upload"

type analyzeResponse struct {
	Classification string         `json:"classification"`
	DeepfakeScore  float64        `json:"deepfake_score"`
	HeatmapData    []heatmapPoint `json:"heatmap_data"`
	FactcheckData  *factcheckData `json:"factcheck_data"`
	Error          string         `json:"error"`
}

type heatmapPoint struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	AnomalyScore float64 `json:"anomaly_score"`
}

type factcheckData struct {
	Claims []claimPayload `json:"claims"`
}

// claimPayload accepts both the flattened claim shape and the raw
// Fact Check Tools shape with a nested claimReview list.
type claimPayload struct {
	Text          string `json:"text"`
	ClaimReviewed string `json:"claimReviewed"`
	TextualRating string `json:"textualRating"`
	ClaimReview   []struct {
		TextualRating string `json:"textualRating"`
	} `json:"claimReview"`
}

// Analyze uploads the submission's image and/or URL and returns the parsed
// verdict. Every failure is an *AnalysisError.
func (c *Client) Analyze(ctx context.Context, sub model.Submission) (model.Verdict, error) {
	body, contentType, err := encodeSubmission(sub)
	if err != nil {
		return model.Verdict{}, &AnalysisError{Message: DefaultAnalysisMessage, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.analysisURL, body)
	if err != nil {
		return model.Verdict{}, &AnalysisError{Message: DefaultAnalysisMessage, Err: eris.Wrap(err, "build request")}
	}
	req.Header.Set("Content-Type", contentType)

	status, data, err := c.do(req)
	if err != nil {
		c.logger.Warn(ctx, "analysis request failed", logger.Error(err))
		return model.Verdict{}, &AnalysisError{Message: DefaultAnalysisMessage, StatusCode: status, Err: err}
	}

	var resp analyzeResponse
	decodeErr := json.Unmarshal(data, &resp)
	if !isSuccess(status) {
		msg := DefaultAnalysisMessage
		if decodeErr == nil && resp.Error != "" {
			msg = resp.Error
		}
		c.logger.Warn(ctx, "analysis rejected", logger.Int("status", status), logger.String("message", msg))
		return model.Verdict{}, &AnalysisError{
			Message:    msg,
			StatusCode: status,
			Err:        eris.Errorf("analysis backend returned %d", status),
		}
	}
	if decodeErr != nil {
		return model.Verdict{}, &AnalysisError{
			Message:    DefaultAnalysisMessage,
			StatusCode: status,
			Err:        eris.Wrap(decodeErr, "decode analysis response"),
		}
	}

	verdict, err := resp.toVerdict()
	if err != nil {
		c.logger.Warn(ctx, "analysis response unusable", logger.Error(err))
		return model.Verdict{}, &AnalysisError{Message: DefaultAnalysisMessage, StatusCode: status, Err: err}
	}
	return verdict, nil
}

func encodeSubmission(sub model.Submission) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if sub.HasImage() {
		name := sub.ImageName
		if name == "" {
			name = defaultUploadName
		}
		part, err := w.CreateFormFile("image", name)
		if err != nil {
			return nil, "", eris.Wrap(err, "create image part")
		}
		if _, err := part.Write(sub.ImageData); err != nil {
			return nil, "", eris.Wrap(err, "write image part")
		}
	}
	if sub.URL != "" {
		if err := w.WriteField("url", sub.URL); err != nil {
			return nil, "", eris.Wrap(err, "write url field")
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", eris.Wrap(err, "close multipart body")
	}
	return &buf, w.FormDataContentType(), nil
}

func (r analyzeResponse) toVerdict() (model.Verdict, error) {
	class, err := model.ParseClassification(r.Classification)
	if err != nil {
		return model.Verdict{}, eris.Wrapf(err, "classification %q", r.Classification)
	}
	v := model.Verdict{
		Classification: class,
		Score:          clamp01(r.DeepfakeScore),
		AnomalyPoints:  make([]model.AnomalyPoint, 0, len(r.HeatmapData)),
	}
	for _, p := range r.HeatmapData {
		v.AnomalyPoints = append(v.AnomalyPoints, model.AnomalyPoint{
			X:         p.X,
			Y:         p.Y,
			Intensity: clamp01(p.AnomalyScore),
		})
	}
	if r.FactcheckData != nil {
		fc := &model.FactCheck{Claims: make([]model.Claim, 0, len(r.FactcheckData.Claims))}
		for _, cl := range r.FactcheckData.Claims {
			fc.Claims = append(fc.Claims, cl.toClaim())
		}
		v.FactCheck = fc
	}
	return v, nil
}

func (p claimPayload) toClaim() model.Claim {
	text := p.ClaimReviewed
	if text == "" {
		text = p.Text
	}
	rating := p.TextualRating
	if rating == "" && len(p.ClaimReview) > 0 {
		rating = p.ClaimReview[0].TextualRating
	}
	return model.Claim{Text: text, Rating: rating}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, 1)
}
