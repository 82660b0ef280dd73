package backend

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/okian/fakemeh/internal/domain/model"
)

type factCheckRequest struct {
	Claim string `json:"claim"`
}

type factCheckResponse struct {
	Claim   string `json:"claim"`
	Verdict string `json:"verdict"`
	Source  string `json:"source"`
	errorBody
}

// FactCheck looks up claim. An empty claim fails with ErrEmptyClaim without
// contacting the backend; a lookup without results fails with
// ErrFactCheckNotFound.
func (c *Client) FactCheck(ctx context.Context, claim string) (model.FactCheckResult, error) {
	claim = strings.TrimSpace(claim)
	if claim == "" {
		return model.FactCheckResult{}, ErrEmptyClaim
	}

	status, data, err := c.postJSON(ctx, c.factCheckURL, factCheckRequest{Claim: claim})
	if err != nil {
		return model.FactCheckResult{}, &FactCheckError{Message: err.Error(), kind: ErrFactCheckTransport, Err: err}
	}

	var resp factCheckResponse
	decodeErr := json.Unmarshal(data, &resp)
	if !isSuccess(status) {
		msg := "fact-check failed"
		if decodeErr == nil && resp.Error != "" {
			msg = resp.Error
		}
		return model.FactCheckResult{}, &FactCheckError{
			Message: msg,
			kind:    ErrFactCheckTransport,
			Err:     eris.Errorf("fact-check backend returned %d", status),
		}
	}
	if decodeErr != nil {
		return model.FactCheckResult{}, &FactCheckError{
			Message: "fact-check failed",
			kind:    ErrFactCheckTransport,
			Err:     eris.Wrap(decodeErr, "decode fact-check response"),
		}
	}
	if resp.Verdict == "" && resp.Claim == "" {
		msg := resp.Message
		if msg == "" {
			msg = DefaultNotFoundMessage
		}
		return model.FactCheckResult{}, &FactCheckError{Message: msg, kind: ErrFactCheckNotFound}
	}
	return model.FactCheckResult{Claim: resp.Claim, Verdict: resp.Verdict, Source: resp.Source}, nil
}
