package backend

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/okian/fakemeh/pkg/logger"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Login exchanges credentials for a success flag. A rejected login returns
// an *AuthError carrying the backend's message.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	status, data, err := c.postJSON(ctx, c.authURL, loginRequest{Email: email, Password: password})
	if err != nil {
		c.logger.Warn(ctx, "login request failed", logger.Error(err))
		return "", &AuthError{Message: DefaultLoginMessage, Err: err}
	}
	if !isSuccess(status) {
		return "", &AuthError{Message: DefaultLoginMessage, Err: eris.Errorf("auth backend returned %d", status)}
	}

	var resp loginResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", &AuthError{Message: DefaultLoginMessage, Err: eris.Wrap(err, "decode login response")}
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = DefaultLoginMessage
		}
		return "", &AuthError{Message: msg}
	}
	return resp.Message, nil
}
