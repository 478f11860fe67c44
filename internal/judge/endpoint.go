package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPEndpoint calls the server's judge route as the signed-in player.
type HTTPEndpoint struct {
	baseURL string
	token   func(ctx context.Context) (string, error)
	client  *http.Client
}

func NewHTTPEndpoint(baseURL string, token func(ctx context.Context) (string, error)) *HTTPEndpoint {
	return &HTTPEndpoint{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: defaultCallTimeout},
	}
}

func (e *HTTPEndpoint) Judge(ctx context.Context, req Request) (Judgment, error) {
	token, err := e.token(ctx)
	if err != nil {
		return Judgment{}, fmt.Errorf("%w: %v", ErrPermission, err)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return Judgment{}, fmt.Errorf("failed to build judge request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/judge", bytes.NewReader(payload))
	if err != nil {
		return Judgment{}, fmt.Errorf("failed to build judge request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return Judgment{}, fmt.Errorf("failed to reach judge: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Judgment{}, fmt.Errorf("failed to read judge response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &failure)
		return Judgment{}, statusError(resp.StatusCode, failure.Error)
	}
	var result Judgment
	if err := json.Unmarshal(body, &result); err != nil {
		return Judgment{}, fmt.Errorf("failed to parse judge response")
	}
	return result, nil
}

// statusError wraps the server's message in the class for its status. Server
// messages usually already start with the class text, which is not repeated.
func statusError(status int, msg string) error {
	class := classForStatus(status)
	msg = strings.TrimSpace(strings.TrimPrefix(msg, class.Error()+":"))
	if msg == "" || msg == class.Error() {
		return class
	}
	return fmt.Errorf("%w: %s", class, msg)
}

func classForStatus(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrPermission
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrUpstream
	}
}

// StatusFor maps a judge error to the HTTP status the server responds with.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
