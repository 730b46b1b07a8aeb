package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/realgarit/intuneup/pkg/errors"
	"github.com/realgarit/intuneup/pkg/logging"
)

// graphError is the error envelope Graph returns on failure.
type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// DecodeResponse decodes a JSON response into the target structure.
// Non-2xx responses become *errors.APIError. A 204 or a nil target
// discards the body.
func DecodeResponse(resp *http.Response, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &errors.APIError{
			Service:    "unknown",
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body, resp.Status),
		}
		if resp.Request != nil {
			apiErr.Method = resp.Request.Method
			apiErr.Endpoint = resp.Request.URL.Path
		}
		return apiErr
	}

	if target == nil || resp.StatusCode == http.StatusNoContent || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}

	return nil
}

func errorMessage(body []byte, status string) string {
	var ge graphError
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Message != "" {
		if ge.Error.Code != "" {
			return ge.Error.Code + ": " + ge.Error.Message
		}
		return ge.Error.Message
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return status
}
