package onepanel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

var (
	ErrUnauthorized      = ports.ErrUnauthorized
	ErrMalformedResponse = ports.ErrMalformedResponse
	ErrUnavailable       = ports.ErrUnavailable
)

// APIError is a non-2xx answer from the backend. Detail is the message the
// backend meant for the user.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("onepanel: status %d", e.StatusCode)
	}
	return fmt.Sprintf("onepanel: status %d: %s", e.StatusCode, e.Detail)
}

func (e *APIError) UserMessage() string {
	return e.Detail
}

// Forbidden reports a disabled feature or banned account.
func (e *APIError) Forbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

type validationIssue struct {
	Msg string `json:"msg"`
}

// newAPIError extracts the detail from a FastAPI style error body: a string
// detail, a list of validation issues, or failing both the raw body.
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil {
			e.Detail = detail
			return e
		}
		var issues []validationIssue
		if err := json.Unmarshal(payload.Detail, &issues); err == nil {
			msgs := make([]string, 0, len(issues))
			for _, i := range issues {
				if i.Msg != "" {
					msgs = append(msgs, i.Msg)
				}
			}
			e.Detail = strings.Join(msgs, "; ")
			return e
		}
	}

	e.Detail = string(bytes.TrimSpace(body))
	if e.Detail == "" {
		e.Detail = http.StatusText(status)
	}
	return e
}
