package api

import (
	"encoding/json"
	"strings"

	"github.com/go-resty/resty/v2"
)

// ErrorBody is the error envelope returned by the backend. Some endpoints fill
// Error, others Detail.
type ErrorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Message returns Error, then Detail, then fallback.
func (b ErrorBody) Message(fallback string) string {
	if msg := strings.TrimSpace(b.Error); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(b.Detail); msg != "" {
		return msg
	}
	return fallback
}

// ErrorMessage extracts the backend message from an error response.
func ErrorMessage(resp *resty.Response, fallback string) string {
	if resp == nil {
		return fallback
	}
	if body, ok := resp.Error().(*ErrorBody); ok && body != nil {
		return body.Message(fallback)
	}

	var body ErrorBody
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return fallback
	}
	return body.Message(fallback)
}
