package api

import (
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the version of the response envelope format.
// Clients check it before decoding the payload.
const EnvelopeVersion = 1

// APIEnvelope wraps every successful response and plain error responses.
type APIEnvelope struct { //nolint:revive // API prefix matches APIError
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// APIErrorEnvelope is the envelope for errors carrying a machine-readable code.
type APIErrorEnvelope struct { //nolint:revive // API prefix matches APIError
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer is a huma transformer that wraps response bodies in
// the versioned envelope. Error statuses (4xx, 5xx) produce failure envelopes.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if strings.HasPrefix(status, "4") || strings.HasPrefix(status, "5") {
		return errorEnvelope(v), nil
	}

	if err, ok := v.(error); ok {
		return errorEnvelope(err), nil
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: true,
		Data:    v,
	}, nil
}

func errorEnvelope(v any) any {
	var apiErr *APIError
	if err, ok := v.(error); ok && errors.As(err, &apiErr) && apiErr.Code != "" {
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		}
	}

	msg := "unknown error"
	switch e := v.(type) {
	case error:
		msg = e.Error()
	case string:
		msg = e
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: false,
		Error:   msg,
	}
}
