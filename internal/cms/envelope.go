package cms

import (
	"bytes"
	"encoding/json"
	"net/http"

	dErrors "cmsportal/pkg/domain-errors"
)

// envelope is the uniform {success, message, data} wrapper of every response.
type envelope struct {
	Success bool            `json:"success"`
	Message json.RawMessage `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) hasData() bool {
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// messageText extracts the human readable message from either a plain string
// or an {"error": "..."} object.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Error
	}
	return ""
}

// failureCode classifies an application-level failure by HTTP status.
func failureCode(status int) dErrors.Code {
	switch status {
	case http.StatusNotFound:
		return dErrors.CodeNotFound
	case http.StatusGone:
		return dErrors.CodeExpired
	case http.StatusUnauthorized:
		return dErrors.CodeUnauthorized
	case http.StatusForbidden:
		return dErrors.CodeForbidden
	case http.StatusConflict:
		return dErrors.CodeConflict
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return dErrors.CodeUnavailable
	case http.StatusGatewayTimeout:
		return dErrors.CodeTimeout
	default:
		return dErrors.CodeBadRequest
	}
}
