package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/and161185/rideshare/internal/errs"
)

// classify maps a non-2xx status onto an error class.
func classify(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return errs.ErrAuth
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return errs.ErrValidation
	case status >= 500:
		return errs.ErrServer
	}
	return errs.ErrUnknown
}

// responseError builds an APIError from a failed response. The backend
// reports problems as {"error": ...}, {"detail": ...}, {"message": ...} or
// a DRF field map {"field": ["msg", ...]}; the message is kept verbatim.
func responseError(status int, body []byte) *errs.APIError {
	e := &errs.APIError{Status: status, Kind: classify(status)}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		if len(body) > 0 && body[0] == '[' {
			var list []string
			if json.Unmarshal(body, &list) == nil && len(list) > 0 {
				e.Message = list[0]
			}
		}
		return e
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return e
	}
	for _, k := range []string{"error", "detail", "message"} {
		if raw, ok := payload[k]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				e.Message = s
				delete(payload, k)
				break
			}
		}
	}

	for k, raw := range payload {
		if msgs := fieldMessages(raw); len(msgs) > 0 {
			if e.Fields == nil {
				e.Fields = map[string][]string{}
			}
			e.Fields[k] = msgs
		}
	}
	return e
}

// fieldMessages accepts "msg", ["msg", ...] or a nested object whose
// values are those; nested messages are flattened.
func fieldMessages(raw json.RawMessage) []string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return list
	}
	var nested map[string]json.RawMessage
	if json.Unmarshal(raw, &nested) == nil {
		var out []string
		for _, v := range nested {
			out = append(out, fieldMessages(v)...)
		}
		return out
	}
	return nil
}
