package apperror

import (
	"bytes"
	"encoding/json"
	"strings"
)

// errorBody is the union of the error shapes the backend answers with
type errorBody struct {
	Message json.RawMessage `json:"message"`
	Error   json.RawMessage `json:"error"`
	Detail  json.RawMessage `json:"detail"`
	Errors  json.RawMessage `json:"errors"`
}

// field is one entry of an errors object, kept in document order
type field struct {
	name     string
	messages []string
}

// Normalize turns a failed response into a *RequestError. The message is
// taken from, in order: message, error, detail, a string errors value, the
// first entry of an errors object. fallback is used when none is present.
func Normalize(status int, body []byte, fallback string) *RequestError {
	return &RequestError{Status: status, Message: extractMessage(body, fallback)}
}

// NormalizeForm is Normalize for create and update calls: when the body
// carries an errors object the result is a *FormValidationError routed to
// the form instead of a notification.
func NormalizeForm(status int, body []byte, fallback string) error {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if fields, ok := objectFields(parsed.Errors); ok && len(fields) > 0 {
			raw := make(map[string]any, len(fields))
			for _, f := range fields {
				if len(f.messages) > 0 {
					raw[f.name] = f.messages
				}
			}
			return NewFormValidationError(stringValue(parsed.Message), raw)
		}
	}
	return Normalize(status, body, fallback)
}

func extractMessage(body []byte, fallback string) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fallback
	}

	for _, candidate := range []json.RawMessage{parsed.Message, parsed.Error, parsed.Detail, parsed.Errors} {
		if msg := stringValue(candidate); msg != "" {
			return msg
		}
	}

	if fields, ok := objectFields(parsed.Errors); ok {
		for _, f := range fields {
			if len(f.messages) > 0 && f.messages[0] != "" {
				return f.messages[0]
			}
		}
	}

	return fallback
}

// stringValue returns raw as a string when it is a JSON string
func stringValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// objectFields decodes an errors object while keeping key order. Values
// may be a string or a list of strings; other values are skipped.
func objectFields(raw json.RawMessage) ([]field, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, false
	}

	var fields []field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fields, true
		}
		key, _ := keyTok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fields, true
		}

		f := field{name: key}
		if s := stringValue(value); s != "" {
			f.messages = []string{s}
		} else {
			var list []any
			if err := json.Unmarshal(value, &list); err == nil {
				for _, item := range list {
					if s, ok := item.(string); ok {
						f.messages = append(f.messages, s)
					}
				}
			}
		}
		fields = append(fields, f)
	}

	return fields, true
}
