package osf

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorObject is one entry of a JSON:API "errors" array.
type ErrorObject struct {
	Status string            `json:"status,omitempty"`
	Title  string            `json:"title,omitempty"`
	Detail string            `json:"detail,omitempty"`
	Source map[string]string `json:"source,omitempty"`
}

// ErrorDocument is the body the API returns on failure.
type ErrorDocument struct {
	Errors []ErrorObject `json:"errors"`
}

// APIError describes a failed request. Status is zero when no response arrived.
type APIError struct {
	Method string
	URL    string
	Status int
	Errors []ErrorObject
	Err    error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Method, e.URL)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if d := e.Detail(); d != "" {
		fmt.Fprintf(&b, ": %s", d)
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Detail returns the first server-supplied error detail, if any.
func (e *APIError) Detail() string {
	for _, obj := range e.Errors {
		if obj.Detail != "" {
			return obj.Detail
		}
	}
	return ""
}

// decodeErrors pulls the errors array out of a response body. Bodies that are
// not JSON:API error documents yield nil.
func decodeErrors(body []byte) []ErrorObject {
	var doc ErrorDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil
	}
	return doc.Errors
}
