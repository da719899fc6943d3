// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package clierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/monadic/nodes-delete/pkg/osf"
	"github.com/monadic/nodes-delete/pkg/queries"
	"github.com/monadic/nodes-delete/pkg/query"
	"github.com/monadic/nodes-delete/pkg/wizard"
)

func apiErr(status int, detail string) error {
	e := &osf.APIError{Method: http.MethodDelete, URL: "https://api.osf.io/v2/nodes/", Status: status}
	if detail != "" {
		e.Errors = []osf.ErrorObject{{Detail: detail}}
	}
	return e
}

func TestIsForbidden(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "API 401",
			err:      apiErr(http.StatusUnauthorized, ""),
			expected: true,
		},
		{
			name:     "API 403 wrapped",
			err:      fmt.Errorf("submit: %w", apiErr(http.StatusForbidden, "")),
			expected: true,
		},
		{
			name:     "not an admin",
			err:      fmt.Errorf("toggle abc: %w", wizard.ErrNotAdmin),
			expected: true,
		},
		{
			name:     "error with access denied",
			err:      errors.New("access denied to resource"),
			expected: true,
		},
		{
			name:     "regular error",
			err:      errors.New("something went wrong"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsForbidden(tt.err)
			if got != tt.expected {
				t.Errorf("IsForbidden() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "API 404",
			err:      apiErr(http.StatusNotFound, ""),
			expected: true,
		},
		{
			name:     "unknown node",
			err:      fmt.Errorf("toggle zzz: %w", wizard.ErrUnknownNode),
			expected: true,
		},
		{
			name:     "regular not found message",
			err:      errors.New("node not found"),
			expected: true,
		},
		{
			name:     "regular error",
			err:      errors.New("something went wrong"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsNotFound(tt.err)
			if got != tt.expected {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "API error without response",
			err:      &osf.APIError{Method: http.MethodGet, URL: "https://osf.io/api/v1/project/abc/tree/", Err: errors.New("EOF")},
			expected: true,
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp 127.0.0.1:5000: connection refused"),
			expected: true,
		},
		{
			name:     "no such host",
			err:      errors.New("dial tcp: lookup api.osf.local: no such host"),
			expected: true,
		},
		{
			name:     "context deadline exceeded",
			err:      errors.New("context deadline exceeded"),
			expected: true,
		},
		{
			name:     "API error with response",
			err:      apiErr(http.StatusBadRequest, "bad"),
			expected: false,
		},
		{
			name:     "regular error",
			err:      errors.New("something went wrong"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsNetworkError(tt.err)
			if got != tt.expected {
				t.Errorf("IsNetworkError() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "forbidden error",
			err:      apiErr(http.StatusForbidden, ""),
			expected: TypeForbidden,
		},
		{
			name:     "not found error",
			err:      apiErr(http.StatusNotFound, ""),
			expected: TypeNotFound,
		},
		{
			name:     "network error",
			err:      errors.New("connection refused"),
			expected: TypeNetwork,
		},
		{
			name:     "bulk limit",
			err:      fmt.Errorf("101 nodes: %w", wizard.ErrBulkLimitExceeded),
			expected: TypeValidation,
		},
		{
			name:     "rejected by API",
			err:      apiErr(http.StatusBadRequest, "Quota exceeded"),
			expected: TypeValidation,
		},
		{
			name:     "unknown filter field",
			err:      fmt.Errorf("parse --where: %w", query.ErrUnknownField),
			expected: TypeValidation,
		},
		{
			name:     "missing saved filter is not a missing node",
			err:      fmt.Errorf("%w: mine", queries.ErrNotFound),
			expected: TypeValidation,
		},
		{
			name:     "internal error",
			err:      errors.New("unexpected error"),
			expected: TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if got != tt.expected {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPretty(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantContain string
	}{
		{
			name:        "nil error",
			err:         nil,
			wantContain: "",
		},
		{
			name:        "forbidden error includes token hint",
			err:         apiErr(http.StatusUnauthorized, ""),
			wantContain: osf.EnvToken,
		},
		{
			name:        "not found includes node id hint",
			err:         apiErr(http.StatusNotFound, ""),
			wantContain: "node id",
		},
		{
			name:        "network error includes connectivity hint",
			err:         errors.New("connection refused"),
			wantContain: "connectivity",
		},
		{
			name:        "bulk limit includes limit",
			err:         wizard.ErrBulkLimitExceeded,
			wantContain: "at most 100",
		},
		{
			name:        "filter error lists fields",
			err:         fmt.Errorf("parse --where: %w", query.ErrSyntax),
			wantContain: "nodes-delete filters",
		},
		{
			name:        "server detail is kept",
			err:         apiErr(http.StatusBadRequest, "Quota exceeded"),
			wantContain: "Quota exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pretty(tt.err)
			if tt.wantContain != "" && !strings.Contains(got, tt.wantContain) {
				t.Errorf("Pretty() = %q, want to contain %q", got, tt.wantContain)
			}
		})
	}
}

func TestWrapWithHint(t *testing.T) {
	if WrapWithHint(nil, "x") != nil {
		t.Error("WrapWithHint(nil) should be nil")
	}
	base := errors.New("boom")
	wrapped := WrapWithHint(base, "try again")
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should match base")
	}
	if Unwrap(wrapped) != base {
		t.Error("Unwrap should return the innermost error")
	}
}

func TestNothingFound(t *testing.T) {
	result := NothingFound("changed nodes")
	if !strings.Contains(result, "changed nodes") {
		t.Errorf("NothingFound() should contain resource name")
	}
	if !strings.HasPrefix(result, "No ") {
		t.Errorf("NothingFound() should start with 'No '")
	}
}
