// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package clierr provides error classification and user-friendly error formatting for the CLI.
// It helps distinguish between different error types and provides actionable hints.
package clierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/monadic/nodes-delete/pkg/osf"
	"github.com/monadic/nodes-delete/pkg/queries"
	"github.com/monadic/nodes-delete/pkg/query"
	"github.com/monadic/nodes-delete/pkg/wizard"
)

// Common error types for CLI output.
const (
	TypeNotFound   = "not_found"  // Node does not exist or is hidden from this user
	TypeForbidden  = "forbidden"  // Missing or insufficient token
	TypeNetwork    = "network"    // Connection/network errors
	TypeInternal   = "internal"   // Internal/unexpected errors
	TypeValidation = "validation" // Rejected by the wizard or the API
)

func apiStatus(err error) int {
	var apiErr *osf.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return -1
}

// IsForbidden checks if the error is an authentication or permission error.
func IsForbidden(err error) bool {
	if err == nil {
		return false
	}
	if s := apiStatus(err); s == http.StatusUnauthorized || s == http.StatusForbidden {
		return true
	}
	if errors.Is(err, wizard.ErrNotAdmin) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "credentials were not provided")
}

// IsNotFound checks if the error indicates a missing node.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if apiStatus(err) == http.StatusNotFound || errors.Is(err, wizard.ErrUnknownNode) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found")
}

// IsNetworkError checks if the error is a connection/network error.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if apiStatus(err) == 0 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "context deadline exceeded")
}

// IsValidation checks if the change set itself was refused.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, wizard.ErrBulkLimitExceeded) || errors.Is(err, wizard.ErrInvalidTransition) {
		return true
	}
	s := apiStatus(err)
	return s == http.StatusBadRequest || s == http.StatusConflict || s == http.StatusRequestEntityTooLarge
}

// IsFilterError checks if a --where expression or saved filter was rejected.
func IsFilterError(err error) bool {
	return errors.Is(err, query.ErrUnknownField) ||
		errors.Is(err, query.ErrSyntax) ||
		errors.Is(err, queries.ErrNotFound)
}

// ClassifyError determines the type of error for appropriate handling.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	if IsFilterError(err) {
		return TypeValidation
	}
	if IsForbidden(err) {
		return TypeForbidden
	}
	if IsNotFound(err) {
		return TypeNotFound
	}
	if IsNetworkError(err) {
		return TypeNetwork
	}
	if IsValidation(err) {
		return TypeValidation
	}
	return TypeInternal
}

// Pretty formats an error with a user-friendly message and actionable hints.
func Pretty(err error) string {
	if err == nil {
		return ""
	}

	errType := ClassifyError(err)
	baseMsg := err.Error()

	switch errType {
	case TypeForbidden:
		return fmt.Sprintf("Access denied: %s\n\nHint: Check your credentials:\n"+
			"  - export %s=<personal access token> with the osf.full_write scope\n"+
			"  - you must be an administrator of every node you change", baseMsg, osf.EnvToken)

	case TypeNotFound:
		return fmt.Sprintf("Not found: %s\n\nHint: Check the node id (the 5-character code in the project URL).", baseMsg)

	case TypeNetwork:
		return fmt.Sprintf("Connection error: %s\n\nHint: Check your connectivity:\n"+
			"  - %s and %s point at a reachable deployment\n"+
			"  - unset %s if it is set", baseMsg, osf.EnvAPIURL, osf.EnvWebURL, osf.EnvOffline)

	case TypeValidation:
		if errors.Is(err, wizard.ErrBulkLimitExceeded) {
			return fmt.Sprintf("Too many changes: %s\n\nHint: Submit at most %d nodes at a time.", baseMsg, wizard.BulkLimit)
		}
		if IsFilterError(err) {
			return fmt.Sprintf("Invalid filter: %s\n\nHint: Fields are id, title, public, admin, changed, root, depth, parent.\n"+
				"Run 'nodes-delete filters' to list saved filters.", baseMsg)
		}
		return fmt.Sprintf("Rejected: %s", baseMsg)

	default:
		return fmt.Sprintf("Error: %s", baseMsg)
	}
}

// WrapWithHint wraps an error with an additional hint message.
func WrapWithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w\n\nHint: %s", err, hint)
}

// NothingFound returns a user-friendly message when a query returns no results.
// This is different from an error - it's a valid "empty" result.
func NothingFound(resource string) string {
	return fmt.Sprintf("No %s found.\n\n"+
		"This might mean:\n"+
		"  - Nothing has been changed yet\n"+
		"  - You may not administer any of these nodes", resource)
}

// Unwrap returns the underlying error, stripping any wrapper.
func Unwrap(err error) error {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}
