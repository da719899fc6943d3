package osf

import (
	"os"
	"strings"
)

// Configuration for OSF endpoints.
// This file is the SINGLE SOURCE OF TRUTH for all OSF URLs.

const (
	// DefaultAPIBaseURL is the base URL for the v2 JSON:API.
	DefaultAPIBaseURL = "https://api.osf.io/v2/"

	// DefaultWebBaseURL is the base URL for the web app and its v1 API.
	DefaultWebBaseURL = "https://osf.io/"

	// BulkContentType marks a request body as a JSON:API bulk operation.
	BulkContentType = "application/vnd.api+json; ext=bulk"

	// NodesType is the JSON:API resource type for projects and components.
	NodesType = "nodes"
)

// Environment variables that override the defaults.
const (
	EnvAPIURL  = "OSF_API_URL"
	EnvWebURL  = "OSF_WEB_URL"
	EnvToken   = "OSF_TOKEN"
	EnvOffline = "OSF_OFFLINE"
)

// APIBaseURL returns the v2 API base URL, honoring OSF_API_URL.
func APIBaseURL() string {
	return withTrailingSlash(envOr(EnvAPIURL, DefaultAPIBaseURL))
}

// WebBaseURL returns the web base URL, honoring OSF_WEB_URL.
func WebBaseURL() string {
	return withTrailingSlash(envOr(EnvWebURL, DefaultWebBaseURL))
}

// TreeURL returns the v1 tree endpoint for a node.
func TreeURL(webBase, nodeID string) string {
	return withTrailingSlash(webBase) + "api/v1/project/" + nodeID + "/tree/"
}

// NodesURL returns the v2 nodes collection endpoint.
func NodesURL(apiBase string) string {
	return withTrailingSlash(apiBase) + "nodes/"
}

// NodeURL returns the web page of a node.
func NodeURL(webBase, nodeID string) string {
	return withTrailingSlash(webBase) + nodeID + "/"
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func withTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
