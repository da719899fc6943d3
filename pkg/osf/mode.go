// Package osf provides the connection library for the OSF APIs.
// This is the SINGLE SOURCE OF TRUTH for all OSF connectivity.
package osf

import "os"

// Mode represents the current operating mode.
type Mode int

const (
	// Offline means no network access. Only file-based trees can be inspected.
	Offline Mode = iota

	// Online means the API is reachable but no token is configured.
	// Trees of public nodes can be fetched; bulk updates are refused.
	Online

	// Connected means a personal access token is configured.
	Connected
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Offline:
		return "offline"
	case Online:
		return "online"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// CurrentMode returns the current operating mode.
// It checks connectivity and authentication state.
func CurrentMode() Mode {
	if !hasConnectivity() {
		return Offline
	}
	if IsAuthenticated() {
		return Connected
	}
	return Online
}

func hasConnectivity() bool {
	return os.Getenv(EnvOffline) != "true"
}
