package osf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Auth holds user authentication state.
type Auth struct {
	Token  string `yaml:"token,omitempty"`
	UserID string `yaml:"user_id,omitempty"`
	Email  string `yaml:"email,omitempty"`
}

// IsAuthenticated returns true if a personal access token is available.
func IsAuthenticated() bool {
	auth, err := LoadAuth()
	if err != nil {
		return false
	}
	return auth.Token != ""
}

// LoadAuth loads authentication state. OSF_TOKEN wins over the auth file.
func LoadAuth() (*Auth, error) {
	auth := &Auth{}

	configPath := authConfigPath()
	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read auth file: %w", err)
	default:
		if err := yaml.Unmarshal(data, auth); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	if token := os.Getenv(EnvToken); token != "" {
		auth.Token = token
	}
	return auth, nil
}

// SaveAuth saves authentication state to local storage.
func SaveAuth(auth *Auth) error {
	configPath := authConfigPath()
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(auth)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0600)
}

// ClearAuth removes authentication state (logout).
func ClearAuth() error {
	configPath := authConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(configPath)
}

// AuthFile returns where SaveAuth stores credentials.
func AuthFile() string {
	return authConfigPath()
}

// authConfigPath returns the path to the auth config file.
func authConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".nodes-delete", "auth.yaml")
}
