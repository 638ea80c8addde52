package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths contains the standard paths for livedoc data.
type Paths struct {
	Config string // ~/.config/livedoc
	State  string // ~/.local/state/livedoc
}

// GetPaths returns the standard paths for livedoc data.
func GetPaths() *Paths {
	return &Paths{
		Config: filepath.Join(getEnvOrDefault("XDG_CONFIG_HOME", defaultConfigHome()), "livedoc"),
		State:  filepath.Join(getEnvOrDefault("XDG_STATE_HOME", defaultStateHome()), "livedoc"),
	}
}

// LogDir returns the directory for rotating log files, creating it if needed.
func (p *Paths) LogDir() (string, error) {
	dir := filepath.Join(p.State, "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultConfigHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".config")
}

func defaultStateHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "state")
}
