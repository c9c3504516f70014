package app

import (
	"os"
	"path/filepath"

	"mbackup-go/internal/config"
)

// Environment variables:
//   - MBACKUP_CONFIG: config file location; when set, discovery is skipped
//   - MBACKUP_HOME: base directory for logs and the history database of a
//     newly created config (default: /var/log/mbackup and /var/lib/mbackup)
const (
	ConfigEnv = "MBACKUP_CONFIG"
	HomeEnv   = "MBACKUP_HOME"
)

// ConfigCandidates returns the config file locations in search order.
func ConfigCandidates() []string {
	if path := os.Getenv(ConfigEnv); path != "" {
		return []string{path}
	}

	candidates := []string{"/etc/mbackup.toml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".config", "mbackup.toml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, "mbackup.toml"))
	} else {
		candidates = append(candidates, "mbackup.toml")
	}
	return candidates
}

// ResolveConfigPath locates the config file. A non-empty explicit path
// bypasses discovery.
func ResolveConfigPath(explicit string) (*config.Discovery, error) {
	if explicit != "" {
		_, err := os.Stat(explicit)
		return &config.Discovery{Path: explicit, Exists: err == nil}, nil
	}
	return config.Discover(ConfigCandidates())
}

// DefaultConfig returns the configuration written when none exists yet.
func DefaultConfig() config.Config {
	cfg := config.Default()
	if home := os.Getenv(HomeEnv); home != "" {
		cfg.LogDir = filepath.Join(home, "log")
		cfg.Database.DataDir = home
	}
	return cfg
}
