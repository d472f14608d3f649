package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings is the operator-authored gateway configuration. Per-site route
// rules live in separate .conf files under SitesDir; this file only covers
// the process-level knobs.
type Settings struct {
	// HTTPPort is the plaintext listener port.
	HTTPPort int `yaml:"httpPort"`
	// HTTPSPort is the TLS listener port, used only when at least one
	// site fronts an https target.
	HTTPSPort int `yaml:"httpsPort"`
	// SitesDir holds the per-site .conf files.
	SitesDir string `yaml:"sitesDir"`
	// StateDir holds the local CA pair and other generated state.
	StateDir string `yaml:"stateDir"`
	// UserAgent replaces the built-in default User-Agent substituted on
	// requests that arrive without one.
	UserAgent string `yaml:"userAgent,omitempty"`
	// WatchSites enables the conf-directory change watcher. Changes only
	// take effect on restart; the watcher just tells the operator so.
	WatchSites bool `yaml:"watchSites"`
}

func Default(configDir string) Settings {
	return Settings{
		HTTPPort:   80,
		HTTPSPort:  443,
		SitesDir:   filepath.Join(configDir, "sites.d"),
		StateDir:   filepath.Join(configDir, "state"),
		WatchSites: true,
	}
}

func Path(configDir string) string { return filepath.Join(configDir, "gateway.yml") }

// LoadOrCreate reads gateway.yml from configDir, writing the defaults on
// first run.
func LoadOrCreate(configDir string) (Settings, error) {
	p := Path(configDir)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s := Default(configDir)
			if err := Save(configDir, s); err != nil {
				return Settings{}, err
			}
			return s, nil
		}
		return Settings{}, err
	}
	s := Default(configDir)
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	if s.HTTPPort <= 0 {
		s.HTTPPort = 80
	}
	if s.HTTPSPort <= 0 {
		s.HTTPSPort = 443
	}
	return s, nil
}

func Save(configDir string, s Settings) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(configDir), b, 0o644)
}
