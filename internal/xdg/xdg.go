// Package xdg resolves the per-user configuration directory for gw.
package xdg

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the directory holding gateway.yml, the sites.d conf
// directory, and generated state. GW_CONFIG_DIR overrides the platform
// default for tests and containerized deployments.
func ConfigDir() (string, error) {
	if dir := os.Getenv("GW_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "gw"), nil
}
