package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "EMPLOYEEDB_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "employeedb.yaml"
	// ConfigDirName is the per-application directory under XDG and /etc
	ConfigDirName = "employeedb"

	configDirFile = "config.yaml"
)

// userConfigPath is $XDG_CONFIG_HOME/employeedb/config.yaml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset. It is empty when neither is known.
func userConfigPath() string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, ConfigDirName, configDirFile)
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, configDirFile)
	}
	return ""
}

// FindConfigPath returns the first existing config file, checking
// $EMPLOYEEDB_CONFIG, ./employeedb.yaml, the user config directory and
// /etc/employeedb/config.yaml in that order. It returns "" when none exists.
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" && fileExists(path) {
		return path
	}

	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}

	for _, path := range []string{
		userConfigPath(),
		filepath.Join("/etc", ConfigDirName, configDirFile),
	} {
		if path != "" && fileExists(path) {
			return path
		}
	}
	return ""
}

// DefaultConfigPath is where init-config writes when no path is given: the
// user config directory, or ./employeedb.yaml without a home directory.
func DefaultConfigPath() string {
	if path := userConfigPath(); path != "" {
		return path
	}
	return ConfigFileName
}

// EnsureConfigDir creates the directory holding configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
