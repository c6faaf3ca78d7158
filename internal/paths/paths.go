// Package paths resolves where rowkeeper keeps its configuration and its
// database.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "rowkeeper"

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".rowkeeper"
	DefaultDataDirName   = ".rowkeeper-db"
)

// Environment variables that override the directories.
const (
	EnvConfigDir = "ROWKEEPER_CONFIG_DIR"
	EnvDataDir   = "ROWKEEPER_DATA_DIR"
)

// platformDir holds platform lookups that tests may replace.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// xdgDir returns $envVar/rowkeeper on Linux, falling back to
// ~/<fallback...>/rowkeeper. Other platforms use os.UserConfigDir.
func xdgDir(envVar string, fallback ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if v := os.Getenv(envVar); v != "" {
		return filepath.Join(v, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, appName)...), nil
}

// DefaultConfigDir returns the platform configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/rowkeeper (fallback ~/.config/rowkeeper)
// macOS:   ~/Library/Application Support/rowkeeper
// Windows: %APPDATA%/rowkeeper
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory.
//
// Linux:   $XDG_DATA_HOME/rowkeeper (fallback ~/.local/share/rowkeeper)
// macOS and Windows: same as DefaultConfigDir.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir picks the configuration directory:
// flag > ROWKEEPER_CONFIG_DIR > ./.rowkeeper if present > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	local := filepath.Join(cwd, DefaultConfigDirName)
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local, nil
	}
	return DefaultConfigDir()
}

// ResolveDataDir picks the directory holding the database file:
// flag > config.yaml data_dir > ROWKEEPER_DATA_DIR > ./.rowkeeper-db.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	for _, v := range []string{flag, configYAMLValue, os.Getenv(EnvDataDir)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}
