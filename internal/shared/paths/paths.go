// Package paths resolves where formfill keeps its per-user files.
//
// Relative file names from configuration are placed under the user's config
// directory, so the relay and the CLI agree on one session file no matter
// which directory they were started from.
//
//	~/.config/formfill/            (os.UserConfigDir()/formfill)
//	  ├── formfill-session.yaml    (login session, mode 0600)
//	  └── formfill.db              (local SQLite key store)
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AppDir is the directory name used under the user's config directory.
const AppDir = "formfill"

// EnvHome overrides the base directory, mainly for tests and containers.
const EnvHome = "FORMFILL_HOME"

// Home returns the formfill config directory.
func Home() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return filepath.Clean(dir), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(base, AppDir), nil
}

// Resolve expands a leading "~/" and places relative names under Home.
// Absolute paths and names starting with "./" or "../" are returned cleaned
// and otherwise untouched.
func Resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty path")
	}
	if name == "~" || strings.HasPrefix(name, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %s: %w", name, err)
		}
		return filepath.Join(home, strings.TrimPrefix(name, "~")), nil
	}
	if filepath.IsAbs(name) || strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../") {
		return filepath.Clean(name), nil
	}

	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, name), nil
}
