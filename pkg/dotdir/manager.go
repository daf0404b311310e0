// Package dotdir manages the .duet/ and ~/.duet directories that hold
// config.toml and credentials.toml.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the duet directory.
	dirName = ".duet"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .duet/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.duet/ dir
//  3. Home ~/.duet/ dir
//  4. If none found, attempt to create ~/.duet/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating duet directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// localDirExists checks whether a .duet/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
