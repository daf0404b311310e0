package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is loaded from the working directory when present.
const DefaultEnvFile = ".env"

// LoadDotEnv exports the variables in path into the process environment
// without overriding variables that are already set. A missing default file
// is not an error; a missing explicitly named file is.
func LoadDotEnv(path string) error {
	explicit := path != "" && path != DefaultEnvFile
	if path == "" {
		path = DefaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}

	return nil
}
