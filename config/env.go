package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

const DefaultEnvFile = ".env"

// LoadEnvFile loads the file into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// SaveEnv merges updates into the env file, creating it when missing, and
// mirrors them into the process environment.
func SaveEnv(path string, updates map[string]string) error {
	existing, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		existing = make(map[string]string, len(updates))
	}

	for key, value := range updates {
		existing[key] = value
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}

	if err := godotenv.Write(existing, path); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}
