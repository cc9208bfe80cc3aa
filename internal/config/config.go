package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DotEnvFile is read by New when present in the working directory.
const DotEnvFile = ".env"

// New reads configuration from environment variables and unmarshals them into
// a struct of type T. Returns the populated configuration struct or an error.
func New[T any]() (T, error) {
	return NewWithDotEnv[T](DotEnvFile)
}

// NewWithDotEnv is New with the variables of the dotenv file at path as
// fallbacks. Process environment variables take precedence over the file, and
// a missing file is not an error.
func NewWithDotEnv[T any](path string) (T, error) {
	var cfg T

	environ, err := environment(path)
	if err != nil {
		return cfg, err
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

func environment(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read dotenv file %s: %w", path, err)
		}
		vars = make(map[string]string)
	}

	for k, v := range env.ToMap(os.Environ()) {
		vars[k] = v
	}

	return vars, nil
}
