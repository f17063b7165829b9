package config

import (
	"bufio"
	"errors"
	"os"
	"strings"
)

// loadDotEnv loads KEY=VALUE pairs from a dotenv file into the process environment.
// It is intentionally minimal: enough for local development without adding dependencies.
//
// Rules:
// - Empty lines and lines starting with # are ignored.
// - "export KEY=VALUE" is supported.
// - Values may be wrapped in single or double quotes; quotes are stripped.
// - Existing environment variables are not overwritten.
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if key == "" || os.Getenv(key) != "" {
			continue
		}
		_ = os.Setenv(key, value)
	}
	return sc.Err()
}

func stripQuotes(v string) string {
	if len(v) < 2 {
		return v
	}
	if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
		return v[1 : len(v)-1]
	}
	return v
}
