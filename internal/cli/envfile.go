package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Secrets live in .env files next to where plmr runs; .env.local wins over
// .env, and anything already in the process environment wins over both.
var dotenvKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func loadDotEnvFiles(cwd string, environ []string, setenv func(string, string) error) error {
	if strings.TrimSpace(cwd) == "" || setenv == nil {
		return nil
	}

	fromProcess := map[string]bool{}
	for _, pair := range environ {
		if name, _, ok := strings.Cut(pair, "="); ok {
			fromProcess[name] = true
		}
	}

	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(cwd, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		for i, raw := range strings.Split(string(data), "\n") {
			key, value, ok, parseErr := parseDotEnvLine(raw)
			if parseErr != nil {
				return fmt.Errorf("parse %s:%d: %w", path, i+1, parseErr)
			}
			if !ok || fromProcess[key] {
				continue
			}
			if err := setenv(key, value); err != nil {
				return fmt.Errorf("set %s from %s: %w", key, path, err)
			}
		}
	}
	return nil
}

// parseDotEnvLine handles `KEY=VALUE`, an optional `export ` prefix, and
// single- or double-quoted values. Blank lines and comments report ok=false.
func parseDotEnvLine(raw string) (key, value string, ok bool, err error) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false, nil
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

	key, rest, found := strings.Cut(line, "=")
	if !found {
		return "", "", false, errors.New("expected KEY=VALUE")
	}
	key = strings.TrimSpace(key)
	if !dotenvKeyPattern.MatchString(key) {
		return "", "", false, fmt.Errorf("invalid key %q", key)
	}

	value = strings.TrimSpace(rest)
	switch {
	case len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`):
		decoded, unquoteErr := strconv.Unquote(value)
		if unquoteErr != nil {
			return "", "", false, fmt.Errorf("invalid quoted value for %q", key)
		}
		value = decoded
	case len(value) >= 2 && strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'"):
		value = value[1 : len(value)-1]
	}
	return key, value, true, nil
}
