package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FindManifest walks up from startDir to locate rtgen.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the manifest found from startDir. Without one it returns
// the defaults and an empty path.
func Discover(startDir string) (cfg Config, path string, err error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return Default(), "", nil
	}
	cfg, err = Load(path)
	return cfg, path, err
}

// Open loads an explicitly named manifest.
func Open(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, &Error{Kind: ErrNotFound, Path: path}
		}
		return Config{}, fmt.Errorf("failed to stat %q: %w", path, err)
	}
	return Load(path)
}

// ResolveUnits returns the manifest's unit paths relative to its directory.
func (c Config) ResolveUnits(manifestPath string) []string {
	base := "."
	if manifestPath != "" {
		base = filepath.Dir(manifestPath)
	}
	out := make([]string, 0, len(c.Units))
	for _, u := range c.Units {
		if filepath.IsAbs(u) {
			out = append(out, u)
			continue
		}
		out = append(out, filepath.Join(base, filepath.FromSlash(u)))
	}
	return out
}
