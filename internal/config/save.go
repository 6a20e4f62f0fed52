package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Save merges settings into the config file and returns its path. The
// explicit config file is used when set, else the user config path. Only
// the given keys change; the token is never written.
func (l *Loader) Save(settings map[string]any) (string, error) {
	if _, ok := settings[KeyToken]; ok {
		return "", fmt.Errorf("refusing to write %s to the config file; use the keyring", KeyToken)
	}

	path := l.configFile
	if path == "" {
		var err error
		path, err = l.DefaultConfigPath()
		if err != nil {
			return "", err
		}
	}

	current := map[string]any{}
	data, err := afero.ReadFile(l.fs, path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &current); err != nil {
			return "", fmt.Errorf("parse %s: %w", path, err)
		}
		if current == nil {
			current = map[string]any{}
		}
	case os.IsNotExist(err):
	default:
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	for k, v := range settings {
		current[k] = v
	}

	out, err := yaml.Marshal(current)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	if err := l.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	if err := afero.WriteFile(l.fs, path, out, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
