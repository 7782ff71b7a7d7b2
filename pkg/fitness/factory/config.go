package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadConfigFromFile loads method configuration from a JSON file. A missing
// file yields the default configuration; fields absent from the file keep
// their defaults.
func LoadConfigFromFile(configPath string) (*MethodConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultMethodConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	config := DefaultMethodConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}
	if err := config.Limits.Check(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}

	return config, nil
}

// SaveConfigToFile saves method configuration to a JSON file
func SaveConfigToFile(config *MethodConfig, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// ConfigPaths returns common configuration file paths
func ConfigPaths() []string {
	homeDir, _ := os.UserHomeDir()
	return []string{
		filepath.Join(homeDir, ".batfit", "methods.json"),
		"/etc/batfit/methods.json",
		"./batfit-methods.json",
	}
}

// FindConfig returns the first existing path from ConfigPaths, or ""
func FindConfig() string {
	for _, path := range ConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
