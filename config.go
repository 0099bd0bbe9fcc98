package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
)

const configFileName = "config.toml"

// defaultConfigPath returns the config file in the user config directory,
// or an empty path when there is none
func defaultConfigPath() (string, error) {
	configDir, err := getUserConfigDir()
	if err != nil {
		return "", err
	}

	path := filepath.Join(configDir, "liberty-lsp", configFileName)
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to check config file: %w", err)
		}
		return "", nil
	}

	return path, nil
}

func getUserConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		usr, err := user.Current()
		if err != nil {
			return "", fmt.Errorf("failed to get current user: %w", err)
		}
		return filepath.Join(usr.HomeDir, ".config"), nil
	}
	return configDir, nil
}
