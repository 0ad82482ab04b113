package main

import (
	"os"

	"github.com/cenkalti/rainview/internal/session"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"
)

const defaultConfigPath = "~/.rainview.yaml"

// loadConfig reads the YAML file at path over the default config.
// A missing file is not an error.
func loadConfig(path string) (*session.Config, error) {
	cfg := session.DefaultConfig
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err = yaml.UnmarshalStrict(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
