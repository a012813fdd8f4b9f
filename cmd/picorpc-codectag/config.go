// Copyright 2026 The PicoRPC Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = ".codectag.yaml"

// config is the optional YAML sidecar for repo-wide defaults.
type config struct {
	// Codec applies to every struct without a picorpc:codec directive,
	// like the -codec flag. The flag wins when both are set.
	Codec string `yaml:"codec"`
	// Skip holds glob patterns for files and directories that directory
	// walks leave alone. Patterns match against both the base name and
	// the slash-separated path.
	Skip []string `yaml:"skip"`
}

// loadConfig reads path, falling back to .codectag.yaml when path is
// empty. A missing default file yields a zero config; a missing explicit
// file is an error, since the caller asked for it by name.
func loadConfig(path string) (*config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return &config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *config) validate() error {
	for _, pattern := range c.Skip {
		if _, err := filepath.Match(pattern, "x"); err != nil {
			return fmt.Errorf("invalid skip pattern %q", pattern)
		}
	}
	return nil
}
