// Package config loads the engine configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads path together with the files it includes, applies defaults to
// every key that was not set explicitly and validates the result.
//
// Included files are merged first, in order, so the including file wins.
func Load(path string) (*Config, error) {
	files, err := includeChain(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range files {
		layer := viper.New()
		layer.SetConfigFile(file)
		layer.SetConfigType("yaml")
		if err := layer.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
		if err := v.MergeConfigMap(layer.AllSettings()); err != nil {
			return nil, fmt.Errorf("merge config %s: %w", file, err)
		}
	}

	var cfg Config
	decode := func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}
	if err := v.Unmarshal(&cfg, decode); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	explicit := make(keySet)
	for _, key := range v.AllKeys() {
		explicit.mark(key)
	}
	cfg.applyDefaults(explicit)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	cfg.path = files[len(files)-1]
	return &cfg, nil
}

// includeChain returns path and everything it includes, depth first, with
// the root file last. Each file appears once; a cycle is an error.
func includeChain(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &includeWalker{state: make(map[string]int)}
	if err := w.visit(root); err != nil {
		return nil, err
	}
	return w.order, nil
}

const (
	visiting = iota + 1
	visited
)

type includeWalker struct {
	state map[string]int
	order []string
}

func (w *includeWalker) visit(path string) error {
	path = filepath.Clean(path)
	switch w.state[path] {
	case visiting:
		return fmt.Errorf("include cycle detected: %s", path)
	case visited:
		return nil
	}
	w.state[path] = visiting
	includes, err := readIncludes(path)
	if err != nil {
		return err
	}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := w.visit(inc); err != nil {
			return err
		}
	}
	w.state[path] = visited
	w.order = append(w.order, path)
	return nil
}

// readIncludes reads only the top-level include list of one file.
func readIncludes(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var head struct {
		Include []string `yaml:"include"`
	}
	if err := yaml.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("parse include list of %s: %w", path, err)
	}
	out := head.Include[:0]
	for _, inc := range head.Include {
		if inc = strings.TrimSpace(inc); inc != "" {
			out = append(out, inc)
		}
	}
	return out, nil
}
