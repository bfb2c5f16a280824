// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// secretKeys are remote fields that belong in the user configuration.
var secretKeys = []string{"access_key_id", "secret_access_key", "client_id", "client_secret"}

// Load resolves the configuration from the repository file at repoPath
// and the user file located through getenv. Either file may be absent.
// repoPath may be empty when the project has no configuration file.
func Load(repoPath string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	var warnings []string
	merged := map[string]any{}

	if repoPath != "" {
		repo, err := readDocument(repoPath)
		if err != nil {
			return nil, err
		}
		for _, remote := range secretsIn(repo) {
			warnings = append(warnings, fmt.Sprintf(
				"%s: remotes.%s carries credentials; move them to %s", repoPath, remote, UserConfigPath(getenv)))
		}
		merged = deepMerge(merged, repo)
	}

	userPath := UserConfigPath(getenv)
	user, err := readDocument(userPath)
	if err != nil {
		return nil, err
	}
	merged = deepMerge(merged, user)

	cfg, err := bind(merged)
	if err != nil {
		return nil, err
	}
	cfg.Warnings = warnings
	cfg.applyRemoteDefaults()
	cfg.expandVariables(getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Parse decodes a single configuration document. The format is taken
// from name's extension. Used for validating one file in isolation.
func Parse(name string, data []byte) (*Config, error) {
	document, err := decodeDocument(name, data)
	if err != nil {
		return nil, err
	}
	cfg, err := bind(document)
	if err != nil {
		return nil, err
	}
	cfg.applyRemoteDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

// readDocument reads and decodes one file. A missing file is an empty
// document.
func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return decodeDocument(path, data)
}

func decodeDocument(path string, data []byte) (map[string]any, error) {
	document := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if document == nil {
			document = map[string]any{}
		}
	default:
		return nil, fmt.Errorf("config file %s: unsupported extension (want .toml, .yaml or .yml)", path)
	}
	return document, nil
}

// bind decodes the merged document onto the defaults. Unknown keys are
// rejected. Going through YAML gives TOML and YAML sources one strict
// decoder.
func bind(document map[string]any) (*Config, error) {
	cfg := Default()
	if len(document) == 0 {
		return cfg, nil
	}
	data, err := yaml.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("encoding merged config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// deepMerge overlays src onto dst. Nested tables merge key by key;
// any other value in src replaces the one in dst.
func deepMerge(dst, src map[string]any) map[string]any {
	for key, value := range src {
		if srcTable, ok := asTable(value); ok {
			if dstTable, ok := asTable(dst[key]); ok {
				dst[key] = deepMerge(dstTable, srcTable)
				continue
			}
		}
		dst[key] = value
	}
	return dst
}

func asTable(value any) (map[string]any, bool) {
	switch table := value.(type) {
	case map[string]any:
		return table, true
	case map[any]any:
		converted := make(map[string]any, len(table))
		for key, value := range table {
			converted[fmt.Sprint(key)] = value
		}
		return converted, true
	}
	return nil, false
}

// secretsIn names the remotes in document that set a credential field.
func secretsIn(document map[string]any) []string {
	remotes, ok := asTable(document["remotes"])
	if !ok {
		return nil
	}
	var names []string
	for name, value := range remotes {
		remote, ok := asTable(value)
		if !ok {
			continue
		}
		for _, key := range secretKeys {
			if v, set := remote[key]; set && v != "" {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}
