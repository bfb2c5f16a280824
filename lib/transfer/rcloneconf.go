// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-ini/ini"

	"github.com/bureau-foundation/vlfs/lib/atomicfile"
)

// RcloneConf is an rclone configuration file: one INI section per
// remote. Writes preserve every other section.
type RcloneConf struct {
	path string
	file *ini.File
}

// Field is one key of a remote section, in write order.
type Field struct {
	Key, Value string
}

// LoadRcloneConf reads the file at path. A missing file loads empty.
func LoadRcloneConf(path string) (*RcloneConf, error) {
	file, err := ini.LoadSources(ini.LoadOptions{Loose: true, IgnoreInlineComment: true}, path)
	if err != nil {
		return nil, fmt.Errorf("reading rclone config %s: %w", path, err)
	}
	return &RcloneConf{path: path, file: file}, nil
}

// Path returns the file location.
func (c *RcloneConf) Path() string { return c.path }

// HasRemote reports whether a section for remote exists.
func (c *RcloneConf) HasRemote(remote string) bool {
	return c.file.HasSection(remote)
}

// Value returns a key of a remote section, or "" when absent.
func (c *RcloneConf) Value(remote, key string) string {
	section, err := c.file.GetSection(remote)
	if err != nil || !section.HasKey(key) {
		return ""
	}
	return strings.TrimSpace(section.Key(key).String())
}

// SetRemote replaces the section for remote with fields.
func (c *RcloneConf) SetRemote(remote string, fields []Field) error {
	c.file.DeleteSection(remote)
	section, err := c.file.NewSection(remote)
	if err != nil {
		return err
	}
	for _, field := range fields {
		if field.Value == "" {
			continue
		}
		if _, err := section.NewKey(field.Key, field.Value); err != nil {
			return fmt.Errorf("rclone config [%s] %s: %w", remote, field.Key, err)
		}
	}
	return nil
}

// Save writes the file atomically, readable only by its owner since it
// may hold credentials and tokens.
func (c *RcloneConf) Save() error {
	var buffer bytes.Buffer
	if _, err := c.file.WriteTo(&buffer); err != nil {
		return fmt.Errorf("encoding rclone config: %w", err)
	}
	if err := atomicfile.WriteFile(c.path, buffer.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing rclone config %s: %w", c.path, err)
	}
	return nil
}
