// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"strings"
)

// Credentials authenticate against an S3-compatible remote.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// Complete reports whether both halves of the key pair are present.
func (c Credentials) Complete() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// LogValue keeps key material out of logs. Only presence and the
// endpoint are recorded.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("access_key_id", redact(c.AccessKeyID)),
		slog.String("secret_access_key", redact(c.SecretAccessKey)),
		slog.String("endpoint", c.Endpoint),
	)
}

// String matches LogValue for callers formatting with %v.
func (c Credentials) String() string {
	return "{access_key_id:" + redact(c.AccessKeyID) + " secret_access_key:" + redact(c.SecretAccessKey) + " endpoint:" + c.Endpoint + "}"
}

func redact(s string) string {
	if s == "" {
		return "[unset]"
	}
	return "[redacted]"
}

// EnvPrefix is the rclone environment prefix for the named remote,
// e.g. RCLONE_CONFIG_R2_.
func EnvPrefix(remote string) string {
	name := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(remote))
	return "RCLONE_CONFIG_" + name + "_"
}

// Credentials resolves the remote's key pair. Environment variables
// RCLONE_CONFIG_<NAME>_ACCESS_KEY_ID, _SECRET_ACCESS_KEY and _ENDPOINT
// override the configured values field by field.
func (r RemoteConfig) Credentials(name string, getenv func(string) string) Credentials {
	creds := Credentials{
		AccessKeyID:     r.AccessKeyID,
		SecretAccessKey: r.SecretAccessKey,
		Endpoint:        r.Endpoint,
	}
	prefix := EnvPrefix(name)
	if v := getenv(prefix + "ACCESS_KEY_ID"); v != "" {
		creds.AccessKeyID = v
	}
	if v := getenv(prefix + "SECRET_ACCESS_KEY"); v != "" {
		creds.SecretAccessKey = v
	}
	if v := getenv(prefix + "ENDPOINT"); v != "" {
		creds.Endpoint = v
	}
	return creds
}
