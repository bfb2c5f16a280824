// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config resolves the configuration of one vlfs invocation.
//
// Two files contribute, later overriding earlier key by key:
//
//  1. The repository configuration, .vlfs/config.toml (committed).
//  2. The user configuration, ~/.config/vlfs/config.toml (never
//     committed; may hold credentials).
//
// Either file may be TOML or YAML, chosen by extension. The merged
// document is bound strictly to [Config]: unknown keys are an error, so
// a typo never silently falls back to a default. The result is one
// explicit value built per invocation and passed to every component;
// nothing in vlfs reads configuration from globals.
//
// Credentials for S3-compatible remotes may also come from
// RCLONE_CONFIG_<REMOTE>_ACCESS_KEY_ID, _SECRET_ACCESS_KEY and
// _ENDPOINT, the same variables rclone itself reads. They are resolved
// by [RemoteConfig.Credentials] at dispatch time and never logged.
package config
