// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transfer moves compressed objects between the local object
// cache and remote storage.
//
// A [Backend] is a capability: download a key to a local file, upload
// a local file to a key, check and delete keys. Four implementations
// exist:
//
//   - [HTTP]: anonymous GET and HEAD against a public base URL.
//     Read-only.
//   - [Rclone]: an rclone subprocess. Serves S3-compatible stores and
//     Google Drive through rclone's remote configuration.
//   - [S3]: the native AWS SDK client for S3-compatible stores.
//   - [Memory]: an in-process map that records calls, for tests.
//
// Object keys are shard paths (aa/bb/<digest>), optionally under a
// per-remote prefix. Keys are immutable: an upload of a key that
// already exists is skipped.
//
// The [Dispatcher] routes each object to the backend serving its
// visibility, retries transient failures with exponential backoff on
// an injected clock, and verifies every downloaded object against its
// digest before handing the bytes to the caller. Callers never see
// unverified remote content.
package transfer
