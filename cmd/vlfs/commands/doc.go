// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the vlfs command tree.
//
// Every command opens the project the same way (see [Environment]):
// discover the root from the working directory, load and merge the
// configuration, load the manifest, open the object cache, and build
// the transfer dispatcher. Credentials are read once, while building
// the dispatcher, and a remote without them only fails the operations
// that need it.
package commands
