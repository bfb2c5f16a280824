// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package objectcache is the local, digest-keyed store of compressed
// object bytes.
//
// Objects live at <root>/objects/<shard path>, the same key layout the
// remotes use, so a cache directory can be uploaded or served verbatim.
// Every write goes to a temp file under <root>/tmp and is renamed into
// place, so readers never observe a partial object and two writers
// racing on the same digest both install identical bytes.
//
// Reads never trust stored bytes: [Cache.Get] and [Cache.Materialize]
// decompress and re-hash, and an object that fails the check is evicted
// and reported as a fault.CorruptObject error. [Cache.Check] performs
// the same verification without evicting, for audits.
package objectcache
