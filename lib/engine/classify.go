// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import "github.com/bureau-foundation/vlfs/lib/digest"

// Action is what reconciliation calls for on one path.
type Action int

const (
	// Untracked: neither in the working tree nor the manifest.
	Untracked Action = iota

	// NewFile: present in the working tree, absent from the manifest.
	NewFile

	// Fetch: recorded but absent from the working tree.
	Fetch

	// Clean: working tree matches the record and the cache holds the
	// object.
	Clean

	// RepairCache: working tree matches the record but the cache lacks
	// the object.
	RepairCache

	// Modified: working tree differs from the record. Pushable, or a
	// conflict for pull.
	Modified
)

var actionNames = [...]string{
	Untracked:   "untracked",
	NewFile:     "new",
	Fetch:       "fetch",
	Clean:       "clean",
	RepairCache: "repair-cache",
	Modified:    "modified",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

// Observation is what is known about one path.
type Observation struct {
	// Present reports a regular file in the working tree; Working is
	// its digest.
	Present bool
	Working digest.Digest

	// Tracked reports a manifest record; Recorded is its digest.
	Tracked  bool
	Recorded digest.Digest

	// Cached reports that the cache holds Recorded.
	Cached bool
}

// Classify decides the action for one path.
func Classify(o Observation) Action {
	switch {
	case !o.Present && !o.Tracked:
		return Untracked
	case o.Present && !o.Tracked:
		return NewFile
	case !o.Present:
		return Fetch
	case o.Working != o.Recorded:
		return Modified
	case o.Cached:
		return Clean
	default:
		return RepairCache
	}
}
