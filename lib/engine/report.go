// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bureau-foundation/vlfs/lib/digest"
	"github.com/bureau-foundation/vlfs/lib/fault"
)

// Outcome is how work on one path ended.
type Outcome string

const (
	Succeeded Outcome = "succeeded"
	Skipped   Outcome = "skipped"
	Failed    Outcome = "failed"

	// Planned marks work a dry run would have done.
	Planned Outcome = "planned"

	// Canceled marks work abandoned after another path failed under
	// fail-fast, or after an interrupt.
	Canceled Outcome = "canceled"
)

// PathResult records what happened to one path.
type PathResult struct {
	Path    string        `json:"path"`
	Action  string        `json:"action"`
	Outcome Outcome       `json:"outcome"`
	Digest  digest.Digest `json:"digest,omitzero"`

	// Bytes is the content size for materialized or pushed files.
	Bytes int64 `json:"bytes,omitempty"`

	// Transferred reports that bytes crossed the network for this
	// path.
	Transferred bool `json:"transferred,omitempty"`

	// Detail is a short human note, e.g. why a path was skipped.
	Detail string `json:"detail,omitempty"`

	Err error `json:"-"`
}

// Kind returns the fault kind of a failed result.
func (r PathResult) Kind() fault.Kind { return fault.KindOf(r.Err) }

// Report collects per-path results. Safe for concurrent Add.
type Report struct {
	mu      sync.Mutex
	results []PathResult
}

// Add appends a result.
func (r *Report) Add(result PathResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

// Results returns every result sorted by path.
func (r *Report) Results() []PathResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	results := append([]PathResult(nil), r.results...)
	sort.SliceStable(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results
}

// Count returns the number of results with outcome.
func (r *Report) Count(outcome Outcome) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, result := range r.results {
		if result.Outcome == outcome {
			count++
		}
	}
	return count
}

// Transferred returns the number of results that moved bytes over the
// network.
func (r *Report) Transferred() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, result := range r.results {
		if result.Transferred {
			count++
		}
	}
	return count
}

// Failures returns the failed results sorted by path.
func (r *Report) Failures() []PathResult {
	var failures []PathResult
	for _, result := range r.Results() {
		if result.Outcome == Failed {
			failures = append(failures, result)
		}
	}
	return failures
}

// Err summarizes failures, or returns nil when every path succeeded or
// was skipped. The joined error matches each failure's fault kind.
func (r *Report) Err() error {
	failures := r.Failures()
	if len(failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(failures)+1)
	errs = append(errs, fmt.Errorf("%d path(s) failed", len(failures)))
	for _, failure := range failures {
		errs = append(errs, failure.Err)
	}
	return errors.Join(errs...)
}
