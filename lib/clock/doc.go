// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction so retry
// backoff and timing can be tested without sleeping.
//
// Components that wait take a Clock in their config and default to
// Real(). Tests inject Fake():
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go dispatcher.Fetch(ctx, ...)
//	c.WaitForTimers(1)         // backoff registered
//	c.Advance(2 * time.Second) // fire it deterministically
//
// For code paths that only need waits to complete, AutoAdvance makes
// every wait return immediately while recording the requested
// durations in Waited.
package clock
