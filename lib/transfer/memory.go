// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Op names a backend operation in a [Call] record.
type Op string

const (
	OpDownload Op = "download"
	OpUpload   Op = "upload"
	OpExists   Op = "exists"
	OpDelete   Op = "delete"
)

// Call records one operation made against a [Memory] backend.
type Call struct {
	Op  Op
	Key string
}

// Memory is an in-process Backend. It records every call and can be
// told to fail upcoming calls.
type Memory struct {
	name string

	mu       sync.Mutex
	objects  map[string][]byte
	calls    []Call
	failures map[Op][]error
	readOnly bool
}

// NewMemory returns an empty Memory backend.
func NewMemory(name string) *Memory {
	return &Memory{
		name:     name,
		objects:  make(map[string][]byte),
		failures: make(map[Op][]error),
	}
}

// SetReadOnly makes Upload and Delete fail with ErrReadOnly.
func (m *Memory) SetReadOnly(readOnly bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readOnly = readOnly
}

// FailNext queues errors returned by the next calls of op, one per
// call, before normal behavior resumes.
func (m *Memory) FailNext(op Op, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], errs...)
}

// Put stores data under key directly, bypassing call recording.
func (m *Memory) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
}

// Object returns the stored bytes for key.
func (m *Memory) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return append([]byte(nil), data...), ok
}

// Keys returns the stored keys in order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Calls returns the calls made so far.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Count returns how many calls of op were made.
func (m *Memory) Count(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, call := range m.calls {
		if call.Op == op {
			count++
		}
	}
	return count
}

// ResetCalls clears the call log.
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *Memory) Name() string { return m.name }

// begin records a call and pops a queued failure. Must hold mu.
func (m *Memory) begin(op Op, key string) error {
	m.calls = append(m.calls, Call{Op: op, Key: key})
	if queue := m.failures[op]; len(queue) > 0 {
		m.failures[op] = queue[1:]
		return queue[0]
	}
	return nil
}

func (m *Memory) Download(ctx context.Context, key, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if err := m.begin(OpDownload, key); err != nil {
		m.mu.Unlock()
		return err
	}
	data, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s/%s: %w", m.name, key, ErrNotFound)
	}
	return os.WriteFile(dst, data, 0o644)
}

func (m *Memory) Upload(ctx context.Context, src, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return Permanent(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpUpload, key); err != nil {
		return err
	}
	if m.readOnly {
		return fmt.Errorf("%s: %w", m.name, ErrReadOnly)
	}
	m.objects[key] = data
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpExists, key); err != nil {
		return false, err
	}
	_, ok := m.objects[key]
	return ok, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpDelete, key); err != nil {
		return err
	}
	if m.readOnly {
		return fmt.Errorf("%s: %w", m.name, ErrReadOnly)
	}
	delete(m.objects, key)
	return nil
}
