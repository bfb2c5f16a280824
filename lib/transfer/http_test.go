// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newTestServer(t *testing.T, objects map[string]string, status map[string]int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path[1:]
		if code, ok := status[key]; ok {
			w.WriteHeader(code)
			return
		}
		body, ok := objects[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodGet {
			w.Write([]byte(body))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTP(t *testing.T) {
	server := newTestServer(t, map[string]string{"ab/cd/abcd": "payload"}, map[string]int{
		"busy":      http.StatusServiceUnavailable,
		"throttled": http.StatusTooManyRequests,
		"forbidden": http.StatusForbidden,
	})
	backend, err := NewHTTP(HTTPConfig{Name: "r2", BaseURL: server.URL + "/"})
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	ctx := context.Background()
	dst := filepath.Join(t.TempDir(), "download")

	t.Run("download", func(t *testing.T) {
		if err := backend.Download(ctx, "ab/cd/abcd", dst); err != nil {
			t.Fatalf("Download: %v", err)
		}
		got, err := os.ReadFile(dst)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "payload" {
			t.Errorf("downloaded %q, want payload", got)
		}
	})

	t.Run("exists", func(t *testing.T) {
		exists, err := backend.Exists(ctx, "ab/cd/abcd")
		if err != nil || !exists {
			t.Errorf("Exists(present) = %v, %v", exists, err)
		}
		exists, err = backend.Exists(ctx, "ab/cd/missing")
		if err != nil || exists {
			t.Errorf("Exists(missing) = %v, %v", exists, err)
		}
	})

	tests := []struct {
		key       string
		sentinel  error
		permanent bool
	}{
		{"ab/cd/missing", ErrNotFound, true},
		{"busy", nil, false},
		{"throttled", ErrRateLimited, false},
		{"forbidden", nil, true},
	}
	for _, tt := range tests {
		t.Run("status "+tt.key, func(t *testing.T) {
			err := backend.Download(ctx, tt.key, dst)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("error = %v, want %v", err, tt.sentinel)
			}
			if IsPermanent(err) != tt.permanent {
				t.Errorf("IsPermanent(%v) = %v, want %v", err, IsPermanent(err), tt.permanent)
			}
		})
	}

	t.Run("read-only", func(t *testing.T) {
		if err := backend.Upload(ctx, dst, "k"); !errors.Is(err, ErrReadOnly) {
			t.Errorf("Upload error = %v, want ErrReadOnly", err)
		}
		if err := backend.Delete(ctx, "k"); !errors.Is(err, ErrReadOnly) {
			t.Errorf("Delete error = %v, want ErrReadOnly", err)
		}
	})
}

func TestNewHTTP_RejectsScheme(t *testing.T) {
	if _, err := NewHTTP(HTTPConfig{BaseURL: "ftp://example.com"}); err == nil {
		t.Error("expected error for ftp scheme")
	}
}
