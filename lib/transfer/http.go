// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// HTTPConfig configures an [HTTP] backend.
type HTTPConfig struct {
	// Name identifies the remote, usually the remote whose public
	// bucket BaseURL serves.
	Name string

	// BaseURL is prepended to every key.
	BaseURL string

	// Client performs requests. Defaults to http.DefaultClient.
	Client *http.Client
}

// HTTP reads objects anonymously from a public URL. Upload and Delete
// fail with ErrReadOnly.
type HTTP struct {
	name    string
	baseURL string
	client  *http.Client
}

// NewHTTP returns an HTTP backend. The base URL must be http or https.
func NewHTTP(config HTTPConfig) (*HTTP, error) {
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("public base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("public base URL %q: scheme must be http or https", config.BaseURL)
	}
	client := config.Client
	if client == nil {
		client = http.DefaultClient
	}
	name := config.Name
	if name == "" {
		name = parsed.Host
	}
	return &HTTP{
		name:    name,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client:  client,
	}, nil
}

func (h *HTTP) Name() string { return h.name + " (http)" }

func (h *HTTP) url(key string) string { return h.baseURL + "/" + key }

func (h *HTTP) Download(ctx context.Context, key, dst string) error {
	response, err := h.do(ctx, http.MethodGet, key)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	file, err := os.Create(dst)
	if err != nil {
		return Permanent(err)
	}
	if _, err := io.Copy(file, response.Body); err != nil {
		file.Close()
		return fmt.Errorf("GET %s: %w", h.url(key), err)
	}
	return file.Close()
}

func (h *HTTP) Exists(ctx context.Context, key string) (bool, error) {
	response, err := h.do(ctx, http.MethodHead, key)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	response.Body.Close()
	return true, nil
}

func (h *HTTP) Upload(context.Context, string, string) error {
	return fmt.Errorf("%s: %w", h.Name(), ErrReadOnly)
}

func (h *HTTP) Delete(context.Context, string) error {
	return fmt.Errorf("%s: %w", h.Name(), ErrReadOnly)
}

// do issues a request and classifies the status. On success the caller
// owns the response body.
func (h *HTTP) do(ctx context.Context, method, key string) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, method, h.url(key), nil)
	if err != nil {
		return nil, Permanent(err)
	}
	response, err := h.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, h.url(key), err)
	}
	if response.StatusCode == http.StatusOK {
		return response, nil
	}

	io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
	response.Body.Close()

	statusErr := fmt.Errorf("%s %s: %s", method, h.url(key), response.Status)
	switch {
	case response.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w", ErrNotFound, statusErr)
	case response.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %w", ErrRateLimited, statusErr)
	case response.StatusCode >= 500:
		return nil, statusErr
	default:
		return nil, Permanent(statusErr)
	}
}

// IsNotFound reports whether err means the key does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
