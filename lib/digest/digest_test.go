// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"bytes"
	"crypto/sha256"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOfKnownVectors(t *testing.T) {
	tests := []struct {
		algorithm Algorithm
		input     string
		want      string
	}{
		{SHA256, "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{SHA256, "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{BLAKE3, "", "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"},
	}
	for _, test := range tests {
		t.Run(string(test.algorithm)+"/"+test.input, func(t *testing.T) {
			got := Of(test.algorithm, []byte(test.input))
			if got.String() != test.want {
				t.Errorf("Of(%q) = %s, want %s", test.input, got, test.want)
			}
			// Stable across calls.
			if again := Of(test.algorithm, []byte(test.input)); again != got {
				t.Errorf("second Of = %s, want %s", again, got)
			}
		})
	}
}

func TestOfReaderMatchesOf(t *testing.T) {
	content := make([]byte, 300*1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	for _, algorithm := range []Algorithm{SHA256, BLAKE3} {
		got, n, err := OfReader(algorithm, bytes.NewReader(content))
		if err != nil {
			t.Fatalf("OfReader(%s): %v", algorithm, err)
		}
		if n != int64(len(content)) {
			t.Errorf("OfReader(%s) read %d bytes, want %d", algorithm, n, len(content))
		}
		if want := Of(algorithm, content); got != want {
			t.Errorf("OfReader(%s) = %s, want %s", algorithm, got, want)
		}
	}
}

func TestOfFile(t *testing.T) {
	content := []byte("large binary asset")
	path := filepath.Join(t.TempDir(), "asset.bin")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, size, err := OfFile(SHA256, path)
	if err != nil {
		t.Fatalf("OfFile: %v", err)
	}
	if want := Digest(sha256.Sum256(content)); got != want {
		t.Errorf("OfFile = %s, want %s", got, want)
	}
	if size != int64(len(content)) {
		t.Errorf("size = %d, want %d", size, len(content))
	}

	if _, _, err := OfFile(SHA256, filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("OfFile on a missing file succeeded")
	}
}

func TestParse(t *testing.T) {
	valid := strings.Repeat("0123456789abcdef", 4)
	d, err := Parse(strings.ToUpper(valid))
	if err != nil {
		t.Fatalf("Parse(upper): %v", err)
	}
	if d.String() != valid {
		t.Errorf("String() = %s, want lower-case %s", d, valid)
	}

	for _, bad := range []string{"", "abc", valid[:63], valid + "0", strings.Repeat("zz", 32)} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", bad)
		}
	}
}

func TestParseAlgorithm(t *testing.T) {
	if got, err := ParseAlgorithm(""); err != nil || got != SHA256 {
		t.Errorf(`ParseAlgorithm("") = %q, %v; want sha256`, got, err)
	}
	if got, err := ParseAlgorithm("blake3"); err != nil || got != BLAKE3 {
		t.Errorf(`ParseAlgorithm("blake3") = %q, %v`, got, err)
	}
	if _, err := ParseAlgorithm("md5"); err == nil {
		t.Error(`ParseAlgorithm("md5") succeeded`)
	}
}

func TestShardPath(t *testing.T) {
	d := Of(SHA256, []byte("abc"))
	want := "ba/78/ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := ShardPath(d); got != want {
		t.Errorf("ShardPath = %s, want %s", got, want)
	}

	if got := ShardKey("abc"); got != "abc" {
		t.Errorf("ShardKey(short) = %q, want unchanged", got)
	}
	if got := ShardKey("abcd"); got != "ab/cd/abcd" {
		t.Errorf("ShardKey(abcd) = %q", got)
	}
}

func TestFromShardPath(t *testing.T) {
	d := Of(BLAKE3, []byte("round trip"))

	for _, key := range []string{ShardPath(d), "objects/" + ShardPath(d)} {
		got, ok := FromShardPath(key)
		if !ok || got != d {
			t.Errorf("FromShardPath(%q) = %s, %v; want %s", key, got, ok, d)
		}
	}

	mismatched := "00/00/" + d.String()
	if _, ok := FromShardPath(mismatched); ok && d.String()[:4] != "0000" {
		t.Errorf("FromShardPath(%q) accepted a wrong shard prefix", mismatched)
	}
	if _, ok := FromShardPath("ab/cd"); ok {
		t.Error("FromShardPath accepted a two-segment key")
	}
}

func TestTextMarshaling(t *testing.T) {
	d := Of(SHA256, []byte("text"))
	text, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var back Digest
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if back != d {
		t.Errorf("UnmarshalText = %s, want %s", back, d)
	}
	if d.Short() != d.String()[:8] {
		t.Errorf("Short = %s", d.Short())
	}
}
