// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"

	"github.com/bureau-foundation/vlfs/cmd/vlfs/cli"
	"github.com/bureau-foundation/vlfs/lib/clock"
	"github.com/bureau-foundation/vlfs/lib/digest"
	"github.com/bureau-foundation/vlfs/lib/engine"
	"github.com/bureau-foundation/vlfs/lib/manifest"
	"github.com/bureau-foundation/vlfs/lib/testutil"
	"github.com/bureau-foundation/vlfs/lib/transfer"
	"github.com/bureau-foundation/vlfs/lib/workspace"
)

// remotes is the storage shared by every checkout in a test.
type remotes struct {
	public  *transfer.Memory
	private *transfer.Memory
}

func newRemotes() *remotes {
	return &remotes{public: transfer.NewMemory("r2"), private: transfer.NewMemory("gdrive")}
}

// checkout is one working tree driven through the command tree, as a
// user would from its root.
type checkout struct {
	t      *testing.T
	root   string
	vars   map[string]string
	stdout *bytes.Buffer
	env    *Environment
}

func newCheckout(t *testing.T, shared *remotes) *checkout {
	t.Helper()
	c := &checkout{
		t:      t,
		root:   t.TempDir(),
		vars:   testutil.IsolatedEnv(t),
		stdout: &bytes.Buffer{},
	}
	c.env = &Environment{
		Dir:      c.root,
		Getenv:   testutil.Env(c.vars),
		Stdout:   c.stdout,
		Prompter: &cli.Prompter{In: strings.NewReader(""), Out: io.Discard},
		Remote: transfer.NewDispatcher(transfer.DispatcherConfig{
			Routes: map[manifest.Visibility]transfer.Route{
				manifest.Public:  {Backend: shared.public},
				manifest.Private: {Backend: shared.private},
			},
			Algorithm: digest.SHA256,
			TempDir:   t.TempDir(),
			Clock:     clock.Fake(time.Unix(0, 0)).AutoAdvance(),
		}),
	}

	previousStdout, previousOutput := cli.Stdout, cli.Output
	cli.Stdout, cli.Output = c.stdout, io.Discard
	t.Cleanup(func() { cli.Stdout, cli.Output = previousStdout, previousOutput })
	return c
}

// run executes one command line and returns its output.
func (c *checkout) run(args ...string) (string, error) {
	c.t.Helper()
	c.stdout.Reset()
	err := Root(c.env).Execute(context.Background(), args)
	return c.stdout.String(), err
}

// mustRun fails the test unless the command succeeds.
func (c *checkout) mustRun(args ...string) string {
	c.t.Helper()
	output, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("vlfs %s: %v\n%s", strings.Join(args, " "), err, output)
	}
	return output
}

func (c *checkout) path(relative string) string {
	return filepath.Join(c.root, filepath.FromSlash(relative))
}

// clone gives a fresh checkout the manifest committed here.
func (c *checkout) clone(shared *remotes) *checkout {
	c.t.Helper()
	other := newCheckout(c.t, shared)
	manifestPath := filepath.Join(workspace.MetaDirName, workspace.ManifestName)
	testutil.WriteFile(c.t, other.path(manifestPath), testutil.ReadFile(c.t, c.path(manifestPath)))
	return other
}

func wantExit(t *testing.T, err error, want int) {
	t.Helper()
	if code, _ := cli.ExitCode(err); code != want {
		t.Errorf("exit code = %d (error %v), want %d", code, err, want)
	}
}

func TestPushPullRoundTrip(t *testing.T) {
	shared := newRemotes()
	writer := newCheckout(t, shared)
	files := map[string]string{
		"art/hero.psd":    string(testutil.Compressible(256 * 1024)),
		"tools/setup.exe": "MZ installer",
	}
	testutil.WriteTree(t, writer.root, files)

	output := writer.mustRun("push", "art/hero.psd", "tools/setup.exe")
	if !strings.Contains(output, "2 pushed, 0 up to date, 0 failed, 2 transferred") {
		t.Errorf("push output = %q, want a summary of two transfers", output)
	}
	if got := len(shared.public.Keys()); got != 2 {
		t.Errorf("public remote holds %d objects, want 2", got)
	}

	output = writer.mustRun("push", "art/hero.psd")
	if !strings.Contains(output, "0 pushed, 1 up to date") {
		t.Errorf("second push output = %q, want nothing pushed", output)
	}

	listing := writer.mustRun("ls", "--long")
	for _, want := range []string{"art/hero.psd", "tools/setup.exe", "public", "256 KiB"} {
		if !strings.Contains(listing, want) {
			t.Errorf("ls --long output missing %q:\n%s", want, listing)
		}
	}

	reader := writer.clone(shared)
	output = reader.mustRun("pull")
	if !strings.Contains(output, "2 pulled") {
		t.Errorf("pull output = %q, want two paths pulled", output)
	}
	if got := testutil.Tree(t, reader.root); !maps.Equal(got, files) {
		t.Errorf("pulled tree has %d files, want %d matching the writer", len(got), len(files))
	}

	statusJSON := reader.mustRun("status", "--json")
	var status engine.Status
	if err := json.Unmarshal([]byte(statusJSON), &status); err != nil {
		t.Fatalf("decoding status --json: %v\n%s", err, statusJSON)
	}
	if !slices.Equal(status.Clean, []string{"art/hero.psd", "tools/setup.exe"}) || status.Dirty() {
		t.Errorf("status = %+v, want both files clean", status)
	}
}

func TestPush_Private(t *testing.T) {
	shared := newRemotes()
	c := newCheckout(t, shared)
	testutil.WriteTree(t, c.root, map[string]string{"art/secret.psd": "unreleased"})

	c.mustRun("push", "--private", "art/secret.psd")
	if len(shared.private.Keys()) != 1 || len(shared.public.Keys()) != 0 {
		t.Errorf("private=%d public=%d objects, want 1 and 0", len(shared.private.Keys()), len(shared.public.Keys()))
	}
	if listing := c.mustRun("ls", "--visibility", "public"); listing != "" {
		t.Errorf("ls --visibility public = %q, want nothing", listing)
	}
	if listing := c.mustRun("ls", "--visibility", "private"); listing != "art/secret.psd\n" {
		t.Errorf("ls --visibility private = %q", listing)
	}
}

func TestPush_UsageErrors(t *testing.T) {
	c := newCheckout(t, newRemotes())
	testutil.WriteTree(t, c.root, map[string]string{"a.zip": "zip"})

	tests := []struct {
		name string
		args []string
	}{
		{"no paths", []string{"push"}},
		{"both visibilities", []string{"push", "--private", "--public", "a.zip"}},
		{"unknown flag", []string{"push", "--everything"}},
		{"outside the project", []string{"push", "../elsewhere.zip"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := c.run(test.args...)
			wantExit(t, err, cli.ExitUsage)
		})
	}
}

func TestPush_GlobFromSubdirectory(t *testing.T) {
	shared := newRemotes()
	c := newCheckout(t, shared)
	testutil.WriteTree(t, c.root, map[string]string{
		"art/a.psd":     "a",
		"art/sub/b.psd": "b",
		"other/c.psd":   "c",
	})
	if err := os.MkdirAll(c.path(workspace.MetaDirName), 0o755); err != nil {
		t.Fatal(err)
	}
	c.env.Dir = c.path("art")

	c.mustRun("push", "--glob", "**/*.psd")
	listing := c.mustRun("ls")
	if listing != "art/a.psd\nart/sub/b.psd\nother/c.psd\n" {
		t.Errorf("ls after push --glob '**/*.psd' = %q, want all three files", listing)
	}
}

func TestPull_ConflictExitsOne(t *testing.T) {
	shared := newRemotes()
	writer := newCheckout(t, shared)
	testutil.WriteTree(t, writer.root, map[string]string{"a.zip": "original"})
	writer.mustRun("push", "a.zip")

	reader := writer.clone(shared)
	testutil.WriteTree(t, reader.root, map[string]string{"a.zip": "local edit"})
	output, err := reader.run("pull")
	wantExit(t, err, cli.ExitFailure)
	if !strings.Contains(output, "conflict") {
		t.Errorf("pull output = %q, want a conflict line", output)
	}
	if got := string(testutil.ReadFile(t, reader.path("a.zip"))); got != "local edit" {
		t.Errorf("a.zip = %q, want the local edit kept", got)
	}

	reader.mustRun("pull", "--force")
	if got := string(testutil.ReadFile(t, reader.path("a.zip"))); got != "original" {
		t.Errorf("a.zip after --force = %q, want %q", got, "original")
	}
}

func TestVerify(t *testing.T) {
	shared := newRemotes()
	c := newCheckout(t, shared)
	testutil.WriteTree(t, c.root, map[string]string{"a.zip": "payload"})
	c.mustRun("push", "a.zip")

	output := c.mustRun("verify")
	if !strings.Contains(output, ": 0 problem(s)") {
		t.Errorf("verify output = %q, want no problems", output)
	}

	if err := os.RemoveAll(c.path(workspace.CacheDirName)); err != nil {
		t.Fatal(err)
	}
	for _, key := range shared.public.Keys() {
		if err := shared.public.Delete(context.Background(), key); err != nil {
			t.Fatal(err)
		}
	}
	output, err := c.run("verify")
	code, report := cli.ExitCode(err)
	if code != cli.ExitFailure || report {
		t.Errorf("ExitCode = (%d, %v), want (1, false)", code, report)
	}
	if !strings.Contains(output, "1 problem(s)") {
		t.Errorf("verify output = %q, want one problem", output)
	}
}

func TestClean(t *testing.T) {
	c := newCheckout(t, newRemotes())
	testutil.WriteTree(t, c.root, map[string]string{"a.zip": "first"})
	c.mustRun("push", "a.zip")
	testutil.WriteTree(t, c.root, map[string]string{"a.zip": "second"})
	c.mustRun("push", "a.zip")

	if output := c.mustRun("clean", "--dry-run"); !strings.HasPrefix(output, "1 unreferenced object(s)") {
		t.Errorf("clean --dry-run = %q, want one unreferenced object", output)
	}

	_, err := c.run("clean")
	wantExit(t, err, cli.ExitUsage)

	c.env.Prompter = &cli.Prompter{In: strings.NewReader("n\n"), Out: io.Discard, Interactive: true}
	if output := c.mustRun("clean"); output != "nothing removed\n" {
		t.Errorf("clean answered no = %q", output)
	}

	if output := c.mustRun("clean", "--yes"); !strings.HasPrefix(output, "removed 1 object(s)") {
		t.Errorf("clean --yes = %q, want one object removed", output)
	}
	if output := c.mustRun("clean", "--dry-run"); !strings.HasPrefix(output, "0 unreferenced object(s)") {
		t.Errorf("clean --dry-run after cleaning = %q", output)
	}

	// The referenced object survives, so a pull needs no remote.
	if err := os.Remove(c.path("a.zip")); err != nil {
		t.Fatal(err)
	}
	c.mustRun("pull")
	if got := string(testutil.ReadFile(t, c.path("a.zip"))); got != "second" {
		t.Errorf("a.zip = %q, want %q", got, "second")
	}
}

func TestRemove(t *testing.T) {
	shared := newRemotes()
	c := newCheckout(t, shared)
	testutil.WriteTree(t, c.root, map[string]string{"a.zip": "a", "b.zip": "b"})
	c.mustRun("push", "a.zip", "b.zip")

	_, err := c.run("remove", "missing.zip")
	if cli.Categorize(err) != cli.CategoryNotFound {
		t.Errorf("Categorize(remove missing.zip) = %q, want %q", cli.Categorize(err), cli.CategoryNotFound)
	}
	wantExit(t, err, cli.ExitFailure)

	c.mustRun("remove", "--delete-file", "a.zip")
	if listing := c.mustRun("ls"); listing != "b.zip\n" {
		t.Errorf("ls after remove = %q, want only b.zip", listing)
	}
	if _, err := os.Stat(c.path("a.zip")); !os.IsNotExist(err) {
		t.Errorf("a.zip still exists after remove --delete-file: %v", err)
	}
	if got := len(shared.public.Keys()); got != 1 {
		t.Errorf("public remote holds %d objects, want 1", got)
	}

	c.mustRun("remove", "--keep-remote", "b.zip")
	if got := len(shared.public.Keys()); got != 1 {
		t.Errorf("public remote holds %d objects after --keep-remote, want 1", got)
	}
}

func TestAuthS3(t *testing.T) {
	c := newCheckout(t, newRemotes())

	_, err := c.run("auth", "r2")
	wantExit(t, err, cli.ExitUsage)

	_, err = c.run("auth", "r2", "gdrive")
	wantExit(t, err, cli.ExitUsage)

	c.vars["RCLONE_CONFIG_R2_ACCESS_KEY_ID"] = "AKIAEXAMPLE"
	c.vars["RCLONE_CONFIG_R2_SECRET_ACCESS_KEY"] = "s3cr3t"
	c.vars["RCLONE_CONFIG_R2_ENDPOINT"] = "https://account.r2.cloudflarestorage.com"
	c.mustRun("auth", "r2")

	conf := string(testutil.ReadFile(t, filepath.Join(c.vars["XDG_CONFIG_HOME"], "vlfs", "rclone.conf")))
	for _, want := range []string{"[r2]", "AKIAEXAMPLE", "s3cr3t", "Cloudflare", "https://account.r2.cloudflarestorage.com"} {
		if !strings.Contains(conf, want) {
			t.Errorf("rclone.conf missing %q:\n%s", want, conf)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	c := newCheckout(t, newRemotes())
	_, err := c.run("pul")
	wantExit(t, err, cli.ExitUsage)
	if err == nil || !strings.Contains(err.Error(), `did you mean "pull"`) {
		t.Errorf("error = %v, want a suggestion of pull", err)
	}
}

func TestVersion(t *testing.T) {
	c := newCheckout(t, newRemotes())
	if output := c.mustRun("version"); !strings.HasPrefix(output, "vlfs ") {
		t.Errorf("version output = %q", output)
	}
}

func TestProjectKeys(t *testing.T) {
	root := t.TempDir()
	p := &project{
		layout: workspace.NewLayout(root, testutil.Env(nil)),
		cwd:    filepath.Join(root, "art"),
	}

	got, err := p.keys([]string{"hero.psd", "*.psd", "sub/*.psd", "**/*.zip", "../tools/a.exe", filepath.Join(root, "b.iso")})
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	want := []string{"art/hero.psd", "*.psd", "art/sub/*.psd", "**/*.zip", "tools/a.exe", "b.iso"}
	if !slices.Equal(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}

	if _, err := p.keys([]string{"../../outside.zip"}); cli.Categorize(err) != cli.CategoryValidation {
		t.Errorf("keys(outside) error = %v, want a validation error", err)
	}
}

func TestColorProfile(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		vars    map[string]string
		want    termenv.Profile
		wantErr bool
	}{
		{"never", colorNever, nil, termenv.Ascii, false},
		{"always", colorAlways, nil, termenv.ANSI256, false},
		{"auto off a terminal", colorAuto, nil, termenv.Ascii, false},
		{"auto with NO_COLOR", colorAuto, map[string]string{"NO_COLOR": "1"}, termenv.Ascii, false},
		{"bogus", "sometimes", nil, termenv.Ascii, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := &Environment{Getenv: testutil.Env(test.vars)}
			got, err := env.colorProfile(test.mode, &bytes.Buffer{})
			if (err != nil) != test.wantErr {
				t.Fatalf("colorProfile(%q) error = %v, wantErr %v", test.mode, err, test.wantErr)
			}
			if got != test.want {
				t.Errorf("colorProfile(%q) = %v, want %v", test.mode, got, test.want)
			}
		})
	}
}
