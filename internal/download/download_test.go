package download

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cratedl/cratedl/internal/cargo"
	"github.com/cratedl/cratedl/internal/fetch"
	"github.com/cratedl/cratedl/internal/layout"
)

// stubRegistry serves fixed payloads keyed by download path and records
// how often each path was requested.
type stubRegistry struct {
	mu       sync.Mutex
	payloads map[string][]byte
	requests map[string]int
}

func newStubRegistry(payloads map[string][]byte) *stubRegistry {
	return &stubRegistry{
		payloads: payloads,
		requests: make(map[string]int),
	}
}

func (s *stubRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests[r.URL.Path]++
	s.mu.Unlock()

	payload, ok := s.payloads[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Write(payload)
}

func (s *stubRegistry) hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

func cratePath(name, version string) string {
	return "/api/v1/crates/" + name + "/" + version + "/download"
}

func newTestFetcher(t *testing.T, reg *stubRegistry) *fetch.Fetcher {
	t.Helper()
	srv := httptest.NewServer(reg)
	t.Cleanup(srv.Close)
	return fetch.NewFetcher(srv.URL, layout.Default())
}

func TestRunEndToEnd(t *testing.T) {
	reg := newStubRegistry(map[string][]byte{
		cratePath("serde", "1.0.0"): []byte("serde payload"),
		cratePath("libc", "0.2.0"):  []byte("libc payload"),
	})
	fetcher := newTestFetcher(t, reg)
	outDir := t.TempDir()

	sum, err := Run(fetcher, []cargo.Package{
		{Name: "serde", Version: "1.0.0"},
		{Name: "libc", Version: "0.2.0"},
	}, Options{OutputDir: outDir})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sum.Downloaded != 2 || sum.Skipped != 0 || sum.Failed != 0 {
		t.Errorf("Summary = %+v, want 2 downloaded", sum)
	}

	for file, want := range map[string]string{
		"serde-1.0.0.crate": "serde payload",
		"libc-0.2.0.crate":  "libc payload",
	} {
		got, err := os.ReadFile(filepath.Join(outDir, file))
		if err != nil {
			t.Fatalf("reading %s: %v", file, err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", file, got, want)
		}
	}
}

func TestRunSkipsExisting(t *testing.T) {
	reg := newStubRegistry(map[string][]byte{
		cratePath("serde", "1.0.0"): []byte("fresh"),
		cratePath("libc", "0.2.0"):  []byte("libc payload"),
	})
	fetcher := newTestFetcher(t, reg)
	outDir := t.TempDir()

	existing := filepath.Join(outDir, "serde-1.0.0.crate")
	if err := os.WriteFile(existing, []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}

	sum, err := Run(fetcher, []cargo.Package{
		{Name: "serde", Version: "1.0.0"},
		{Name: "libc", Version: "0.2.0"},
	}, Options{OutputDir: outDir})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sum.Skipped != 1 || sum.Downloaded != 1 {
		t.Errorf("Summary = %+v, want 1 skipped and 1 downloaded", sum)
	}
	if hits := reg.hits(cratePath("serde", "1.0.0")); hits != 0 {
		t.Errorf("serde requested %d times, want 0 (skip must not hit the network)", hits)
	}
	got, err := os.ReadFile(existing)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "stale" {
		t.Errorf("existing file = %q, want untouched %q", got, "stale")
	}
}

func TestRunOverwrite(t *testing.T) {
	reg := newStubRegistry(map[string][]byte{
		cratePath("serde", "1.0.0"): []byte("fresh"),
	})
	fetcher := newTestFetcher(t, reg)
	outDir := t.TempDir()

	target := filepath.Join(outDir, "serde-1.0.0.crate")
	if err := os.WriteFile(target, []byte("stale content that is longer"), 0644); err != nil {
		t.Fatal(err)
	}

	sum, err := Run(fetcher, []cargo.Package{
		{Name: "serde", Version: "1.0.0"},
	}, Options{OutputDir: outDir, Overwrite: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sum.Downloaded != 1 {
		t.Errorf("Summary = %+v, want 1 downloaded", sum)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "fresh" {
		t.Errorf("file = %q, want %q", got, "fresh")
	}
}

func TestRunExitOnError(t *testing.T) {
	reg := newStubRegistry(map[string][]byte{
		cratePath("serde", "1.0.0"): []byte("serde payload"),
		// libc missing: 404
		cratePath("rand", "0.8.0"): []byte("rand payload"),
	})
	fetcher := newTestFetcher(t, reg)
	outDir := t.TempDir()

	var errLog bytes.Buffer
	sum, err := Run(fetcher, []cargo.Package{
		{Name: "serde", Version: "1.0.0"},
		{Name: "libc", Version: "0.2.0"},
		{Name: "rand", Version: "0.8.0"},
	}, Options{OutputDir: outDir, ExitOnError: true, ErrLog: &errLog})
	if err == nil {
		t.Fatal("Run() should fail when exit-on-error is set and a record fails")
	}

	if sum.Downloaded != 1 || sum.Failed != 1 {
		t.Errorf("Summary = %+v, want 1 downloaded and 1 failed", sum)
	}
	if hits := reg.hits(cratePath("rand", "0.8.0")); hits != 0 {
		t.Errorf("rand requested %d times, want 0 (records after the failure must not run)", hits)
	}
	if _, statErr := os.Stat(filepath.Join(outDir, "rand-0.8.0.crate")); statErr == nil {
		t.Error("rand-0.8.0.crate should not exist")
	}
	if !strings.Contains(errLog.String(), "libc") {
		t.Errorf("error log = %q, want a line naming libc", errLog.String())
	}
}

func TestRunContinuesOnError(t *testing.T) {
	reg := newStubRegistry(map[string][]byte{
		cratePath("serde", "1.0.0"): []byte("serde payload"),
		// libc missing: 404
		cratePath("rand", "0.8.0"): []byte("rand payload"),
	})
	fetcher := newTestFetcher(t, reg)
	outDir := t.TempDir()

	var errLog bytes.Buffer
	sum, err := Run(fetcher, []cargo.Package{
		{Name: "serde", Version: "1.0.0"},
		{Name: "libc", Version: "0.2.0"},
		{Name: "rand", Version: "0.8.0"},
	}, Options{OutputDir: outDir, ErrLog: &errLog})
	if err != nil {
		t.Fatalf("Run() error = %v, want nil without exit-on-error", err)
	}

	if sum.Downloaded != 2 || sum.Failed != 1 {
		t.Errorf("Summary = %+v, want 2 downloaded and 1 failed", sum)
	}
	if hits := reg.hits(cratePath("rand", "0.8.0")); hits != 1 {
		t.Errorf("rand requested %d times, want 1 (loop must continue past failures)", hits)
	}
	if !strings.Contains(errLog.String(), `"libc"`) {
		t.Errorf("error log = %q, want a line naming libc", errLog.String())
	}
}

func TestRunCreatesOutputTree(t *testing.T) {
	reg := newStubRegistry(map[string][]byte{
		cratePath("serde", "1.0.0"): []byte("serde payload"),
	})
	srv := httptest.NewServer(reg)
	t.Cleanup(srv.Close)

	// Mirror-tree file layout: the written path mirrors the registry URL.
	fetcher := fetch.NewFetcher(srv.URL, layout.Layout{
		DownloadPath: layout.DefaultDownloadPath,
		FileName:     "api/v1/crates/{name}/{version}/download",
	})

	outDir := filepath.Join(t.TempDir(), "mirror", "crates")

	sum, err := Run(fetcher, []cargo.Package{
		{Name: "serde", Version: "1.0.0"},
	}, Options{OutputDir: outDir})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Downloaded != 1 {
		t.Errorf("Summary = %+v, want 1 downloaded", sum)
	}

	got, err := os.ReadFile(filepath.Join(outDir, "api", "v1", "crates", "serde", "1.0.0", "download"))
	if err != nil {
		t.Fatalf("reading mirrored file: %v", err)
	}
	if string(got) != "serde payload" {
		t.Errorf("mirrored file = %q, want %q", got, "serde payload")
	}
}
