// SPDX-License-Identifier: MPL-2.0

package python

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestParseRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw      string
		wantImpl string
		wantVer  string
		wantPath bool
	}{
		{raw: "", wantImpl: ImplCPython},
		{raw: "3.12", wantImpl: ImplCPython, wantVer: "3.12"},
		{raw: "312", wantImpl: ImplCPython, wantVer: "3.12"},
		{raw: "39", wantImpl: ImplCPython, wantVer: "3.9"},
		{raw: "3", wantImpl: ImplCPython, wantVer: "3"},
		{raw: "pypy3.10", wantImpl: ImplPyPy, wantVer: "3.10"},
		{raw: "/usr/bin/python3", wantImpl: ImplCPython, wantPath: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			req := ParseRequest(tt.raw)
			if req.Implementation != tt.wantImpl || req.Version != tt.wantVer || (req.Path != "") != tt.wantPath {
				t.Errorf("ParseRequest(%q) = %+v", tt.raw, req)
			}
		})
	}
}

func TestRequest_Matches(t *testing.T) {
	t.Parallel()

	interp := Interpreter{Implementation: ImplCPython, Version: MustParseVersion("3.12.4")}
	for raw, want := range map[string]bool{
		"":         true,
		"3":        true,
		"3.12":     true,
		"312":      true,
		"3.12.4":   true,
		"3.11":     false,
		"pypy3.12": false,
		"9000":     false,
	} {
		if got := ParseRequest(raw).Matches(interp); got != want {
			t.Errorf("ParseRequest(%q).Matches(3.12.4) = %v, want %v", raw, got, want)
		}
	}
}

func TestParseProbeOutput(t *testing.T) {
	t.Parallel()

	interp, err := parseProbeOutput("/bin/python3", "cpython 3.12.4\n")
	if err != nil {
		t.Fatalf("parseProbeOutput() error: %v", err)
	}
	if interp.Implementation != ImplCPython || interp.Version.String() != "3.12.4" {
		t.Errorf("unexpected interpreter %+v", interp)
	}
	if _, err := parseProbeOutput("/bin/python3", "garbage"); err == nil {
		t.Error("expected error for malformed output")
	}
}

// fakeHost wires a Resolver to a fixed PATH and a distribution server.
type fakeHost struct {
	paths    map[string]string
	versions map[string]string
	server   *httptest.Server
	requests int
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()

	h := &fakeHost{paths: map[string]string{}, versions: map[string]string{}}
	archive := buildDistributionArchive(t)
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.requests++
		_, _ = w.Write(archive)
	}))
	t.Cleanup(h.server.Close)
	return h
}

func (h *fakeHost) resolver(dir string) *Resolver {
	m := &Manager{
		Dir:       dir,
		SourceURL: h.server.URL,
		Client:    h.server.Client(),
		Releases:  []Release{{Name: "3.12", Version: "3.12.7", Tag: "test"}, {Name: "3.11", Version: "3.11.10", Tag: "test"}},
		Triple:    "x86_64-unknown-linux-gnu",
	}
	return &Resolver{
		Manager: m,
		LookPath: func(file string) (string, error) {
			if p, ok := h.paths[file]; ok {
				return p, nil
			}
			return "", exec.ErrNotFound
		},
		Probe: func(_ context.Context, path string) (Interpreter, error) {
			v, ok := h.versions[path]
			if !ok {
				return Interpreter{}, errors.New("not a python")
			}
			return Interpreter{Path: path, Implementation: ImplCPython, Version: MustParseVersion(v)}, nil
		},
	}
}

func buildDistributionArchive(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	files := []struct {
		name string
		body string
		link string
	}{
		{name: "python/bin/python3.12", body: "#!/bin/sh\n"},
		{name: "python/bin/python3", link: "python3.12"},
		{name: "python/lib/README", body: "stdlib"},
	}
	for _, f := range files {
		hdr := &tar.Header{Name: f.name, Mode: 0o755, Size: int64(len(f.body)), Typeflag: tar.TypeReg}
		if f.link != "" {
			hdr = &tar.Header{Name: f.name, Linkname: f.link, Typeflag: tar.TypeSymlink}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if f.body != "" {
			if _, err := tw.Write([]byte(f.body)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func collectStatus(lines *[]string) func(string) {
	return func(s string) { *lines = append(*lines, s) }
}

func TestResolver_EnsureFromPath(t *testing.T) {
	t.Parallel()

	h := newFakeHost(t)
	h.paths["python3.11"] = "/usr/bin/python3.11"
	h.versions["/usr/bin/python3.11"] = "3.11.9"
	r := h.resolver(t.TempDir())

	var status []string
	interp, err := r.Ensure(t.Context(), "311", nil, collectStatus(&status))
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if interp.Path != "/usr/bin/python3.11" || interp.Managed {
		t.Errorf("Ensure() = %+v", interp)
	}
	if len(status) != 0 || h.requests != 0 {
		t.Errorf("nothing should be installed, status=%v requests=%d", status, h.requests)
	}
}

func TestResolver_EnsureInstallsDistribution(t *testing.T) {
	t.Parallel()

	h := newFakeHost(t)
	dir := t.TempDir()
	r := h.resolver(dir)

	var status []string
	interp, err := r.Ensure(t.Context(), "3.12", nil, collectStatus(&status))
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if !slices.Equal(status, []string{"Installing Python distribution: 3.12"}) {
		t.Errorf("status = %v", status)
	}
	if !interp.Managed || interp.Version.String() != "3.12.7" {
		t.Errorf("Ensure() = %+v", interp)
	}
	if _, err := os.Lstat(interp.Path); err != nil {
		t.Errorf("interpreter not extracted: %v", err)
	}

	dists, err := r.Manager.Installed()
	if err != nil {
		t.Fatal(err)
	}
	if len(dists) != 1 || dists[0].Name != "3.12" {
		t.Errorf("Installed() = %+v", dists)
	}

	status = nil
	if _, err := r.Ensure(t.Context(), "3.12", nil, collectStatus(&status)); err != nil {
		t.Fatal(err)
	}
	if len(status) != 0 || h.requests != 1 {
		t.Errorf("second Ensure should reuse the install, status=%v requests=%d", status, h.requests)
	}
}

func TestResolver_EnsureUpdatesOutdatedDistribution(t *testing.T) {
	t.Parallel()

	h := newFakeHost(t)
	dir := t.TempDir()
	old := Distribution{Name: "3.12", Version: "3.12.1", Source: "old"}
	data, err := json.Marshal(old)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "3.12"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "3.12", metadataFile), data, 0o644); err != nil {
		t.Fatal(err)
	}
	r := h.resolver(dir)

	var status []string
	interp, err := r.Ensure(t.Context(), "3.12", nil, collectStatus(&status))
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if !slices.Equal(status, []string{"Updating Python distribution: 3.12"}) {
		t.Errorf("status = %v", status)
	}
	if interp.Version.String() != "3.12.7" {
		t.Errorf("updated version = %s", interp.Version)
	}
}

func TestResolver_EnsureMaxCompatible(t *testing.T) {
	t.Parallel()

	h := newFakeHost(t)
	r := h.resolver(t.TempDir())
	constraint, err := ParseSpecifierSet("<3.12")
	if err != nil {
		t.Fatal(err)
	}

	var status []string
	interp, err := r.Ensure(t.Context(), "", constraint, collectStatus(&status))
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if !slices.Equal(status, []string{"Installing Python distribution: 3.11"}) {
		t.Errorf("status = %v", status)
	}
	if interp.Version.Minor() != "3.11" {
		t.Errorf("Ensure() = %+v", interp)
	}
}

func TestResolver_MaxCompatible(t *testing.T) {
	t.Parallel()

	h := newFakeHost(t)
	h.paths["python3"] = "/usr/bin/python3"
	h.versions["/usr/bin/python3"] = "3.9.18"
	r := h.resolver(t.TempDir())

	for constraint, want := range map[string]string{
		">=3.8":  "3.12",
		"<3.12":  "3.11",
		"<3.10":  "3.9",
		">=3.11": "3.12",
	} {
		set, err := ParseSpecifierSet(constraint)
		if err != nil {
			t.Fatal(err)
		}
		got, err := r.MaxCompatible(t.Context(), set)
		if err != nil || got != want {
			t.Errorf("MaxCompatible(%s) = %q, %v; want %q", constraint, got, err, want)
		}
	}

	set, _ := ParseSpecifierSet(">9000")
	if _, err := r.MaxCompatible(t.Context(), set); !errors.Is(err, ErrIncompatible) {
		t.Errorf("MaxCompatible(>9000) error = %v", err)
	}
	if h.requests != 0 {
		t.Error("MaxCompatible must not download anything")
	}
}

func TestResolver_Errors(t *testing.T) {
	t.Parallel()

	h := newFakeHost(t)
	h.paths["python3"] = "/usr/bin/python3"
	h.versions["/usr/bin/python3"] = "3.12.4"
	r := h.resolver(t.TempDir())
	noStatus := func(string) {}

	_, err := r.Ensure(t.Context(), "9000", nil, noStatus)
	if !errors.Is(err, ErrNotFound) || err.Error() != "cannot locate Python: 9000" {
		t.Errorf("Ensure(9000) error = %v", err)
	}

	constraint, err := ParseSpecifierSet(">9000")
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Ensure(t.Context(), "", constraint, noStatus)
	if !errors.Is(err, ErrIncompatible) || err.Error() != "Unable to satisfy Python version constraint: >9000" {
		t.Errorf("Ensure(>9000) error = %v", err)
	}
}

func TestResolver_Available(t *testing.T) {
	t.Parallel()

	h := newFakeHost(t)
	h.paths["pypy3.10"] = "/opt/pypy3.10"
	h.versions["/opt/pypy3.10"] = "3.10.14"
	r := h.resolver(t.TempDir())
	r.Probe = func(_ context.Context, path string) (Interpreter, error) {
		if path == "/opt/pypy3.10" {
			return Interpreter{Path: path, Implementation: ImplPyPy, Version: MustParseVersion("3.10.14")}, nil
		}
		return Interpreter{}, errors.New("not a python")
	}

	for raw, want := range map[string]bool{
		"3.12":     true,
		"311":      true,
		"pypy3.10": true,
		"9000":     false,
		"3.7":      false,
	} {
		if got := r.Available(t.Context(), raw); got != want {
			t.Errorf("Available(%q) = %v, want %v", raw, got, want)
		}
	}
	if h.requests != 0 {
		t.Error("Available must not download anything")
	}
}

func TestExtract_RejectsTraversal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	if err := tw.WriteHeader(&tar.Header{Name: "../evil", Mode: 0o644, Size: 1, Typeflag: tar.TypeReg}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	_ = tw.Close()
	_ = gz.Close()

	err := Extract(&buf, formatTarGzip, t.TempDir())
	if !errors.Is(err, ErrUnsafeArchivePath) {
		t.Errorf("Extract() error = %v, want ErrUnsafeArchivePath", err)
	}
}
