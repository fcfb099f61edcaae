// SPDX-License-Identifier: MPL-2.0

package python

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const (
	formatTarGzip archive = "tar.gz"
	formatTarZstd archive = "tar.zst"
)

type archive string

// ErrUnsafeArchivePath is returned for archive entries escaping the target.
var ErrUnsafeArchivePath = errors.New("archive entry escapes destination")

func archiveFormat(name string) archive {
	if strings.HasSuffix(name, ".tar.zst") || strings.HasSuffix(name, ".tzst") {
		return formatTarZstd
	}
	return formatTarGzip
}

// Extract unpacks a compressed tarball into dest.
func Extract(r io.Reader, format archive, dest string) error {
	var stream io.Reader
	switch format {
	case formatTarZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return fmt.Errorf("open zstd stream: %w", err)
		}
		defer dec.Close()
		stream = dec
	default:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return fmt.Errorf("open gzip stream: %w", err)
		}
		defer func() { _ = gz.Close() }()
		stream = gz
	}

	tr := tar.NewReader(stream)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}
		if err := extractEntry(tr, hdr, dest); err != nil {
			return err
		}
	}
}

func extractEntry(tr *tar.Reader, hdr *tar.Header, dest string) error {
	target, err := safeJoin(dest, hdr.Name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, 0o755)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, hdr.FileInfo().Mode().Perm()|0o600)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, tr); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %s: %w", hdr.Name, err)
		}
		return f.Close()
	case tar.TypeSymlink:
		if filepath.IsAbs(hdr.Linkname) {
			return fmt.Errorf("%w: %s -> %s", ErrUnsafeArchivePath, hdr.Name, hdr.Linkname)
		}
		if _, err := safeJoin(dest, filepath.Join(filepath.Dir(hdr.Name), hdr.Linkname)); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.Symlink(hdr.Linkname, target)
	default:
		return nil
	}
}

func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchivePath, name)
	}
	return target, nil
}
