package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrTooLarge is returned when an upload exceeds its size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// StagedFile is an upload written to local disk ahead of hosting.
type StagedFile struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64
}

// Present reports whether a file was staged.
func (f StagedFile) Present() bool {
	return f.Path != ""
}

// Discard removes the staged file. It is safe to call more than once.
func (f StagedFile) Discard() {
	if f.Path != "" {
		_ = os.Remove(f.Path)
	}
}

// StageUpload copies r into a new temp file in dir, keeping the extension of
// filename. Reads beyond limit bytes fail with ErrTooLarge and leave nothing behind.
func StageUpload(dir, filename, contentType string, r io.Reader, limit int64) (StagedFile, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StagedFile{}, fmt.Errorf("create upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	f, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return StagedFile{}, fmt.Errorf("create staged file: %w", err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(f.Name())
		return StagedFile{}, fmt.Errorf("write staged file: %w", copyErr)
	case closeErr != nil:
		_ = os.Remove(f.Name())
		return StagedFile{}, fmt.Errorf("close staged file: %w", closeErr)
	case limit > 0 && n > limit:
		_ = os.Remove(f.Name())
		return StagedFile{}, ErrTooLarge
	}

	return StagedFile{
		Path:        f.Name(),
		Filename:    filename,
		ContentType: contentType,
		Size:        n,
	}, nil
}
