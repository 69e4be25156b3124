// Package safe provides file reads with guardrails: size caps, regular-file
// checks, and optional symlink rejection. Analysis re-reads user-supplied
// paths (target scripts, rule files); these helpers keep a hostile or
// accidental path from exhausting memory.
package safe

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultMaxFileSize caps reads at 1 MiB unless overridden.
const DefaultMaxFileSize = 1 << 20

// ReadFileOptions configures ReadFile.
type ReadFileOptions struct {
	// MaxSize is the maximum allowed file size in bytes. Zero means
	// DefaultMaxFileSize.
	MaxSize int64
	// AllowSymlinks permits reading through a symlink. Off by default.
	AllowSymlinks bool
}

// ReadFile reads a file after validating it: the path must name a regular
// file no larger than the size cap, and not a symlink unless allowed.
func ReadFile(path string, opts *ReadFileOptions) ([]byte, error) {
	if opts == nil {
		opts = &ReadFileOptions{}
	}
	maxSize := opts.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}

	clean := filepath.Clean(path)
	info, err := os.Lstat(clean)
	if err != nil {
		return nil, err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		if !opts.AllowSymlinks {
			return nil, fmt.Errorf("%q is a symlink", path)
		}
		if info, err = os.Stat(clean); err != nil {
			return nil, err
		}
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%q is not a regular file", path)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%q exceeds the %d byte size cap", path, maxSize)
	}

	return os.ReadFile(clean)
}
