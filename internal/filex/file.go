// Package filex contains small file-system helpers.
package filex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/clipsync/internal/common"
)

// EnsureSubdDir creates dirName under the current working directory if
// needed and returns its absolute path.
func EnsureSubdDir(dirName string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// EnsureParentDir creates the parent directory of path if it does not exist.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// CheckReadable verifies that path names a regular file that can be opened
// for reading. Any failure is reported as common.ErrInvalidSource.
func CheckReadable(path string) (int64, error) {
	if strings.TrimSpace(path) == "" {
		return 0, fmt.Errorf("%w: empty path", common.ErrInvalidSource)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrInvalidSource, err)
	}
	if !fi.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s is not a regular file", common.ErrInvalidSource, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrInvalidSource, err)
	}
	defer f.Close()

	// reading one byte surfaces I/O errors that Open alone does not
	var probe [1]byte
	if _, err := f.Read(probe[:]); err != nil && err != io.EOF {
		return 0, fmt.Errorf("%w: %v", common.ErrInvalidSource, err)
	}

	return fi.Size(), nil
}
