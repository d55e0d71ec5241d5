// Package filex holds small filesystem helpers.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// PrivateDirMode keeps session tokens and cached hashes away from other users.
const PrivateDirMode os.FileMode = 0o700

// EnsureSubDir creates parent/name with PrivateDirMode if missing and returns
// its path. An empty parent means the working directory.
func EnsureSubDir(parent, name string) (string, error) {
	if parent == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		parent = cwd
	}

	dir := filepath.Join(parent, name)
	if err := os.MkdirAll(dir, PrivateDirMode); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}
