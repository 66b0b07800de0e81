// Package storage deletes task photo files kept on the local disk.
package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalFiles deletes photo references that point into RootDir.
// A reference is either a path relative to RootDir ("/photos/a.jpg")
// or a URL whose path is.
type LocalFiles struct {
	RootDir string
}

func NewLocalFiles(rootDir string) *LocalFiles {
	return &LocalFiles{RootDir: filepath.Clean(rootDir)}
}

// Resolve maps a reference to a file under RootDir.
func (l *LocalFiles) Resolve(ref string) (string, error) {
	p := strings.TrimSpace(ref)
	if p == "" {
		return "", errors.New("empty photo reference")
	}
	if u, err := url.Parse(p); err == nil && u.Scheme != "" {
		p = u.Path
	}
	clean := path.Clean("/" + filepath.ToSlash(p))
	if clean == "/" {
		return "", fmt.Errorf("photo reference %q has no file name", ref)
	}
	return filepath.Join(l.RootDir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// ErrOutsideDir is returned for a reference that does not lie in the directory it was removed from.
var ErrOutsideDir = errors.New("photo reference outside its directory")

// Remove deletes the file behind ref. The file must lie strictly inside dir,
// itself relative to RootDir; anything else is refused.
func (l *LocalFiles) Remove(dir, ref string) error {
	scope, err := l.Resolve(dir)
	if err != nil {
		return fmt.Errorf("photo directory: %w", err)
	}
	target, err := l.Resolve(ref)
	if err != nil {
		return err
	}
	if !inside(scope, target) {
		return fmt.Errorf("%w: %s not in %s", ErrOutsideDir, ref, dir)
	}
	if err := os.Remove(target); err != nil {
		return fmt.Errorf("remove %s: %w", ref, err)
	}
	return nil
}

func inside(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
