// Package security guards filesystem and network access made on behalf of
// untrusted callers.
//
// Information Hiding:
// - Path canonicalization and root matching hidden behind Sandbox
// - DNS resolution, address classification and pinned dialing hidden behind Guard
package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
)

// Sandbox restricts filesystem access to a fixed set of root directories.
// The zero-root sandbox is disabled and accepts any path.
// A Sandbox is immutable after construction and safe for concurrent use.
type Sandbox struct {
	roots []string
}

// NewSandbox canonicalizes roots. Every root must exist and be a directory.
func NewSandbox(roots []string) (*Sandbox, error) {
	canonical := make([]string, 0, len(roots))
	seen := make(map[string]bool)
	for _, root := range roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		resolved, err := canonicalize(root)
		if err != nil {
			return nil, fmt.Errorf("invalid sandbox root %q: %w", root, err)
		}
		info, err := os.Stat(resolved)
		if err != nil {
			return nil, fmt.Errorf("invalid sandbox root %q: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("sandbox root %q is not a directory", root)
		}
		if !seen[resolved] {
			seen[resolved] = true
			canonical = append(canonical, resolved)
		}
	}
	return &Sandbox{roots: canonical}, nil
}

// Enabled reports whether any roots are configured.
func (s *Sandbox) Enabled() bool {
	return s != nil && len(s.roots) > 0
}

// Roots returns a copy of the canonical roots.
func (s *Sandbox) Roots() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.roots))
	copy(out, s.roots)
	return out
}

// ValidateRead returns the canonical form of path when it resolves inside a
// root. The path must exist.
func (s *Sandbox) ValidateRead(path string) (string, error) {
	if !s.Enabled() {
		return path, nil
	}
	resolved, err := canonicalize(path)
	if err != nil {
		return "", apperrors.Newf(apperrors.KindAccessDenied, "cannot resolve path", "path=%s err=%v", path, err)
	}
	if !s.contains(resolved) {
		return "", apperrors.Newf(apperrors.KindAccessDenied, "path outside allowed directories", "path=%s resolved=%s", path, resolved)
	}
	return resolved, nil
}

// ValidateWrite checks that the parent directory of path lies inside a root,
// creates it when missing, and returns path in absolute form for writing.
// An existing symlink at path must also resolve inside a root.
func (s *Sandbox) ValidateWrite(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindIO, "invalid output path", err)
	}
	parent := filepath.Dir(abs)

	if s.Enabled() {
		resolvedParent, err := resolveMissing(parent)
		if err != nil {
			return "", apperrors.Newf(apperrors.KindAccessDenied, "cannot resolve output directory", "path=%s err=%v", path, err)
		}
		if !s.contains(resolvedParent) {
			return "", apperrors.Newf(apperrors.KindAccessDenied, "output path outside allowed directories", "path=%s resolved=%s", path, resolvedParent)
		}
		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(abs)
			if err != nil || !s.contains(target) {
				return "", apperrors.Newf(apperrors.KindAccessDenied, "output symlink escapes allowed directories", "path=%s", path)
			}
		}
	}

	if err := os.MkdirAll(parent, 0755); err != nil {
		return "", apperrors.Wrap(apperrors.KindIO, "failed to create output directory", err)
	}
	return abs, nil
}

func (s *Sandbox) contains(resolved string) bool {
	for _, root := range s.roots {
		if HasPathPrefix(resolved, root) {
			return true
		}
	}
	return false
}

// HasPathPrefix reports whether path equals base or lies beneath it,
// comparing whole path segments.
func HasPathPrefix(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)))
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// resolveMissing canonicalizes the longest existing prefix of an absolute
// path and re-appends the components that do not exist yet.
func resolveMissing(abs string) (string, error) {
	var missing []string
	current := abs
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		next := filepath.Dir(current)
		if next == current {
			return "", err
		}
		missing = append(missing, filepath.Base(current))
		current = next
	}
}
