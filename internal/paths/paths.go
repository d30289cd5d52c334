// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "taskgate/internal/errors"
)

// MaxPathLength bounds candidate paths accepted by a Guard.
const MaxPathLength = 4096

// ValidatePathString validates raw path input before resolution.
func ValidatePathString(path string, maxLen int) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.IndexByte(path, 0) != -1 {
		return fmt.Errorf("path contains null byte")
	}
	if !utf8.ValidString(path) {
		return fmt.Errorf("path is not valid UTF-8")
	}
	for _, r := range path {
		if unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r) || unicode.Is(unicode.Me, r) {
			return fmt.Errorf("path contains unsupported unicode combining mark")
		}
	}
	if maxLen > 0 {
		if len(path) > maxLen {
			return fmt.Errorf("path exceeds maximum length of %d characters", maxLen)
		}
		if len(filepath.Clean(path)) > maxLen {
			return fmt.Errorf("path exceeds maximum length of %d characters", maxLen)
		}
	}
	return nil
}

// Guard confines filesystem access to a single sandbox root.
// The root is canonicalized once and never changes, so a Guard is safe
// for concurrent use.
type Guard struct {
	root string
}

// NewGuard canonicalizes root (absolute, cleaned, symlinks resolved).
// The directory must exist.
func NewGuard(root string) (*Guard, error) {
	if err := ValidatePathString(root, MaxPathLength); err != nil {
		return nil, fmt.Errorf("invalid sandbox root: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid sandbox root: %v", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sandbox root: %v", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to stat sandbox root: %v", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox root %s is not a directory", resolved)
	}
	return &Guard{root: resolved}, nil
}

// Root returns the canonical sandbox root.
func (g *Guard) Root() string {
	return g.root
}

// IsSafe reports whether candidate resolves to the sandbox root or a
// descendant of it. Relative candidates are interpreted under the root.
func (g *Guard) IsSafe(candidate string) bool {
	_, err := g.Resolve(candidate)
	return err == nil
}

// Resolve returns the canonical form of candidate, or a path_violation
// error when it escapes the sandbox root.
func (g *Guard) Resolve(candidate string) (string, error) {
	if g == nil {
		return "", apperrors.New(apperrors.CodePathViolation, "no sandbox root configured")
	}
	if err := ValidatePathString(candidate, MaxPathLength); err != nil {
		return "", apperrors.Wrap(apperrors.CodePathViolation, "invalid path", err)
	}

	path := candidate
	if !filepath.IsAbs(path) {
		path = filepath.Join(g.root, path)
	}
	path = filepath.Clean(path)

	resolved, err := ResolveSymlinkedPath(path)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodePathViolation, fmt.Sprintf("cannot resolve %s", candidate), err)
	}
	if !HasPathPrefix(resolved, g.root) {
		return "", apperrors.Newf(apperrors.CodePathViolation, "access outside %s is restricted: %s", g.root, candidate)
	}
	return resolved, nil
}

// Join resolves the elements joined under the sandbox root.
func (g *Guard) Join(elem ...string) (string, error) {
	return g.Resolve(filepath.Join(elem...))
}

// ResolveSymlinkedPath resolves symlinks on the deepest existing ancestor of
// a cleaned absolute path and re-attaches the not-yet-existing remainder.
func ResolveSymlinkedPath(path string) (string, error) {
	current := path
	for {
		if _, err := os.Lstat(current); err == nil {
			resolved, err := filepath.EvalSymlinks(current)
			if err != nil {
				return "", fmt.Errorf("failed to resolve path: %v", err)
			}
			rest, err := filepath.Rel(current, path)
			if err != nil {
				return "", fmt.Errorf("failed to resolve path: %v", err)
			}
			return filepath.Join(resolved, rest), nil
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to stat path: %v", err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return path, nil
		}
		current = parent
	}
}

// HasPathPrefix returns true when path is base or nested under it.
// The comparison is segment-wise, so /data-extra is not under /data.
func HasPathPrefix(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && rel != "..")
}
