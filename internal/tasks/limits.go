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

package tasks

import (
	"fmt"
	"io"
	"os"

	apperrors "taskgate/internal/errors"
)

// Limits configures size bounds for operation inputs.
type Limits struct {
	MaxFileSizeBytes int64
}

const defaultMaxFileSizeBytes int64 = 50 * 1024 * 1024

// DefaultLimits returns the default resource limits for operations.
func DefaultLimits() Limits {
	return Limits{MaxFileSizeBytes: defaultMaxFileSizeBytes}
}

func normalizeLimits(l Limits) Limits {
	if l.MaxFileSizeBytes <= 0 {
		l.MaxFileSizeBytes = defaultMaxFileSizeBytes
	}
	return l
}

// statInput returns a not_found error for missing inputs and rejects
// directories and oversized files.
func (e *Env) statInput(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "File not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "path '%s' is a directory", path)
	}
	if info.Size() > e.Limits.MaxFileSizeBytes {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "file %s exceeds maximum size of %d bytes", path, e.Limits.MaxFileSizeBytes)
	}
	return info, nil
}

// readInput resolves name under the sandbox root and reads it.
func (e *Env) readInput(name string) (string, []byte, error) {
	path, err := e.Guard.Resolve(name)
	if err != nil {
		return "", nil, err
	}
	if _, err := e.statInput(path); err != nil {
		return path, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return path, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return path, data, nil
}

// readLimited reads at most the configured file size from r.
func (e *Env) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, e.Limits.MaxFileSizeBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > e.Limits.MaxFileSizeBytes {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "response exceeds maximum size of %d bytes", e.Limits.MaxFileSizeBytes)
	}
	return data, nil
}
