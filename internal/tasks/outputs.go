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
	"os"
	"path/filepath"
	"sync"
)

// OutputWriter serializes writes per destination path and replaces files
// atomically, so concurrent requests targeting the same well-known output
// never interleave or leave a torn file behind.
type OutputWriter struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

// pathLock is dropped from the map once no holder or waiter refers to it.
type pathLock struct {
	mu   sync.Mutex
	refs int
}

// NewOutputWriter creates an OutputWriter.
func NewOutputWriter() *OutputWriter {
	return &OutputWriter{locks: make(map[string]*pathLock)}
}

func (w *OutputWriter) acquire(path string) *pathLock {
	w.mu.Lock()
	lock, ok := w.locks[path]
	if !ok {
		lock = &pathLock{}
		w.locks[path] = lock
	}
	lock.refs++
	w.mu.Unlock()
	return lock
}

func (w *OutputWriter) release(path string, lock *pathLock) {
	w.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(w.locks, path)
	}
	w.mu.Unlock()
}

// Lock holds the destination lock for path until the returned func is called.
// Used by operations whose output is produced by a library writing in place.
func (w *OutputWriter) Lock(path string) func() {
	lock := w.acquire(path)
	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		w.release(path, lock)
	}
}

// tracked reports how many paths currently have a lock entry.
func (w *OutputWriter) tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.locks)
}

// WriteFile atomically replaces path with data.
func (w *OutputWriter) WriteFile(path string, data []byte) error {
	unlock := w.Lock(path)
	defer unlock()
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// writeOutput resolves name under the sandbox root and writes data to it.
func (e *Env) writeOutput(name string, data []byte) (string, error) {
	path, err := e.Guard.Resolve(name)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return "", fmt.Errorf("path '%s' is a directory", path)
	}
	if err := e.Outputs.WriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}
