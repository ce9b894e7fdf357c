// Package sshtest simulates remote hosts for tests of code that runs
// commands over pooled SSH connections.
package sshtest

import (
	"errors"
	"path"
	"sort"
	"strings"
	"sync"
)

// MockFS is an in-memory remote filesystem.
type MockFS struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
}

// NewMockFS creates an empty filesystem containing only "/".
func NewMockFS() *MockFS {
	return &MockFS{
		files: make(map[string][]byte),
		dirs:  map[string]struct{}{"/": {}},
	}
}

// MkdirAll creates dir and its parents, like `mkdir -p`.
func (fs *MockFS) MkdirAll(dir string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.mkdirAll(path.Clean(dir))
}

func (fs *MockFS) mkdirAll(dir string) {
	for dir != "/" && dir != "." {
		fs.dirs[dir] = struct{}{}
		dir = path.Dir(dir)
	}
}

// WriteFile stores content at p, creating parent directories.
func (fs *MockFS) WriteFile(p string, content []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	p = path.Clean(p)
	fs.mkdirAll(path.Dir(p))
	fs.files[p] = content
}

// ReadFile returns the content at p.
func (fs *MockFS) ReadFile(p string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	content, ok := fs.files[path.Clean(p)]
	if !ok {
		return nil, errors.New("no such file")
	}
	return content, nil
}

// List returns the names directly inside dir, sorted.
func (fs *MockFS) List(dir string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	dir = path.Clean(dir)
	if _, ok := fs.dirs[dir]; !ok {
		return nil, errors.New("no such directory")
	}

	var names []string
	add := func(p string) {
		if p != dir && path.Dir(p) == dir {
			names = append(names, path.Base(p))
		}
	}
	for p := range fs.files {
		add(p)
	}
	for p := range fs.dirs {
		add(p)
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes p and everything under it, like `rm -rf`.
func (fs *MockFS) Remove(p string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	prefix := strings.TrimSuffix(p, "/") + "/"
	for f := range fs.files {
		if f == p || strings.HasPrefix(f, prefix) {
			delete(fs.files, f)
		}
	}
	for d := range fs.dirs {
		if d != "/" && (d == p || strings.HasPrefix(d, prefix)) {
			delete(fs.dirs, d)
		}
	}
}

// IsDir reports whether p is a directory.
func (fs *MockFS) IsDir(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.dirs[path.Clean(p)]
	return ok
}

// IsFile reports whether p is a file.
func (fs *MockFS) IsFile(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.files[path.Clean(p)]
	return ok
}
