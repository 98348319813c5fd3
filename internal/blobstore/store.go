package blobstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("blob not found")

// Store keeps named JSON documents on the local filesystem, one file
// per (owner, filename). Writes overwrite: the fixed filename is what
// keeps repeated publishes from accumulating documents.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Put overwrites the owner's document and returns its read-back URL
// path.
func (s *Store) Put(owner, filename string, content []byte) (string, error) {
	path, err := s.resolve(owner, filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	return "/api/blob/" + filename, nil
}

// Get returns the owner's document bytes.
func (s *Store) Get(owner, filename string) ([]byte, error) {
	path, err := s.resolve(owner, filename)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// resolve confines owner and filename to single path elements under
// the store root.
func (s *Store) resolve(owner, filename string) (string, error) {
	owner = strings.TrimSpace(owner)
	filename = strings.TrimSpace(filename)
	if owner == "" || owner != filepath.Base(owner) {
		return "", fmt.Errorf("invalid owner %q", owner)
	}
	if filename == "" || filename != filepath.Base(filename) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return filepath.Join(s.dir, owner, filename), nil
}
