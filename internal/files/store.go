// Package files is the binary file store collaborator: bytes in, URL out.
// The workflow core only ever keeps the returned URL string.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store persists uploaded evidence and returns a serveable URL.
type Store interface {
	Upload(data []byte, filename string) (string, error)
}

// DiskStore writes uploads under a local directory served statically.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates the upload directory if needed.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload stores the bytes under a random name, keeping the extension.
func (s *DiskStore) Upload(data []byte, filename string) (string, error) {
	ext := filepath.Ext(filename)
	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

// Dir returns the backing directory for static serving.
func (s *DiskStore) Dir() string {
	return s.dir
}
