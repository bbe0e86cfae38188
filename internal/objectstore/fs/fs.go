package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"askmynotes/internal/domain"
)

// Store keeps uploaded files under <root>/<tenant>/<sourceID>/<name>.
type Store struct {
	root string
}

// New creates root if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: object store directory is empty", domain.ErrInvalidConfig)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create object store dir: %w", err)
	}
	return &Store{root: root}, nil
}

// Put writes data and returns the file path.
func (s *Store) Put(_ context.Context, tenantID, sourceID, name string, data []byte) (string, error) {
	dir, err := s.sourceDir(tenantID, sourceID)
	if err != nil {
		return "", err
	}
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		base = "upload"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create source dir: %w", err)
	}
	path := filepath.Join(dir, base)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func (s *Store) Delete(_ context.Context, tenantID, sourceID string) error {
	dir, err := s.sourceDir(tenantID, sourceID)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

func (s *Store) DeleteTenant(_ context.Context, tenantID string) error {
	dir, err := s.tenantDir(tenantID)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

func (s *Store) tenantDir(tenantID string) (string, error) {
	parts := strings.Split(tenantID, "/")
	for _, p := range parts {
		if err := checkSegment(p); err != nil {
			return "", err
		}
	}
	return filepath.Join(append([]string{s.root}, parts...)...), nil
}

func (s *Store) sourceDir(tenantID, sourceID string) (string, error) {
	dir, err := s.tenantDir(tenantID)
	if err != nil {
		return "", err
	}
	if err := checkSegment(sourceID); err != nil {
		return "", err
	}
	return filepath.Join(dir, sourceID), nil
}

func checkSegment(seg string) error {
	if seg == "" || seg == "." || seg == ".." || strings.ContainsAny(seg, `/\`) {
		return fmt.Errorf("%w: bad path segment %q", domain.ErrInvalidArgument, seg)
	}
	return nil
}
