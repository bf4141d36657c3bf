package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"codearena-realtime/core"

	"github.com/sirupsen/logrus"
)

type fsStore struct {
	basePath string
}

// NewStore creates a filesystem-backed store rooted at basePath.
func NewStore(basePath string) *fsStore {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logrus.WithFields(logrus.Fields{"basePath": basePath, "error": err}).Fatal("Failed to create storage directory")
	}
	return &fsStore{basePath: basePath}
}

// keyPath maps a storage key onto a path under basePath, rejecting
// keys that would escape it.
func (s *fsStore) keyPath(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.basePath, cleaned), nil
}

func (s *fsStore) Upload(ctx context.Context, key string, content []byte, contentType string) error {
	p, err := s.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *fsStore) Download(ctx context.Context, key string) ([]byte, error) {
	p, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return content, nil
}

func (s *fsStore) List(ctx context.Context, prefix string) ([]string, error) {
	root, err := s.keyPath(strings.TrimSuffix(prefix, "/"))
	if err != nil {
		return nil, err
	}
	keys := []string{}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	return keys, nil
}

func (s *fsStore) Delete(ctx context.Context, key string) error {
	p, err := s.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *fsStore) DeleteFolder(ctx context.Context, prefix string) error {
	p, err := s.keyPath(strings.TrimSuffix(prefix, "/"))
	if err != nil {
		return err
	}
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("failed to delete folder %s: %w", prefix, err)
	}
	return nil
}
