package gitsync

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"codearena-realtime/core"
)

// skippedDirs are never synced: VCS metadata and dependency caches
// have no place in a workspace file tree.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

// WalkTree flattens the directory into a file list with slash-separated
// relative paths. Content containing a null byte is classified binary
// and replaced by the placeholder marker; the editing surface is
// text-only.
func WalkTree(root string) ([]core.WorkspaceFile, error) {
	files := []core.WorkspaceFile{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", rel, err)
		}

		file := core.WorkspaceFile{Path: filepath.ToSlash(rel)}
		if bytes.IndexByte(content, 0) >= 0 {
			file.IsBinary = true
			file.Content = core.BinaryPlaceholder
		} else {
			file.Content = string(content)
		}
		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Materialize writes the file list into root, creating parent
// directories as needed. Paths are validated against escaping root.
func Materialize(root string, files []core.WorkspaceFile) error {
	for _, f := range files {
		cleaned := filepath.Clean(filepath.FromSlash(f.Path))
		if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
			return fmt.Errorf("invalid file path %q", f.Path)
		}
		p := filepath.Join(root, cleaned)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(p, []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
	}
	return nil
}
