package gitsync

import (
	"os"
	"path/filepath"
	"testing"

	"codearena-realtime/core"
)

func writeFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkTreeSkipsMetadataAndCaches(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main.go", []byte("package main"))
	writeFile(t, root, ".git/HEAD", []byte("ref: refs/heads/main"))
	writeFile(t, root, "node_modules/lib/index.js", []byte("x"))
	writeFile(t, root, "vendor/dep/dep.go", []byte("y"))

	files, err := WalkTree(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected only src/main.go, got %+v", files)
	}
	if files[0].Path != "src/main.go" {
		t.Fatalf("unexpected path %q", files[0].Path)
	}
}

func TestWalkTreeClassifiesBinary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "logo.png", []byte{0x89, 'P', 'N', 'G', 0x00, 0x01})
	writeFile(t, root, "readme.md", []byte("# hi"))

	files, err := WalkTree(root)
	if err != nil {
		t.Fatal(err)
	}
	byPath := map[string]core.WorkspaceFile{}
	for _, f := range files {
		byPath[f.Path] = f
	}

	binary := byPath["logo.png"]
	if !binary.IsBinary || binary.Content != core.BinaryPlaceholder {
		t.Fatalf("expected binary placeholder, got %+v", binary)
	}
	text := byPath["readme.md"]
	if text.IsBinary || text.Content != "# hi" {
		t.Fatalf("expected text content, got %+v", text)
	}
}

func TestMaterializeRoundTrip(t *testing.T) {
	files := []core.WorkspaceFile{
		{Path: "a.txt", Content: "alpha"},
		{Path: "deep/nested/b.txt", Content: "beta"},
	}

	root := t.TempDir()
	if err := Materialize(root, files); err != nil {
		t.Fatal(err)
	}

	walked, err := WalkTree(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(walked) != len(files) {
		t.Fatalf("expected %d files, got %d", len(files), len(walked))
	}
	byPath := map[string]string{}
	for _, f := range walked {
		byPath[f.Path] = f.Content
	}
	for _, f := range files {
		if byPath[f.Path] != f.Content {
			t.Fatalf("content mismatch for %s: %q", f.Path, byPath[f.Path])
		}
	}
}

func TestMaterializeRejectsEscapingPaths(t *testing.T) {
	for _, p := range []string{"../escape.txt", "/abs.txt", "ok/../../bad"} {
		err := Materialize(t.TempDir(), []core.WorkspaceFile{{Path: p, Content: "x"}})
		if err == nil {
			t.Fatalf("expected path %q to be rejected", p)
		}
	}
}
