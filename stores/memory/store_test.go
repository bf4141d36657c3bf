package memory

import (
	"context"
	"errors"
	"sort"
	"testing"

	"codearena-realtime/core"
)

func TestUploadDownloadRoundTrip(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	key := "workspaces/7/current/src/main.go"
	if err := store.Upload(ctx, key, []byte("package main"), "text/plain"); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	content, err := store.Download(ctx, key)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if string(content) != "package main" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestDownloadMissingKey(t *testing.T) {
	store := NewStore()
	if _, err := store.Download(context.Background(), "nope"); !errors.Is(err, core.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestListStripsPrefix(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	keys := []string{
		"workspaces/7/current/a.go",
		"workspaces/7/current/pkg/b.go",
		"workspaces/8/current/other.go",
	}
	for _, k := range keys {
		if err := store.Upload(ctx, k, []byte("x"), ""); err != nil {
			t.Fatal(err)
		}
	}

	listed, err := store.List(ctx, "workspaces/7/current/")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(listed)
	want := []string{"a.go", "pkg/b.go"}
	if len(listed) != len(want) {
		t.Fatalf("expected %v, got %v", want, listed)
	}
	for i := range want {
		if listed[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, listed)
		}
	}
}

func TestDeleteFolderRemovesEveryKey(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	store.Upload(ctx, "workspaces/7/current/a.go", []byte("x"), "")
	store.Upload(ctx, "workspaces/7/current/b.go", []byte("y"), "")
	store.Upload(ctx, "workspaces/9/current/keep.go", []byte("z"), "")

	if err := store.DeleteFolder(ctx, "workspaces/7/"); err != nil {
		t.Fatal(err)
	}

	if listed, _ := store.List(ctx, "workspaces/7/"); len(listed) != 0 {
		t.Fatalf("expected empty folder, got %v", listed)
	}
	if _, err := store.Download(ctx, "workspaces/9/current/keep.go"); err != nil {
		t.Fatalf("unrelated key must survive, got %v", err)
	}
}
