package core

import (
	"context"
	"errors"
	"path"
)

// ErrKeyNotFound is returned by FileStore.Download when the key is absent.
var ErrKeyNotFound = errors.New("storage key not found")

// CurrentNamespace is the mutable per-workspace namespace used for
// incremental single-file saves, as opposed to immutable generation
// snapshots written by clone and pull.
const CurrentNamespace = "current"

type (
	// FileStore is the blob persistence layer behind workspace sync.
	// Keys follow workspaces/{workspaceID}/{generation|current}/{path}.
	// Implementations must give Upload overwrite semantics and make
	// DeleteFolder equivalent to deleting every key List returns.
	FileStore interface {
		// Upload stores content under key, overwriting any existing blob.
		Upload(ctx context.Context, key string, content []byte, contentType string) error

		// Download returns the blob at key, or ErrKeyNotFound.
		Download(ctx context.Context, key string) ([]byte, error)

		// List returns every key under prefix with the prefix stripped.
		// Workspace-scale listings only (hundreds of keys); no
		// pagination guarantee is made.
		List(ctx context.Context, prefix string) ([]string, error)

		// Delete removes a single key. Deleting an absent key is a no-op.
		Delete(ctx context.Context, key string) error

		// DeleteFolder removes every key under prefix.
		DeleteFolder(ctx context.Context, prefix string) error
	}
)

// WorkspacePrefix returns the storage prefix owning every blob of a
// workspace.
func WorkspacePrefix(workspaceID string) string {
	return "workspaces/" + workspaceID + "/"
}

// GenerationKey builds the key for one file within a snapshot
// generation (or the current namespace).
func GenerationKey(workspaceID, generation, filePath string) string {
	return WorkspacePrefix(workspaceID) + generation + "/" + path.Clean("./"+filePath)
}
