package core

import "time"

// BinaryPlaceholder is stored in place of file content whose bytes
// contain a null byte. The editing surface is text-only, so binary
// blobs are carried as a marker rather than raw data.
const BinaryPlaceholder = "[binary file - not editable]"

type (
	// WorkspaceFile is one entry of a workspace's flattened file tree.
	WorkspaceFile struct {
		Path     string `json:"path"`
		Content  string `json:"content"`
		IsBinary bool   `json:"isBinary,omitempty"`
	}

	// FileLock is an exclusive, time-bounded editing lease on a single
	// file within a workspace. At most one lock exists per
	// (workspace, path) at any instant.
	FileLock struct {
		FilePath       string    `json:"filePath"`
		OwnerID        string    `json:"lockedBy"`
		OwnerName      string    `json:"username"`
		GrantedAt      time.Time `json:"grantedAt"`
		LastActivityAt time.Time `json:"lastActivityAt"`
	}

	// ChatMessage is a workspace chat line, ordered by arrival at the
	// hub. Durable persistence is the external store's concern; the
	// relay never waits on it.
	ChatMessage struct {
		WorkspaceID    string    `json:"workspaceId"`
		SenderID       string    `json:"userId"`
		SenderUsername string    `json:"username"`
		Body           string    `json:"message"`
		Timestamp      time.Time `json:"timestamp"`
	}
)
