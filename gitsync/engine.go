package gitsync

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"codearena-realtime/core"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type (
	// Config carries the engine-wide settings. BotName/BotEmail author
	// every sync commit; RetainScratchOnFailure keeps a failed push's
	// scratch directory around for a bounded manual retry instead of
	// discarding the never-pushed commit.
	Config struct {
		ScratchRoot            string
		BotName                string
		BotEmail               string
		RetainScratchOnFailure bool
	}

	// CloneOptions parameterizes a clone: shallow, single-branch, into
	// a fresh scratch directory. Token, when set, is embedded into the
	// HTTPS remote URL; no other auth transport is supported.
	CloneOptions struct {
		RepoURL     string
		Branch      string
		WorkspaceID string
		Token       string
		TargetDir   string
		Preserve    bool
	}

	PushOptions struct {
		RepoURL       string
		Branch        string
		WorkspaceID   string
		Token         string
		CommitMessage string
		StorageKey    string
	}

	PullOptions struct {
		RepoURL     string
		Branch      string
		WorkspaceID string
		Token       string
	}

	CloneResult struct {
		Success          bool                 `json:"success"`
		CloudStoragePath string               `json:"cloudStoragePath,omitempty"`
		FilesCount       int                  `json:"filesCount"`
		Files            []core.WorkspaceFile `json:"files,omitempty"`
		Error            string               `json:"error,omitempty"`
	}

	PushResult struct {
		Success    bool   `json:"success"`
		CommitHash string `json:"commitHash,omitempty"`
		// ScratchDir is set only when a failed push retained its
		// scratch directory for retry.
		ScratchDir string `json:"scratchDir,omitempty"`
		Error      string `json:"error,omitempty"`
	}

	PullResult struct {
		Success          bool   `json:"success"`
		CloudStoragePath string `json:"cloudStoragePath,omitempty"`
		FilesChanged     int    `json:"filesChanged"`
		Error            string `json:"error,omitempty"`
	}

	// Engine moves a workspace's file tree between a Git remote and
	// the blob store. Operations for the same workspace are serialized
	// on a per-workspace mutex; the scratch directory is a single
	// mutable resource and concurrent git operations on it are unsafe.
	Engine struct {
		store core.FileStore
		cfg   Config

		mu         sync.Mutex
		workspaces map[string]*sync.Mutex
	}
)

// Error kinds callers can distinguish without parsing transport detail.
var (
	ErrAuth      = errors.New("git authentication failed")
	ErrTransport = errors.New("git transport failed")
	ErrConflict  = errors.New("target directory has conflicting content")
)

// NewEngine creates an Engine persisting through store.
func NewEngine(store core.FileStore, cfg Config) *Engine {
	if cfg.BotName == "" {
		cfg.BotName = "codearena-bot"
	}
	if cfg.BotEmail == "" {
		cfg.BotEmail = "bot@codearena.local"
	}
	return &Engine{
		store:      store,
		cfg:        cfg,
		workspaces: make(map[string]*sync.Mutex),
	}
}

// workspaceMutex returns the mutex serializing git operations for one
// workspace, creating it on first use.
func (e *Engine) workspaceMutex(workspaceID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.workspaces[workspaceID]
	if !ok {
		m = &sync.Mutex{}
		e.workspaces[workspaceID] = m
	}
	return m
}

// authURL embeds the token into an HTTPS remote URL
// (https://TOKEN@host/...). A URL that is not HTTPS is passed through
// untouched, which the remote will then reject if auth was required.
func authURL(repoURL, token string) string {
	if token == "" {
		return repoURL
	}
	u, err := url.Parse(repoURL)
	if err != nil || u.Scheme != "https" {
		return repoURL
	}
	u.User = url.User(token)
	return u.String()
}

// classifyError folds go-git errors into the caller-distinguishable
// kinds. Transport detail stays in the wrapped message.
func classifyError(err error) error {
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return fmt.Errorf("%w: %v", ErrAuth, err)
	case errors.Is(err, git.ErrRepositoryAlreadyExists):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
}

// scratchDir creates a fresh scratch directory for one operation.
func (e *Engine) scratchDir(workspaceID string) (string, error) {
	root := e.cfg.ScratchRoot
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, fmt.Sprintf("ws-%s-%s", workspaceID, uuid.NewString()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return dir, nil
}

// Clone shallow-clones the branch, walks the tree into a flat file
// list and persists it under a fresh generation key. The scratch
// directory is removed on every failure path, and on success unless
// opts.Preserve is set.
func (e *Engine) Clone(ctx context.Context, opts CloneOptions) CloneResult {
	wsMu := e.workspaceMutex(opts.WorkspaceID)
	wsMu.Lock()
	defer wsMu.Unlock()
	return e.cloneLocked(ctx, opts)
}

func (e *Engine) cloneLocked(ctx context.Context, opts CloneOptions) CloneResult {
	log := logrus.WithFields(logrus.Fields{
		"workspaceId": opts.WorkspaceID,
		"repoUrl":     opts.RepoURL,
		"branch":      opts.Branch,
	})

	dir := opts.TargetDir
	if dir == "" {
		var err error
		dir, err = e.scratchDir(opts.WorkspaceID)
		if err != nil {
			return CloneResult{Error: err.Error()}
		}
	}
	keepScratch := opts.Preserve
	defer func() {
		if !keepScratch {
			os.RemoveAll(dir)
		}
	}()

	if entries, err := os.ReadDir(dir); err == nil && len(entries) > 0 {
		// Never delete a caller-supplied directory whose content we
		// refused to touch.
		keepScratch = true
		return CloneResult{Error: fmt.Errorf("%w: %s", ErrConflict, dir).Error()}
	}

	log.Info("Cloning repository")
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           authURL(opts.RepoURL, opts.Token),
		ReferenceName: plumbing.NewBranchReferenceName(opts.Branch),
		SingleBranch:  true,
		Depth:         1,
	})
	if err != nil {
		keepScratch = false
		classified := classifyError(err)
		log.WithField("error", classified).Error("Clone failed")
		return CloneResult{Error: classified.Error()}
	}

	files, err := WalkTree(dir)
	if err != nil {
		keepScratch = false
		return CloneResult{Error: fmt.Sprintf("failed to walk tree: %v", err)}
	}

	generation := ulid.Make().String()
	for _, f := range files {
		key := core.GenerationKey(opts.WorkspaceID, generation, f.Path)
		if err := e.store.Upload(ctx, key, []byte(f.Content), "text/plain"); err != nil {
			keepScratch = false
			return CloneResult{Error: fmt.Sprintf("failed to persist %s: %v", f.Path, err)}
		}
	}

	storagePath := core.WorkspacePrefix(opts.WorkspaceID) + generation
	log.WithFields(logrus.Fields{
		"filesCount":       len(files),
		"cloudStoragePath": storagePath,
	}).Info("Clone persisted to storage")

	result := CloneResult{
		Success:          true,
		CloudStoragePath: storagePath,
		FilesCount:       len(files),
	}
	if opts.Preserve {
		result.Files = files
	}
	return result
}

// Push materializes the file list at opts.StorageKey into a scratch
// directory, commits it with the bot identity and pushes. By default
// the scratch directory is removed even when the push fails, which
// discards the never-pushed commit; the returned error names that loss
// so it is never silent. RetainScratchOnFailure keeps the directory
// and reports its path instead.
func (e *Engine) Push(ctx context.Context, opts PushOptions) PushResult {
	wsMu := e.workspaceMutex(opts.WorkspaceID)
	wsMu.Lock()
	defer wsMu.Unlock()

	log := logrus.WithFields(logrus.Fields{
		"workspaceId": opts.WorkspaceID,
		"repoUrl":     opts.RepoURL,
		"branch":      opts.Branch,
		"storageKey":  opts.StorageKey,
	})

	dir, err := e.scratchDir(opts.WorkspaceID)
	if err != nil {
		return PushResult{Error: err.Error()}
	}
	retained := false
	defer func() {
		if !retained {
			os.RemoveAll(dir)
		}
	}()

	prefix := opts.StorageKey
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	relative, err := e.store.List(ctx, prefix)
	if err != nil {
		return PushResult{Error: fmt.Sprintf("failed to list storage: %v", err)}
	}
	if len(relative) == 0 {
		return PushResult{Error: fmt.Sprintf("no files under storage key %s", opts.StorageKey)}
	}

	files := make([]core.WorkspaceFile, 0, len(relative))
	for _, rel := range relative {
		content, err := e.store.Download(ctx, prefix+rel)
		if err != nil {
			return PushResult{Error: fmt.Sprintf("failed to download %s: %v", rel, err)}
		}
		files = append(files, core.WorkspaceFile{Path: rel, Content: string(content)})
	}
	if err := Materialize(dir, files); err != nil {
		return PushResult{Error: fmt.Sprintf("failed to materialize tree: %v", err)}
	}

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return PushResult{Error: fmt.Sprintf("failed to init repository: %v", err)}
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{authURL(opts.RepoURL, opts.Token)},
	}); err != nil {
		return PushResult{Error: fmt.Sprintf("failed to configure remote: %v", err)}
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return PushResult{Error: fmt.Sprintf("failed to open worktree: %v", err)}
	}
	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return PushResult{Error: fmt.Sprintf("failed to stage changes: %v", err)}
	}

	message := opts.CommitMessage
	if message == "" {
		message = "Sync workspace " + opts.WorkspaceID
	}
	commit, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  e.cfg.BotName,
			Email: e.cfg.BotEmail,
			When:  time.Now(),
		},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return PushResult{Error: fmt.Sprintf("failed to commit: %v", err)}
	}

	// The push refspec needs the concrete local ref the commit landed
	// on; go-git does not resolve a symbolic HEAD source, and a refspec
	// that matches no local ref transfers nothing while reporting
	// already-up-to-date.
	head, err := repo.Head()
	if err != nil {
		return PushResult{Error: fmt.Sprintf("failed to resolve local branch: %v", err)}
	}
	branchRef := plumbing.NewBranchReferenceName(opts.Branch)
	refSpec := config.RefSpec(fmt.Sprintf("%s:%s", head.Name(), branchRef))
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{refSpec},
		Force:      true,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		classified := classifyError(err)
		log.WithField("error", classified).Error("Push failed")
		if e.cfg.RetainScratchOnFailure {
			retained = true
			return PushResult{
				Error:      fmt.Sprintf("%v; commit %s retained at %s for retry", classified, commit, dir),
				ScratchDir: dir,
			}
		}
		return PushResult{
			Error: fmt.Sprintf("%v; local commit %s discarded, retry will rebuild from storage", classified, commit),
		}
	}

	log.WithField("commitHash", commit.String()).Info("Push complete")
	return PushResult{Success: true, CommitHash: commit.String()}
}

// Pull re-clones fresh from the remote, wipes the workspace's current
// namespace and re-persists the remote tree under a new generation.
// This is a full overwrite: unpushed edits living only in the current
// namespace are discarded, by design. Callers must confirm the
// destructive semantics before invoking it.
func (e *Engine) Pull(ctx context.Context, opts PullOptions) PullResult {
	wsMu := e.workspaceMutex(opts.WorkspaceID)
	wsMu.Lock()
	defer wsMu.Unlock()

	cloneRes := e.cloneLocked(ctx, CloneOptions{
		RepoURL:     opts.RepoURL,
		Branch:      opts.Branch,
		WorkspaceID: opts.WorkspaceID,
		Token:       opts.Token,
	})
	if !cloneRes.Success {
		return PullResult{Error: cloneRes.Error}
	}

	if err := e.overwriteCurrent(ctx, opts.WorkspaceID, cloneRes.CloudStoragePath+"/"); err != nil {
		return PullResult{Error: err.Error()}
	}

	logrus.WithFields(logrus.Fields{
		"workspaceId":  opts.WorkspaceID,
		"filesChanged": cloneRes.FilesCount,
	}).Info("Pull overwrote current namespace")
	return PullResult{
		Success:          true,
		CloudStoragePath: cloneRes.CloudStoragePath,
		FilesChanged:     cloneRes.FilesCount,
	}
}

// overwriteCurrent replaces the workspace's live namespace with the
// snapshot at snapshotPrefix. Edits that were never pushed are
// unrecoverable past this point.
func (e *Engine) overwriteCurrent(ctx context.Context, workspaceID, snapshotPrefix string) error {
	currentPrefix := core.WorkspacePrefix(workspaceID) + core.CurrentNamespace + "/"
	if err := e.store.DeleteFolder(ctx, currentPrefix); err != nil {
		return fmt.Errorf("failed to clear current namespace: %w", err)
	}
	relative, err := e.store.List(ctx, snapshotPrefix)
	if err != nil {
		return fmt.Errorf("failed to list snapshot: %w", err)
	}
	for _, rel := range relative {
		content, err := e.store.Download(ctx, snapshotPrefix+rel)
		if err != nil {
			return fmt.Errorf("failed to copy %s: %w", rel, err)
		}
		if err := e.store.Upload(ctx, currentPrefix+rel, content, "text/plain"); err != nil {
			return fmt.Errorf("failed to copy %s: %w", rel, err)
		}
	}
	return nil
}
