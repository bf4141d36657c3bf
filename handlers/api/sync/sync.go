package sync

import (
	"encoding/json"
	"net/http"

	"codearena-realtime/gitsync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type cloneRequest struct {
	RepoURL  string `json:"repoUrl"`
	Branch   string `json:"branch"`
	Token    string `json:"token,omitempty"`
	Preserve bool   `json:"preserve,omitempty"`
}

type pushRequest struct {
	RepoURL       string `json:"repoUrl"`
	Branch        string `json:"branch"`
	Token         string `json:"token,omitempty"`
	CommitMessage string `json:"commitMessage"`
	StorageKey    string `json:"storageKey"`
}

type pullRequest struct {
	RepoURL            string `json:"repoUrl"`
	Branch             string `json:"branch"`
	Token              string `json:"token,omitempty"`
	ConfirmDestructive bool   `json:"confirmDestructive"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Invalid request body"})
		return false
	}
	return true
}

// HandleClone triggers a shallow clone of the remote into a fresh
// storage generation. Long-running; honors request cancellation.
func HandleClone(engine *gitsync.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := chi.URLParam(r, "workspaceID")
		var req cloneRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.RepoURL == "" || req.Branch == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "repoUrl and branch are required"})
			return
		}

		result := engine.Clone(r.Context(), gitsync.CloneOptions{
			RepoURL:     req.RepoURL,
			Branch:      req.Branch,
			WorkspaceID: workspaceID,
			Token:       req.Token,
			Preserve:    req.Preserve,
		})
		if !result.Success {
			logrus.WithFields(logrus.Fields{
				"workspaceId": workspaceID,
				"error":       result.Error,
			}).Error("Clone failed")
			render.Status(r, http.StatusBadGateway)
		}
		render.JSON(w, r, result)
	}
}

// HandlePush commits the stored file list and pushes it to the remote.
func HandlePush(engine *gitsync.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := chi.URLParam(r, "workspaceID")
		var req pushRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.RepoURL == "" || req.Branch == "" || req.StorageKey == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "repoUrl, branch and storageKey are required"})
			return
		}

		result := engine.Push(r.Context(), gitsync.PushOptions{
			RepoURL:       req.RepoURL,
			Branch:        req.Branch,
			WorkspaceID:   workspaceID,
			Token:         req.Token,
			CommitMessage: req.CommitMessage,
			StorageKey:    req.StorageKey,
		})
		if !result.Success {
			logrus.WithFields(logrus.Fields{
				"workspaceId": workspaceID,
				"error":       result.Error,
			}).Error("Push failed")
			render.Status(r, http.StatusBadGateway)
		}
		render.JSON(w, r, result)
	}
}

// HandlePull re-clones the remote and overwrites the workspace's
// current namespace. This discards unpushed edits, so the caller must
// acknowledge the destructive semantics explicitly.
func HandlePull(engine *gitsync.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := chi.URLParam(r, "workspaceID")
		var req pullRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.RepoURL == "" || req.Branch == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "repoUrl and branch are required"})
			return
		}
		if !req.ConfirmDestructive {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, map[string]string{
				"error": "pull overwrites the workspace with the remote's content and discards unpushed edits; set confirmDestructive to proceed",
			})
			return
		}

		result := engine.Pull(r.Context(), gitsync.PullOptions{
			RepoURL:     req.RepoURL,
			Branch:      req.Branch,
			WorkspaceID: workspaceID,
			Token:       req.Token,
		})
		if !result.Success {
			logrus.WithFields(logrus.Fields{
				"workspaceId": workspaceID,
				"error":       result.Error,
			}).Error("Pull failed")
			render.Status(r, http.StatusBadGateway)
		}
		render.JSON(w, r, result)
	}
}
