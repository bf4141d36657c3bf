package files

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"codearena-realtime/core"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// Handlers for the workspace "current" namespace: the authoritative
// single-file save path. Generation snapshots are written only by the
// sync engine and are not reachable here.

func currentKey(workspaceID, filePath string) string {
	return core.GenerationKey(workspaceID, core.CurrentNamespace, filePath)
}

func filePathParam(r *http.Request) string {
	return strings.TrimPrefix(chi.URLParam(r, "*"), "/")
}

// HandleList returns every file path in the workspace's current
// namespace.
func HandleList(store core.FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := chi.URLParam(r, "workspaceID")
		prefix := core.WorkspacePrefix(workspaceID) + core.CurrentNamespace + "/"

		paths, err := store.List(r.Context(), prefix)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"workspaceId": workspaceID,
				"error":       err,
			}).Error("Failed to list workspace files")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to list workspace files"})
			return
		}
		render.JSON(w, r, map[string]any{"files": paths, "count": len(paths)})
	}
}

// HandleGet downloads one file from the current namespace.
func HandleGet(store core.FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := chi.URLParam(r, "workspaceID")
		filePath := filePathParam(r)
		if filePath == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "File path is required"})
			return
		}

		content, err := store.Download(r.Context(), currentKey(workspaceID, filePath))
		if err != nil {
			if errors.Is(err, core.ErrKeyNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"error": "File not found", "filePath": filePath})
				return
			}
			logrus.WithFields(logrus.Fields{
				"workspaceId": workspaceID,
				"filePath":    filePath,
				"error":       err,
			}).Error("Failed to download file")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to download file"})
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write(content)
	}
}

// HandleSave overwrites one file in the current namespace with the
// request body.
func HandleSave(store core.FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := chi.URLParam(r, "workspaceID")
		filePath := filePathParam(r)
		if filePath == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "File path is required"})
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to read request body"})
			return
		}
		defer r.Body.Close()

		if err := store.Upload(r.Context(), currentKey(workspaceID, filePath), body, "text/plain"); err != nil {
			logrus.WithFields(logrus.Fields{
				"workspaceId": workspaceID,
				"filePath":    filePath,
				"error":       err,
			}).Error("Failed to save file")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to save file"})
			return
		}
		render.JSON(w, r, map[string]string{"status": "saved", "filePath": filePath})
	}
}

// HandleDelete removes one file from the current namespace.
func HandleDelete(store core.FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := chi.URLParam(r, "workspaceID")
		filePath := filePathParam(r)
		if filePath == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "File path is required"})
			return
		}

		if err := store.Delete(r.Context(), currentKey(workspaceID, filePath)); err != nil {
			logrus.WithFields(logrus.Fields{
				"workspaceId": workspaceID,
				"filePath":    filePath,
				"error":       err,
			}).Error("Failed to delete file")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to delete file"})
			return
		}
		render.JSON(w, r, map[string]string{"status": "deleted", "filePath": filePath})
	}
}
