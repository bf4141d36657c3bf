package realtime

import (
	"net/http"
	"time"

	"codearena-realtime/auth"
	"codearena-realtime/collab"
	"codearena-realtime/core"
	"codearena-realtime/locks"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

// Hub is the realtime server: it owns the connection table, the room
// registry and the lock manager, and routes every room-scoped event.
// Handlers stay short and never touch disk or the network; Git
// operations run on the HTTP API path, not here.
type Hub struct {
	io       *socketio.Server
	registry *Registry
	locks    *locks.Manager
	chat     *ChatLog
	text     collab.TextProvider
}

// NewHub builds the socket.io server and wires the lock manager's
// broadcasts back through the hub.
func NewHub(lockStore locks.Store, lockTimeout time.Duration, text collab.TextProvider) *Hub {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	h := &Hub{
		io:       socketio.NewServer(nil, opts),
		registry: NewRegistry(),
		chat:     NewChatLog(),
		text:     text,
	}
	h.locks = locks.NewManager(lockStore, h, lockTimeout)

	h.io.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		h.handleConnection(socket)
	})
	return h
}

// ServeHandler exposes the engine.io HTTP handler for mounting.
func (h *Hub) ServeHandler() http.Handler {
	return h.io.ServeHandler(nil)
}

// Close shuts the socket.io server down.
func (h *Hub) Close() {
	h.io.Close(nil)
}

func competitionRoom(competitionID string) socketio.Room {
	return socketio.Room("competition:" + competitionID)
}

func workspaceRoom(workspaceID string) socketio.Room {
	return socketio.Room("workspace:" + workspaceID)
}

// FileLocked implements locks.Notifier. Holding the lease is what
// "editing this file" means, so the lock transitions double as
// awareness signals for the text provider.
func (h *Hub) FileLocked(workspaceID string, lock core.FileLock) {
	h.io.To(workspaceRoom(workspaceID)).Emit("file-locked", map[string]any{
		"filePath": lock.FilePath,
		"lockedBy": lock.OwnerID,
		"username": lock.OwnerName,
	})
	h.text.PublishAwareness(collab.AwarenessUpdate{
		FilePath: lock.FilePath,
		UserID:   lock.OwnerID,
		Username: lock.OwnerName,
		Present:  true,
	})
}

// FileUnlocked implements locks.Notifier. Lease expiry arrives here
// too; it is a state transition, not an error.
func (h *Hub) FileUnlocked(workspaceID, filePath string) {
	h.io.To(workspaceRoom(workspaceID)).Emit("file-unlocked", map[string]any{
		"filePath": filePath,
	})
	h.text.PublishAwareness(collab.AwarenessUpdate{FilePath: filePath, Present: false})
}

// requireIdentity resolves the caller's identity or answers with an
// unauthorized payload. Hub operations never error across the wire.
func (h *Hub) requireIdentity(socket *socketio.Socket, operation string) (core.Identity, bool) {
	identity, ok := h.registry.Identity(socket.Id())
	if !ok {
		socket.Emit("unauthorized", map[string]any{"operation": operation})
	}
	return identity, ok
}

func (h *Hub) handleConnection(socket *socketio.Socket) {
	me := socket.Id()
	log := logrus.WithField("socketId", me)
	log.Debug("Socket connected")

	socket.On("authenticate", func(datas ...any) {
		payload := objectPayload(datas)
		identity := core.Identity{
			UserID:   strField(payload, "userId"),
			Username: strField(payload, "username"),
		}
		if auth.Enabled() {
			claims, err := auth.ParseJWT(strField(payload, "token"))
			if err != nil {
				log.WithField("error", err).Warn("Socket authentication rejected")
				socket.Emit("unauthorized", map[string]any{"operation": "authenticate"})
				return
			}
			identity = core.Identity{UserID: claims.Subject, Username: claims.Username}
		}
		if identity.IsZero() {
			socket.Emit("unauthorized", map[string]any{"operation": "authenticate"})
			return
		}
		h.registry.Authenticate(me, identity)
		log.WithField("userId", identity.UserID).Info("Socket authenticated")
		socket.Emit("authenticated", map[string]any{
			"userId":   identity.UserID,
			"username": identity.Username,
		})
	})

	socket.On("join-competition", func(datas ...any) {
		identity, ok := h.requireIdentity(socket, "join-competition")
		if !ok {
			return
		}
		competitionID := strField(objectPayload(datas), "competitionId")
		if competitionID == "" {
			return
		}
		participants := h.registry.JoinCompetition(me, competitionID, identity)
		socket.Join(competitionRoom(competitionID))
		log.WithFields(logrus.Fields{"competitionId": competitionID, "userId": identity.UserID}).Info("Joined competition")
		h.io.To(competitionRoom(competitionID)).Emit("participant-joined", map[string]any{
			"userId":       identity.UserID,
			"username":     identity.Username,
			"participants": participants,
			"count":        len(participants),
		})
	})

	socket.On("leave-competition", func(datas ...any) {
		identity, ok := h.requireIdentity(socket, "leave-competition")
		if !ok {
			return
		}
		competitionID := strField(objectPayload(datas), "competitionId")
		if competitionID == "" {
			return
		}
		socket.Leave(competitionRoom(competitionID))
		participants := h.registry.LeaveCompetition(me, competitionID)
		if participants == nil {
			return
		}
		h.io.To(competitionRoom(competitionID)).Emit("participant-left", map[string]any{
			"userId":       identity.UserID,
			"username":     identity.Username,
			"participants": participants,
			"count":        len(participants),
		})
	})

	socket.On("submit-code", func(datas ...any) {
		identity, ok := h.requireIdentity(socket, "submit-code")
		if !ok {
			return
		}
		payload := objectPayload(datas)
		competitionID := strField(payload, "competitionId")
		questionID := strField(payload, "questionId")
		if competitionID == "" || questionID == "" {
			return
		}
		// The notice deliberately excludes the submitted code: other
		// participants learn that a submission happened, never what it
		// contained.
		h.io.To(competitionRoom(competitionID)).Emit("submission-received", map[string]any{
			"userId":     identity.UserID,
			"username":   identity.Username,
			"questionId": questionID,
			"timestamp":  time.Now().UTC(),
		})
	})

	socket.On("join-workspace", func(datas ...any) {
		identity, ok := h.requireIdentity(socket, "join-workspace")
		if !ok {
			return
		}
		workspaceID := strField(objectPayload(datas), "workspaceId")
		if workspaceID == "" {
			return
		}
		members := h.registry.JoinWorkspace(me, workspaceID, identity)
		socket.Join(workspaceRoom(workspaceID))
		log.WithFields(logrus.Fields{"workspaceId": workspaceID, "userId": identity.UserID}).Info("Joined workspace")

		// The joiner alone gets the full lock table and the retained
		// chat history; everyone gets the membership update.
		socket.Emit("file-locks-state", map[string]any{
			"locks": h.locks.Snapshot(workspaceID),
		})
		socket.Emit("chat-history", map[string]any{
			"messages": h.chat.History(workspaceID),
		})
		h.io.To(workspaceRoom(workspaceID)).Emit("member-joined", map[string]any{
			"userId":   identity.UserID,
			"username": identity.Username,
			"members":  members,
			"count":    len(members),
		})
	})

	socket.On("leave-workspace", func(datas ...any) {
		identity, ok := h.requireIdentity(socket, "leave-workspace")
		if !ok {
			return
		}
		workspaceID := strField(objectPayload(datas), "workspaceId")
		if workspaceID == "" {
			return
		}
		socket.Leave(workspaceRoom(workspaceID))
		// Leaving the room forfeits any leases still held there; a
		// member who is gone cannot be editing.
		h.locks.ReleaseAllOwnedBy(workspaceID, identity)
		members := h.registry.LeaveWorkspace(me, workspaceID)
		if members == nil {
			return
		}
		h.io.To(workspaceRoom(workspaceID)).Emit("member-left", map[string]any{
			"userId":   identity.UserID,
			"username": identity.Username,
			"members":  members,
			"count":    len(members),
		})
	})

	socket.On("request-file-lock", func(datas ...any) {
		identity, ok := h.requireIdentity(socket, "request-file-lock")
		if !ok {
			return
		}
		payload := objectPayload(datas)
		workspaceID := strField(payload, "workspaceId")
		filePath := strField(payload, "filePath")
		if workspaceID == "" || filePath == "" {
			return
		}
		if !h.registry.InWorkspace(me, workspaceID) {
			return
		}
		result := h.locks.Request(workspaceID, filePath, identity)
		if result.Granted {
			// Grant broadcasts arrive via FileLocked; keep-alives are
			// silent room-wide, so the requester still gets an ack.
			socket.Emit("file-lock-granted", map[string]any{"filePath": filePath})
			return
		}
		socket.Emit("file-lock-denied", map[string]any{
			"filePath": filePath,
			"lockedBy": result.OwnerID,
			"username": result.OwnerName,
		})
	})

	socket.On("release-file-lock", func(datas ...any) {
		identity, ok := h.requireIdentity(socket, "release-file-lock")
		if !ok {
			return
		}
		payload := objectPayload(datas)
		workspaceID := strField(payload, "workspaceId")
		filePath := strField(payload, "filePath")
		if workspaceID == "" || filePath == "" {
			return
		}
		h.locks.Release(workspaceID, filePath, identity)
	})

	socket.On("file-change", func(datas ...any) {
		identity, ok := h.requireIdentity(socket, "file-change")
		if !ok {
			return
		}
		payload := objectPayload(datas)
		workspaceID := strField(payload, "workspaceId")
		filePath := strField(payload, "filePath")
		if workspaceID == "" || filePath == "" {
			return
		}
		// Advisory live preview for other members. The authoritative
		// save goes through the persistence API; dropping this frame
		// loses nothing, hence volatile.
		if text, err := h.text.SharedText(workspaceID + "/" + filePath); err == nil {
			_ = text.Apply([]byte(strField(payload, "content")))
		}
		socket.Volatile().Broadcast().To(workspaceRoom(workspaceID)).Emit("file-changed", map[string]any{
			"filePath":  filePath,
			"content":   strField(payload, "content"),
			"changedBy": identity.UserID,
		})
	})

	socket.On("workspace-chat", func(datas ...any) {
		identity, ok := h.requireIdentity(socket, "workspace-chat")
		if !ok {
			return
		}
		payload := objectPayload(datas)
		workspaceID := strField(payload, "workspaceId")
		body := strField(payload, "message")
		if workspaceID == "" || body == "" {
			return
		}
		message := core.ChatMessage{
			WorkspaceID:    workspaceID,
			SenderID:       identity.UserID,
			SenderUsername: identity.Username,
			Body:           body,
			Timestamp:      time.Now().UTC(),
		}
		h.chat.Append(workspaceID, message)
		h.io.To(workspaceRoom(workspaceID)).Emit("chat-message", map[string]any{
			"userId":    message.SenderID,
			"username":  message.SenderUsername,
			"message":   message.Body,
			"timestamp": message.Timestamp,
		})
	})

	socket.On("heartbeat", func(datas ...any) {
		socket.Emit("heartbeat-ack", map[string]any{"timestamp": time.Now().UTC()})
	})

	h.registerSignaling(socket)

	socket.On("disconnecting", func(datas ...any) {
		identity, competitions, workspaces := h.registry.Disconnect(me)
		log.WithField("userId", identity.UserID).Info("Socket disconnecting")

		// Lease ownership is not tied to room membership, so the sweep
		// covers every workspace, including ones the socket already
		// left. One file-unlocked per path, on the normal path.
		if !identity.IsZero() {
			h.locks.ReleaseAllHeldBy(identity)
		}
		for workspaceID, members := range workspaces {
			h.io.To(workspaceRoom(workspaceID)).Emit("member-left", map[string]any{
				"userId":   identity.UserID,
				"username": identity.Username,
				"members":  members,
				"count":    len(members),
			})
		}
		for competitionID, participants := range competitions {
			h.io.To(competitionRoom(competitionID)).Emit("participant-left", map[string]any{
				"userId":       identity.UserID,
				"username":     identity.Username,
				"participants": participants,
				"count":        len(participants),
			})
		}
	})

	socket.On("disconnect", func(datas ...any) {
		socket.RemoveAllListeners("")
		socket.Disconnect(true)
	})
}
