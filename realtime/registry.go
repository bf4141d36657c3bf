package realtime

import (
	"sync"

	"codearena-realtime/core"

	socketio "github.com/zishang520/socket.io/v2/socket"
)

type (
	// Member is one workspace room entry as seen by other members.
	Member struct {
		UserID   string `json:"userId"`
		Username string `json:"username"`
		IsOnline bool   `json:"isOnline"`
	}

	// Registry owns every piece of hub state: which connection carries
	// which identity and who is in which room. Rooms are created
	// lazily on first join and dropped when membership drains to zero;
	// handlers receive the registry by reference, never through
	// package globals.
	Registry struct {
		mu           sync.RWMutex
		identities   map[socketio.SocketId]core.Identity
		competitions map[string]map[socketio.SocketId]core.Identity
		workspaces   map[string]map[socketio.SocketId]Member
	}
)

func NewRegistry() *Registry {
	return &Registry{
		identities:   make(map[socketio.SocketId]core.Identity),
		competitions: make(map[string]map[socketio.SocketId]core.Identity),
		workspaces:   make(map[string]map[socketio.SocketId]Member),
	}
}

// Authenticate attaches an identity to a connection. Idempotent;
// re-authentication replaces the previous identity.
func (r *Registry) Authenticate(id socketio.SocketId, identity core.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identities[id] = identity
}

// Identity returns the identity attached to a connection, if any.
func (r *Registry) Identity(id socketio.SocketId) (core.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.identities[id]
	return identity, ok
}

// JoinCompetition adds the connection to a competition room and
// returns the updated participant list.
func (r *Registry) JoinCompetition(id socketio.SocketId, competitionID string, identity core.Identity) []core.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.competitions[competitionID]
	if !ok {
		room = make(map[socketio.SocketId]core.Identity)
		r.competitions[competitionID] = room
	}
	room[id] = identity
	return competitionParticipants(room)
}

// LeaveCompetition removes the connection; leaving an unknown room is
// a no-op. The remaining participant list is returned.
func (r *Registry) LeaveCompetition(id socketio.SocketId, competitionID string) []core.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveCompetitionLocked(id, competitionID)
}

func (r *Registry) leaveCompetitionLocked(id socketio.SocketId, competitionID string) []core.Identity {
	room, ok := r.competitions[competitionID]
	if !ok {
		return nil
	}
	delete(room, id)
	if len(room) == 0 {
		delete(r.competitions, competitionID)
		return []core.Identity{}
	}
	return competitionParticipants(room)
}

// JoinWorkspace adds the connection to a workspace room and returns
// the updated member list.
func (r *Registry) JoinWorkspace(id socketio.SocketId, workspaceID string, identity core.Identity) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.workspaces[workspaceID]
	if !ok {
		room = make(map[socketio.SocketId]Member)
		r.workspaces[workspaceID] = room
	}
	room[id] = Member{UserID: identity.UserID, Username: identity.Username, IsOnline: true}
	return workspaceMembers(room)
}

// LeaveWorkspace removes the connection; leaving an unknown room is a
// no-op. The remaining member list is returned.
func (r *Registry) LeaveWorkspace(id socketio.SocketId, workspaceID string) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveWorkspaceLocked(id, workspaceID)
}

func (r *Registry) leaveWorkspaceLocked(id socketio.SocketId, workspaceID string) []Member {
	room, ok := r.workspaces[workspaceID]
	if !ok {
		return nil
	}
	delete(room, id)
	if len(room) == 0 {
		delete(r.workspaces, workspaceID)
		return []Member{}
	}
	return workspaceMembers(room)
}

// InWorkspace reports whether the connection is a member of the room.
func (r *Registry) InWorkspace(id socketio.SocketId, workspaceID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.workspaces[workspaceID][id]
	return ok
}

// Disconnect removes the connection from every room and forgets its
// identity. It returns the room ids the connection belonged to and the
// surviving member lists, so the hub can emit the membership updates
// and release the identity's locks.
func (r *Registry) Disconnect(id socketio.SocketId) (identity core.Identity, competitions map[string][]core.Identity, workspaces map[string][]Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity = r.identities[id]
	delete(r.identities, id)

	competitions = make(map[string][]core.Identity)
	for competitionID, room := range r.competitions {
		if _, ok := room[id]; ok {
			competitions[competitionID] = r.leaveCompetitionLocked(id, competitionID)
		}
	}
	workspaces = make(map[string][]Member)
	for workspaceID, room := range r.workspaces {
		if _, ok := room[id]; ok {
			workspaces[workspaceID] = r.leaveWorkspaceLocked(id, workspaceID)
		}
	}
	return identity, competitions, workspaces
}

func competitionParticipants(room map[socketio.SocketId]core.Identity) []core.Identity {
	out := make([]core.Identity, 0, len(room))
	for _, identity := range room {
		out = append(out, identity)
	}
	return out
}

func workspaceMembers(room map[socketio.SocketId]Member) []Member {
	out := make([]Member, 0, len(room))
	for _, member := range room {
		out = append(out, member)
	}
	return out
}
