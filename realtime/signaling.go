package realtime

import (
	socketio "github.com/zishang520/socket.io/v2/socket"
)

// Signaling relays WebRTC negotiation envelopes between workspace
// members. Payloads are opaque and forwarded verbatim; nothing is
// buffered or replayed, so a late joiner never sees a past offer.
//
// An offer is broadcast to the room (any member may accept); answers
// and ICE candidates are unicast back to the socket named in "to".

func (h *Hub) registerSignaling(socket *socketio.Socket) {
	me := socket.Id()

	socket.On("call-offer", func(datas ...any) {
		identity, ok := h.requireIdentity(socket, "call-offer")
		if !ok {
			return
		}
		payload := objectPayload(datas)
		workspaceID := strField(payload, "workspaceId")
		if workspaceID == "" || !h.registry.InWorkspace(me, workspaceID) {
			return
		}
		socket.Broadcast().To(workspaceRoom(workspaceID)).Emit("call-offer", map[string]any{
			"from":     string(me),
			"userId":   identity.UserID,
			"username": identity.Username,
			"payload":  payload["payload"],
		})
	})

	socket.On("call-answer", func(datas ...any) {
		h.relayToPeer(socket, "call-answer", datas)
	})

	socket.On("call-candidate", func(datas ...any) {
		h.relayToPeer(socket, "call-candidate", datas)
	})
}

// relayToPeer forwards an envelope to the single socket named in the
// "to" field. Every socket sits in its own id-room, which gives the
// unicast address.
func (h *Hub) relayToPeer(socket *socketio.Socket, event string, datas []any) {
	identity, ok := h.requireIdentity(socket, event)
	if !ok {
		return
	}
	payload := objectPayload(datas)
	target := strField(payload, "to")
	if target == "" {
		return
	}
	h.io.To(socketio.Room(target)).Emit(event, map[string]any{
		"from":     string(socket.Id()),
		"userId":   identity.UserID,
		"username": identity.Username,
		"payload":  payload["payload"],
	})
}
