package realtime

import (
	"sync"

	"codearena-realtime/core"
)

const maxChatMessagesPerRoom = 200

// ChatLog keeps a bounded, arrival-ordered history per workspace.
// Durable chat persistence lives in the external data store; this
// cache only serves the live session and never gates the relay.
type ChatLog struct {
	mu       sync.RWMutex
	messages map[string][]core.ChatMessage
}

func NewChatLog() *ChatLog {
	return &ChatLog{messages: make(map[string][]core.ChatMessage)}
}

// Append records a message, evicting the oldest entries past the cap.
func (c *ChatLog) Append(workspaceID string, message core.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := append(c.messages[workspaceID], message)
	if len(history) > maxChatMessagesPerRoom {
		history = history[len(history)-maxChatMessagesPerRoom:]
	}
	c.messages[workspaceID] = history
}

// History returns a copy of the room's retained messages in arrival
// order.
func (c *ChatLog) History(workspaceID string) []core.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	history := c.messages[workspaceID]
	out := make([]core.ChatMessage, len(history))
	copy(out, history)
	return out
}
