package realtime

import (
	"fmt"
	"testing"
	"time"

	"codearena-realtime/core"
)

func TestChatHistoryKeepsArrivalOrder(t *testing.T) {
	log := NewChatLog()

	for i := 0; i < 3; i++ {
		log.Append("42", core.ChatMessage{
			WorkspaceID: "42",
			SenderID:    "ada",
			Body:        fmt.Sprintf("message %d", i),
			Timestamp:   time.Now().UTC(),
		})
	}

	history := log.History("42")
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	for i, msg := range history {
		if msg.Body != fmt.Sprintf("message %d", i) {
			t.Fatalf("order broken at %d: %q", i, msg.Body)
		}
	}
}

func TestChatHistoryIsBounded(t *testing.T) {
	log := NewChatLog()

	for i := 0; i < maxChatMessagesPerRoom+50; i++ {
		log.Append("42", core.ChatMessage{Body: fmt.Sprintf("m%d", i)})
	}

	history := log.History("42")
	if len(history) != maxChatMessagesPerRoom {
		t.Fatalf("expected %d retained messages, got %d", maxChatMessagesPerRoom, len(history))
	}
	if history[0].Body != "m50" {
		t.Fatalf("expected oldest retained to be m50, got %q", history[0].Body)
	}
}

func TestChatRoomsAreIsolated(t *testing.T) {
	log := NewChatLog()
	log.Append("a", core.ChatMessage{Body: "for a"})
	log.Append("b", core.ChatMessage{Body: "for b"})

	if history := log.History("a"); len(history) != 1 || history[0].Body != "for a" {
		t.Fatalf("unexpected history for room a: %+v", history)
	}
}
