package realtime

import "testing"

func TestPayloadHelpersTolerateMalformedInput(t *testing.T) {
	if payload := objectPayload(nil); payload != nil {
		t.Fatal("expected nil for no arguments")
	}
	if payload := objectPayload([]any{"not an object"}); payload != nil {
		t.Fatal("expected nil for non-object argument")
	}
	if got := strField(nil, "x"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := strField(map[string]any{"x": 7}, "x"); got != "" {
		t.Fatalf("expected empty string for non-string field, got %q", got)
	}
}

func TestPayloadHelpersExtractFields(t *testing.T) {
	payload := objectPayload([]any{map[string]any{
		"workspaceId": "42",
	}})
	if got := strField(payload, "workspaceId"); got != "42" {
		t.Fatalf("expected 42, got %q", got)
	}
}
