package core

import "testing"

func TestGenerationKey(t *testing.T) {
	tests := []struct {
		name        string
		workspaceID string
		generation  string
		filePath    string
		want        string
	}{
		{"plain", "42", "01ABC", "src/main.go", "workspaces/42/01ABC/src/main.go"},
		{"current", "42", CurrentNamespace, "a.txt", "workspaces/42/current/a.txt"},
		{"leading slash cleaned", "42", "01ABC", "/src/a.ts", "workspaces/42/01ABC/src/a.ts"},
		{"dot segments cleaned", "42", "01ABC", "./src/../a.ts", "workspaces/42/01ABC/a.ts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerationKey(tt.workspaceID, tt.generation, tt.filePath); got != tt.want {
				t.Fatalf("GenerationKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIdentityIsZero(t *testing.T) {
	if !(Identity{}).IsZero() {
		t.Fatal("empty identity must be zero")
	}
	if (Identity{UserID: "u1"}).IsZero() {
		t.Fatal("populated identity must not be zero")
	}
}
