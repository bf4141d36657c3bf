package auth

import (
	"testing"
	"time"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	Init()

	token, err := IssueToken("user-7", "Ada", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseJWT(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "user-7" {
		t.Fatalf("expected subject user-7, got %q", claims.Subject)
	}
	if claims.Username != "Ada" {
		t.Fatalf("expected username Ada, got %q", claims.Username)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	Init()

	token, err := IssueToken("user-7", "Ada", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-a")
	Init()
	token, err := IssueToken("user-7", "Ada", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	t.Setenv("JWT_SECRET", "secret-b")
	Init()
	if _, err := ParseJWT(token); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}
