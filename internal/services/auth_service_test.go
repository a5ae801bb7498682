package services

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func testSigner(token string) TokenSigner {
	return func(subject string, ttl time.Duration) (string, error) {
		return token, nil
	}
}

func TestIssueToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	svc := NewAuthService(string(hash), testSigner("tok123"), 30*time.Minute)

	res, err := svc.IssueToken("open-sesame")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if res.Token != "tok123" {
		t.Fatalf("token = %q, want tok123", res.Token)
	}
	if res.ExpiresIn != 30*time.Minute {
		t.Fatalf("expires_in = %v, want 30m", res.ExpiresIn)
	}
}

func TestIssueTokenWrongKey(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	svc := NewAuthService(string(hash), testSigner("tok123"), time.Hour)

	for _, key := range []string{"wrong", "", "  "} {
		_, err := svc.IssueToken(key)
		se, ok := AsServiceError(err)
		if !ok || se.Code != ErrorUnauthorized {
			t.Fatalf("IssueToken(%q) err = %v, want unauthorized", key, err)
		}
	}
}

func TestIssueTokenUnconfigured(t *testing.T) {
	svc := NewAuthService("", testSigner("tok123"), time.Hour)
	_, err := svc.IssueToken("anything")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("err = %v, want invalid", err)
	}
}

func TestNewAuthServiceDefaultTTL(t *testing.T) {
	svc := NewAuthService("hash", nil, 0)
	if svc.TokenTTL() != time.Hour {
		t.Fatalf("ttl = %v, want 1h", svc.TokenTTL())
	}
}
