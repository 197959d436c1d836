package session

import (
	"context"
	"testing"
	"time"
)

func TestJWTStoreRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := NewJWTStore("test-secret", time.Hour)

	token, err := store.NewSession(ctx, "u1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	userID, ok, err := store.UserByToken(ctx, token)
	if err != nil || !ok || userID != "u1" {
		t.Fatalf("lookup = (%q, %v, %v)", userID, ok, err)
	}
}

func TestJWTStoreRejectsWrongSecret(t *testing.T) {
	ctx := context.Background()
	issuer := NewJWTStore("secret-a", time.Hour)
	verifier := NewJWTStore("secret-b", time.Hour)

	token, err := issuer.NewSession(ctx, "u1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, err := verifier.UserByToken(ctx, token); ok || err != nil {
		t.Fatalf("forged token accepted: (%v, %v)", ok, err)
	}
}

func TestJWTStoreRejectsExpiredToken(t *testing.T) {
	ctx := context.Background()
	store := NewJWTStore("test-secret", -time.Minute)

	token, err := store.NewSession(ctx, "u1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, err := store.UserByToken(ctx, token); ok || err != nil {
		t.Fatalf("expired token must read as absent: (%v, %v)", ok, err)
	}
}

func TestJWTStoreRejectsGarbage(t *testing.T) {
	store := NewJWTStore("test-secret", time.Hour)
	if _, ok, err := store.UserByToken(context.Background(), "not-a-jwt"); ok || err != nil {
		t.Fatalf("garbage token: (%v, %v)", ok, err)
	}
}
