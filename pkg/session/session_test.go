package session

import (
	"context"
	"testing"

	"memorylane/pkg/domain"
)

func TestMemoryStoreRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	token, err := store.NewSession(ctx, "u1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	userID, ok, err := store.UserByToken(ctx, token)
	if err != nil || !ok || userID != "u1" {
		t.Fatalf("lookup = (%q, %v, %v)", userID, ok, err)
	}

	if err := store.DeleteSession(ctx, token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.UserByToken(ctx, token); ok {
		t.Fatalf("token must be gone after delete")
	}
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	store := NewMemoryStore()
	if _, ok, err := store.UserByToken(context.Background(), "nope"); ok || err != nil {
		t.Fatalf("unknown token = (%v, %v)", ok, err)
	}
}

func TestBroadcasterDeliversInOrder(t *testing.T) {
	b := NewBroadcaster()
	var got []string
	b.Subscribe(func(ev Event) {
		if ev.SignedIn {
			got = append(got, "in:"+ev.Session.Token)
		} else {
			got = append(got, "out:"+ev.Session.Token)
		}
	})
	b.Subscribe(func(ev Event) { got = append(got, "second") })

	b.Publish(Event{SignedIn: true, Session: domain.Session{Token: "t1", UserID: "u1"}})
	b.Publish(Event{SignedIn: false, Session: domain.Session{Token: "t1", UserID: "u1"}})

	want := []string{"in:t1", "second", "out:t1", "second"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBroadcasterNoSubscribers(t *testing.T) {
	// Publishing into the void must not panic.
	NewBroadcaster().Publish(Event{SignedIn: true})
}
