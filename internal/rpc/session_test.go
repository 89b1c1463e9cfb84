package rpc

import (
	"testing"
	"time"

	"github.com/cicero-ai/nyx/internal/store"
)

func TestNewSessionUsesOverrideTimeoutWhenGiven(t *testing.T) {
	db := store.New(store.DatabaseTimeout{Duration: time.Minute})
	override := store.DatabaseTimeout{Duration: 5 * time.Second}
	s := newSession("db.nyx", [32]byte{}, db, &override, 0)

	if s.Timeout != override {
		t.Fatalf("expected session to use override timeout, got %+v", s.Timeout)
	}
	if s.ExpiresAt == nil {
		t.Fatal("expected ExpiresAt to be set for a non-Never timeout")
	}
}

func TestNewSessionFallsBackToDbDefaultTimeout(t *testing.T) {
	db := store.New(store.DatabaseTimeout{Never: true})
	s := newSession("db.nyx", [32]byte{}, db, nil, 0)

	if !s.Timeout.Never {
		t.Fatal("expected session to inherit the database's Never timeout")
	}
	if s.ExpiresAt != nil {
		t.Fatal("expected ExpiresAt to stay nil for a Never timeout")
	}
}

func TestRefreshClipboardNoopWhenTimeoutZero(t *testing.T) {
	s := &Session{ClipboardTimeout: 0}
	s.refreshClipboard()
	if s.ClipboardExpiresAt != nil {
		t.Fatal("expected no clipboard deadline when ClipboardTimeout is zero")
	}
}

func TestRefreshClipboardSetsDeadline(t *testing.T) {
	s := &Session{ClipboardTimeout: 10 * time.Second}
	s.refreshClipboard()
	if s.ClipboardExpiresAt == nil {
		t.Fatal("expected a clipboard deadline to be set")
	}
	if s.ClipboardExpiresAt.Before(time.Now()) {
		t.Fatal("expected the clipboard deadline to be in the future")
	}
}
