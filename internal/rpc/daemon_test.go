package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cicero-ai/nyx/internal/clipboard"
	"github.com/cicero-ai/nyx/internal/store"
)

// newTestDaemon builds a Daemon wired to an in-memory database, without
// ever calling Start (which would bind a real port) or any path that
// reaches shutdown's os.Exit.
func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	db := store.New(store.DatabaseTimeout{Never: true})
	return NewDaemon(db, "test.nyx", [32]byte{}, nil, 0, clipboard.Discard{})
}

func postRPC(t *testing.T, srv *httptest.Server, req Request) response {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return decoded
}

func TestServeHTTPRoundTripsAMutatingCall(t *testing.T) {
	d := newTestDaemon(t)
	srv := httptest.NewServer(http.HandlerFunc(d.serveHTTP))
	defer srv.Close()

	resp := postRPC(t, srv, Request{
		ID:     1,
		Method: "user.new",
		Params: []string{"github", `{"username":"me","password":"secret"}`},
	})
	if resp.Status != "ok" {
		t.Fatalf("expected ok status, got %+v", resp)
	}

	d.sessionMu.Lock()
	modified := d.session.IsModified
	d.sessionMu.Unlock()
	if modified {
		t.Fatal("expected IsModified to be cleared after a successful savedb")
	}
}

func TestServeHTTPDoesNotSaveOrMarkModifiedOnARead(t *testing.T) {
	d := newTestDaemon(t)
	srv := httptest.NewServer(http.HandlerFunc(d.serveHTTP))
	defer srv.Close()

	postRPC(t, srv, Request{
		ID:     1,
		Method: "user.new",
		Params: []string{"github", `{"username":"me","password":"secret"}`},
	})

	resp := postRPC(t, srv, Request{
		ID:     2,
		Method: "user.get",
		Params: []string{"github"},
	})
	if resp.Status != "ok" {
		t.Fatalf("expected ok status, got %+v", resp)
	}

	d.sessionMu.Lock()
	modified := d.session.IsModified
	d.sessionMu.Unlock()
	if modified {
		t.Fatal("expected a read-only verb to never mark the session modified")
	}
}

func TestServeHTTPRejectsMalformedMethod(t *testing.T) {
	d := newTestDaemon(t)
	srv := httptest.NewServer(http.HandlerFunc(d.serveHTTP))
	defer srv.Close()

	resp := postRPC(t, srv, Request{ID: 1, Method: "nodothere"})
	if resp.Status != "error" {
		t.Fatalf("expected an error status for a method with no namespace, got %+v", resp)
	}
}

func TestServeHTTPRejectsMalformedBody(t *testing.T) {
	d := newTestDaemon(t)
	srv := httptest.NewServer(http.HandlerFunc(d.serveHTTP))
	defer srv.Close()

	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 500 {
		t.Fatalf("expected the fixed 500 status for an invalid body, got %d", resp.StatusCode)
	}
}

func TestUpdateSessionRefreshesClipboardOnlyWhenCopied(t *testing.T) {
	d := newTestDaemon(t)
	d.session.ClipboardTimeout = 10 * time.Second

	d.updateSession(result{isCopy: true})
	if d.session.ClipboardExpiresAt == nil {
		t.Fatal("expected a clipboard deadline after a copy result")
	}

	d.session.ClipboardExpiresAt = nil
	d.updateSession(result{})
	if d.session.ClipboardExpiresAt != nil {
		t.Fatal("expected no clipboard deadline for a non-copy result")
	}
}

func TestCheckTimerClearsExpiredClipboard(t *testing.T) {
	d := newTestDaemon(t)
	past := time.Now().Add(-time.Second)
	d.session.ClipboardExpiresAt = &past

	cleared := false
	d.clipboard = clipboardFunc(func(string) error { cleared = true; return nil })

	d.checkTimer()
	if !cleared {
		t.Fatal("expected checkTimer to clear an expired clipboard deadline")
	}
	if d.session.ClipboardExpiresAt != nil {
		t.Fatal("expected ClipboardExpiresAt to be reset after clearing")
	}
}

type clipboardFunc func(string) error

func (f clipboardFunc) Copy(text string) error { return f(text) }
