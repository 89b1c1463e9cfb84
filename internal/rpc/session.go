package rpc

import (
	"time"

	"github.com/cicero-ai/nyx/internal/store"
)

// Session tracks the daemon's single logged-in session: the unlocked
// database's file path and normalized password, its inactivity deadline, and the
// clipboard auto-clear deadline, the analogue of rpc/daemon.rs's
// RpcSession.
type Session struct {
	DbFile             string
	Lock               [32]byte
	IsModified         bool
	Timeout            store.DatabaseTimeout
	ClipboardTimeout   time.Duration
	ExpiresAt          *time.Time
	ClipboardExpiresAt *time.Time
}

// newSession builds a Session the way RpcSession::new resolves its
// timeout: an explicit CLI/config override takes precedence over the
// database's own DefaultTimeout. lock is the normalized password used to
// re-wrap the master key on every savedb(), the analogue of RpcSession's
// own "lock: [u8; 32]" field.
func newSession(dbfile string, lock [32]byte, db *store.NyxDb, override *store.DatabaseTimeout, clipboardTimeout time.Duration) *Session {
	timeout := db.DefaultTimeout
	if override != nil {
		timeout = *override
	}

	s := &Session{
		DbFile:           dbfile,
		Lock:             lock,
		Timeout:          timeout,
		ClipboardTimeout: clipboardTimeout,
	}
	s.refreshExpiry()
	return s
}

func (s *Session) refreshExpiry() {
	if s.Timeout.Never {
		s.ExpiresAt = nil
		return
	}
	deadline := time.Now().Add(s.Timeout.Duration)
	s.ExpiresAt = &deadline
}

func (s *Session) refreshClipboard() {
	if s.ClipboardTimeout <= 0 {
		return
	}
	deadline := time.Now().Add(s.ClipboardTimeout)
	s.ClipboardExpiresAt = &deadline
}
