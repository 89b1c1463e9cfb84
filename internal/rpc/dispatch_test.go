package rpc

import (
	"strings"
	"testing"

	"github.com/cicero-ai/nyx/internal/store"
)

func newTestDb(t *testing.T) *store.NyxDb {
	t.Helper()
	return store.New(store.DatabaseTimeout{Never: true})
}

func TestDispatchUserCrudRoundTrip(t *testing.T) {
	db := newTestDb(t)

	res, err := dispatch(db, "test.nyx", "user", "new", []string{"github", `{"username":"me","password":"secret"}`})
	if err != nil {
		t.Fatalf("user.new failed: %v", err)
	}
	if !res.isModified {
		t.Fatal("user.new should mark the session modified")
	}

	if _, err := dispatch(db, "test.nyx", "user", "exists", []string{"github"}); err != nil {
		t.Fatalf("user.exists failed: %v", err)
	}

	got, err := dispatch(db, "test.nyx", "user", "get", []string{"github"})
	if err != nil {
		t.Fatalf("user.get failed: %v", err)
	}
	if got.isCopy {
		t.Fatal("user.get without a copy_flag should not mark the result clipboard-copyable")
	}
	if got.isModified {
		t.Fatal("user.get is a read and should never mark the session modified")
	}
	user, ok := got.value.(*store.User)
	if !ok || user.Username != "me" {
		t.Fatalf("unexpected get result: %+v", got.value)
	}

	gotCopy, err := dispatch(db, "test.nyx", "user", "get", []string{"github", "1"})
	if err != nil {
		t.Fatalf("user.get with copy_flag failed: %v", err)
	}
	if !gotCopy.isCopy {
		t.Fatal("user.get with copy_flag=1 should mark the result clipboard-copyable")
	}
	if gotCopy.isModified {
		t.Fatal("user.get with copy_flag=1 should still never mark the session modified")
	}

	if _, err := dispatch(db, "test.nyx", "user", "delete", []string{"github"}); err != nil {
		t.Fatalf("user.delete failed: %v", err)
	}
	if _, err := dispatch(db, "test.nyx", "user", "get", []string{"github"}); err == nil {
		t.Fatal("expected error getting a deleted entry")
	}
}

func TestDispatchUnknownNamespace(t *testing.T) {
	db := newTestDb(t)
	if _, err := dispatch(db, "test.nyx", "bogus", "new", nil); err == nil {
		t.Fatal("expected error for an unknown namespace")
	}
}

func TestDispatchUnknownVerb(t *testing.T) {
	db := newTestDb(t)
	if _, err := dispatch(db, "test.nyx", "user", "teleport", nil); err == nil {
		t.Fatal("expected error for an unknown verb")
	}
}

func TestDispatchStrSetCreatesThenUpdates(t *testing.T) {
	db := newTestDb(t)
	if _, err := dispatch(db, "test.nyx", "str", "set", []string{"note", `{"value":"one"}`}); err != nil {
		t.Fatalf("str.set create failed: %v", err)
	}
	if _, err := dispatch(db, "test.nyx", "str", "set", []string{"note", `{"value":"two"}`}); err != nil {
		t.Fatalf("str.set update failed: %v", err)
	}
	res, err := dispatch(db, "test.nyx", "str", "get", []string{"note"})
	if err != nil {
		t.Fatalf("str.get failed: %v", err)
	}
	if res.value.(*store.StrItem).Value != "two" {
		t.Fatalf("expected str.set to overwrite, got %+v", res.value)
	}
}

func TestDispatchSshImportRoundTrip(t *testing.T) {
	db := newTestDb(t)
	payload := `{"host":"example.com","username":"root"}`
	res, err := dispatch(db, "test.nyx", "ssh", "import", []string{"box", payload})
	if err != nil {
		t.Fatalf("ssh.import failed: %v", err)
	}
	key := res.value.(*store.SshKey)
	if key.Host != "example.com" {
		t.Fatalf("unexpected imported key: %+v", key)
	}

	if _, err := dispatch(db, "test.nyx", "ssh", "import", []string{"box", payload}); err == nil {
		t.Fatal("expected error importing a duplicate name")
	}
}

func TestDispatchSshCopyIsModifiedNotCopy(t *testing.T) {
	db := newTestDb(t)
	payload := `{"host":"example.com","username":"root"}`
	if _, err := dispatch(db, "test.nyx", "ssh", "import", []string{"box", payload}); err != nil {
		t.Fatalf("ssh.import failed: %v", err)
	}

	res, err := dispatch(db, "test.nyx", "ssh", "copy", []string{"box", "box2"})
	if err != nil {
		t.Fatalf("ssh.copy failed: %v", err)
	}
	if !res.isModified {
		t.Fatal("ssh.copy should mark the session modified, like every other namespace's copy")
	}
	if res.isCopy {
		t.Fatal("ssh.copy should not refresh the clipboard deadline")
	}
}

func TestDispatchSshGenerateProducesEd25519Keypair(t *testing.T) {
	db := newTestDb(t)
	res, err := dispatch(db, "test.nyx", "ssh", "generate", []string{"box"})
	if err != nil {
		t.Fatalf("ssh.generate failed: %v", err)
	}
	key := res.value.(*store.SshKey)
	if len(key.PrivateKey) == 0 {
		t.Fatal("expected a non-empty generated private key")
	}
	if !strings.HasPrefix(key.PublicKey, "ssh-ed25519 ") {
		t.Fatalf("expected an ssh-ed25519 authorized_keys line, got %q", key.PublicKey)
	}
	if !db.SshKeys.Files.Exists("box") {
		t.Fatal("generated key was not inserted into the collection")
	}
}

func TestDispatchOtpGenerateReturnsCopyableCode(t *testing.T) {
	db := newTestDb(t)
	if _, err := dispatch(db, "test.nyx", "otp", "new", []string{"gh", `{"secret_code":"JBSWY3DPEHPK3PXP"}`}); err != nil {
		t.Fatalf("otp.new failed: %v", err)
	}
	res, err := dispatch(db, "test.nyx", "otp", "generate", []string{"gh"})
	if err != nil {
		t.Fatalf("otp.generate failed: %v", err)
	}
	if !res.isCopy {
		t.Fatal("otp.generate should mark its result clipboard-copyable")
	}
}

func TestDispatchDbStatsAndHistory(t *testing.T) {
	db := newTestDb(t)
	_, _ = dispatch(db, "test.nyx", "user", "new", []string{"github", `{"username":"me"}`})

	statsRes, err := dispatch(db, "test.nyx", "db", "stats", nil)
	if err != nil {
		t.Fatalf("db.stats failed: %v", err)
	}
	stats, ok := statsRes.value.(store.DbStats)
	if !ok {
		t.Fatalf("expected a DbStats value, got %T", statsRes.value)
	}
	if stats.DbFile != "test.nyx" {
		t.Fatalf("expected DbStats to carry the dbfile, got %+v", stats)
	}

	historyRes, err := dispatch(db, "test.nyx", "db", "history", nil)
	if err != nil {
		t.Fatalf("db.history failed: %v", err)
	}
	if _, ok := historyRes.value.([]store.HistoryItem); !ok {
		t.Fatalf("expected a []HistoryItem value, got %T", historyRes.value)
	}
}
