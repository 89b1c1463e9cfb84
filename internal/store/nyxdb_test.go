package store

import (
	"os"
	"strings"
	"testing"
	"time"

	nyxcrypto "github.com/cicero-ai/nyx/internal/crypto"
)

func TestCreateSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbfile := dir + "/container.nyx"

	db, err := Create(dbfile, "hunter2", DatabaseTimeout{Never: true})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := db.Users.Add("alice", &User{DisplayName: "alice", Username: "alice", Password: "p@ss"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	nPassword := nyxcrypto.NormalizePassword("hunter2")
	if err := db.Save(dbfile, nPassword, nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(dbfile, nPassword)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	alice, err := loaded.Users.Get("alice")
	if err != nil {
		t.Fatalf("expected alice to round-trip, got error: %v", err)
	}
	if alice.Password != "p@ss" {
		t.Fatalf("unexpected password after round trip: %q", alice.Password)
	}
}

func TestLoadRejectsWrongPassword(t *testing.T) {
	dir := t.TempDir()
	dbfile := dir + "/container.nyx"

	if _, err := Create(dbfile, "correct", DatabaseTimeout{Never: true}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	wrong := nyxcrypto.NormalizePassword("incorrect")
	if _, err := Load(dbfile, wrong); err == nil {
		t.Fatal("expected Load with wrong password to fail")
	}
}

func TestSavePreservesMasterKeyAcrossPasswordChange(t *testing.T) {
	dir := t.TempDir()
	dbfile := dir + "/container.nyx"

	db, err := Create(dbfile, "old-password", DatabaseTimeout{Never: true})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	oldPassword := nyxcrypto.NormalizePassword("old-password")
	phrase, err := nyxcrypto.GetBip39Words(mustRead(t, dbfile), "old-password")
	if err != nil {
		t.Fatalf("GetBip39Words failed: %v", err)
	}

	_, masterKey, err := nyxcrypto.ExtractMasterKey(mustRead(t, dbfile), oldPassword)
	if err != nil {
		t.Fatalf("ExtractMasterKey failed: %v", err)
	}

	newPassword := nyxcrypto.NormalizePassword("new-password")
	if err := db.Save(dbfile, newPassword, &masterKey); err != nil {
		t.Fatalf("Save with new password failed: %v", err)
	}

	phraseAfter, err := nyxcrypto.GetBip39Words(mustRead(t, dbfile), "new-password")
	if err != nil {
		t.Fatalf("GetBip39Words after password change failed: %v", err)
	}
	if strings.Join(phrase, " ") != strings.Join(phraseAfter, " ") {
		t.Fatal("recovery phrase changed after a password-only save, master key should be preserved")
	}

	if _, err := Load(dbfile, oldPassword); err == nil {
		t.Fatal("expected old password to no longer unlock the file")
	}
}

func TestParseDatabaseTimeout(t *testing.T) {
	cases := map[string]time.Duration{
		"30s": 30 * time.Second,
		"5m":  5 * time.Minute,
		"2h":  2 * time.Hour,
	}
	for input, want := range cases {
		got, err := ParseDatabaseTimeout(input)
		if err != nil {
			t.Fatalf("ParseDatabaseTimeout(%q) failed: %v", input, err)
		}
		if got.Never || got.Duration != want {
			t.Fatalf("ParseDatabaseTimeout(%q) = %+v, want Duration %v", input, got, want)
		}
	}

	never, err := ParseDatabaseTimeout("n")
	if err != nil || !never.Never {
		t.Fatalf("expected Never timeout for \"n\", got %+v err=%v", never, err)
	}

	if _, err := ParseDatabaseTimeout("bogus"); err == nil {
		t.Fatal("expected error for invalid duration string")
	}
}

func TestDbStatsCountsEntriesAndDirectories(t *testing.T) {
	db := New(DatabaseTimeout{Never: true})
	_ = db.Users.Add("alice", &User{DisplayName: "alice"})
	_ = db.SshKeys.Import("work/github", &SshKey{})
	_ = db.SshKeys.Import("work/gitlab", &SshKey{})
	_ = db.SshKeys.Import("personal", &SshKey{})

	stats := NewDbStats("test.nyx", db)
	if stats.Users[0] != 1 || stats.Users[1] != 0 {
		t.Fatalf("unexpected users stats: %v", stats.Users)
	}
	if stats.SshKeys[0] != 3 || stats.SshKeys[1] != 1 {
		t.Fatalf("unexpected ssh_keys stats: %v", stats.SshKeys)
	}
}

func TestSecureClearZeroesSensitiveFields(t *testing.T) {
	db := New(DatabaseTimeout{Never: true})
	_ = db.Users.Add("alice", &User{DisplayName: "alice", Password: "p@ss"})
	_ = db.SshKeys.Import("key", &SshKey{PrivateKey: []byte("private-bytes")})

	db.SecureClear()

	alice, _ := db.Users.Get("alice")
	if alice.Password != "" {
		t.Fatalf("expected password cleared, got %q", alice.Password)
	}
	key, _ := db.SshKeys.Files.Get("key")
	for _, b := range key.PrivateKey {
		if b != 0 {
			t.Fatal("expected private key bytes zeroed")
		}
	}
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s failed: %v", path, err)
	}
	return data
}
