package crypto

import (
	"bytes"
	"os"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	password := NormalizePassword("correct horse battery staple")
	message := []byte("the quick brown fox jumps over the lazy dog")

	sealed, err := Encrypt(message, password)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if len(sealed) != headerSize+len(message)+16 {
		t.Fatalf("unexpected sealed length: got %d", len(sealed))
	}

	plaintext, err := Decrypt(sealed, password)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(plaintext, message) {
		t.Fatalf("round trip mismatch: got %q want %q", plaintext, message)
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	password := NormalizePassword("real-password")
	wrong := NormalizePassword("wrong-password")

	sealed, err := Encrypt([]byte("secret"), password)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if _, err := Decrypt(sealed, wrong); err == nil {
		t.Fatal("expected decrypt with wrong password to fail")
	}
}

func TestDecryptRejectsShortPayload(t *testing.T) {
	if _, err := Decrypt([]byte{0x43, 0x01, 0x02}, NormalizePassword("x")); err == nil {
		t.Fatal("expected error on too-short payload")
	}
}

func TestDecryptRejectsBadPrefix(t *testing.T) {
	password := NormalizePassword("p")
	sealed, err := Encrypt([]byte("hi"), password)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	sealed[0] = 0x00
	if _, err := Decrypt(sealed, password); err == nil {
		t.Fatal("expected error on bad prefix byte")
	}
}

func TestUpdateExistingFilePreservesMasterKeyAcrossPasswordChange(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/container.bin"

	oldPassword := NormalizePassword("old-password")
	newPassword := NormalizePassword("new-password")

	sealed, err := Encrypt([]byte("version one"), oldPassword)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if err := os.WriteFile(path, sealed, 0600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_, masterKeyBefore, err := ExtractMasterKey(sealed, oldPassword)
	if err != nil {
		t.Fatalf("ExtractMasterKey failed: %v", err)
	}

	// A password change re-seals the same master key under the new
	// password; the later UpdateExistingFile save must keep that master key.
	rewrapped, err := EncryptWithMasterKey([]byte("version one"), newPassword, masterKeyBefore)
	if err != nil {
		t.Fatalf("EncryptWithMasterKey failed: %v", err)
	}
	if err := os.WriteFile(path, rewrapped, 0600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if err := UpdateExistingFile(path, []byte("version two"), newPassword); err != nil {
		t.Fatalf("UpdateExistingFile failed (unexpected password mismatch): %v", err)
	}

	updated, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	_, masterKeyAfter, err := ExtractMasterKey(updated, newPassword)
	if err != nil {
		t.Fatalf("ExtractMasterKey after update failed: %v", err)
	}
	if masterKeyBefore != masterKeyAfter {
		t.Fatal("master key changed across UpdateExistingFile, BIP-39 recovery phrase would be invalidated")
	}

	plaintext, err := Decrypt(updated, newPassword)
	if err != nil {
		t.Fatalf("Decrypt after update failed: %v", err)
	}
	if !bytes.Equal(plaintext, []byte("version two")) {
		t.Fatalf("unexpected plaintext after update: %q", plaintext)
	}
}

func TestGetNonceReusesPrevious(t *testing.T) {
	first := GetNonce(nil)
	second := GetNonce(&first)
	if first != second {
		t.Fatal("GetNonce with a previous nonce should return it unchanged")
	}
}
