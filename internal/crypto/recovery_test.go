package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func TestBip39RecoveryCycle(t *testing.T) {
	password := NormalizePassword("forgettable-password")
	message := []byte("ssh private key material goes here")

	sealed, err := Encrypt(message, password)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	phrase, err := GetBip39Words(sealed, "forgettable-password")
	if err != nil {
		t.Fatalf("GetBip39Words failed: %v", err)
	}
	if len(phrase) != 24 {
		t.Fatalf("expected 24-word phrase, got %d words", len(phrase))
	}

	recovered, masterKey, err := RestoreFromBip39Words(sealed, strings.Join(phrase, " "))
	if err != nil {
		t.Fatalf("RestoreFromBip39Words failed: %v", err)
	}
	if !bytes.Equal(recovered, message) {
		t.Fatalf("recovered plaintext mismatch: got %q want %q", recovered, message)
	}

	// Reseal under a brand new password, same master key, and confirm the
	// phrase still unlocks it -- the recovery phrase survives password
	// rotation because it encodes the master key, not the password.
	newPassword := NormalizePassword("new-password-after-reset")
	resealed, err := EncryptWithMasterKey(message, newPassword, masterKey)
	if err != nil {
		t.Fatalf("EncryptWithMasterKey failed: %v", err)
	}

	phraseAfter, err := GetBip39Words(resealed, "new-password-after-reset")
	if err != nil {
		t.Fatalf("GetBip39Words after reseal failed: %v", err)
	}
	if strings.Join(phrase, " ") != strings.Join(phraseAfter, " ") {
		t.Fatal("recovery phrase changed after resealing under a new password with the same master key")
	}
}

func TestRestoreFromBip39WordsRejectsGarbledPhrase(t *testing.T) {
	password := NormalizePassword("x")
	sealed, err := Encrypt([]byte("hi"), password)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if _, _, err := RestoreFromBip39Words(sealed, "not a valid mnemonic phrase at all"); err == nil {
		t.Fatal("expected error for garbled phrase")
	}
}
