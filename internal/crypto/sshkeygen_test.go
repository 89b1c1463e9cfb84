package crypto

import (
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestGenerateSshKeypairProducesMatchingPair(t *testing.T) {
	pub, privPEM, err := GenerateSshKeypair()
	if err != nil {
		t.Fatalf("GenerateSshKeypair failed: %v", err)
	}
	if !strings.HasPrefix(pub, "ssh-ed25519 ") {
		t.Fatalf("expected an ssh-ed25519 authorized_keys line, got %q", pub)
	}

	signer, err := ssh.ParsePrivateKey(privPEM)
	if err != nil {
		t.Fatalf("failed to parse generated private key: %v", err)
	}
	if !strings.HasPrefix(string(ssh.MarshalAuthorizedKey(signer.PublicKey())), "ssh-ed25519 ") {
		t.Fatal("private key's embedded public key does not match an ed25519 key")
	}
}

func TestGenerateSshKeypairProducesDistinctKeys(t *testing.T) {
	pub1, _, err := GenerateSshKeypair()
	if err != nil {
		t.Fatalf("GenerateSshKeypair failed: %v", err)
	}
	pub2, _, err := GenerateSshKeypair()
	if err != nil {
		t.Fatalf("GenerateSshKeypair failed: %v", err)
	}
	if pub1 == pub2 {
		t.Fatal("expected two independently generated keypairs to differ")
	}
}
