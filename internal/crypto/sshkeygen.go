package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"

	"golang.org/x/crypto/ssh"

	"github.com/cicero-ai/nyx/internal/nyxerr"
)

// GenerateSshKeypair creates a fresh Ed25519 OpenSSH keypair, the
// analogue of original_source's ssh_keys::generate, whose stub always
// returned true rather than producing a real key (see SPEC_FULL.md's
// resolved open question on ssh.generate). The private key is returned
// PEM-encoded in OpenSSH format, the public key in authorized_keys form.
func GenerateSshKeypair() (publicKey string, privateKeyPEM []byte, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, nyxerr.Wrap(nyxerr.Crypto, err)
	}

	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		return "", nil, nyxerr.Wrap(nyxerr.Crypto, err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", nil, nyxerr.Wrap(nyxerr.Crypto, err)
	}

	return string(ssh.MarshalAuthorizedKey(sshPub)), pem.EncodeToMemory(block), nil
}
