// Package crypto implements the on-disk container format for a Nyx
// database: a password-wrapped master key sealing AES-256-GCM encrypted
// bytes, with Argon2id for password stretching and HKDF-SHA256 for
// deriving the per-seal child key. The pairing of crypto/aes + crypto/cipher
// with golang.org/x/crypto/argon2 mirrors the teacher's own
// internal/keys/backup.go; HKDF mirrors internal/license/plugins.go.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"

	"github.com/cicero-ai/nyx/internal/nyxerr"
)

const (
	prefixByte  byte = 0x43
	versionByte byte = 0x01

	ivSize         = 12
	saltSize       = 16
	hkdfNonceSize  = 32
	masterKeySize  = 32
	sealedKeySize  = masterKeySize + 16 // AES-GCM tag overhead
	headerSize     = 2 + sealedKeySize + ivSize + ivSize + hkdfNonceSize + saltSize // == 122

	argon2Time    = 2
	argon2Memory  = 65536
	argon2Threads = 4
	argon2KeyLen  = 32
)

// offsets within the 122-byte header, matching original_source/src/security/crypto.rs byte-for-byte.
const (
	offSealedKey  = 2
	offIV         = offSealedKey + sealedKeySize // 50
	offPasswordIV = offIV + ivSize               // 62
	offNonce      = offPasswordIV + ivSize        // 74
	offSalt       = offNonce + hkdfNonceSize      // 106
	offCiphertext = offSalt + saltSize            // 122
)

// NormalizePassword reduces an arbitrary-length password string to the
// fixed 32-byte key material everything else in this package expects.
func NormalizePassword(password string) [32]byte {
	return sha256.Sum256([]byte(password))
}

// Encrypt seals message under a freshly generated random master key, then
// seals that master key under a key derived from password. Returns the
// full container blob: header || ciphertext.
func Encrypt(message []byte, password [32]byte) ([]byte, error) {
	var masterKey [32]byte
	if _, err := rand.Read(masterKey[:]); err != nil {
		return nil, nyxerr.Wrapf(nyxerr.Crypto, err, "generate master key")
	}
	return EncryptWithMasterKey(message, password, masterKey)
}

// EncryptWithMasterKey seals message under the given master key, and seals
// that master key under a key derived from password. Passing the same
// master key across saves is what makes BIP-39 recovery phrases durable:
// the recovery phrase encodes the master key, not the password.
func EncryptWithMasterKey(message []byte, password, masterKey [32]byte) ([]byte, error) {
	iv, err := randomBytes(ivSize)
	if err != nil {
		return nil, nyxerr.Wrapf(nyxerr.Crypto, err, "generate iv")
	}

	msgCipher, err := newGCM(masterKey[:])
	if err != nil {
		return nil, nyxerr.Wrapf(nyxerr.Crypto, err, "create cipher")
	}
	ciphertext := msgCipher.Seal(nil, iv, message, nil)

	passwordIV, err := randomBytes(ivSize)
	if err != nil {
		return nil, nyxerr.Wrapf(nyxerr.Crypto, err, "generate password iv")
	}

	argonHash, salt, err := argon2Hash(password[:], nil)
	if err != nil {
		return nil, err
	}
	childKey, nonce, err := deriveKey(argonHash, nil)
	if err != nil {
		return nil, err
	}

	outerCipher, err := newGCM(childKey)
	if err != nil {
		return nil, nyxerr.Wrapf(nyxerr.Crypto, err, "create outer cipher")
	}
	encryptedKey := outerCipher.Seal(nil, passwordIV, masterKey[:], nil)

	header := make([]byte, 0, headerSize)
	header = append(header, prefixByte, versionByte)
	header = append(header, encryptedKey...)
	header = append(header, iv...)
	header = append(header, passwordIV...)
	header = append(header, nonce...)
	header = append(header, salt...)

	return append(header, ciphertext...), nil
}

// Decrypt opens a container blob produced by Encrypt/EncryptWithMasterKey.
func Decrypt(payload []byte, password [32]byte) ([]byte, error) {
	iv, msgKey, err := ExtractMasterKey(payload, password)
	if err != nil {
		return nil, err
	}

	msgCipher, err := newGCM(msgKey[:])
	if err != nil {
		return nil, nyxerr.Wrapf(nyxerr.Crypto, err, "create cipher")
	}
	plaintext, err := msgCipher.Open(nil, iv, payload[offCiphertext:], nil)
	if err != nil {
		return nil, nyxerr.New(nyxerr.Crypto, "Invalid decryption password.")
	}
	return plaintext, nil
}

// ExtractMasterKey validates the header and unseals the master key,
// without touching the bulk ciphertext. UpdateExistingFile uses this to
// re-seal a payload under the same master key on each save.
func ExtractMasterKey(payload []byte, password [32]byte) (iv [12]byte, masterKey [32]byte, err error) {
	if len(payload) < headerSize {
		return iv, masterKey, nyxerr.New(nyxerr.Crypto, "Payload too short")
	}
	if payload[0] != prefixByte || payload[1] != versionByte {
		return iv, masterKey, nyxerr.New(nyxerr.Crypto, "Invalid prefix or version")
	}

	var passwordIV [12]byte
	var nonce [32]byte
	var salt [16]byte
	copy(passwordIV[:], payload[offPasswordIV:offNonce])
	copy(nonce[:], payload[offNonce:offSalt])
	copy(salt[:], payload[offSalt:offCiphertext])

	argonHash, _, err := argon2Hash(password[:], &salt)
	if err != nil {
		return iv, masterKey, err
	}
	childKey, _, err := deriveKey(argonHash, &nonce)
	if err != nil {
		return iv, masterKey, err
	}

	outerCipher, err := newGCM(childKey)
	if err != nil {
		return iv, masterKey, nyxerr.Wrapf(nyxerr.Crypto, err, "create outer cipher")
	}
	innerSeal, err := outerCipher.Open(nil, passwordIV[:], payload[offSealedKey:offIV], nil)
	if err != nil {
		return iv, masterKey, nyxerr.New(nyxerr.Crypto, "Invalid encryption key.")
	}

	copy(iv[:], payload[offIV:offPasswordIV])
	copy(masterKey[:], innerSeal[:32])
	return iv, masterKey, nil
}

// UpdateExistingFile re-seals payload under the master key already sealed
// in the file at filepath, so the file's BIP-39 recovery phrase keeps
// working across routine saves. password must be the one the file is
// currently sealed under; a password change goes through ExtractMasterKey
// with the old password and EncryptWithMasterKey with the new one.
func UpdateExistingFile(filepath string, payload []byte, password [32]byte) error {
	existing, err := os.ReadFile(filepath)
	if err != nil {
		return nyxerr.Wrap(nyxerr.Io, err)
	}

	_, masterKey, err := ExtractMasterKey(existing, password)
	if err != nil {
		return err
	}

	sealed, err := EncryptWithMasterKey(payload, password, masterKey)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath, sealed, 0600); err != nil {
		return nyxerr.Wrap(nyxerr.Io, err)
	}
	return nil
}

func argon2Hash(password []byte, previousSalt *[16]byte) ([]byte, [16]byte, error) {
	var salt [16]byte
	if previousSalt != nil {
		salt = *previousSalt
	} else if _, err := rand.Read(salt[:]); err != nil {
		return nil, salt, nyxerr.Wrapf(nyxerr.Crypto, err, "generate salt")
	}
	hash := argon2.IDKey(password, salt[:], argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return hash, salt, nil
}

func deriveKey(password []byte, previousNonce *[32]byte) ([]byte, [32]byte, error) {
	nonce := GetNonce(previousNonce)
	childKey := make([]byte, 32)
	kdf := hkdf.Expand(sha256.New, password, nonce[:])
	if _, err := io.ReadFull(kdf, childKey); err != nil {
		return nil, nonce, nyxerr.Wrapf(nyxerr.Crypto, err, "derive child key")
	}
	return childKey, nonce, nil
}

// GetNonce returns previousNonce verbatim if given, otherwise a fresh
// random 32-byte nonce used as HKDF info/salt material.
func GetNonce(previousNonce *[32]byte) [32]byte {
	var nonce [32]byte
	if previousNonce != nil {
		return *previousNonce
	}
	rand.Read(nonce[:])
	return nonce
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
