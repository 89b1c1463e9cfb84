package crypto

import (
	"github.com/cicero-ai/nyx/internal/crypto/bip39"
	"github.com/cicero-ai/nyx/internal/nyxerr"
)

// GetBip39Words extracts the container's master key and renders it as a
// 24-word BIP-39 recovery phrase, mirroring crypto.rs's get_bip39_words.
func GetBip39Words(payload []byte, password string) ([]string, error) {
	nPassword := NormalizePassword(password)
	_, masterKey, err := ExtractMasterKey(payload, nPassword)
	if err != nil {
		return nil, err
	}
	return bip39.FromEntropy(masterKey[:])
}

// RestoreFromBip39Words recovers the plaintext container payload and its
// master key from a recovery phrase, bypassing the password entirely. This
// is how a forgotten password is recovered: the phrase encodes the master
// key, and the message IV travels in the header alongside it.
func RestoreFromBip39Words(payload []byte, phrase string) ([]byte, [32]byte, error) {
	var masterKey [32]byte

	if len(payload) < headerSize {
		return nil, masterKey, nyxerr.New(nyxerr.Crypto, "Payload too short")
	}
	if payload[0] != prefixByte || payload[1] != versionByte {
		return nil, masterKey, nyxerr.New(nyxerr.Crypto, "Invalid prefix or version")
	}

	var iv [12]byte
	copy(iv[:], payload[offIV:offPasswordIV])

	entropy, err := bip39.ToEntropy(phrase)
	if err != nil {
		return nil, masterKey, nyxerr.Wrapf(nyxerr.Crypto, err, "unable to convert phrase to master key")
	}
	copy(masterKey[:], entropy)

	msgCipher, err := newGCM(masterKey[:])
	if err != nil {
		return nil, masterKey, nyxerr.Wrapf(nyxerr.Crypto, err, "create cipher")
	}
	plaintext, err := msgCipher.Open(nil, iv[:], payload[offCiphertext:], nil)
	if err != nil {
		return nil, masterKey, nyxerr.New(nyxerr.Crypto, "Invalid decryption password.")
	}

	return plaintext, masterKey, nil
}
