// Package bip39 converts 256-bit entropy (a Nyx master key) to and from a
// 24-word BIP-39 English mnemonic. No BIP-39 library exists anywhere in
// the retrieval pack, so this hand-rolls the standard the way
// original_source/src/security/crypto.rs uses the `bip39` crate: entropy
// in, mnemonic words out, and back. The wordlist is embedded at build time
// rather than read from disk, the way the vault.go example embeds its SQL
// migrations with `//go:embed`.
package bip39

import (
	"bufio"
	"crypto/sha256"
	"embed"
	"math/big"
	"strings"

	"github.com/cicero-ai/nyx/internal/nyxerr"
)

//go:embed wordlist/english.txt
var wordlistFS embed.FS

var (
	words    [2048]string
	wordRank map[string]int
)

func init() {
	f, err := wordlistFS.Open("wordlist/english.txt")
	if err != nil {
		panic("bip39: embedded wordlist missing: " + err.Error())
	}
	defer f.Close()

	wordRank = make(map[string]int, 2048)
	scanner := bufio.NewScanner(f)
	i := 0
	for scanner.Scan() {
		w := strings.TrimSpace(scanner.Text())
		if w == "" {
			continue
		}
		if i >= 2048 {
			panic("bip39: wordlist has more than 2048 entries")
		}
		words[i] = w
		wordRank[w] = i
		i++
	}
	if i != 2048 {
		panic("bip39: wordlist does not have exactly 2048 entries")
	}
}

const entropyBits = 256 // 32-byte master key
const checksumBits = entropyBits / 32
const wordCount = (entropyBits + checksumBits) / 11 // 24

// FromEntropy encodes a 32-byte master key as 24 BIP-39 words, the way
// crypto.rs's get_bip39_words does via Mnemonic::from_entropy.
func FromEntropy(entropy []byte) ([]string, error) {
	if len(entropy) != 32 {
		return nil, nyxerr.Newf(nyxerr.Crypto, "bip39: entropy must be 32 bytes, got %d", len(entropy))
	}

	checksum := sha256.Sum256(entropy)
	bits := new(big.Int).SetBytes(entropy)
	bits.Lsh(bits, checksumBits)
	bits.Or(bits, big.NewInt(int64(checksum[0]>>(8-checksumBits))))

	out := make([]string, wordCount)
	mask := big.NewInt(0x7FF) // 11 bits
	for i := wordCount - 1; i >= 0; i-- {
		idx := new(big.Int).And(bits, mask)
		out[i] = words[idx.Int64()]
		bits.Rsh(bits, 11)
	}
	return out, nil
}

// ToEntropy decodes a 24-word BIP-39 phrase back to its 32-byte entropy,
// verifying the embedded checksum, mirroring crypto.rs's
// restore_from_bip39_words via Mnemonic::parse + to_entropy.
func ToEntropy(phrase string) ([]byte, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(phrase)))
	if len(fields) != wordCount {
		return nil, nyxerr.Newf(nyxerr.Crypto, "bip39: phrase must have %d words, got %d", wordCount, len(fields))
	}

	bits := new(big.Int)
	for _, w := range fields {
		idx, ok := wordRank[w]
		if !ok {
			return nil, nyxerr.Newf(nyxerr.Crypto, "bip39: unknown word %q", w)
		}
		bits.Lsh(bits, 11)
		bits.Or(bits, big.NewInt(int64(idx)))
	}

	checksumVal := new(big.Int).And(bits, big.NewInt((1<<checksumBits)-1))
	entropyBig := new(big.Int).Rsh(bits, uint(checksumBits))

	entropy := make([]byte, entropyBits/8)
	entropyBig.FillBytes(entropy)

	expected := sha256.Sum256(entropy)
	if byte(checksumVal.Int64()) != expected[0]>>(8-checksumBits) {
		return nil, nyxerr.New(nyxerr.Crypto, "bip39: checksum mismatch")
	}

	return entropy, nil
}
