package store

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/cicero-ai/nyx/internal/nyxerr"
)

const (
	totpDigits = 6
	totpPeriod = 30
)

// OauthDb is the oauth (TOTP) collection, the analogue of
// database/oauth.rs's OauthDb newtype over a HashMap — here expressed as
// a struct embedding Collection[*Oauth] so the shared CRUD methods are
// promoted, with Generate added as the one oauth-specific operation.
type OauthDb struct {
	Collection[*Oauth]
}

// NewOauthDb returns an empty oauth collection.
func NewOauthDb() *OauthDb {
	return &OauthDb{Collection: make(Collection[*Oauth])}
}

// Generate produces the current 6-digit TOTP code for the secret stored
// at name, the analogue of database/oauth.rs's Oauth::generate (which
// calls the otpauth crate's TOTP::from_base32/generate). No Go TOTP
// library exists anywhere in the retrieval pack, so this hand-rolls RFC
// 6238 the same way the teacher's internal/admin/totp.go does, minus the
// replay-cache and clock-skew window: otp.generate is a one-shot
// clipboard fill, never used to validate an inbound code.
func (o *OauthDb) Generate(name string) (string, error) {
	entry, err := o.Get(name)
	if err != nil {
		return "", nyxerr.Newf(nyxerr.Validate, "Entry does not exist at, %s", name)
	}

	secret := strings.ToUpper(entry.SecretCode)
	key, decErr := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if decErr != nil {
		key, decErr = base32.StdEncoding.DecodeString(secret)
		if decErr != nil {
			return "", nyxerr.New(nyxerr.Rpc, "Unable to initialize TOTP")
		}
	}

	counter := uint64(time.Now().Unix()) / totpPeriod

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(buf)
	hash := mac.Sum(nil)

	offset := hash[len(hash)-1] & 0x0f
	truncated := binary.BigEndian.Uint32(hash[offset:offset+4]) & 0x7fffffff

	code := truncated % 1000000
	return fmt.Sprintf("%06d", code), nil
}

func (o *OauthDb) secureClear() {
	for _, item := range o.Collection {
		item.secureClear()
	}
}
