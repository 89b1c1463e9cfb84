package store

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"

	nyxcrypto "github.com/cicero-ai/nyx/internal/crypto"
	"github.com/cicero-ai/nyx/internal/nyxerr"
)

var log = logging.Logger("nyx-store")

var magicBytes = [4]byte{'N', 'Y', 'X', 0}

const containerVersion byte = 1

// DatabaseTimeout models the Rust source's DatabaseTimeout enum
// (Never | Duration(Duration)) as a plain struct, gob's friendliest
// representation of a sum type with at most one payload.
type DatabaseTimeout struct {
	Never    bool
	Duration time.Duration
}

// ParseDatabaseTimeout parses "n" as Never, otherwise a trailing s/m/h
// duration suffix, matching database/nyxdb.rs's FromStr/parse_duration.
func ParseDatabaseTimeout(value string) (DatabaseTimeout, error) {
	lower := strings.ToLower(value)
	if lower == "n" {
		return DatabaseTimeout{Never: true}, nil
	}
	if lower == "" {
		return DatabaseTimeout{}, nyxerr.New(nyxerr.Generic, "Invalid duration")
	}

	unit := lower[len(lower)-1]
	var secs int64
	switch unit {
	case 's':
		secs = 1
	case 'm':
		secs = 60
	case 'h':
		secs = 3600
	default:
		return DatabaseTimeout{}, nyxerr.New(nyxerr.Generic, "Invalid duration")
	}

	n, err := strconv.ParseInt(lower[:len(lower)-1], 10, 64)
	if err != nil {
		return DatabaseTimeout{}, nyxerr.New(nyxerr.Generic, "Invalid duration")
	}

	return DatabaseTimeout{Duration: time.Duration(secs*n) * time.Second}, nil
}

// NyxDb is the full in-memory database: the five typed collections, the
// history log, and the inactivity timeout, the analogue of
// database/nyxdb.rs's NyxDb struct.
type NyxDb struct {
	DefaultTimeout DatabaseTimeout
	Users          *UsersDb
	Oauth          *OauthDb
	SshKeys        *SshKeysDb
	Strings        *StringsDb
	Notes          *NotesDb
	History        *HistoryDb
}

// New returns an empty database seeded the way Default::default() does in
// the Rust source.
func New(timeout DatabaseTimeout) *NyxDb {
	return &NyxDb{
		DefaultTimeout: timeout,
		Users:          NewUsersDb(),
		Oauth:          NewOauthDb(),
		SshKeys:        NewSshKeysDb(),
		Strings:        NewStringsDb(),
		Notes:          NewNotesDb(),
		History:        NewHistoryDb(),
	}
}

// Create builds a new database and writes it to dbfile, the analogue of
// database/nyxdb.rs's NyxDb::create.
func Create(dbfile, password string, timeout DatabaseTimeout) (*NyxDb, error) {
	db := New(timeout)
	nPassword := nyxcrypto.NormalizePassword(password)
	if err := db.Save(dbfile, nPassword, nil); err != nil {
		return nil, err
	}
	log.Infof("created new database at %s", dbfile)
	return db, nil
}

// Save gob-encodes the database, prefixes it with the magic header, and
// encrypts it to dbfile. If dbfile already exists and no explicit
// masterKey is given, the existing file's master key is reused (via
// crypto.UpdateExistingFile) so BIP-39 recovery phrases survive ordinary
// saves, the analogue of database/nyxdb.rs's save().
func (db *NyxDb) Save(dbfile string, nPassword [32]byte, masterKey *[32]byte) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(db); err != nil {
		return nyxerr.Wrapf(nyxerr.Db, err, "unable to save database")
	}

	output := make([]byte, 0, 5+buf.Len())
	output = append(output, magicBytes[:]...)
	output = append(output, containerVersion)
	output = append(output, buf.Bytes()...)

	if _, err := os.Stat(dbfile); err == nil && masterKey == nil {
		return nyxcrypto.UpdateExistingFile(dbfile, output, nPassword)
	}

	var encrypted []byte
	var err error
	if masterKey != nil {
		encrypted, err = nyxcrypto.EncryptWithMasterKey(output, nPassword, *masterKey)
	} else {
		encrypted, err = nyxcrypto.Encrypt(output, nPassword)
	}
	if err != nil {
		return err
	}

	if parent := filepath.Dir(dbfile); parent != "." {
		if _, statErr := os.Stat(parent); os.IsNotExist(statErr) {
			if mkErr := os.MkdirAll(parent, 0700); mkErr != nil {
				return nyxerr.Wrap(nyxerr.Io, mkErr)
			}
		}
	}

	if err := os.WriteFile(dbfile, encrypted, 0600); err != nil {
		return nyxerr.Wrap(nyxerr.Io, err)
	}
	return nil
}

// Load decrypts and gob-decodes the database stored at dbfile, the
// analogue of database/nyxdb.rs's load().
func Load(dbfile string, nPassword [32]byte) (*NyxDb, error) {
	encrypted, err := os.ReadFile(dbfile)
	if err != nil {
		return nil, nyxerr.Wrap(nyxerr.Io, err)
	}

	raw, err := nyxcrypto.Decrypt(encrypted, nPassword)
	if err != nil {
		return nil, err
	}
	if len(raw) < 5 {
		return nil, nyxerr.New(nyxerr.Db, "This is not a valid Nyx database file.")
	}

	db := &NyxDb{}
	if err := gob.NewDecoder(bytes.NewReader(raw[5:])).Decode(db); err != nil {
		return nil, nyxerr.Wrapf(nyxerr.Db, err, "unable to load database")
	}
	return db, nil
}

// ValidateHeader checks the 5-byte inner header (magic bytes + version)
// of a decrypted payload, confirming that a password actually opened a Nyx
// container and not just some other AES-GCM blob.
func ValidateHeader(raw []byte) error {
	if len(raw) < 5 {
		return nyxerr.New(nyxerr.Db, "This is not a valid Nyx database file.")
	}
	if !bytes.Equal(raw[0:4], magicBytes[:]) {
		return nyxerr.New(nyxerr.Db, "This is not a valid Nyx database file.")
	}
	if raw[4] != containerVersion {
		return nyxerr.New(nyxerr.Db, "This is not a valid Nyx database file.")
	}
	return nil
}

// SecureClear zero-fills every collection's sensitive fields before the
// process exits, the analogue of database/nyxdb.rs's secure_clear.
func (db *NyxDb) SecureClear() {
	db.Users.secureClear()
	db.Oauth.secureClear()
	db.SshKeys.secureClear()
	db.Strings.secureClear()
	db.Notes.secureClear()
}

// DbStats summarizes the database's size, the analogue of
// database/nyxdb.rs's DbStats.
type DbStats struct {
	DbFile  string       `json:"dbfile"`
	Users   [2]uint32    `json:"users"`
	Oauth   [2]uint32    `json:"oauth"`
	SshKeys [2]uint32    `json:"ssh_keys"`
	Strings [2]uint32    `json:"strings"`
	Notes   [2]uint32    `json:"notes"`
}

// NewDbStats builds a DbStats snapshot of db, the analogue of
// database/nyxdb.rs's DbStats::new.
func NewDbStats(dbfile string, db *NyxDb) DbStats {
	return DbStats{
		DbFile:  dbfile,
		Users:   countAndDirs(db.Users.Keys()),
		Oauth:   countAndDirs(db.Oauth.Keys()),
		SshKeys: countAndDirs(db.SshKeys.Files.Keys()),
		Strings: countAndDirs(db.Strings.Keys()),
		Notes:   countAndDirs(db.Notes.Keys()),
	}
}

// countAndDirs returns (item count, distinct parent-directory count),
// the analogue of database/nyxdb.rs's DbStats::get_item.
func countAndDirs(keys []string) [2]uint32 {
	dirs := make(map[string]struct{})
	for _, key := range keys {
		if !strings.Contains(key, "/") {
			continue
		}
		parts := strings.Split(key, "/")
		dirs[strings.Join(parts[:len(parts)-1], "/")] = struct{}{}
	}
	return [2]uint32{uint32(len(keys)), uint32(len(dirs))}
}
