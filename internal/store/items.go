package store

import "strings"

// User is a saved login: a display name, credentials, and a URL, the Go
// analogue of database/users.rs's User struct.
type User struct {
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	URL         string `json:"url"`
	Notes       string `json:"notes"`
}

func (u *User) Name() string        { return u.DisplayName }
func (u *User) SetName(name string) { u.DisplayName = name }
func (u *User) Clone() Item         { c := *u; return &c }
func (u *User) Matches(s string) bool {
	return strings.Contains(strings.ToLower(u.DisplayName), s) ||
		strings.Contains(strings.ToLower(u.Username), s) ||
		strings.Contains(strings.ToLower(u.URL), s)
}

// secureClear overwrites string fields; Go strings are immutable, so this
// drops the reference to the backing bytes rather than zeroing them in
// place the way original_source's zeroize crate does for Rust Strings.
func (u *User) secureClear() {
	u.DisplayName, u.Username, u.Password, u.URL, u.Notes = "", "", "", "", ""
}

// Oauth is a TOTP seed plus its display metadata, the analogue of
// database/oauth.rs's Oauth struct.
type Oauth struct {
	DisplayName  string `json:"display_name"`
	SecretCode   string `json:"secret_code"`
	URL          string `json:"url"`
	RecoveryKeys string `json:"recovery_keys"`
}

func (o *Oauth) Name() string        { return o.DisplayName }
func (o *Oauth) SetName(name string) { o.DisplayName = name }
func (o *Oauth) Clone() Item         { c := *o; return &c }
func (o *Oauth) Matches(s string) bool {
	return strings.Contains(strings.ToLower(o.DisplayName), s) ||
		strings.Contains(strings.ToLower(o.URL), s)
}

func (o *Oauth) secureClear() {
	o.DisplayName, o.SecretCode, o.URL, o.RecoveryKeys = "", "", "", ""
}

// StrItem is a free-form named secret string, the analogue of
// database/strings.rs's StrItem struct.
type StrItem struct {
	DisplayName string `json:"display_name"`
	Value       string `json:"value"`
}

func (s *StrItem) Name() string        { return s.DisplayName }
func (s *StrItem) SetName(name string) { s.DisplayName = name }
func (s *StrItem) Clone() Item         { c := *s; return &c }
func (s *StrItem) Matches(search string) bool {
	return strings.Contains(strings.ToLower(s.DisplayName), search) ||
		strings.Contains(strings.ToLower(s.Value), search)
}

func (s *StrItem) secureClear() {
	s.DisplayName, s.Value = "", ""
}

// Note is a free-form named note, the analogue of database/notes.rs's
// Note struct.
type Note struct {
	DisplayName string `json:"display_name"`
	Text        string `json:"note"`
}

func (n *Note) Name() string        { return n.DisplayName }
func (n *Note) SetName(name string) { n.DisplayName = name }
func (n *Note) Clone() Item         { c := *n; return &c }
func (n *Note) Matches(search string) bool {
	return strings.Contains(strings.ToLower(n.DisplayName), search) ||
		strings.Contains(strings.ToLower(n.Text), search)
}

func (n *Note) secureClear() {
	n.DisplayName, n.Text = "", ""
}

// SshKey is an SSH connection profile with its private key material, the
// analogue of database/ssh_keys.rs's SshKey struct. Ino addresses the key
// in the virtual filesystem's inode table; it is assigned on insertion as
// one more than the highest inode in use, so a freed number can be reused,
// and it is saved with the container like every other field.
type SshKey struct {
	DisplayName string `json:"display_name"`
	Ino         uint64 `json:"ino"`
	Host        string `json:"host"`
	Port        uint16 `json:"port"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	PublicKey   string `json:"public_key"`
	PrivateKey  []byte `json:"private_key"`
	Notes       string `json:"notes"`
}

func (k *SshKey) Name() string        { return k.DisplayName }
func (k *SshKey) SetName(name string) { k.DisplayName = name }
func (k *SshKey) Clone() Item {
	c := *k
	c.PrivateKey = append([]byte(nil), k.PrivateKey...)
	return &c
}
func (k *SshKey) Matches(search string) bool {
	return strings.Contains(strings.ToLower(k.DisplayName), search) ||
		strings.Contains(strings.ToLower(k.Host), search)
}

func (k *SshKey) secureClear() {
	k.DisplayName, k.Host, k.Username, k.PublicKey, k.Notes = "", "", "", "", ""
	k.Port = 0
	for i := range k.PrivateKey {
		k.PrivateKey[i] = 0
	}
	k.PrivateKey = nil
}
