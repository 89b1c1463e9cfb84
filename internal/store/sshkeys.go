package store

import (
	"strings"
	"time"

	"github.com/cicero-ai/nyx/internal/nyxerr"
)

// fsEpoch is the fixed modification time reported for every ssh_keys
// filesystem entry (Jan 1 2021 UTC), matching database/ssh_keys.rs's
// get_attr — the container tracks no per-item timestamps, so a constant
// stands in rather than inventing one.
var fsEpoch = time.Unix(1609459200, 0).UTC()

// FsEntry records whether an allocated inode names a directory or a file,
// the analogue of ssh_keys.rs's SshFsEntry.
type FsEntry struct {
	IsDirectory bool
	Name        string
}

// Attr is the subset of filesystem attributes the vfs package needs to
// answer FUSE getattr calls, kept independent of bazil.org/fuse's types so
// this package has no VFS dependency.
type Attr struct {
	Ino   uint64
	Size  uint64
	Mtime time.Time
	IsDir bool
	Perm  uint32
	Nlink uint32
}

// SshKeysDb is the ssh_keys collection. Unlike the other four collections
// it also tracks a synthetic directory index (directories/ino2name)
// alongside its Collection[*SshKey] so the read-only FUSE filesystem has
// something to walk, mirroring database/ssh_keys.rs's SshKeysDb.
type SshKeysDb struct {
	Files       Collection[*SshKey]
	Directories map[string]uint64
	Ino2Name    map[uint64]FsEntry
}

// NewSshKeysDb returns an SshKeysDb seeded the way ssh_keys.rs's
// Default impl does: inode 1 is the container root, inode 2 is the
// ssh_keys directory itself, both empty-named at this layer (the vfs
// package names the mount point).
func NewSshKeysDb() *SshKeysDb {
	return &SshKeysDb{
		Files:       make(Collection[*SshKey]),
		Directories: map[string]uint64{"": 1, "ssh_keys": 2},
		Ino2Name: map[uint64]FsEntry{
			1: {IsDirectory: true, Name: ""},
			2: {IsDirectory: true, Name: ""},
		},
	}
}

func (d *SshKeysDb) maxIno() uint64 {
	var max uint64 = 2
	for ino := range d.Ino2Name {
		if ino > max {
			max = ino
		}
	}
	return max
}

// Import inserts a new key at name, allocating it an inode and
// reconciling the directory index, the analogue of ssh_keys.rs's import.
func (d *SshKeysDb) Import(name string, key *SshKey) error {
	lower := strings.ToLower(name)
	if d.Files.Exists(lower) {
		return nyxerr.Newf(nyxerr.Validate, "Entry already exists, %s", name)
	}
	ino := d.maxIno() + 1
	key.Ino = ino
	key.DisplayName = name
	d.Files[lower] = key
	d.Ino2Name[ino] = FsEntry{IsDirectory: false, Name: lower}
	d.syncDirectory(lower)
	return nil
}

// CopyKey duplicates src to dest, allocating the copy a fresh inode.
func (d *SshKeysDb) CopyKey(src, dest string) (*SshKey, error) {
	srcKey, destKey := strings.ToLower(src), strings.ToLower(dest)
	if d.Files.Exists(destKey) {
		return nil, nyxerr.Newf(nyxerr.Validate, "Destination to copy item to already exists, %s", dest)
	}
	item, err := d.Files.Get(srcKey)
	if err != nil {
		return nil, nyxerr.Newf(nyxerr.Validate, "Entry to copy  does not exist at, %s", src)
	}

	ino := d.maxIno() + 1
	newItem := item.Clone().(*SshKey)
	newItem.SetName(dest)
	newItem.Ino = ino
	d.Files[destKey] = newItem
	d.Ino2Name[ino] = FsEntry{IsDirectory: false, Name: destKey}

	d.syncDirectory(srcKey)
	d.syncDirectory(destKey)
	return newItem, nil
}

// DeleteKey removes the key at name, freeing its inode.
func (d *SshKeysDb) DeleteKey(name string) error {
	key := strings.ToLower(name)
	item, err := d.Files.Get(key)
	if err != nil {
		return nyxerr.Newf(nyxerr.Validate, "No entry to delete exists at %s", name)
	}
	delete(d.Ino2Name, item.Ino)
	d.syncDirectory(key)
	delete(d.Files, key)
	return nil
}

// RenameKey moves src to dest, keeping the same inode.
func (d *SshKeysDb) RenameKey(src, dest string) (*SshKey, error) {
	srcKey, destKey := strings.ToLower(src), strings.ToLower(dest)
	if d.Files.Exists(destKey) {
		return nil, nyxerr.Newf(nyxerr.Validate, "Destination to rename item to already exists, %s", dest)
	}
	item, err := d.Files.Get(srcKey)
	if err != nil {
		return nil, nyxerr.Newf(nyxerr.Validate, "No entry exists at, %s", src)
	}

	newItem := item.Clone().(*SshKey)
	newItem.SetName(dest)
	d.Files[destKey] = newItem
	d.Ino2Name[item.Ino] = FsEntry{IsDirectory: false, Name: destKey}
	delete(d.Files, srcKey)

	d.syncDirectory(srcKey)
	d.syncDirectory(destKey)
	return newItem, nil
}

// syncDirectory reconciles the synthetic directory index after name's
// parent directory gains or loses its last member, the analogue of
// ssh_keys.rs's sync_directory. Inode numbers allocated here are not
// stable: a later deletion can free an inode a subsequent insertion
// immediately reuses, exactly as in the original implementation (see
// SPEC_FULL.md's resolved open question on inode allocation).
func (d *SshKeysDb) syncDirectory(name string) {
	if !strings.Contains(name, "/") {
		return
	}
	parts := strings.Split(name, "/")
	dirname := strings.Join(parts[:len(parts)-1], "/")

	search := dirname + "/"
	hasMember := false
	for key := range d.Files {
		if strings.HasPrefix(key, search) {
			hasMember = true
			break
		}
	}

	if hasMember {
		if _, exists := d.Directories[dirname]; exists {
			return
		}
		ino := d.maxIno() + 1
		d.Directories[dirname] = ino
		d.Ino2Name[ino] = FsEntry{IsDirectory: true, Name: dirname}
		return
	}

	if ino, ok := d.Directories[dirname]; ok {
		delete(d.Ino2Name, ino)
		delete(d.Directories, dirname)
	}
}

// GetAttr answers a FUSE getattr for ino, the analogue of
// ssh_keys.rs's get_attr.
func (d *SshKeysDb) GetAttr(ino uint64) (Attr, bool) {
	entry, ok := d.Ino2Name[ino]
	if !ok {
		return Attr{}, false
	}

	attr := Attr{Ino: ino, Mtime: fsEpoch, IsDir: true, Perm: 0o755, Nlink: 2}
	if entry.IsDirectory {
		if entry.Name != "" {
			attr.Nlink = uint32(3 + strings.Count(entry.Name, "/"))
		}
		return attr, true
	}

	key, err := d.Files.Get(entry.Name)
	if err != nil {
		return Attr{}, false
	}
	attr.Size = uint64(len(key.PrivateKey))
	attr.IsDir = false
	attr.Perm = 0o600
	attr.Nlink = 1
	return attr, true
}

func (d *SshKeysDb) secureClear() {
	for _, key := range d.Files {
		key.secureClear()
	}
}
