// Package vfs exposes the ssh_keys collection as a read-only FUSE
// filesystem, the Go analogue of original_source/src/database/fs.rs and
// ssh_keys.rs's fuser::Filesystem impl. bazil.org/fuse/fs plays the role
// fuser plays on the source side: a Node/Handle interface set instead of
// one big Filesystem trait, so the mapping here is structural (one Dir
// and one File node type) rather than line-for-line.
package vfs

import (
	"context"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	logging "github.com/ipfs/go-log/v2"

	"github.com/cicero-ai/nyx/internal/nyxerr"
	"github.com/cicero-ai/nyx/internal/store"
)

var log = logging.Logger("nyx-vfs")

// rootIno and sshKeysIno mirror fs.rs's INO_ROOT and ssh_keys.rs's fixed
// inode 2 for the single top-level directory this filesystem exposes.
const (
	rootIno     = 1
	sshKeysIno  = 2
	sshKeysName = "ssh_keys"
)

// Mount is a live FUSE mount; it implements rpc.FuseUnmounter so the
// daemon can tear it down on shutdown.
type Mount struct {
	conn       *fuse.Conn
	mountpoint string
}

// MountSshKeys mounts db's ssh_keys collection at mountpoint, serving
// requests in a background goroutine until Unmount is called. locker is
// the same mutex the RPC daemon guards db with, so a FUSE read and an RPC
// call never race.
func MountSshKeys(mountpoint string, db *store.NyxDb, locker sync.Locker) (*Mount, error) {
	if err := os.MkdirAll(mountpoint, 0o700); err != nil {
		return nil, nyxerr.Wrap(nyxerr.Io, err)
	}

	conn, err := fuse.Mount(
		mountpoint,
		fuse.FSName("nyx"),
		fuse.Subtype("nyxfs"),
		fuse.ReadOnly(),
		fuse.VolumeName("nyx"),
	)
	if err != nil {
		return nil, nyxerr.Wrap(nyxerr.Io, err)
	}

	m := &Mount{conn: conn, mountpoint: mountpoint}
	go func() {
		if err := fs.Serve(conn, &filesystem{db: db, locker: locker}); err != nil {
			log.Errorf("fuse serve exited: %v", err)
		}
	}()

	select {
	case <-conn.Ready:
		if conn.MountError != nil {
			return nil, nyxerr.Wrap(nyxerr.Io, conn.MountError)
		}
	case <-time.After(5 * time.Second):
		return nil, nyxerr.New(nyxerr.Io, "timed out waiting for fuse mount to become ready")
	}

	log.Infof("Mounted ssh_keys filesystem at %s", mountpoint)
	return m, nil
}

// Unmount satisfies rpc.FuseUnmounter.
func (m *Mount) Unmount() error {
	if err := fuse.Unmount(m.mountpoint); err != nil {
		return nyxerr.Wrap(nyxerr.Io, err)
	}
	return m.conn.Close()
}

// filesystem is the fs.FS root, the analogue of fs.rs's NyxFs.
type filesystem struct {
	db     *store.NyxDb
	locker sync.Locker
}

func (f *filesystem) Root() (fs.Node, error) {
	return &dir{fs: f, ino: rootIno, isRoot: true}, nil
}

// dir represents either the synthetic mount root (ino 1, containing only
// "ssh_keys") or a real or synthetic directory inside the ssh_keys
// collection, keyed by path: the slash-joined name prefix shared by one
// or more entries, the analogue of SshKeysDb's directories map.
type dir struct {
	fs     *filesystem
	ino    uint64
	path   string
	isRoot bool
}

func (d *dir) Attr(ctx context.Context, a *fuse.Attr) error {
	d.fs.locker.Lock()
	defer d.fs.locker.Unlock()

	attr, ok := d.fs.db.SshKeys.GetAttr(d.ino)
	if !ok {
		return syscall.ENOENT
	}
	fillAttr(a, attr)
	return nil
}

func (d *dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	d.fs.locker.Lock()
	defer d.fs.locker.Unlock()

	if d.isRoot {
		if name != sshKeysName {
			return nil, syscall.ENOENT
		}
		return &dir{fs: d.fs, ino: sshKeysIno, path: ""}, nil
	}

	full := name
	if d.path != "" {
		full = d.path + "/" + name
	}
	lower := strings.ToLower(full)

	if ino, ok := d.fs.db.SshKeys.Directories[lower]; ok {
		return &dir{fs: d.fs, ino: ino, path: lower}, nil
	}
	if key, err := d.fs.db.SshKeys.Files.Get(lower); err == nil {
		return &file{fs: d.fs, ino: key.Ino, name: lower}, nil
	}
	return nil, syscall.ENOENT
}

// ReadDirAll lists the entries immediately below d. fs.rs's own readdir
// labels every short name FileType::RegularFile regardless of whether it
// is actually an intermediate path segment; spec.md's testable scenario
// 6 is explicit that an intermediate segment like "prod" under
// "/ssh_keys" must be reported as a directory, so this port corrects
// that quirk rather than reproducing it, using the Directories index to
// tell the two cases apart.
func (d *dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	d.fs.locker.Lock()
	defer d.fs.locker.Unlock()

	entries := []fuse.Dirent{
		{Inode: rootIno, Type: fuse.DT_Dir, Name: "."},
		{Inode: rootIno, Type: fuse.DT_Dir, Name: ".."},
	}

	if d.isRoot {
		entries = append(entries, fuse.Dirent{Inode: sshKeysIno, Type: fuse.DT_Dir, Name: sshKeysName})
		return entries, nil
	}

	prefix := ""
	if d.path != "" {
		prefix = d.path + "/"
	}

	added := map[string]bool{}
	for name, key := range d.fs.db.SshKeys.Files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		parts := strings.SplitN(rest, "/", 2)
		short := parts[0]
		if added[short] {
			continue
		}
		added[short] = true

		if len(parts) > 1 {
			subPath := short
			if d.path != "" {
				subPath = d.path + "/" + short
			}
			entries = append(entries, fuse.Dirent{Inode: d.fs.db.SshKeys.Directories[strings.ToLower(subPath)], Type: fuse.DT_Dir, Name: short})
			continue
		}
		entries = append(entries, fuse.Dirent{Inode: key.Ino, Type: fuse.DT_File, Name: short})
	}
	return entries, nil
}

// file represents a single ssh_keys entry; its contents are the raw
// private key bytes, matching ssh_keys.rs's read impl.
type file struct {
	fs   *filesystem
	ino  uint64
	name string
}

func (fl *file) Attr(ctx context.Context, a *fuse.Attr) error {
	fl.fs.locker.Lock()
	defer fl.fs.locker.Unlock()

	attr, ok := fl.fs.db.SshKeys.GetAttr(fl.ino)
	if !ok {
		return syscall.ENOENT
	}
	fillAttr(a, attr)
	return nil
}

func (fl *file) ReadAll(ctx context.Context) ([]byte, error) {
	fl.fs.locker.Lock()
	defer fl.fs.locker.Unlock()

	key, err := fl.fs.db.SshKeys.Files.Get(fl.name)
	if err != nil {
		return nil, syscall.ENOENT
	}
	return key.PrivateKey, nil
}

func fillAttr(a *fuse.Attr, attr store.Attr) {
	a.Inode = attr.Ino
	a.Size = attr.Size
	a.Mtime = attr.Mtime
	a.Atime = attr.Mtime
	a.Ctime = attr.Mtime
	a.Nlink = attr.Nlink
	a.Valid = time.Second
	if attr.IsDir {
		a.Mode = os.ModeDir | os.FileMode(attr.Perm)
	} else {
		a.Mode = os.FileMode(attr.Perm)
	}
}
