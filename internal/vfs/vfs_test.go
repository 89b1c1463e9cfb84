package vfs

import (
	"context"
	"sync"
	"syscall"
	"testing"

	"bazil.org/fuse"

	"github.com/cicero-ai/nyx/internal/store"
)

func newTestFs(t *testing.T) *filesystem {
	t.Helper()
	db := store.New(store.DatabaseTimeout{Never: true})
	if err := db.SshKeys.Import("work/github", &store.SshKey{PrivateKey: []byte("secret-key-bytes")}); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	return &filesystem{db: db, locker: &sync.Mutex{}}
}

func TestRootLooksUpSshKeysDirectory(t *testing.T) {
	f := newTestFs(t)
	root, err := f.Root()
	if err != nil {
		t.Fatalf("Root failed: %v", err)
	}
	d := root.(*dir)

	node, err := d.Lookup(context.Background(), sshKeysName)
	if err != nil {
		t.Fatalf("Lookup(ssh_keys) failed: %v", err)
	}
	sub, ok := node.(*dir)
	if !ok || sub.ino != sshKeysIno {
		t.Fatalf("expected the ssh_keys directory node, got %+v", node)
	}
}

func TestRootRejectsUnknownEntries(t *testing.T) {
	f := newTestFs(t)
	root, _ := f.Root()
	d := root.(*dir)

	if _, err := d.Lookup(context.Background(), "nope"); err != syscall.ENOENT {
		t.Fatalf("expected ENOENT for an unknown root entry, got %v", err)
	}
}

func TestNestedDirectoryLookupAndReaddir(t *testing.T) {
	f := newTestFs(t)
	root, _ := f.Root()
	sshDir, err := root.(*dir).Lookup(context.Background(), sshKeysName)
	if err != nil {
		t.Fatalf("Lookup(ssh_keys) failed: %v", err)
	}

	workDir, err := sshDir.(*dir).Lookup(context.Background(), "work")
	if err != nil {
		t.Fatalf("Lookup(work) failed: %v", err)
	}

	fileNode, err := workDir.(*dir).Lookup(context.Background(), "github")
	if err != nil {
		t.Fatalf("Lookup(github) failed: %v", err)
	}
	if _, ok := fileNode.(*file); !ok {
		t.Fatalf("expected a file node, got %T", fileNode)
	}

	entries, err := workDir.(*dir).ReadDirAll(context.Background())
	if err != nil {
		t.Fatalf("ReadDirAll failed: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Name == "github" {
			found = true
			if e.Type != fuse.DT_File {
				t.Fatalf("expected github to be a regular file entry, got %v", e.Type)
			}
		}
	}
	if !found {
		t.Fatalf("expected a github entry in %v", entries)
	}

	rootEntries, err := sshDir.(*dir).ReadDirAll(context.Background())
	if err != nil {
		t.Fatalf("ReadDirAll on ssh_keys root failed: %v", err)
	}
	foundDir := false
	for _, e := range rootEntries {
		if e.Name == "work" {
			foundDir = true
			if e.Type != fuse.DT_Dir {
				t.Fatalf("expected work to be a directory entry, got %v", e.Type)
			}
		}
	}
	if !foundDir {
		t.Fatalf("expected a work directory entry in %v", rootEntries)
	}
}

func TestFileReadAllReturnsPrivateKeyBytes(t *testing.T) {
	f := newTestFs(t)
	key, err := f.db.SshKeys.Files.Get("work/github")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	fl := &file{fs: f, ino: key.Ino, name: "work/github"}

	data, err := fl.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "secret-key-bytes" {
		t.Fatalf("unexpected file contents: %q", data)
	}
}

func TestAttrReflectsFileSize(t *testing.T) {
	f := newTestFs(t)
	key, _ := f.db.SshKeys.Files.Get("work/github")
	fl := &file{fs: f, ino: key.Ino, name: "work/github"}

	var a fuse.Attr
	if err := fl.Attr(context.Background(), &a); err != nil {
		t.Fatalf("Attr failed: %v", err)
	}
	if a.Size != uint64(len("secret-key-bytes")) {
		t.Fatalf("expected attr size to match key contents, got %d", a.Size)
	}
}
