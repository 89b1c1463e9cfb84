package store

import "testing"

func TestNewSshKeysDbSeedsRootAndCollectionDir(t *testing.T) {
	db := NewSshKeysDb()
	if ino, ok := db.Directories[""]; !ok || ino != 1 {
		t.Fatalf("expected root directory at inode 1, got %v ok=%v", ino, ok)
	}
	if ino, ok := db.Directories["ssh_keys"]; !ok || ino != 2 {
		t.Fatalf("expected ssh_keys directory at inode 2, got %v ok=%v", ino, ok)
	}
}

func TestImportAllocatesIncreasingInodes(t *testing.T) {
	db := NewSshKeysDb()
	if err := db.Import("first", &SshKey{Host: "h1"}); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if err := db.Import("second", &SshKey{Host: "h2"}); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	first, _ := db.Files.Get("first")
	second, _ := db.Files.Get("second")
	if second.Ino <= first.Ino {
		t.Fatalf("expected increasing inodes, got first=%d second=%d", first.Ino, second.Ino)
	}
}

func TestSyncDirectoryCreatesAndRemovesEntry(t *testing.T) {
	db := NewSshKeysDb()
	if err := db.Import("work/github", &SshKey{Host: "github.com"}); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if _, ok := db.Directories["work"]; !ok {
		t.Fatal("expected synthetic 'work' directory to be created")
	}

	if err := db.DeleteKey("work/github"); err != nil {
		t.Fatalf("DeleteKey failed: %v", err)
	}
	if _, ok := db.Directories["work"]; ok {
		t.Fatal("expected synthetic 'work' directory to be removed once empty")
	}
}

func TestSyncDirectoryKeepsEntryWhileSiblingsRemain(t *testing.T) {
	db := NewSshKeysDb()
	_ = db.Import("work/a", &SshKey{})
	_ = db.Import("work/b", &SshKey{})

	if err := db.DeleteKey("work/a"); err != nil {
		t.Fatalf("DeleteKey failed: %v", err)
	}
	if _, ok := db.Directories["work"]; !ok {
		t.Fatal("expected 'work' directory to survive while 'work/b' remains")
	}
}

func TestCopyKeyAllocatesNewInode(t *testing.T) {
	db := NewSshKeysDb()
	_ = db.Import("original", &SshKey{PrivateKey: []byte("secret-bytes")})
	orig, _ := db.Files.Get("original")

	copied, err := db.CopyKey("original", "copy")
	if err != nil {
		t.Fatalf("CopyKey failed: %v", err)
	}
	if copied.Ino == orig.Ino {
		t.Fatal("expected copy to receive a distinct inode")
	}
	if string(copied.PrivateKey) != "secret-bytes" {
		t.Fatalf("copy lost private key bytes: %q", copied.PrivateKey)
	}
}

func TestRenameKeyPreservesInode(t *testing.T) {
	db := NewSshKeysDb()
	_ = db.Import("old-name", &SshKey{})
	orig, _ := db.Files.Get("old-name")

	renamed, err := db.RenameKey("old-name", "new-name")
	if err != nil {
		t.Fatalf("RenameKey failed: %v", err)
	}
	if renamed.Ino != orig.Ino {
		t.Fatalf("expected rename to preserve inode, got %d want %d", renamed.Ino, orig.Ino)
	}
	if db.Files.Exists("old-name") {
		t.Fatal("old name should no longer exist after rename")
	}
}

func TestGetAttrDistinguishesFilesAndDirectories(t *testing.T) {
	db := NewSshKeysDb()
	_ = db.Import("a-key", &SshKey{PrivateKey: []byte("01234567")})
	key, _ := db.Files.Get("a-key")

	fileAttr, ok := db.GetAttr(key.Ino)
	if !ok {
		t.Fatal("expected attr for file inode")
	}
	if fileAttr.IsDir || fileAttr.Size != 8 || fileAttr.Perm != 0o600 {
		t.Fatalf("unexpected file attr: %+v", fileAttr)
	}

	rootAttr, ok := db.GetAttr(1)
	if !ok || !rootAttr.IsDir || rootAttr.Perm != 0o755 {
		t.Fatalf("unexpected root attr: %+v ok=%v", rootAttr, ok)
	}
}

func TestGetAttrUnknownInode(t *testing.T) {
	db := NewSshKeysDb()
	if _, ok := db.GetAttr(9999); ok {
		t.Fatal("expected no attr for unallocated inode")
	}
}
