package store

import "testing"

func newUsers() Collection[*User] { return make(Collection[*User]) }

func TestCollectionAddGetIsCaseInsensitive(t *testing.T) {
	c := newUsers()
	if err := c.Add("GitHub", &User{DisplayName: "GitHub", Username: "me"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	item, err := c.Get("github")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if item.Username != "me" {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestCollectionAddRejectsDuplicate(t *testing.T) {
	c := newUsers()
	_ = c.Add("github", &User{DisplayName: "github"})
	if err := c.Add("GitHub", &User{DisplayName: "github"}); err == nil {
		t.Fatal("expected error adding duplicate entry")
	}
}

func TestCollectionDeleteMissingFails(t *testing.T) {
	c := newUsers()
	if err := c.Delete("missing"); err == nil {
		t.Fatal("expected error deleting missing entry")
	}
}

func TestCollectionCopyDuplicatesIndependently(t *testing.T) {
	c := newUsers()
	_ = c.Add("github", &User{DisplayName: "github", Password: "secret"})

	copied, err := c.Copy("github", "github2")
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if copied.Password != "secret" {
		t.Fatalf("copy lost field: %+v", copied)
	}

	orig, _ := c.Get("github")
	copied.Password = "changed"
	if orig.Password == "changed" {
		t.Fatal("Copy should not alias the original item")
	}
}

func TestCollectionCopyRejectsExistingDest(t *testing.T) {
	c := newUsers()
	_ = c.Add("a", &User{DisplayName: "a"})
	_ = c.Add("b", &User{DisplayName: "b"})
	if _, err := c.Copy("a", "b"); err == nil {
		t.Fatal("expected error copying onto an existing destination")
	}
}

func TestCollectionRenameMovesEntry(t *testing.T) {
	c := newUsers()
	_ = c.Add("old", &User{DisplayName: "old"})
	if _, err := c.Rename("old", "new"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if c.Exists("old") {
		t.Fatal("old key should no longer exist after rename")
	}
	if !c.Exists("new") {
		t.Fatal("new key should exist after rename")
	}
}

func TestCollectionFindIsSortedAndCaseInsensitive(t *testing.T) {
	c := newUsers()
	_ = c.Add("zebra", &User{DisplayName: "zebra", URL: "zoo.example.com"})
	_ = c.Add("apple", &User{DisplayName: "apple", URL: "fruit.example.com"})
	_ = c.Add("banana", &User{DisplayName: "banana", URL: "other.example.com"})

	results := c.Find("example")
	if len(results) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(results))
	}
	if results[0] != "apple" || results[1] != "banana" || results[2] != "zebra" {
		t.Fatalf("expected sorted results, got %v", results)
	}
}

func TestCollectionListPaginatesDirsBeforeFiles(t *testing.T) {
	c := newUsers()
	_ = c.Add("work/github", &User{DisplayName: "work/github"})
	_ = c.Add("work/gitlab", &User{DisplayName: "work/gitlab"})
	_ = c.Add("personal", &User{DisplayName: "personal"})
	_ = c.Add("zzz", &User{DisplayName: "zzz"})

	page := c.List("", 0)
	if len(page) != 3 {
		t.Fatalf("expected 3 top-level entries (1 dir + 2 files), got %v", page)
	}
	if page[0] != "work/" {
		t.Fatalf("expected directory first, got %v", page)
	}
	if page[1] != "personal" || page[2] != "zzz" {
		t.Fatalf("expected sorted files after dirs, got %v", page)
	}

	sub := c.List("work", 0)
	if len(sub) != 2 || sub[0] != "github" || sub[1] != "gitlab" {
		t.Fatalf("unexpected subdirectory listing: %v", sub)
	}
}

func TestCollectionListWindowsAtTwentyFive(t *testing.T) {
	c := newUsers()
	for i := 0; i < 30; i++ {
		name := string(rune('a' + i%26))
		_ = c.Add(name+string(rune('0'+i/26)), &User{DisplayName: name})
	}
	first := c.List("", 0)
	if len(first) != 25 {
		t.Fatalf("expected first page of 25, got %d", len(first))
	}
	second := c.List("", 25)
	if len(second) != 5 {
		t.Fatalf("expected second page of 5, got %d", len(second))
	}
}

func TestCollectionListPastEndReturnsEmpty(t *testing.T) {
	c := newUsers()
	_ = c.Add("only", &User{DisplayName: "only"})
	if page := c.List("", 100); len(page) != 0 {
		t.Fatalf("expected empty page past end, got %v", page)
	}
}
