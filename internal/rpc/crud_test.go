package rpc

import (
	"testing"

	"github.com/cicero-ai/nyx/internal/store"
)

func TestAddItemParsesPayloadAndSetsName(t *testing.T) {
	c := make(store.Collection[*store.User])
	item, err := addItem[store.User](c, []string{"github", `{"username":"me","password":"secret"}`})
	if err != nil {
		t.Fatalf("addItem failed: %v", err)
	}
	if item.Name() != "github" || item.Username != "me" {
		t.Fatalf("unexpected item: %+v", item)
	}
	if !c.Exists("github") {
		t.Fatal("item was not inserted into the collection")
	}
}

func TestAddItemRejectsMissingParams(t *testing.T) {
	c := make(store.Collection[*store.User])
	if _, err := addItem[store.User](c, []string{"github"}); err == nil {
		t.Fatal("expected error for missing payload param")
	}
}

func TestEditItemOverwritesExisting(t *testing.T) {
	c := make(store.Collection[*store.User])
	_ = c.Add("github", &store.User{DisplayName: "github", Username: "old"})

	item, err := editItem[store.User](c, []string{"github", `{"username":"new"}`})
	if err != nil {
		t.Fatalf("editItem failed: %v", err)
	}
	if item.Username != "new" {
		t.Fatalf("expected edit to apply, got %+v", item)
	}
}

func TestDeleteItemMissingFails(t *testing.T) {
	c := make(store.Collection[*store.User])
	if err := deleteItem[*store.User](c, []string{"missing"}); err == nil {
		t.Fatal("expected error deleting a missing entry")
	}
}

func TestListItemsParsesOptionalOffset(t *testing.T) {
	c := make(store.Collection[*store.User])
	for _, name := range []string{"a", "b", "c"} {
		_ = c.Add(name, &store.User{DisplayName: name})
	}
	names, err := listItems[*store.User](c, nil)
	if err != nil {
		t.Fatalf("listItems failed: %v", err)
	}
	if len(names) != 3 {
		t.Fatalf("expected 3 entries, got %v", names)
	}

	if _, err := listItems[*store.User](c, []string{"", "not-a-number"}); err == nil {
		t.Fatal("expected error for non-numeric page offset")
	}
}

func TestFindItemsRequiresSearchTerm(t *testing.T) {
	c := make(store.Collection[*store.User])
	if _, err := findItems[*store.User](c, nil); err == nil {
		t.Fatal("expected error for missing search term")
	}
}
