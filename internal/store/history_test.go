package store

import "testing"

func TestHistoryAddIsNewestFirst(t *testing.T) {
	h := NewHistoryDb()
	h.Add(ActionCreate, DataTypeUser, "alice", "")
	h.Add(ActionCreate, DataTypeUser, "bob", "")

	if len(h.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(h.Items))
	}
	if h.Items[0].Source != "bob" {
		t.Fatalf("expected newest entry first, got %q", h.Items[0].Source)
	}
}

func TestHistorySuppressesOauthGenerate(t *testing.T) {
	h := NewHistoryDb()
	h.Add(ActionCreate, DataTypeOauth, "github", "")
	if len(h.Items) != 0 {
		t.Fatalf("expected oauth create to be suppressed, got %d items", len(h.Items))
	}

	h.Add(ActionUpdate, DataTypeOauth, "github", "")
	if len(h.Items) != 1 {
		t.Fatalf("expected non-create oauth actions to be recorded, got %d items", len(h.Items))
	}
}

func TestHistoryListPaginates(t *testing.T) {
	h := NewHistoryDb()
	for i := 0; i < 30; i++ {
		h.Add(ActionCreate, DataTypeNote, "item", "")
	}
	if page := h.List(0); len(page) != 25 {
		t.Fatalf("expected first page of 25, got %d", len(page))
	}
	if page := h.List(25); len(page) != 5 {
		t.Fatalf("expected second page of 5, got %d", len(page))
	}
}

func TestActionFromVerbMapping(t *testing.T) {
	cases := map[string]HistoryAction{
		"edit":     ActionUpdate,
		"copy":     ActionCopy,
		"delete":   ActionDelete,
		"new":      ActionCreate,
		"import":   ActionCreate,
		"generate": ActionCreate,
		"set":      ActionCreate,
		"rename":   ActionRename,
	}
	for verb, want := range cases {
		got, err := ActionFromVerb(verb)
		if err != nil {
			t.Fatalf("ActionFromVerb(%q) failed: %v", verb, err)
		}
		if got != want {
			t.Fatalf("ActionFromVerb(%q) = %v, want %v", verb, got, want)
		}
	}
}

func TestActionFromVerbRejectsUnknown(t *testing.T) {
	if _, err := ActionFromVerb("frobnicate"); err == nil {
		t.Fatal("expected error for unknown verb")
	}
}

func TestDataTypeFromNamespaceMapping(t *testing.T) {
	cases := map[string]HistoryDataType{
		"user": DataTypeUser,
		"otp":  DataTypeOauth,
		"ssh":  DataTypeSshKey,
		"str":  DataTypeString,
		"note": DataTypeNote,
	}
	for ns, want := range cases {
		got, err := DataTypeFromNamespace(ns)
		if err != nil {
			t.Fatalf("DataTypeFromNamespace(%q) failed: %v", ns, err)
		}
		if got != want {
			t.Fatalf("DataTypeFromNamespace(%q) = %v, want %v", ns, got, want)
		}
	}
}
