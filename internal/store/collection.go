// Package store implements the five typed collections backing a Nyx
// database (users, oauth, ssh keys, strings, notes) behind one uniform
// CRUD surface, plus the append-only history log and the aggregate
// NyxDb container that ties them together.
//
// The uniform CRUD contract is grounded on original_source's
// BaseDbItem/BaseDbFunctions blanket trait (database/base.rs): add/copy/
// delete/edit/exists/find/list/rename implemented once over any
// HashMap<String, Item>-backed collection. Go has no blanket trait impl,
// so the same contract is expressed as a generic Collection[T] type; this
// is the one place this port substitutes a Go-native mechanism for a
// Rust-native one while keeping identical semantics (see DESIGN.md).
package store

import (
	"sort"
	"strings"

	"github.com/cicero-ai/nyx/internal/nyxerr"
)

// Item is implemented by every collection's value type (User, Oauth,
// SshKey, StrItem, Note), mirroring base.rs's BaseDbItem trait.
type Item interface {
	Name() string
	SetName(name string)
	Matches(search string) bool
	Clone() Item
}

// Collection is a name-keyed map of items with the CRUD contract shared
// across all five typed databases. Keys are always stored lower-cased;
// callers pass names as given by the caller and Collection normalizes.
type Collection[T Item] map[string]T

// Add inserts a new item under name, failing if one already exists there.
func (c Collection[T]) Add(name string, item T) error {
	key := strings.ToLower(name)
	if _, exists := c[key]; exists {
		return nyxerr.Newf(nyxerr.Validate, "Entry already exists, %s", name)
	}
	c[key] = item
	return nil
}

// Get returns the item stored at name.
func (c Collection[T]) Get(name string) (T, error) {
	key := strings.ToLower(name)
	item, ok := c[key]
	if !ok {
		var zero T
		return zero, nyxerr.Newf(nyxerr.Validate, "No entry exists at, %s", name)
	}
	return item, nil
}

// Edit replaces the item stored at name, failing if it does not exist.
func (c Collection[T]) Edit(name string, item T) error {
	key := strings.ToLower(name)
	if _, ok := c[key]; !ok {
		return nyxerr.Newf(nyxerr.Validate, "No entry to edit exists at, %s", name)
	}
	c[key] = item
	return nil
}

// Delete removes the item stored at name.
func (c Collection[T]) Delete(name string) error {
	key := strings.ToLower(name)
	if _, ok := c[key]; !ok {
		return nyxerr.Newf(nyxerr.Validate, "No entry to delete exists at %s", name)
	}
	delete(c, key)
	return nil
}

// Exists reports whether an item is stored at name.
func (c Collection[T]) Exists(name string) bool {
	_, ok := c[strings.ToLower(name)]
	return ok
}

// Copy duplicates the item at src to dest, renaming the copy, failing if
// src is missing or dest already exists.
func (c Collection[T]) Copy(src, dest string) (T, error) {
	var zero T
	srcKey, destKey := strings.ToLower(src), strings.ToLower(dest)
	if _, exists := c[destKey]; exists {
		return zero, nyxerr.Newf(nyxerr.Validate, "Destination to copy item to already exists, %s", dest)
	}
	item, ok := c[srcKey]
	if !ok {
		return zero, nyxerr.Newf(nyxerr.Validate, "Entry to copy  does not exist at, %s", src)
	}
	newItem := item.Clone().(T)
	newItem.SetName(dest)
	c[destKey] = newItem
	return newItem, nil
}

// Rename moves the item at src to dest, failing if src is missing or dest
// already exists.
func (c Collection[T]) Rename(src, dest string) (T, error) {
	var zero T
	srcKey, destKey := strings.ToLower(src), strings.ToLower(dest)
	if _, exists := c[destKey]; exists {
		return zero, nyxerr.Newf(nyxerr.Validate, "Destination to rename item to already exists, %s", dest)
	}
	item, ok := c[srcKey]
	if !ok {
		return zero, nyxerr.Newf(nyxerr.Validate, "No entry exists at, %s", src)
	}
	newItem := item.Clone().(T)
	newItem.SetName(dest)
	c[destKey] = newItem
	delete(c, srcKey)
	return newItem, nil
}

// Find returns the display names of every item matching search, sorted.
func (c Collection[T]) Find(search string) []string {
	search = strings.ToLower(search)
	names := make([]string, 0, len(c))
	for _, item := range c {
		if item.Matches(search) {
			names = append(names, item.Name())
		}
	}
	sort.Strings(names)
	return names
}

const listPageSize = 25

// List returns one page of entries under dirname (the empty string for
// the root), subdirectories first then files, each alphabetically sorted,
// windowed to [start, start+25) the way base.rs's list_items paginates.
func (c Collection[T]) List(dirname string, start int) []string {
	prefix := ""
	if dirname != "" {
		prefix = dirname + "/"
	}

	dirSet := make(map[string]struct{})
	var files []string
	for key := range c {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			dirSet[rest[:idx]+"/"] = struct{}{}
		} else {
			files = append(files, rest)
		}
	}

	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	sort.Strings(files)

	items := append(dirs, files...)
	if start >= len(items) {
		return []string{}
	}
	end := start + listPageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// Keys returns every stored key (used by DbStats's directory-count logic).
func (c Collection[T]) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Len reports the number of stored items.
func (c Collection[T]) Len() int { return len(c) }
