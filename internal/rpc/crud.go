package rpc

import (
	"encoding/json"
	"strconv"

	"github.com/cicero-ai/nyx/internal/nyxerr"
	"github.com/cicero-ai/nyx/internal/store"
)

// The functions below implement the nine shared verbs (new/edit/delete/
// copy/rename/exists/find/get/list) once, generically over any
// store.Collection[T], the RPC-layer analogue of the same blanket-trait
// substitution store.Collection itself makes over base.rs's
// BaseDbFunctions. E is the concrete struct a collection holds (User,
// Oauth, ...); T is always its pointer type *E, which the type set below
// pins down so new(E) and json.Unmarshal have a concrete, addressable
// target to populate.

func addItem[E any, T interface {
	*E
	store.Item
}](c store.Collection[T], params []string) (T, error) {
	var zero T
	if len(params) < 2 {
		return zero, nyxerr.New(nyxerr.InvalidArguments, "Expecting a name and a JSON payload")
	}
	item := T(new(E))
	if err := json.Unmarshal([]byte(params[1]), item); err != nil {
		return zero, nyxerr.Wrap(nyxerr.Json, err)
	}
	item.SetName(params[0])
	if err := c.Add(params[0], item); err != nil {
		return zero, err
	}
	return item, nil
}

func editItem[E any, T interface {
	*E
	store.Item
}](c store.Collection[T], params []string) (T, error) {
	var zero T
	if len(params) < 2 {
		return zero, nyxerr.New(nyxerr.InvalidArguments, "Expecting a name and a JSON payload")
	}
	item := T(new(E))
	if err := json.Unmarshal([]byte(params[1]), item); err != nil {
		return zero, nyxerr.Wrap(nyxerr.Json, err)
	}
	item.SetName(params[0])
	if err := c.Edit(params[0], item); err != nil {
		return zero, err
	}
	return item, nil
}

func deleteItem[T store.Item](c store.Collection[T], params []string) error {
	if len(params) < 1 {
		return nyxerr.New(nyxerr.InvalidArguments, "Expecting a name")
	}
	return c.Delete(params[0])
}

func copyItem[T store.Item](c store.Collection[T], params []string) (T, error) {
	var zero T
	if len(params) < 2 {
		return zero, nyxerr.New(nyxerr.InvalidArguments, "Expecting a source and destination name")
	}
	return c.Copy(params[0], params[1])
}

func renameItem[T store.Item](c store.Collection[T], params []string) (T, error) {
	var zero T
	if len(params) < 2 {
		return zero, nyxerr.New(nyxerr.InvalidArguments, "Expecting a source and destination name")
	}
	return c.Rename(params[0], params[1])
}

func existsItem[T store.Item](c store.Collection[T], params []string) (bool, error) {
	if len(params) < 1 {
		return false, nyxerr.New(nyxerr.InvalidArguments, "Expecting a name")
	}
	return c.Exists(params[0]), nil
}

func findItems[T store.Item](c store.Collection[T], params []string) ([]string, error) {
	if len(params) < 1 {
		return nil, nyxerr.New(nyxerr.InvalidArguments, "Expecting a search term")
	}
	return c.Find(params[0]), nil
}

func getItem[T store.Item](c store.Collection[T], params []string) (T, error) {
	var zero T
	if len(params) < 1 {
		return zero, nyxerr.New(nyxerr.InvalidArguments, "Expecting a name")
	}
	return c.Get(params[0])
}

func listItems[T store.Item](c store.Collection[T], params []string) ([]string, error) {
	dirname := ""
	if len(params) > 0 {
		dirname = params[0]
	}
	start := 0
	if len(params) > 1 {
		n, err := strconv.Atoi(params[1])
		if err != nil {
			return nil, nyxerr.New(nyxerr.InvalidArguments, "Expecting a numeric page offset")
		}
		start = n
	}
	return c.List(dirname, start), nil
}
