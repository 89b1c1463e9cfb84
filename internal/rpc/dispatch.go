package rpc

import (
	"encoding/json"
	"strconv"

	"github.com/cicero-ai/nyx/internal/crypto"
	"github.com/cicero-ai/nyx/internal/nyxerr"
	"github.com/cicero-ai/nyx/internal/store"
)

// result carries a dispatched verb's outcome back to dispatchLocked and
// serveHTTP, which render it to JSON and do history/session bookkeeping. isModified
// and isCopy mirror rpc/message.rs's CmdResponse flags.
type result struct {
	value      any
	isModified bool
	isCopy     bool
}

func value(v any) (result, error)      { return result{value: v}, nil }
func modified(v any) (result, error)   { return result{value: v, isModified: true}, nil }
func copied(v any) (result, error)     { return result{value: v, isModified: true, isCopy: true}, nil }
func failed(err error) (result, error) { return result{}, err }

// getResult renders a "get" verb's outcome, honoring the optional
// copy_flag second parameter (params[1]=="1") rather than treating every
// get as clipboard-producing; a read never marks the session modified,
// matching base.rs::get_item's CmdResponse::new(false, is_copy, ...).
func getResult(params []string, v any) (result, error) {
	isCopy := len(params) > 1 && params[1] == "1"
	return result{value: v, isCopy: isCopy}, nil
}

// dispatch routes a (namespace, verb) RPC call to the matching store
// operation, the Go analogue of rpc/daemon.rs's RpcDaemon::handle match
// block. Every namespace/verb asymmetry there (ssh has import instead of
// new, str has set instead of new/edit, otp has no import) is preserved
// here rather than smoothed over, since those are the real operation
// surface, not an oversight to fix.
func dispatch(db *store.NyxDb, dbfile, namespace, verb string, params []string) (result, error) {
	switch namespace {
	case "db":
		return dispatchDb(db, dbfile, verb, params)
	case "user":
		return dispatchUser(db, verb, params)
	case "otp":
		return dispatchOtp(db, verb, params)
	case "ssh":
		return dispatchSsh(db, verb, params)
	case "str":
		return dispatchStr(db, verb, params)
	case "note":
		return dispatchNote(db, verb, params)
	default:
		return failed(nyxerr.New(nyxerr.Rpc, "Method does not exist"))
	}
}

func dispatchDb(db *store.NyxDb, dbfile, verb string, params []string) (result, error) {
	switch verb {
	case "history":
		return result{value: listHistory(db, params)}, nil
	case "stats":
		return result{value: store.NewDbStats(dbfile, db)}, nil
	default:
		return failed(nyxerr.New(nyxerr.Rpc, "Method does not exist"))
	}
}

func listHistory(db *store.NyxDb, params []string) []store.HistoryItem {
	start := 0
	if len(params) > 0 {
		if n, err := strconv.Atoi(params[0]); err == nil {
			start = n
		}
	}
	return db.History.List(start)
}

func dispatchUser(db *store.NyxDb, verb string, params []string) (result, error) {
	c := db.Users.Collection
	switch verb {
	case "new":
		item, err := addItem[store.User](c, params)
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "edit":
		item, err := editItem[store.User](c, params)
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "delete":
		if err := deleteItem(c, params); err != nil {
			return failed(err)
		}
		return modified(nil)
	case "copy":
		item, err := copyItem(c, params)
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "rename":
		item, err := renameItem(c, params)
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "exists":
		ok, err := existsItem(c, params)
		if err != nil {
			return failed(err)
		}
		return value(ok)
	case "find":
		names, err := findItems(c, params)
		if err != nil {
			return failed(err)
		}
		return value(names)
	case "get":
		item, err := getItem(c, params)
		if err != nil {
			return failed(err)
		}
		return getResult(params, item)
	case "list":
		names, err := listItems(c, params)
		if err != nil {
			return failed(err)
		}
		return value(names)
	default:
		return failed(nyxerr.New(nyxerr.Rpc, "Method does not exist"))
	}
}

func dispatchOtp(db *store.NyxDb, verb string, params []string) (result, error) {
	c := db.Oauth.Collection
	switch verb {
	case "new":
		item, err := addItem[store.Oauth](c, params)
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "edit":
		item, err := editItem[store.Oauth](c, params)
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "delete":
		if err := deleteItem(c, params); err != nil {
			return failed(err)
		}
		return modified(nil)
	case "copy":
		item, err := copyItem(c, params)
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "rename":
		item, err := renameItem(c, params)
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "exists":
		ok, err := existsItem(c, params)
		if err != nil {
			return failed(err)
		}
		return value(ok)
	case "find":
		names, err := findItems(c, params)
		if err != nil {
			return failed(err)
		}
		return value(names)
	case "get":
		item, err := getItem(c, params)
		if err != nil {
			return failed(err)
		}
		return getResult(params, item)
	case "list":
		names, err := listItems(c, params)
		if err != nil {
			return failed(err)
		}
		return value(names)
	case "generate":
		if len(params) < 1 {
			return failed(nyxerr.New(nyxerr.InvalidArguments, "Expecting a name"))
		}
		code, err := db.Oauth.Generate(params[0])
		if err != nil {
			return failed(err)
		}
		return copied(code)
	default:
		return failed(nyxerr.New(nyxerr.Rpc, "Method does not exist"))
	}
}

func dispatchSsh(db *store.NyxDb, verb string, params []string) (result, error) {
	c := db.SshKeys.Files
	switch verb {
	case "import":
		if len(params) < 2 {
			return failed(nyxerr.New(nyxerr.InvalidArguments, "Expecting a name and a JSON payload"))
		}
		key := &store.SshKey{}
		if err := json.Unmarshal([]byte(params[1]), key); err != nil {
			return failed(nyxerr.Wrap(nyxerr.Json, err))
		}
		if err := db.SshKeys.Import(params[0], key); err != nil {
			return failed(err)
		}
		return modified(key)
	case "edit":
		item, err := editItem[store.SshKey](c, params)
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "delete":
		if err := db.SshKeys.DeleteKey(firstParam(params)); err != nil {
			return failed(err)
		}
		return modified(nil)
	case "copy":
		if len(params) < 2 {
			return failed(nyxerr.New(nyxerr.InvalidArguments, "Expecting a source and destination name"))
		}
		item, err := db.SshKeys.CopyKey(params[0], params[1])
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "rename":
		if len(params) < 2 {
			return failed(nyxerr.New(nyxerr.InvalidArguments, "Expecting a source and destination name"))
		}
		item, err := db.SshKeys.RenameKey(params[0], params[1])
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "exists":
		ok, err := existsItem(c, params)
		if err != nil {
			return failed(err)
		}
		return value(ok)
	case "find":
		names, err := findItems(c, params)
		if err != nil {
			return failed(err)
		}
		return value(names)
	case "get":
		item, err := getItem(c, params)
		if err != nil {
			return failed(err)
		}
		return getResult(params, item)
	case "list":
		names, err := listItems(c, params)
		if err != nil {
			return failed(err)
		}
		return value(names)
	case "generate":
		if len(params) < 1 {
			return failed(nyxerr.New(nyxerr.InvalidArguments, "Expecting a name"))
		}
		pub, priv, err := crypto.GenerateSshKeypair()
		if err != nil {
			return failed(err)
		}
		key := &store.SshKey{PublicKey: pub, PrivateKey: priv}
		if len(params) > 1 {
			key.Host = params[1]
		}
		if len(params) > 2 {
			key.Username = params[2]
		}
		if err := db.SshKeys.Import(params[0], key); err != nil {
			return failed(err)
		}
		return modified(key)
	default:
		return failed(nyxerr.New(nyxerr.Rpc, "Method does not exist"))
	}
}

func dispatchStr(db *store.NyxDb, verb string, params []string) (result, error) {
	c := db.Strings.Collection
	switch verb {
	case "set":
		item, err := addItem[store.StrItem](c, params)
		if err != nil {
			item, err = editItem[store.StrItem](c, params)
			if err != nil {
				return failed(err)
			}
		}
		return modified(item)
	case "delete":
		if err := deleteItem(c, params); err != nil {
			return failed(err)
		}
		return modified(nil)
	case "copy":
		item, err := copyItem(c, params)
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "rename":
		item, err := renameItem(c, params)
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "exists":
		ok, err := existsItem(c, params)
		if err != nil {
			return failed(err)
		}
		return value(ok)
	case "find":
		names, err := findItems(c, params)
		if err != nil {
			return failed(err)
		}
		return value(names)
	case "get":
		item, err := getItem(c, params)
		if err != nil {
			return failed(err)
		}
		return getResult(params, item)
	case "list":
		names, err := listItems(c, params)
		if err != nil {
			return failed(err)
		}
		return value(names)
	default:
		return failed(nyxerr.New(nyxerr.Rpc, "Method does not exist"))
	}
}

func dispatchNote(db *store.NyxDb, verb string, params []string) (result, error) {
	c := db.Notes.Collection
	switch verb {
	case "new":
		item, err := addItem[store.Note](c, params)
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "edit":
		item, err := editItem[store.Note](c, params)
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "delete":
		if err := deleteItem(c, params); err != nil {
			return failed(err)
		}
		return modified(nil)
	case "copy":
		item, err := copyItem(c, params)
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "rename":
		item, err := renameItem(c, params)
		if err != nil {
			return failed(err)
		}
		return modified(item)
	case "exists":
		ok, err := existsItem(c, params)
		if err != nil {
			return failed(err)
		}
		return value(ok)
	case "find":
		names, err := findItems(c, params)
		if err != nil {
			return failed(err)
		}
		return value(names)
	case "get":
		item, err := getItem(c, params)
		if err != nil {
			return failed(err)
		}
		return getResult(params, item)
	case "list":
		names, err := listItems(c, params)
		if err != nil {
			return failed(err)
		}
		return value(names)
	default:
		return failed(nyxerr.New(nyxerr.Rpc, "Method does not exist"))
	}
}

func firstParam(params []string) string {
	if len(params) == 0 {
		return ""
	}
	return params[0]
}
