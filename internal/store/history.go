package store

import (
	"strings"
	"time"

	"github.com/cicero-ai/nyx/internal/nyxerr"
)

// HistoryAction classifies what happened to an entry, the analogue of
// database/history.rs's HistoryAction enum.
type HistoryAction int

const (
	ActionCreate HistoryAction = iota
	ActionUpdate
	ActionDelete
	ActionCopy
	ActionRename
)

func (a HistoryAction) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionCopy:
		return "copy"
	case ActionRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ActionFromVerb maps an RPC verb to a HistoryAction, taken verbatim from
// database/history.rs's FromStr impl for HistoryAction: "new", "import",
// "generate", and "set" all record as a Create.
func ActionFromVerb(verb string) (HistoryAction, error) {
	switch strings.ToLower(verb) {
	case "edit":
		return ActionUpdate, nil
	case "copy":
		return ActionCopy, nil
	case "delete":
		return ActionDelete, nil
	case "new", "import", "generate", "set":
		return ActionCreate, nil
	case "rename":
		return ActionRename, nil
	default:
		return 0, nyxerr.Newf(nyxerr.Generic, "no history action for verb %q", verb)
	}
}

// HistoryDataType classifies which collection an entry belongs to, the
// analogue of database/history.rs's HistoryDataType enum.
type HistoryDataType int

const (
	DataTypeUser HistoryDataType = iota
	DataTypeOauth
	DataTypeSshKey
	DataTypeString
	DataTypeNote
)

func (t HistoryDataType) String() string {
	switch t {
	case DataTypeUser:
		return "user"
	case DataTypeOauth:
		return "otp"
	case DataTypeSshKey:
		return "ssh"
	case DataTypeString:
		return "str"
	case DataTypeNote:
		return "note"
	default:
		return "unknown"
	}
}

// DataTypeFromNamespace maps an RPC namespace to a HistoryDataType, taken
// verbatim from database/history.rs's FromStr impl for HistoryDataType.
func DataTypeFromNamespace(namespace string) (HistoryDataType, error) {
	switch strings.ToLower(namespace) {
	case "user":
		return DataTypeUser, nil
	case "otp":
		return DataTypeOauth, nil
	case "ssh":
		return DataTypeSshKey, nil
	case "str":
		return DataTypeString, nil
	case "note":
		return DataTypeNote, nil
	default:
		return 0, nyxerr.Newf(nyxerr.Generic, "no history data type for namespace %q", namespace)
	}
}

// HistoryItem is one append-only log entry, the analogue of
// database/history.rs's HistoryItem struct.
type HistoryItem struct {
	Action    HistoryAction
	DataType  HistoryDataType
	Source    string
	Dest      string
	Timestamp time.Time
}

// HistoryDb is the append-only, newest-first activity log, the analogue
// of database/history.rs's HistoryDb(Vec<HistoryItem>).
type HistoryDb struct {
	Items []HistoryItem
}

// NewHistoryDb returns an empty history log.
func NewHistoryDb() *HistoryDb { return &HistoryDb{} }

// Add records action against source (and dest, for copy/rename), inserted
// at the front so the log reads newest-first. A Create against the oauth
// namespace is never recorded: generating a one-time code is a read, not
// a write, even though it's dispatched through the same "generate" verb
// that creates other entry types, matching database/history.rs's add().
func (h *HistoryDb) Add(action HistoryAction, dataType HistoryDataType, source, dest string) {
	if action == ActionCreate && dataType == DataTypeOauth {
		return
	}
	item := HistoryItem{Action: action, DataType: dataType, Source: source, Dest: dest, Timestamp: time.Now()}
	h.Items = append([]HistoryItem{item}, h.Items...)
}

// List returns one page of history items starting at start, windowed the
// same way Collection.List paginates (25 per page).
func (h *HistoryDb) List(start int) []HistoryItem {
	if start >= len(h.Items) {
		return []HistoryItem{}
	}
	end := start + listPageSize
	if end > len(h.Items) {
		end = len(h.Items)
	}
	out := make([]HistoryItem, end-start)
	copy(out, h.Items[start:end])
	return out
}
