package store

// UsersDb is the users collection, the analogue of database/users.rs's
// UsersDb newtype over a HashMap.
type UsersDb struct {
	Collection[*User]
}

func NewUsersDb() *UsersDb { return &UsersDb{Collection: make(Collection[*User])} }

func (u *UsersDb) secureClear() {
	for _, item := range u.Collection {
		item.secureClear()
	}
}

// StringsDb is the strings collection, the analogue of
// database/strings.rs's StringsDb newtype over a HashMap.
type StringsDb struct {
	Collection[*StrItem]
}

func NewStringsDb() *StringsDb { return &StringsDb{Collection: make(Collection[*StrItem])} }

func (s *StringsDb) secureClear() {
	for _, item := range s.Collection {
		item.secureClear()
	}
}

// NotesDb is the notes collection, the analogue of database/notes.rs's
// NotesDb newtype over a HashMap.
type NotesDb struct {
	Collection[*Note]
}

func NewNotesDb() *NotesDb { return &NotesDb{Collection: make(Collection[*Note])} }

func (n *NotesDb) secureClear() {
	for _, item := range n.Collection {
		item.secureClear()
	}
}
