package scan

import (
	"github.com/hashicorp/go-memdb"
	"github.com/ridge/must/v2"
	"github.com/ridge/redchat/message"
	"time"
)

// Entry is the effective state of one message
type Entry struct {
	// Offset of the original record
	Offset int64
	Time   time.Time
	message.Message

	// ReplacedBy is the offset of the latest record replacing the text, if any
	ReplacedBy *int64
}

// View is the state of a topic after applying replacements and deletions.
//
// Records are folded in arrival order. A record replacing or deleting a
// replacement affects the message the replacement points to. Deleted messages
// stay deleted: later replacements of them are ignored.
type View struct {
	db *memdb.MemDB
}

// NewView creates an empty view
func NewView() *View {
	return &View{db: must.OK1(memdb.NewMemDB(viewSchema()))}
}

func resolve(txn *memdb.Txn, offset int64) int64 {
	if a := must.OK1(txn.First(tableAlias, indexID, offset)); a != nil {
		return a.(*alias).Root
	}
	return offset
}

func isDeleted(txn *memdb.Txn, offset int64) bool {
	return must.OK1(txn.First(tableTombstone, indexID, offset)) != nil
}

func getEntry(txn *memdb.Txn, offset int64) *Entry {
	if e := must.OK1(txn.First(tableEntry, indexID, offset)); e != nil {
		return e.(*Entry)
	}
	return nil
}

// Apply folds a decoded record into the view
func (v *View) Apply(offset int64, ts time.Time, env message.Envelope) {
	txn := v.db.Txn(true)
	defer txn.Abort()

	switch {
	case env.DeleteOffset != nil:
		root := resolve(txn, *env.DeleteOffset)
		if entry := getEntry(txn, root); entry != nil {
			must.OK(txn.Delete(tableEntry, entry))
		}
		must.OK(txn.Insert(tableTombstone, &tombstone{Offset: root}))
	case env.ReplacesOffset != nil:
		root := resolve(txn, *env.ReplacesOffset)
		must.OK(txn.Insert(tableAlias, &alias{Offset: offset, Root: root}))
		if isDeleted(txn, root) {
			break
		}
		// stored objects are immutable: update a copy
		entry := Entry{Offset: root, Time: ts}
		if existing := getEntry(txn, root); existing != nil {
			entry = *existing
		} // otherwise the original is outside of the scanned range
		entry.Message = env.Message
		entry.ReplacedBy = &offset
		must.OK(txn.Insert(tableEntry, &entry))
	default:
		if isDeleted(txn, offset) {
			break
		}
		entry := Entry{Offset: offset, Time: ts, Message: env.Message}
		if existing := getEntry(txn, offset); existing != nil {
			// replaced before it was seen: keep the replacement text
			entry = *existing
			entry.Time = ts
		}
		must.OK(txn.Insert(tableEntry, &entry))
	}
	txn.Commit()
}

// Len returns the number of visible messages
func (v *View) Len() int {
	return len(v.Entries())
}

// Entries returns the visible messages in ascending offset order
func (v *View) Entries() []Entry {
	txn := v.db.Txn(false)
	res := []Entry{}
	it := must.OK1(txn.Get(tableEntry, indexID))
	for obj := it.Next(); obj != nil; obj = it.Next() {
		res = append(res, *obj.(*Entry))
	}
	return res
}
