package scan

import (
	"encoding/binary"
	"fmt"

	"github.com/hashicorp/go-memdb"
)

const (
	tableEntry     = "entry"
	tableAlias     = "alias"
	tableTombstone = "tombstone"

	indexID = "id"
)

// alias maps the offset of a replacement record to the original message
type alias struct {
	Offset int64
	Root   int64
}

type tombstone struct {
	Offset int64
}

// offsetKey serializes an offset so that keys sort in offset order: inverting
// the sign bit of the big-endian representation keeps negative values first
func offsetKey(offset int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(offset))
	b[0] ^= 0x80
	return b
}

// offsetIndexer indexes view objects by their Offset field
type offsetIndexer struct{}

var _ memdb.SingleIndexer = offsetIndexer{}

func (offsetIndexer) FromObject(obj any) (bool, []byte, error) {
	switch o := obj.(type) {
	case *Entry:
		return true, offsetKey(o.Offset), nil
	case *alias:
		return true, offsetKey(o.Offset), nil
	case *tombstone:
		return true, offsetKey(o.Offset), nil
	default:
		return false, nil, fmt.Errorf("unexpected object of type %T in view", obj)
	}
}

func (offsetIndexer) FromArgs(args ...any) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("offset index takes one argument, got %d", len(args))
	}
	offset, ok := args[0].(int64)
	if !ok {
		return nil, fmt.Errorf("offset index argument must be int64, got %T", args[0])
	}
	return offsetKey(offset), nil
}

func viewSchema() *memdb.DBSchema {
	tables := map[string]*memdb.TableSchema{}
	for _, name := range []string{tableEntry, tableAlias, tableTombstone} {
		tables[name] = &memdb.TableSchema{
			Name: name,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {Name: indexID, Unique: true, Indexer: offsetIndexer{}},
			},
		}
	}
	return &memdb.DBSchema{Tables: tables}
}
