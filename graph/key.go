package graph

import (
	"fmt"
	"strings"
	"time"

	"github.com/syssam/relgraph/schema"
)

// Row gives name-based access to the current result row.
type Row interface {
	// Value returns the raw value of the named column and whether the
	// column is present in the result set.
	Value(name string) (any, bool)
}

// GroupingKey identifies an entity within one node of one execution: its
// primary key values followed, for One relationships, by the key of its
// parent. A nil key is the null key.
type GroupingKey []any

// IsNull reports whether k is the null key.
func (k GroupingKey) IsNull() bool { return k == nil }

// String serializes the key for identity lookups.
func (k GroupingKey) String() string {
	var b strings.Builder
	for i, v := range k {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		switch v := v.(type) {
		case []byte:
			fmt.Fprintf(&b, "s:%s", v)
		case string:
			fmt.Fprintf(&b, "s:%s", v)
		case time.Time:
			fmt.Fprintf(&b, "t:%s", v.UTC().Format(time.RFC3339Nano))
		case int64, int32, int16, int8, int, uint64, uint32, uint16, uint8, uint:
			fmt.Fprintf(&b, "n:%d", v)
		default:
			fmt.Fprintf(&b, "%T:%v", v, v)
		}
	}
	return b.String()
}

// KeyOf computes the grouping key of node n from row. parent is the key
// computed for the parent node in the same row; it is ignored unless the
// node's relationship is One. Nodes without primary key columns have a
// null key when every mapped column is NULL.
func KeyOf(n *Node, row Row, useAlt bool, parent GroupingKey) GroupingKey {
	key := make(GroupingKey, 0, len(n.Keys)+len(parent))
	for _, c := range n.Keys {
		v, ok := row.Value(c.ReadName(useAlt))
		if !ok || v == nil {
			return nil
		}
		key = append(key, v)
	}
	if len(n.Keys) == 0 && allNull(n, row, useAlt) {
		return nil
	}
	if n.Relation != nil && n.Relation.Cardinality == schema.One && parent != nil {
		key = append(key, parent...)
	}
	if len(key) == 0 {
		return nil
	}
	return key
}

func allNull(n *Node, row Row, useAlt bool) bool {
	for _, c := range n.Columns {
		if v, ok := row.Value(c.ReadName(useAlt)); ok && v != nil {
			return false
		}
	}
	return true
}
