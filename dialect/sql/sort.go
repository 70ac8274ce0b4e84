package sql

import (
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/querylanguage"
)

// SortBuilder accumulates sort keys. OrderBy and OrderByDescending start
// a new key list; ThenBy and ThenByDescending extend it.
type SortBuilder struct {
	keys []querylanguage.Order
	raw  string
}

// OrderBy returns a builder sorting ascending by field.
func OrderBy(field string) *SortBuilder {
	return (&SortBuilder{}).OrderBy(field)
}

// OrderBy resets the keys to field ascending.
func (s *SortBuilder) OrderBy(field string) *SortBuilder {
	s.keys, s.raw = []querylanguage.Order{querylanguage.Asc(field)}, ""
	return s
}

// OrderByDescending resets the keys to field descending.
func (s *SortBuilder) OrderByDescending(field string) *SortBuilder {
	s.keys, s.raw = []querylanguage.Order{querylanguage.Desc(field)}, ""
	return s
}

// ThenBy appends field ascending.
func (s *SortBuilder) ThenBy(field string) *SortBuilder {
	s.keys = append(s.keys, querylanguage.Asc(field))
	return s
}

// ThenByDescending appends field descending.
func (s *SortBuilder) ThenByDescending(field string) *SortBuilder {
	s.keys = append(s.keys, querylanguage.Desc(field))
	return s
}

// Orders appends the given keys.
func (s *SortBuilder) Orders(os ...querylanguage.Order) *SortBuilder {
	s.keys = append(s.keys, os...)
	return s
}

// Raw replaces the keys with a verbatim key list, e.g. "[Name] DESC".
func (s *SortBuilder) Raw(keys string) *SortBuilder {
	s.keys, s.raw = nil, keys
	return s
}

// Empty reports whether no sort key was set.
func (s *SortBuilder) Empty() bool {
	return s == nil || (len(s.keys) == 0 && s.raw == "")
}

// Clone returns an independent copy of s.
func (s *SortBuilder) Clone() *SortBuilder {
	if s == nil {
		return &SortBuilder{}
	}
	return &SortBuilder{keys: append([]querylanguage.Order(nil), s.keys...), raw: s.raw}
}

// Keys renders the key list without the ORDER BY keyword.
func (s *SortBuilder) Keys(c *ExprCompiler) (string, error) {
	if s.raw != "" {
		return s.raw, nil
	}
	parts := make([]string, len(s.keys))
	for i, o := range s.keys {
		if o.Field == "" {
			return "", relgraph.NewCompileError(o.String(), "empty sort key")
		}
		_, name, err := c.Resolver.Resolve(o.Field)
		if err != nil {
			return "", err
		}
		parts[i] = c.Token(name)
		if o.Desc {
			parts[i] += " DESC"
		}
	}
	return strings.Join(parts, ","), nil
}

// SQL renders the ORDER BY clause, or an empty string if s is empty.
func (s *SortBuilder) SQL(c *ExprCompiler) (string, error) {
	if s.Empty() {
		return "", nil
	}
	keys, err := s.Keys(c)
	if err != nil {
		return "", err
	}
	return "ORDER BY " + keys, nil
}
