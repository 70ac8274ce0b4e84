package schema

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/go-openapi/inflect"

	"github.com/syssam/relgraph"
)

// Provider supplies mapping metadata per entity type. Types are struct
// types; pointer types are dereferenced.
type Provider interface {
	Columns(t reflect.Type) ([]*ColumnDescriptor, error)
	Relationships(t reflect.Type) ([]*RelationshipDescriptor, error)
	TableName(t reflect.Type) (string, error)
}

var deferredType = reflect.TypeFor[relgraph.Deferred]()

// Registry is a Provider built from fluent entity declarations. Types
// without a declaration are mapped by convention: every exported field of
// a simple type is a column named after the field, a field named ID is the
// auto-increment primary key and the table name is the pluralized type
// name. Built metadata is memoized per type.
type Registry struct {
	mu       sync.Mutex
	entities map[reflect.Type]*EntityBuilder
	built    map[reflect.Type]*entityInfo
}

type entityInfo struct {
	table     string
	columns   []*ColumnDescriptor
	relations []*RelationshipDescriptor
	err       error
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[reflect.Type]*EntityBuilder),
		built:    make(map[reflect.Type]*entityInfo),
	}
}

// EntityBuilder declares the mapping of one entity type. Every declaration
// invalidates the metadata the registry built so far; column and relation
// builders must be complete when they are passed in.
type EntityBuilder struct {
	reg       *Registry
	typ       reflect.Type
	table     string
	columns   []*ColumnBuilder
	relations []*RelationBuilder
	ignore    map[string]bool
}

// Entity returns the declaration of the type of v, a struct value or a
// pointer to one, creating it on first use.
//
//	reg.Entity(&Order{}).
//		Table("Orders").
//		Columns(schema.Column("ID").Name("OrderID").PrimaryKey().AutoIncrement()).
//		Relations(schema.Relation("OrderItems").Keys("ID", "OrderID"))
func (r *Registry) Entity(v any) *EntityBuilder {
	t := structType(reflect.TypeOf(v))
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.entities[t]; ok {
		return b
	}
	b := &EntityBuilder{reg: r, typ: t, ignore: make(map[string]bool)}
	r.entities[t] = b
	clear(r.built)
	return b
}

// declare applies fn under the registry lock and drops the memoized
// metadata. Relationship descriptors of other types embed this type's
// keys, so the whole cache goes.
func (b *EntityBuilder) declare(fn func()) *EntityBuilder {
	b.reg.mu.Lock()
	defer b.reg.mu.Unlock()
	fn()
	clear(b.reg.built)
	return b
}

// Table sets the table (or view) name.
func (b *EntityBuilder) Table(name string) *EntityBuilder {
	return b.declare(func() { b.table = name })
}

// Columns declares columns. Fields not declared are still mapped by
// convention unless ignored.
func (b *EntityBuilder) Columns(cs ...*ColumnBuilder) *EntityBuilder {
	return b.declare(func() { b.columns = append(b.columns, cs...) })
}

// Relations declares relationships.
func (b *EntityBuilder) Relations(rs ...*RelationBuilder) *EntityBuilder {
	return b.declare(func() { b.relations = append(b.relations, rs...) })
}

// Ignore excludes fields from convention mapping.
func (b *EntityBuilder) Ignore(fields ...string) *EntityBuilder {
	return b.declare(func() {
		for _, f := range fields {
			b.ignore[f] = true
		}
	})
}

// Columns implements Provider.
func (r *Registry) Columns(t reflect.Type) ([]*ColumnDescriptor, error) {
	info := r.info(t)
	return info.columns, info.err
}

// Relationships implements Provider.
func (r *Registry) Relationships(t reflect.Type) ([]*RelationshipDescriptor, error) {
	info := r.info(t)
	return info.relations, info.err
}

// TableName implements Provider.
func (r *Registry) TableName(t reflect.Type) (string, error) {
	info := r.info(t)
	return info.table, info.err
}

func (r *Registry) info(t reflect.Type) *entityInfo {
	t = structType(t)
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.built[t]; ok {
		return info
	}
	info := &entityInfo{}
	info.table, info.columns, info.relations, info.err = build(t, r.entities[t])
	r.built[t] = info
	return info
}

func build(t reflect.Type, b *EntityBuilder) (string, []*ColumnDescriptor, []*RelationshipDescriptor, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return "", nil, nil, relgraph.Configf(fmt.Sprint(t), "", "entity type must be a struct")
	}
	if b == nil {
		b = &EntityBuilder{typ: t, ignore: map[string]bool{}}
	}
	table := b.table
	if table == "" {
		table = inflect.Pluralize(t.Name())
	}
	relations, err := buildRelations(t, b.relations)
	if err != nil {
		return "", nil, nil, err
	}
	skip := make(map[string]bool, len(relations))
	for _, rel := range relations {
		skip[rel.Member] = true
	}
	columns, err := buildColumns(t, b, skip)
	if err != nil {
		return "", nil, nil, err
	}
	if err := resolveKeys(t, columns, relations); err != nil {
		return "", nil, nil, err
	}
	return table, columns, relations, nil
}

func buildColumns(t reflect.Type, b *EntityBuilder, skip map[string]bool) ([]*ColumnDescriptor, error) {
	declared := make(map[string]*ColumnDescriptor, len(b.columns))
	for _, cb := range b.columns {
		d := *cb.Descriptor()
		sf, ok := t.FieldByName(d.Field)
		if !ok || !sf.IsExported() {
			return nil, relgraph.Configf(t.Name(), d.Field, "no exported field for column %q", d.Name)
		}
		if skip[d.Field] {
			return nil, relgraph.Configf(t.Name(), d.Field, "member is declared as both column and relationship")
		}
		if d.Converter == nil && !isSimple(sf.Type) {
			return nil, relgraph.Configf(t.Name(), d.Field, "unsupported column type %s without converter", sf.Type)
		}
		d.Type, d.index = sf.Type, sf.Index
		declared[d.Field] = &d
	}
	var (
		columns []*ColumnDescriptor
		hasPK   bool
	)
	for _, sf := range reflect.VisibleFields(t) {
		if sf.Anonymous || !sf.IsExported() || skip[sf.Name] || b.ignore[sf.Name] {
			continue
		}
		// Promoted fields shadowed by a shallower one share the name.
		if top, _ := t.FieldByName(sf.Name); len(top.Index) != len(sf.Index) {
			continue
		}
		d, ok := declared[sf.Name]
		if !ok {
			if !isSimple(sf.Type) {
				continue
			}
			d = &ColumnDescriptor{Field: sf.Name, Name: sf.Name, Type: sf.Type, index: sf.Index}
		}
		hasPK = hasPK || d.PrimaryKey
		columns = append(columns, d)
	}
	if !hasPK {
		for _, c := range columns {
			if c.Field == "ID" {
				c.PrimaryKey = true
				if _, explicit := declared["ID"]; !explicit {
					c.AutoIncrement = isInt(c.Type.Kind()) || isUint(c.Type.Kind())
				}
			}
		}
	}
	return columns, nil
}

func buildRelations(t reflect.Type, builders []*RelationBuilder) ([]*RelationshipDescriptor, error) {
	relations := make([]*RelationshipDescriptor, 0, len(builders))
	seen := make(map[string]bool, len(builders))
	for _, rb := range builders {
		d := *rb.Descriptor()
		if seen[d.Member] {
			return nil, relgraph.Configf(t.Name(), d.Member, "relationship declared twice")
		}
		seen[d.Member] = true
		sf, ok := t.FieldByName(d.Member)
		if !ok || !sf.IsExported() {
			return nil, relgraph.Configf(t.Name(), d.Member, "no exported member for relationship")
		}
		d.index, d.memberType, d.valueType = sf.Index, sf.Type, sf.Type
		if reflect.PointerTo(sf.Type).Implements(deferredType) {
			d.Lazy = true
			d.valueType = reflect.New(sf.Type).Interface().(relgraph.Deferred).ElemType()
		}
		inferred, target := cardinalityOf(d.valueType)
		switch {
		case inferred == CardinalityUnknown:
			return nil, relgraph.Configf(t.Name(), d.Member, "cannot determine cardinality of %s", d.valueType)
		case d.Cardinality == Many && inferred != Many:
			return nil, relgraph.Configf(t.Name(), d.Member, "member of type %s is not a collection", d.valueType)
		case d.Cardinality == One && inferred != One:
			return nil, relgraph.Configf(t.Name(), d.Member, "collection member of type %s declared One", d.valueType)
		}
		d.Cardinality, d.Target = inferred, target
		switch {
		case d.Lazy && d.Policy == Undefined:
			d.Policy = LazyLoaded
		case !d.Lazy && d.Policy == LazyLoaded:
			return nil, relgraph.Configf(t.Name(), d.Member, "lazy policy requires a relgraph.Lazy member")
		}
		relations = append(relations, &d)
	}
	return relations, nil
}

// cardinalityOf infers the cardinality and target struct type of a
// relationship value type.
func cardinalityOf(t reflect.Type) (Cardinality, reflect.Type) {
	switch {
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		return One, t.Elem()
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Pointer && t.Elem().Elem().Kind() == reflect.Struct:
		return Many, t.Elem().Elem()
	}
	return CardinalityUnknown, nil
}

// resolveKeys fills default join keys and checks that both ends exist.
// Defaults: Many joins the parent primary key to <Parent>ID on the child;
// One joins <Member>ID on the parent to the child ID.
func resolveKeys(t reflect.Type, columns []*ColumnDescriptor, relations []*RelationshipDescriptor) error {
	for _, rel := range relations {
		if rel.ParentKey == "" || rel.ChildKey == "" {
			switch rel.Cardinality {
			case Many:
				pks := PrimaryKeys(columns)
				if len(pks) == 0 {
					return relgraph.Configf(t.Name(), rel.Member, "no primary key for default relationship keys")
				}
				rel.ParentKey, rel.ChildKey = pks[0].Field, t.Name()+"ID"
			case One:
				rel.ParentKey, rel.ChildKey = rel.Member+"ID", "ID"
			}
		}
		if FindColumn(columns, rel.ParentKey) == nil {
			return relgraph.Configf(t.Name(), rel.Member, "parent key %q is not a mapped column", rel.ParentKey)
		}
		if _, ok := rel.Target.FieldByName(rel.ChildKey); !ok {
			return relgraph.Configf(t.Name(), rel.Member, "child key %q is not a member of %s", rel.ChildKey, rel.Target.Name())
		}
	}
	return nil
}

// PrimaryKeys returns the primary key columns in declaration order.
func PrimaryKeys(columns []*ColumnDescriptor) []*ColumnDescriptor {
	var pks []*ColumnDescriptor
	for _, c := range columns {
		if c.PrimaryKey {
			pks = append(pks, c)
		}
	}
	return pks
}

// FindColumn returns the column mapped to field, or nil.
func FindColumn(columns []*ColumnDescriptor, field string) *ColumnDescriptor {
	for _, c := range columns {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// TypeOf returns the entity struct type of T.
func TypeOf[T any]() reflect.Type {
	return structType(reflect.TypeFor[T]())
}

func structType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
