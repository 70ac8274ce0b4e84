package schema

import (
	"fmt"
	"reflect"

	"github.com/syssam/relgraph"
)

// Cardinality of a relationship.
type Cardinality int

// Relationship cardinalities.
const (
	CardinalityUnknown Cardinality = iota
	One
	Many
)

// String returns the cardinality name.
func (c Cardinality) String() string {
	switch c {
	case One:
		return "One"
	case Many:
		return "Many"
	default:
		return "Unknown"
	}
}

// LoadPolicy controls how a relationship is populated.
type LoadPolicy int

// Load policies.
const (
	// Undefined merges the relationship into the primary query.
	Undefined LoadPolicy = iota
	// EagerLoaded runs a secondary query per parent before the call returns.
	EagerLoaded
	// EagerLoadedJoin merges the relationship into the primary query.
	EagerLoadedJoin
	// LazyLoaded defers the secondary query until the member is loaded.
	LazyLoaded
)

// String returns the policy name.
func (p LoadPolicy) String() string {
	switch p {
	case Undefined:
		return "Undefined"
	case EagerLoaded:
		return "EagerLoaded"
	case EagerLoadedJoin:
		return "EagerLoadedJoin"
	case LazyLoaded:
		return "LazyLoaded"
	default:
		return fmt.Sprintf("LoadPolicy(%d)", int(p))
	}
}

// Joined reports whether relationships with this policy are merged into
// the primary query.
func (p LoadPolicy) Joined() bool {
	return p == Undefined || p == EagerLoadedJoin
}

// RelationshipDescriptor maps a struct member to a related entity type.
type RelationshipDescriptor struct {
	Member      string       // Go struct field name
	Target      reflect.Type // related entity struct type
	Cardinality Cardinality
	Policy      LoadPolicy
	ParentKey   string // field on the owning type
	ChildKey    string // field on Target matched against ParentKey
	Lazy        bool   // member is a relgraph.Lazy

	index      []int
	memberType reflect.Type
	valueType  reflect.Type // member type, or the type wrapped by relgraph.Lazy
}

func (r *RelationshipDescriptor) field(entity reflect.Value) (reflect.Value, error) {
	v, ok := indirect(entity)
	if !ok {
		return reflect.Value{}, fmt.Errorf("schema: relationship %s on nil entity", r.Member)
	}
	return v.FieldByIndex(r.index), nil
}

// Deferred returns the lazy proxy of entity's member, or nil if the member
// is not lazy.
func (r *RelationshipDescriptor) Deferred(entity reflect.Value) relgraph.Deferred {
	if !r.Lazy {
		return nil
	}
	f, err := r.field(entity)
	if err != nil || !f.CanAddr() {
		return nil
	}
	return f.Addr().Interface().(relgraph.Deferred)
}

// Init sets the member of a new entity to an empty collection for Many
// relationships. One relationships are left untouched.
func (r *RelationshipDescriptor) Init(entity reflect.Value) error {
	if r.Cardinality != Many {
		return nil
	}
	empty := reflect.MakeSlice(r.valueType, 0, 0)
	if d := r.Deferred(entity); d != nil {
		return d.SetValue(empty.Interface())
	}
	f, err := r.field(entity)
	if err != nil {
		return err
	}
	f.Set(empty)
	return nil
}

// Link attaches child (a pointer to Target) to entity: appended for Many,
// assigned for One.
func (r *RelationshipDescriptor) Link(entity, child reflect.Value) error {
	if d := r.Deferred(entity); d != nil {
		cur := reflect.ValueOf(d.Peek())
		if r.Cardinality == Many {
			if !cur.IsValid() {
				cur = reflect.MakeSlice(r.valueType, 0, 1)
			}
			return d.SetValue(reflect.Append(cur, child).Interface())
		}
		return d.SetValue(child.Interface())
	}
	f, err := r.field(entity)
	if err != nil {
		return err
	}
	if r.Cardinality == Many {
		f.Set(reflect.Append(f, child))
		return nil
	}
	f.Set(child)
	return nil
}

// SetResult stores the result of a secondary query, a []*Target, into the
// member of entity. One relationships take the first element, if any.
func (r *RelationshipDescriptor) SetResult(entity reflect.Value, items reflect.Value) error {
	var v reflect.Value
	switch {
	case r.Cardinality == Many:
		v = reflect.MakeSlice(r.valueType, 0, items.Len())
		v = reflect.AppendSlice(v, items)
	case items.Len() > 0:
		v = items.Index(0)
	default:
		v = reflect.Zero(r.valueType)
	}
	if d := r.Deferred(entity); d != nil {
		return d.SetValue(v.Interface())
	}
	f, err := r.field(entity)
	if err != nil {
		return err
	}
	f.Set(v)
	return nil
}

// Result converts the rows of a secondary query, a []*Target, into the
// value of the member: the slice itself for Many, the first element or nil
// for One.
func (r *RelationshipDescriptor) Result(items reflect.Value) any {
	if r.Cardinality == Many {
		return reflect.AppendSlice(reflect.MakeSlice(r.valueType, 0, items.Len()), items).Interface()
	}
	if items.Len() == 0 {
		return reflect.Zero(r.valueType).Interface()
	}
	return items.Index(0).Interface()
}

// RelationBuilder is the builder for relationship descriptors.
type RelationBuilder struct {
	desc *RelationshipDescriptor
}

// Relation returns a builder for the relationship stored in member. The
// target type and cardinality are inferred from the member type:
// *T is One, []*T is Many, relgraph.Lazy[X] follows X.
//
//	schema.Relation("OrderItems").Keys("ID", "OrderID").Eager()
func Relation(member string) *RelationBuilder {
	return &RelationBuilder{desc: &RelationshipDescriptor{Member: member}}
}

// Keys sets the parent and child join fields.
func (b *RelationBuilder) Keys(parent, child string) *RelationBuilder {
	b.desc.ParentKey, b.desc.ChildKey = parent, child
	return b
}

// One declares a single-valued relationship.
func (b *RelationBuilder) One() *RelationBuilder {
	b.desc.Cardinality = One
	return b
}

// Many declares a collection relationship.
func (b *RelationBuilder) Many() *RelationBuilder {
	b.desc.Cardinality = Many
	return b
}

// Policy sets the load policy.
func (b *RelationBuilder) Policy(p LoadPolicy) *RelationBuilder {
	b.desc.Policy = p
	return b
}

// Eager loads the relationship with a secondary query per parent.
func (b *RelationBuilder) Eager() *RelationBuilder { return b.Policy(EagerLoaded) }

// EagerJoin merges the relationship into the primary query.
func (b *RelationBuilder) EagerJoin() *RelationBuilder { return b.Policy(EagerLoadedJoin) }

// Lazy defers loading until the member is loaded.
func (b *RelationBuilder) Lazy() *RelationBuilder { return b.Policy(LazyLoaded) }

// Descriptor returns the relationship descriptor.
func (b *RelationBuilder) Descriptor() *RelationshipDescriptor {
	return b.desc
}
