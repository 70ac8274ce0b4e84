package schema_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/schema"
)

type (
	Customer struct {
		ID     int
		Name   string
		Orders []*Order
	}
	Order struct {
		ID         int
		Name       string
		CustomerID int
		Shipped    bool
		Created    time.Time
		Note       *string
		Customer   *Customer
		OrderItems []*OrderItem
		Invoices   relgraph.Lazy[[]*Invoice]
	}
	OrderItem struct {
		ID          int
		OrderID     int
		ProductName string
	}
	Invoice struct {
		Number  string
		OrderID int
	}
	Audit struct {
		Stamp time.Time
	}
	Tracked struct {
		Audit
		Key  uuid.UUID
		Tags map[string]string
	}
)

func TestRegistry_Convention(t *testing.T) {
	t.Parallel()
	reg := schema.NewRegistry()
	reg.Entity(&Order{}).Relations(
		schema.Relation("Customer"),
		schema.Relation("OrderItems"),
		schema.Relation("Invoices").Keys("ID", "OrderID"),
	)
	typ := schema.TypeOf[Order]()

	table, err := reg.TableName(typ)
	require.NoError(t, err)
	assert.Equal(t, "Orders", table)

	cols, err := reg.Columns(typ)
	require.NoError(t, err)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"ID", "Name", "CustomerID", "Shipped", "Created", "Note"}, names)
	pks := schema.PrimaryKeys(cols)
	require.Len(t, pks, 1)
	assert.Equal(t, "ID", pks[0].Field)
	assert.True(t, pks[0].AutoIncrement)

	rels, err := reg.Relationships(typ)
	require.NoError(t, err)
	require.Len(t, rels, 3)
	assert.Equal(t, schema.One, rels[0].Cardinality)
	assert.Equal(t, reflect.TypeFor[Customer](), rels[0].Target)
	assert.Equal(t, "CustomerID", rels[0].ParentKey)
	assert.Equal(t, "ID", rels[0].ChildKey)
	assert.Equal(t, schema.Many, rels[1].Cardinality)
	assert.Equal(t, "ID", rels[1].ParentKey)
	assert.Equal(t, "OrderID", rels[1].ChildKey)
	assert.True(t, rels[2].Lazy)
	assert.Equal(t, schema.LazyLoaded, rels[2].Policy)
	assert.Equal(t, schema.Many, rels[2].Cardinality)

	again, err := reg.Columns(typ)
	require.NoError(t, err)
	assert.Same(t, cols[0], again[0])
}

func TestRegistry_Declared(t *testing.T) {
	t.Parallel()
	reg := schema.NewRegistry()
	reg.Entity(&Tracked{}).
		Table("tracking").
		Columns(
			schema.Column("Key").Name("key_id").PrimaryKey().Converter(schema.UUIDString),
			schema.Column("Tags").Converter(schema.Msgpack[map[string]string]()),
			schema.Column("Stamp").AltName("TrackedStamp").NullableWrite(),
		)
	typ := schema.TypeOf[*Tracked]()
	table, err := reg.TableName(typ)
	require.NoError(t, err)
	assert.Equal(t, "tracking", table)
	cols, err := reg.Columns(typ)
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "Stamp", cols[0].Field)
	assert.Equal(t, "TrackedStamp", cols[0].Alias())
	assert.Equal(t, "Stamp", cols[0].ReadName(false))
	assert.Equal(t, "key_id", cols[1].Name)
	assert.Equal(t, "key_id", cols[1].Alias())
	assert.False(t, cols[1].AutoIncrement)

	e := &Tracked{}
	id := uuid.New()
	require.NoError(t, cols[1].Set(reflect.ValueOf(e), id.String()))
	assert.Equal(t, id, e.Key)
	v, err := cols[1].WriteValue(reflect.ValueOf(e))
	require.NoError(t, err)
	assert.Equal(t, id.String(), v)

	e.Tags = map[string]string{"a": "b"}
	blob, err := cols[2].WriteValue(reflect.ValueOf(e))
	require.NoError(t, err)
	e.Tags = nil
	require.NoError(t, cols[2].Set(reflect.ValueOf(e), blob))
	assert.Equal(t, map[string]string{"a": "b"}, e.Tags)

	v, err = cols[0].WriteValue(reflect.ValueOf(e))
	require.NoError(t, err)
	assert.Nil(t, v, "zero time is written as NULL")
}

func TestRegistry_ConfigErrors(t *testing.T) {
	t.Parallel()
	type single struct {
		ID    int
		Items *OrderItem
	}
	type values struct {
		ID    int
		Items []OrderItem
	}
	type scalar struct {
		ID    int
		Count int
	}
	tests := []struct {
		name string
		decl func(*schema.Registry) reflect.Type
		msg  string
	}{
		{
			name: "ManyOnPointer",
			decl: func(r *schema.Registry) reflect.Type {
				r.Entity(&single{}).Relations(schema.Relation("Items").Keys("ID", "OrderID").Many())
				return reflect.TypeFor[single]()
			},
			msg: "is not a collection",
		},
		{
			name: "OneOnSlice",
			decl: func(r *schema.Registry) reflect.Type {
				r.Entity(&Order{}).Relations(schema.Relation("OrderItems").One())
				return reflect.TypeFor[Order]()
			},
			msg: "declared One",
		},
		{
			name: "ValueElements",
			decl: func(r *schema.Registry) reflect.Type {
				r.Entity(&values{}).Relations(schema.Relation("Items"))
				return reflect.TypeFor[values]()
			},
			msg: "cannot determine cardinality",
		},
		{
			name: "ScalarMember",
			decl: func(r *schema.Registry) reflect.Type {
				r.Entity(&scalar{}).Relations(schema.Relation("Count"))
				return reflect.TypeFor[scalar]()
			},
			msg: "cannot determine cardinality",
		},
		{
			name: "LazyPolicyOnPlainMember",
			decl: func(r *schema.Registry) reflect.Type {
				r.Entity(&Order{}).Relations(schema.Relation("OrderItems").Lazy())
				return reflect.TypeFor[Order]()
			},
			msg: "requires a relgraph.Lazy member",
		},
		{
			name: "MissingMember",
			decl: func(r *schema.Registry) reflect.Type {
				r.Entity(&Order{}).Relations(schema.Relation("Lines"))
				return reflect.TypeFor[Order]()
			},
			msg: "no exported member",
		},
		{
			name: "MissingChildKey",
			decl: func(r *schema.Registry) reflect.Type {
				r.Entity(&Order{}).Relations(schema.Relation("OrderItems").Keys("ID", "ParentID"))
				return reflect.TypeFor[Order]()
			},
			msg: `child key "ParentID"`,
		},
		{
			name: "MissingColumnField",
			decl: func(r *schema.Registry) reflect.Type {
				r.Entity(&Order{}).Columns(schema.Column("Total"))
				return reflect.TypeFor[Order]()
			},
			msg: "no exported field",
		},
		{
			name: "UnsupportedType",
			decl: func(r *schema.Registry) reflect.Type {
				r.Entity(&Tracked{}).Columns(schema.Column("Tags"))
				return reflect.TypeFor[Tracked]()
			},
			msg: "unsupported column type",
		},
		{
			name: "NotStruct",
			decl: func(*schema.Registry) reflect.Type { return reflect.TypeFor[int]() },
			msg:  "must be a struct",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := schema.NewRegistry()
			_, err := reg.Columns(tt.decl(reg))
			require.Error(t, err)
			assert.True(t, relgraph.IsConfigError(err))
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestRelationshipDescriptor_Link(t *testing.T) {
	t.Parallel()
	reg := schema.NewRegistry()
	reg.Entity(&Order{}).Relations(
		schema.Relation("Customer"),
		schema.Relation("OrderItems"),
		schema.Relation("Invoices").Keys("ID", "OrderID"),
	)
	rels, err := reg.Relationships(schema.TypeOf[Order]())
	require.NoError(t, err)
	o := &Order{}
	ov := reflect.ValueOf(o)

	for _, r := range rels {
		require.NoError(t, r.Init(ov))
	}
	assert.NotNil(t, o.OrderItems)
	assert.Empty(t, o.OrderItems)
	assert.True(t, o.Invoices.IsLoaded())
	assert.Nil(t, o.Customer)

	require.NoError(t, rels[0].Link(ov, reflect.ValueOf(&Customer{ID: 1})))
	require.NoError(t, rels[1].Link(ov, reflect.ValueOf(&OrderItem{ID: 1})))
	require.NoError(t, rels[1].Link(ov, reflect.ValueOf(&OrderItem{ID: 2})))
	require.NoError(t, rels[2].Link(ov, reflect.ValueOf(&Invoice{Number: "A"})))
	assert.Equal(t, 1, o.Customer.ID)
	assert.Len(t, o.OrderItems, 2)
	assert.Len(t, o.Invoices.Value(), 1)

	items := reflect.ValueOf([]*OrderItem{{ID: 5}})
	require.NoError(t, rels[1].SetResult(ov, items))
	assert.Len(t, o.OrderItems, 1)
	require.NoError(t, rels[0].SetResult(ov, reflect.ValueOf([]*Customer{})))
	assert.Nil(t, o.Customer)
	assert.Nil(t, rels[0].Result(reflect.ValueOf([]*Customer{})))
	assert.Len(t, rels[1].Result(items), 1)
}

func TestRegistry_LateDeclaration(t *testing.T) {
	t.Parallel()
	reg := schema.NewRegistry()
	b := reg.Entity(&OrderItem{})
	name, err := reg.TableName(schema.TypeOf[OrderItem]())
	require.NoError(t, err)
	assert.Equal(t, "OrderItems", name)
	cols, err := reg.Columns(schema.TypeOf[OrderItem]())
	require.NoError(t, err)
	assert.Equal(t, "ProductName", cols[2].Name)

	b.Table("order_items").Columns(schema.Column("ProductName").Name("product_name"))
	name, err = reg.TableName(schema.TypeOf[OrderItem]())
	require.NoError(t, err)
	assert.Equal(t, "order_items", name)
	cols, err = reg.Columns(schema.TypeOf[OrderItem]())
	require.NoError(t, err)
	c := schema.FindColumn(cols, "ProductName")
	require.NotNil(t, c)
	assert.Equal(t, "product_name", c.Name)

	b.Ignore("ProductName")
	cols, err = reg.Columns(schema.TypeOf[OrderItem]())
	require.NoError(t, err)
	assert.Nil(t, schema.FindColumn(cols, "ProductName"))
}

func TestLoadPolicy(t *testing.T) {
	assert.True(t, schema.Undefined.Joined())
	assert.True(t, schema.EagerLoadedJoin.Joined())
	assert.False(t, schema.EagerLoaded.Joined())
	assert.False(t, schema.LazyLoaded.Joined())
	assert.Equal(t, "EagerLoadedJoin", schema.EagerLoadedJoin.String())
	assert.Equal(t, "LoadPolicy(9)", schema.LoadPolicy(9).String())
	assert.Equal(t, "Many", schema.Many.String())
}
