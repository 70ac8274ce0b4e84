// Package schema provides the mapping metadata of entity types: which
// struct fields map to which columns, and which members hold related
// entities.
//
// Declarations are fluent and optional. Undeclared types are mapped by
// convention.
//
//	reg := schema.NewRegistry()
//	reg.Entity(&Order{}).
//	    Columns(
//	        schema.Column("ID").Name("OrderID").PrimaryKey().AutoIncrement(),
//	        schema.Column("Name").Name("OrderName"),
//	    ).
//	    Relations(
//	        schema.Relation("OrderItems").Keys("ID", "OrderID"),
//	        schema.Relation("Customer").Keys("CustomerID", "ID").Lazy(),
//	    )
//
// Relationship cardinality is inferred from the member type: *T is One,
// []*T is Many, and relgraph.Lazy[X] follows X and defaults to the
// LazyLoaded policy.
//
// # Converters
//
// A column converter translates member values to and from the column
// representation. BoolInt, UUIDString and Msgpack are provided.
package schema
