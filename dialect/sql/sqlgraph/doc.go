// Package sqlgraph executes graph queries: it compiles a QuerySpec with the
// sql query builder, materializes the rows into entities and runs the
// secondary queries of eager and lazy relationships.
package sqlgraph
