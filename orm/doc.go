// Package orm is the typed entry point of relgraph: a Client bound to a
// driver and a schema registry, and generic queries over registered entity
// types.
//
//	reg := schema.NewRegistry()
//	reg.Entity(&Order{}).Relations(schema.Relation("Items"))
//	reg.Entity(&Item{})
//
//	client, err := orm.Open(cfg, reg)
//	if err != nil {
//		return err
//	}
//	orders, err := orm.From[Order](client).
//		Graph().
//		Where(querylanguage.FieldContains("Number", "A")).
//		OrderBy("ID").
//		Page(1, 20).
//		All(ctx)
//
// Queries are flat unless Graph or Include is called. A graph query joins
// the relationships that use the joined loading policies, loads eager
// relationships with one secondary query per parent after the result set
// is read, and prepares lazy members so that their first Load runs the
// query.
//
// WithTx runs a function against a transactional client. Secondary queries
// started inside the transaction use the client's base driver.
package orm
