package querylanguage_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/syssam/relgraph/querylanguage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPString(t *testing.T) {
	tests := []struct {
		P querylanguage.P
		S string
	}{
		{
			P: querylanguage.And(
				querylanguage.FieldEQ("Name", "a8m"),
				querylanguage.FieldIn("Org", "fb", "ent"),
			),
			S: `Name == "a8m" && Org in ["fb","ent"]`,
		},
		{
			P: querylanguage.Or(
				querylanguage.Not(querylanguage.FieldEQ("Name", "mashraki")),
				querylanguage.FieldIn("Org", "fb", "ent"),
			),
			S: `!(Name == "mashraki") || Org in ["fb","ent"]`,
		},
		{
			P: querylanguage.And(
				querylanguage.FieldGT("Age", 30),
				querylanguage.FieldContains("OrderItems.ProductName", "bolt"),
			),
			S: `Age > 30 && contains(OrderItems.ProductName, "bolt")`,
		},
		{
			P: querylanguage.Not(querylanguage.FieldLT("Score", 32.23)),
			S: `!(Score < 32.23)`,
		},
		{
			P: querylanguage.And(
				querylanguage.FieldNil("Active"),
				querylanguage.FieldNotNil("Name"),
			),
			S: `Active == nil && Name != nil`,
		},
		{
			P: querylanguage.Or(
				querylanguage.FieldNotIn("ID", 1, 2, 3),
				querylanguage.FieldHasSuffix("Name", "admin"),
			),
			S: `ID not in [1,2,3] || has_suffix(Name, "admin")`,
		},
		{
			P: querylanguage.EQ(querylanguage.F("Current"), querylanguage.F("Total")).Negate(),
			S: `!(Current == Total)`,
		},
		{
			P: querylanguage.Call("ToUpper", querylanguage.F("Name")),
			S: `ToUpper(Name)`,
		},
	}
	for i := range tests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			assert.Equal(t, tests[i].S, tests[i].P.String())
		})
	}
}

func TestNaryExpressions(t *testing.T) {
	p := querylanguage.And(
		querylanguage.FieldEQ("a", 1),
		querylanguage.FieldEQ("b", 2),
		querylanguage.FieldEQ("c", 3),
	)
	assert.Equal(t, `(a == 1 && b == 2 && c == 3)`, p.String())

	p = querylanguage.Or(
		querylanguage.FieldEQ("x", 1),
		querylanguage.FieldEQ("y", 2),
		querylanguage.FieldEQ("z", 3),
	)
	assert.Equal(t, `(x == 1 || y == 2 || z == 3)`, p.String())
}

func TestNegate(t *testing.T) {
	p := querylanguage.FieldEQ("Name", "test")
	assert.Equal(t, `!(Name == "test")`, p.Negate().String())

	p2 := querylanguage.Not(querylanguage.FieldEQ("Name", "test"))
	assert.Equal(t, `!(!(Name == "test"))`, p2.Negate().String())

	p3 := querylanguage.FieldHasPrefix("Name", "x")
	assert.Equal(t, `!(has_prefix(Name, "x"))`, p3.Negate().String())
}

func TestCapture(t *testing.T) {
	type customer struct{ Name string }
	type order struct {
		ID       int
		Customer *customer
	}
	root := &order{ID: 4, Customer: &customer{Name: "acme"}}

	v, err := querylanguage.Captured(root, "Customer.Name").Eval()
	require.NoError(t, err)
	assert.Equal(t, "acme", v)

	v, err = querylanguage.Captured(&order{}, "Customer.Name").Eval()
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = querylanguage.Captured(root, "Customer.Missing").Eval()
	assert.Error(t, err)

	n := 10
	ref := querylanguage.Ref(&n)
	n = 11
	v, err = ref.Eval()
	require.NoError(t, err)
	assert.Equal(t, 11, v)

	var np *int
	v, err = querylanguage.Ref(np).Eval()
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, "$.Customer.Name", querylanguage.Captured(root, "Customer.Name").String())
}

func TestFields(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		P    querylanguage.P
		S    string
	}{
		{"StringEQ", querylanguage.StringField("Name").EQ("a"), `Name == "a"`},
		{"StringIn", querylanguage.StringField("Name").In("a", "b"), `Name in ["a","b"]`},
		{"StringContains", querylanguage.StringField("Name").Contains("a"), `contains(Name, "a")`},
		{"StringNil", querylanguage.StringField("Name").IsNil(), `Name == nil`},
		{"IntGT", querylanguage.IntField("Quantity").GT(1), `Quantity > 1`},
		{"IntNotIn", querylanguage.IntField("Quantity").NotIn(1, 2), `Quantity not in [1,2]`},
		{"Int64LTE", querylanguage.Int64Field("Total").LTE(9), `Total <= 9`},
		{"Float64GTE", querylanguage.Float64Field("Price").GTE(1.5), `Price >= 1.5`},
		{"BoolNEQ", querylanguage.BoolField("Shipped").NEQ(true), `Shipped != true`},
		{"TimeLT", querylanguage.TimeField("Created").LT(ts), `Created < "2024-01-01T00:00:00Z"`},
		{"TimeNotNil", querylanguage.TimeField("Created").NotNil(), `Created != nil`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.S, tt.P.String())
		})
	}
	assert.Equal(t, querylanguage.Desc("Price"), querylanguage.Float64Field("Price").Desc())
	assert.Equal(t, "Price desc", querylanguage.Desc("Price").String())
	assert.Equal(t, "Name", querylanguage.StringField("Name").Asc().String())
}
