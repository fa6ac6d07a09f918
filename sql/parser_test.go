package sql

import (
	"github.com/dianpeng/flatdb/errs"
	"github.com/stretchr/testify/assert"
	"testing"
)

func doTestPrint(lhs, rhs string, assert *assert.Assertions) {
	a, err := Parse(rhs)
	if !assert.NoError(err, rhs) {
		return
	}
	assert.Equal(lhs, Print(a))

	// printed form parses into the same thing again
	b, err := Parse(Print(a))
	assert.NoError(err)
	assert.Equal(lhs, Print(b))
}

func TestShorthand(t *testing.T) {
	assert := assert.New(t)

	doTestPrint("make table t a:int,b:string", "make table t a:int,b:str", assert)
	doTestPrint("make table t a:int,b:float,c:string", "MAKE TABLE t a:int, b:float, c:string", assert)
	doTestPrint("add into t 1,\"x\"", "add into t 1,\"x\"", assert)
	doTestPrint("add into t 1,'a b'", "add into t 1, 'a b'", assert)
	doTestPrint("show table t", "show table t", assert)
	doTestPrint("show tables", "show tables", assert)
	doTestPrint("describe table t", "describe t", assert)
	doTestPrint("delete from t that a>1", "delete from t that a>1", assert)
	doTestPrint("delete from t that a>1,b=x", "delete from t where a>1,b=x that", assert)
	doTestPrint("update t that a=1 to b=y,a=2", "update t that a=1 to b=y,a=2", assert)
	doTestPrint("select * from t that a<=3", "select from t that a<=3", assert)
	doTestPrint("select * from t", "select from t", assert)
}

func TestSelect(t *testing.T) {
	assert := assert.New(t)

	doTestPrint("select a,b from t", "select a,b from t", assert)
	doTestPrint("select a,b from t", "select a, b from t", assert)
	doTestPrint("select * from t that b=x", "select * from t that b=x", assert)
	doTestPrint("select b,count(a) from t groupby b", "select b,COUNT(a) from t groupby b", assert)
	doTestPrint("select a,b from t orderby a desc", "select a,b from t order by a DESC", assert)
	doTestPrint("select a,b from t orderby a,b", "select a,b from t orderby a,b asc", assert)
	doTestPrint(
		"select p.name,s.course from p join s on p.name=s.name,p.age=s.age that s.course=DSCI551",
		"select p.name,s.course from p join s on p.name=s.name, p.age=s.age that s.course=DSCI551",
		assert,
	)
	doTestPrint(
		"select p.name,s.course,max(s.age) from p join s on p.name=s.name that s.course=DSCI551 groupby p.name,s.course orderby max(s.age)",
		"select p.name,s.course,max(s.age) from p join s on p.name=s.name that s.course=DSCI551 groupby p.name,s.course orderby max(s.age)",
		assert,
	)
	// clause order is free
	doTestPrint(
		"select a from t that a>1 groupby a orderby a",
		"select a from t orderby a groupby a that a>1",
		assert,
	)
}

func TestSelectDescriptor(t *testing.T) {
	assert := assert.New(t)

	a, err := Parse("select e.name, sum(s.age) from e join s on e.name=s.name that s.age>=20 group by e.name order by sum(s.age) desc")
	assert.NoError(err)
	assert.Equal(ActionSelect, a.Type())

	s := a.(*Select)
	assert.Equal("e", s.Table)
	assert.Equal(2, len(s.Columns))
	assert.Equal("e.name", s.Columns[0].Name)
	assert.Equal(AggNone, s.Columns[0].Agg)
	assert.Equal("s.age", s.Columns[1].Name)
	assert.Equal(AggSum, s.Columns[1].Agg)
	assert.Equal("sum(s.age)", s.Columns[1].ColName())
	assert.True(s.HasAgg())
	assert.False(s.HasStar())

	assert.Equal("s", s.Join.Table)
	assert.Equal([]JoinCond{{Left: "e.name", Right: "s.name"}}, s.Join.On)

	assert.Equal(1, len(s.Where))
	assert.Equal("s.age", s.Where[0].Column)
	assert.Equal(OpGe, s.Where[0].Op)
	assert.Equal("20", s.Where[0].Value)

	assert.Equal([]string{"e.name"}, s.GroupBy)
	assert.Equal(OrderDesc, s.OrderBy.Order)
	assert.Equal([]string{"sum(s.age)"}, s.OrderBy.Name)
}

func TestCaseSensitiveNames(t *testing.T) {
	assert := assert.New(t)
	a, err := Parse("ADD INTO Persons Leo,AbC")
	assert.NoError(err)
	in := a.(*Insert)
	assert.Equal("Persons", in.Table)
	assert.Equal([]string{"Leo", "AbC"}, in.Values)
}

func TestUnknown(t *testing.T) {
	assert := assert.New(t)
	{
		a, err := Parse("drop table t")
		assert.NoError(err)
		assert.Equal(ActionUnknown, a.Type())
		assert.Equal("drop", a.(*Unknown).Keyword)
	}
	{
		a, err := Parse("   ")
		assert.NoError(err)
		assert.Equal(ActionUnknown, a.Type())
	}
}

func TestParseError(t *testing.T) {
	assert := assert.New(t)
	bad := func(code string, kind errs.Kind) {
		_, err := Parse(code)
		assert.Error(err, code)
		assert.True(errs.Is(err, kind), "%s: %v", code, err)
	}

	bad("make table", errs.KindUnsupportedQuery)
	bad("make table t", errs.KindUnsupportedQuery)
	bad("make table t a", errs.KindUnsupportedQuery)
	bad("make table t a:int,a:int", errs.KindUnsupportedQuery)
	bad("make table t a:blob", errs.KindTypeError)
	bad("add into t", errs.KindUnsupportedQuery)
	bad("show t", errs.KindUnsupportedQuery)
	bad("delete from t", errs.KindUnsupportedQuery)
	bad("delete from t that a", errs.KindConditionSyntax)
	bad("update t that a=1", errs.KindUnsupportedQuery)
	bad("update t that a=1 to b", errs.KindConditionSyntax)
	bad("select from t that", errs.KindConditionSyntax)
	bad("select a b", errs.KindUnsupportedQuery)
	bad("select a from", errs.KindUnsupportedQuery)
	bad("select foo(a) from t", errs.KindUnsupportedQuery)
	bad("select count(*) from t", errs.KindUnsupportedQuery)
	bad("select a from t join s", errs.KindUnsupportedQuery)
	bad("select a from t join s on a", errs.KindConditionSyntax)
	bad("select a from t that a=1 that b=2", errs.KindUnsupportedQuery)
	bad("select a from t groupby", errs.KindUnsupportedQuery)
	bad("select a from t orderby a,", errs.KindUnsupportedQuery)
	bad("show table t extra", errs.KindUnsupportedQuery)

	// a keyword where a name is expected is reported as such
	_, err := Parse("make table from a:int")
	assert.ErrorContains(err, "expect table name but got keyword *from*")
	_, err = Parse("select a from WHERE")
	assert.ErrorContains(err, "got keyword *where*")
}

func TestSplitScript(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(
		[]string{"make table t a:int", "add into t 1", "add into t ';'"},
		SplitScript("make table t a:int;\nadd into t 1;; add into t ';';"),
	)
	assert.Equal([]string{}, SplitScript(" ; "))
}
