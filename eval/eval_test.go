package eval

import (
	"github.com/dianpeng/flatdb/errs"
	"github.com/dianpeng/flatdb/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

var (
	testHeader = []string{"a", "b", "c"}
	testTypes  = []string{"int", "string", "float"}
)

func compile(t *testing.T, code ...string) *Filter {
	preds := []*sql.Predicate{}
	for _, x := range code {
		p, err := sql.ParsePredicate(x)
		require.NoError(t, err)
		preds = append(preds, p)
	}
	f, err := Compile(preds, testHeader, testTypes)
	require.NoError(t, err)
	return f
}

func TestNumeric(t *testing.T) {
	assert := assert.New(t)
	row := []string{"10", "x", "2.5"}

	assert.True(compile(t, "a<11").Match(row))
	assert.False(compile(t, "a<10").Match(row))
	assert.True(compile(t, "a<=10").Match(row))
	assert.True(compile(t, "a=10").Match(row))
	assert.True(compile(t, "a=10.0").Match(row))
	assert.True(compile(t, "a>9").Match(row))
	assert.True(compile(t, "a>=10").Match(row))
	assert.False(compile(t, "a>10").Match(row))

	// numeric, not textual: "10" > "9" is false as text
	assert.True(compile(t, "a>9").Match(row))
	assert.True(compile(t, "c>2.25").Match(row))
	assert.True(compile(t, "c='2.5'").Match(row))

	// unparsable stored value
	assert.False(compile(t, "a>0").Match([]string{"", "x", "1"}))
}

func TestString(t *testing.T) {
	assert := assert.New(t)
	row := []string{"1", "Ärger", "0"}

	assert.True(compile(t, "b=ärger").Match(row))
	assert.True(compile(t, "b=ÄRGER").Match(row))
	assert.True(compile(t, `b="ärger"`).Match(row))
	assert.False(compile(t, "b=arger").Match(row))

	// stored value quoted at insert time
	assert.True(compile(t, "b=x").Match([]string{"1", `"x"`, "0"}))
	assert.True(compile(t, "b='X'").Match([]string{"1", `"x"`, "0"}))

	assert.True(compile(t, "b<y").Match([]string{"1", "X", "0"}))
	assert.False(compile(t, "b>y").Match([]string{"1", "X", "0"}))
}

func TestNotEqualIsRaw(t *testing.T) {
	assert := assert.New(t)
	row := []string{"1", "x", "1"}

	assert.False(compile(t, "b!=x").Match(row))
	assert.True(compile(t, "b!=X").Match(row))
	assert.False(compile(t, "b!='x'").Match(row))
	assert.True(compile(t, "c!=1.0").Match(row))
	assert.False(compile(t, "a!=1").Match(row))
}

func TestConjunction(t *testing.T) {
	assert := assert.New(t)
	f := compile(t, "a>1", "b=x")
	assert.True(f.Match([]string{"3", "x", "0"}))
	assert.False(f.Match([]string{"1", "x", "0"}))
	assert.False(f.Match([]string{"3", "y", "0"}))

	var empty *Filter
	assert.True(empty.Match([]string{"1"}))
	assert.True(empty.Empty())
	assert.True(compile(t).Match([]string{"1"}))
}

func TestCompileError(t *testing.T) {
	assert := assert.New(t)
	{
		p, _ := sql.ParsePredicate("d=1")
		_, err := Compile([]*sql.Predicate{p}, testHeader, testTypes)
		assert.True(errs.Is(err, errs.KindColumnError))
	}
	{
		p, _ := sql.ParsePredicate("a>abc")
		_, err := Compile([]*sql.Predicate{p}, testHeader, testTypes)
		assert.True(errs.Is(err, errs.KindTypeError))
	}
	{
		// != never coerces so it never fails on type
		p, _ := sql.ParsePredicate("a!=abc")
		_, err := Compile([]*sql.Predicate{p}, testHeader, testTypes)
		assert.NoError(err)
	}
}

func TestColumnIndex(t *testing.T) {
	assert := assert.New(t)
	header := []string{"p.name", "p.age", "s.name", "count(s.age)"}

	i, err := ColumnIndex(header, "p.age")
	assert.NoError(err)
	assert.Equal(1, i)

	i, err = ColumnIndex(header, "age")
	assert.NoError(err)
	assert.Equal(1, i)

	i, err = ColumnIndex(header, "count(s.age)")
	assert.NoError(err)
	assert.Equal(3, i)

	_, err = ColumnIndex(header, "name")
	assert.True(errs.Is(err, errs.KindColumnError))

	_, err = ColumnIndex(header, "x.age")
	assert.True(errs.Is(err, errs.KindColumnError))
}

func TestEqual(t *testing.T) {
	assert := assert.New(t)
	assert.True(Equal("int", "1", "float", "1.0"))
	assert.True(Equal("string", `"leo"`, "string", "leo"))
	assert.False(Equal("string", "Leo", "string", "leo"))
	assert.False(Equal("int", "1", "string", "1.0"))
	assert.True(Equal("int", "x", "int", "x"))
}
