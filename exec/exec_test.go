package exec

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	gawki "github.com/benhoyt/goawk/interp"
	gawkp "github.com/benhoyt/goawk/parser"
	"github.com/dianpeng/flatdb/errs"
	"github.com/dianpeng/flatdb/plan"
	"github.com/dianpeng/flatdb/sql"
	"github.com/dianpeng/flatdb/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	t     *testing.T
	store *store.Store
	arts  *store.Artifacts
	chunk int
}

func newTestEnv(t *testing.T, chunk int) *testEnv {
	dir := t.TempDir()
	st, err := store.Open(dir, store.Options{ChunkSize: chunk})
	require.NoError(t, err)
	return &testEnv{
		t:     t,
		store: st,
		arts:  store.NewArtifacts(dir),
		chunk: chunk,
	}
}

// table creates name from a schema like a:int,b:string plus its records
func (self *testEnv) table(name, schema string, rows ...string) {
	cols := []sql.ColumnDef{}
	for _, x := range strings.Split(schema, ",") {
		p := strings.SplitN(x, ":", 2)
		cols = append(cols, sql.ColumnDef{Name: p[0], Type: p[1]})
	}
	require.NoError(self.t, self.store.CreateTable(name, cols))
	for _, r := range rows {
		require.NoError(self.t, self.store.Insert(name, strings.Split(r, ",")))
	}
}

func (self *testEnv) run(code string, strategy Strategy) (*store.Artifact, error) {
	a, err := sql.Parse(code)
	require.NoError(self.t, err, code)
	p, err := plan.PlanSelect(a.(*sql.Select))
	if err != nil {
		return nil, err
	}
	x := New(self.store, self.arts, Options{ChunkSize: self.chunk, Strategy: strategy})
	return x.Run(p)
}

// query runs code and returns the header and every record of the result
func (self *testEnv) query(code string) ([]string, [][]string) {
	return self.queryWith(code, SortAuto)
}

func (self *testEnv) queryWith(code string, strategy Strategy) ([]string, [][]string) {
	a, err := self.run(code, strategy)
	require.NoError(self.t, err, code)
	scan, err := a.Scan(self.chunk)
	require.NoError(self.t, err)
	defer scan.Close()
	rows, err := scan.ReadAll()
	require.NoError(self.t, err)
	return a.Header, rows
}

func (self *testEnv) fail(code string) error {
	_, err := self.run(code, SortAuto)
	require.Error(self.t, err, code)
	return err
}

// the data dir only keeps table files and the final artifacts
func (self *testEnv) files() []string {
	entries, err := os.ReadDir(self.store.Dir())
	require.NoError(self.t, err)
	out := []string{}
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func TestProjectFilter(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, 2)
	env.table("t", "a:int,b:string", "1,x", "2,y", "3,x")

	{
		h, rows := env.query("select a,b from t that b=x")
		assert.Equal([]string{"a", "b"}, h)
		assert.Equal([][]string{{"1", "x"}, {"3", "x"}}, rows)
	}
	{
		h, rows := env.query("select b,a,b from t that a>=2")
		assert.Equal([]string{"b", "a"}, h)
		assert.Equal([][]string{{"y", "2"}, {"x", "3"}}, rows)
	}
	{
		h, rows := env.query("select from t")
		assert.Equal([]string{"a", "b"}, h)
		assert.Equal([][]string{{"1", "x"}, {"2", "y"}, {"3", "x"}}, rows)
	}
	{
		_, rows := env.query("select a from t that a>10")
		assert.Equal(0, len(rows))
	}

	// empty values, projected alone, sorted and grouped
	{
		env.table("u", "a:int,b:string", "1,", "2,y", "3,")

		h, rows := env.query("select b from u")
		assert.Equal([]string{"b"}, h)
		assert.Equal([][]string{{""}, {"y"}, {""}}, rows)

		_, rows = env.query("select b from u orderby b")
		assert.Equal([][]string{{""}, {""}, {"y"}}, rows)

		_, rows = env.query("select b from u that a>1")
		assert.Equal([][]string{{"y"}, {""}}, rows)

		_, rows = env.query("select b,count(a) from u groupby b")
		assert.Equal([][]string{{"", "2"}, {"y", "1"}}, rows)
	}

	assert.True(errs.Is(env.fail("select zz from t"), errs.KindColumnError))
	assert.True(errs.Is(env.fail("select a from t that a>x"), errs.KindTypeError))
	assert.True(errs.Is(env.fail("select a from nope"), errs.KindNotFound))
}

func TestJoin(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, 2)
	env.table(
		"p", "name:string,age:int",
		"leo,20", "kord,30", "ram,40", "leo,50", "zed,60",
	)
	env.table(
		"s", "name:string,course:string",
		"leo,DSCI551", "ram,DSCI551", "leo,CS101", "ann,CS101",
	)

	{
		h, rows := env.query("select p.name,p.age,s.course from p join s on p.name=s.name")
		assert.Equal([]string{"p.name", "p.age", "s.course"}, h)
		// leo appears twice on both sides, ram once
		assert.Equal(5, len(rows))
	}
	{
		// sides swapped and unqualified names
		_, rows := env.query("select age,course from p join s on s.name=p.name that course=CS101")
		assert.Equal([][]string{{"20", "CS101"}, {"50", "CS101"}}, rows)
	}
	{
		// predicates moved into the join
		_, rows := env.query("select p.name,age from p join s on name=name that p.age>=40,s.course=DSCI551")
		assert.Equal([][]string{{"ram", "40"}, {"leo", "50"}}, rows)
	}
	{
		h, rows := env.query("select * from p join s on p.name=s.name that p.age<25")
		assert.Equal([]string{"p.name", "p.age", "s.name", "s.course"}, h)
		assert.Equal(
			[][]string{{"leo", "20", "leo", "DSCI551"}, {"leo", "20", "leo", "CS101"}},
			rows,
		)
	}

	assert.True(errs.Is(env.fail("select name from p join s on p.zip=s.name"), errs.KindColumnError))
	assert.True(errs.Is(env.fail("select name from p join q on p.name=q.name"), errs.KindNotFound))

	// one artifact per query survives, the others are removed when superseded
	assert.Equal(2+4, len(env.files()))
}

// join output count must equal the number of matching cross pairs
func TestJoinCount(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, 3)

	left, right := []string{}, []string{}
	for i := 0; i < 17; i++ {
		left = append(left, fmt.Sprintf("%d,%d", i%5, i))
	}
	for i := 0; i < 11; i++ {
		right = append(right, fmt.Sprintf("%d,%d", i%4, i))
	}
	env.table("l", "k:int,v:int", left...)
	env.table("r", "k:int,w:int", right...)

	expect := 0
	for i := 0; i < 17; i++ {
		for j := 0; j < 11; j++ {
			if i%5 == j%4 {
				expect++
			}
		}
	}
	_, rows := env.query("select l.v,r.w from l join r on l.k=r.k")
	assert.Equal(expect, len(rows))
}

func TestGroupBy(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, 2)
	env.table("t", "a:int,b:string,c:string", "1,x,1.5", "2,y,2", "3,x,abc", "4,y,0.5", "5,x,3")

	{
		h, rows := env.query("select b,count(a) from t groupby b")
		assert.Equal([]string{"b", "count(a)"}, h)
		assert.Equal([][]string{{"x", "3"}, {"y", "2"}}, rows)
	}
	{
		h, rows := env.query("select sum(a),avg(a),min(a),max(a),b from t groupby b")
		assert.Equal([]string{"b", "sum(a)", "avg(a)", "min(a)", "max(a)"}, h)
		assert.Equal(
			[][]string{{"x", "9", "3", "1", "5"}, {"y", "6", "3", "2", "4"}},
			rows,
		)
	}
	{
		// non numeric values are skipped, count still counts them
		_, rows := env.query("select b,sum(c),avg(c),count(c),max(c) from t groupby b")
		assert.Equal(
			[][]string{{"x", "4.5", "2.25", "3", "3"}, {"y", "2.5", "1.25", "2", "2"}},
			rows,
		)
	}
	{
		// plain columns outside of the key take the first record of the group
		h, rows := env.query("select a,count(a) from t groupby b")
		assert.Equal([]string{"b", "a", "count(a)"}, h)
		assert.Equal([][]string{{"x", "1", "3"}, {"y", "2", "2"}}, rows)
	}
	{
		// key columns come out sorted by name
		h, _ := env.query("select c,b from t groupby c,b")
		assert.Equal([]string{"b", "c"}, h)
	}

	assert.True(errs.Is(env.fail("select b,count(b) from t groupby b"), errs.KindInvalidGrouping))
	assert.True(errs.Is(env.fail("select count(a) from t"), errs.KindUnsupportedQuery))
	assert.True(errs.Is(env.fail("select b,count(zz) from t groupby b"), errs.KindColumnError))
}

func TestGroupByJoin(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, 2)
	env.table("p", "name:string,age:int", "leo,20", "ram,40", "ann,30")
	env.table("s", "name:string,course:string", "leo,A", "ram,A", "ann,B", "leo,B")

	h, rows := env.query("select s.course,max(p.age),count(p.name) from p join s on p.name=s.name groupby s.course orderby s.course")
	assert.Equal([]string{"s.course", "max(p.age)", "count(p.name)"}, h)
	assert.Equal([][]string{{"A", "40", "2"}, {"B", "30", "2"}}, rows)
}

func TestOrderBy(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, 2)
	env.table("t", "a:int,b:string", "1,x", "2,y", "3,x")

	{
		_, rows := env.query("select a,b from t that b=x orderby a desc")
		assert.Equal([][]string{{"3", "x"}, {"1", "x"}}, rows)
	}
	{
		_, rows := env.query("select a,b from t orderby b,a desc")
		assert.Equal([][]string{{"2", "y"}, {"3", "x"}, {"1", "x"}}, rows)
	}
	{
		// textual comparison
		env.table("n", "v:int", "9", "10", "100", "2")
		_, rows := env.query("select v from n orderby v")
		assert.Equal([][]string{{"10"}, {"100"}, {"2"}, {"9"}}, rows)
	}
	{
		h, rows := env.query("select b,count(a) from t groupby b orderby count(a) desc")
		assert.Equal([]string{"b", "count(a)"}, h)
		assert.Equal([][]string{{"x", "2"}, {"y", "1"}}, rows)
	}

	assert.True(errs.Is(env.fail("select a from t orderby b"), errs.KindColumnError))
}

// sorting across chunk boundaries must match a single pass sort, and both
// strategies must agree, including the order of equal keys
func TestOrderByStrategies(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, 3)

	rows := []string{}
	for i := 0; i < 23; i++ {
		rows = append(rows, fmt.Sprintf("%d,k%d", i, (i*7)%5))
	}
	env.table("t", "id:int,k:string", rows...)

	for _, order := range []string{"asc", "desc"} {
		code := "select id,k from t orderby k " + order
		_, ext := env.queryWith(code, SortExternal)
		_, mem := env.queryWith(code, SortMemory)
		_, auto := env.queryWith(code, SortAuto)
		assert.Equal(23, len(ext))
		assert.Equal(mem, ext, order)
		assert.Equal(mem, auto, order)

		// the reference: one stable pass over the original records
		expect := [][]string{}
		for _, r := range rows {
			expect = append(expect, strings.Split(r, ","))
		}
		sort.SliceStable(expect, func(i, j int) bool {
			if order == "asc" {
				return expect[i][1] < expect[j][1]
			}
			return expect[i][1] > expect[j][1]
		})
		assert.Equal(expect, ext, order)
	}

	// spill files are gone, the sorted artifacts are left
	for _, f := range env.files() {
		assert.True(f == "t.csv" || strings.HasPrefix(f, store.TempPrefix), f)
	}
	assert.Equal(1+6, len(env.files()))
}

func TestParseStrategy(t *testing.T) {
	assert := assert.New(t)
	for _, x := range []string{"auto", "memory", "external", "EXTERNAL", ""} {
		_, err := ParseStrategy(x)
		assert.NoError(err)
	}
	s, _ := ParseStrategy("memory")
	assert.Equal(SortMemory, s)
	assert.Equal("external", SortExternal.String())
	_, err := ParseStrategy("quick")
	assert.Error(err)
}

// ---------------------------------------------------------------------------
// AWK oracle. Filter and aggregates are recomputed by an independent AWK
// program over the raw table file and must match the engine's result.

func runAwk(t *testing.T, code string, input ...string) string {
	prog, err := gawkp.ParseProgram(
		[]byte(code),
		nil,
	)
	require.NoError(t, err)

	buf := strings.Builder{}
	interp, err := gawki.New(prog)
	require.NoError(t, err)
	_, err = interp.Execute(&gawki.Config{
		Output: &buf,
		Args:   input,
		Vars:   []string{"FS", ","},
	})
	require.NoError(t, err)
	return buf.String()
}

func sortedLines(x string) []string {
	out := []string{}
	for _, l := range strings.Split(strings.TrimSpace(x), "\n") {
		if l != "" {
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}

func TestAwkOracle(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, 4)

	rows := []string{}
	for i := 0; i < 37; i++ {
		rows = append(rows, fmt.Sprintf("%d,g%d,%d", i, i%6, (i*13)%17))
	}
	env.table("t", "id:int,g:string,v:int", rows...)
	path := filepath.Join(env.store.Dir(), "t.csv")

	{
		expect := runAwk(
			t,
			`NR > 2 && $3 > 5 { cnt[$2]++; sum[$2] += $3; if (!($2 in mx) || $3 > mx[$2]) mx[$2] = $3 }
END { for (k in cnt) print k "," cnt[k] "," sum[k] "," mx[k] }`,
			path,
		)
		_, got := env.query("select g,count(v),sum(v),max(v) from t that v>5 groupby g")

		lines := []string{}
		for _, r := range got {
			lines = append(lines, strings.Join(r, ","))
		}
		assert.Equal(sortedLines(expect), sortedLines(strings.Join(lines, "\n")))
	}
	{
		expect := runAwk(t, `NR > 2 && $1 >= 10 && $1 < 30 && $2 != "g3" { print $1 }`, path)
		_, got := env.query("select id from t that id>=10,id<30,g!=g3")

		lines := []string{}
		for _, r := range got {
			lines = append(lines, r[0])
		}
		assert.Equal(sortedLines(expect), sortedLines(strings.Join(lines, "\n")))
	}
	{
		expect := runAwk(
			t,
			`NR > 2 { s[$2] += $3; n[$2]++ } END { for (k in s) printf "%s,%.6f\n", k, s[k] / n[k] }`,
			path,
		)
		want := make(map[string]float64)
		for _, l := range sortedLines(expect) {
			p := strings.Split(l, ",")
			f, err := strconv.ParseFloat(p[1], 64)
			require.NoError(t, err)
			want[p[0]] = f
		}

		_, got := env.query("select g,avg(v) from t groupby g")
		assert.Equal(len(want), len(got))
		for _, r := range got {
			f, err := strconv.ParseFloat(r[1], 64)
			assert.NoError(err)
			assert.InDelta(want[r[0]], f, 1e-6, r[0])
		}
	}
}
