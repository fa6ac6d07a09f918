package plan

import (
	"fmt"
	"strings"

	"github.com/dianpeng/flatdb/errs"
	"github.com/dianpeng/flatdb/sql"
)

// TableScan is the Project+Filter phase. Without a join it reads the base
// table, with a join it reads the join phase's artifact.
type TableScan struct {
	Table    string           // base table, always set
	FromJoin bool             // read the join artifact instead of Table
	VarList  []string         // columns to project, deduplicated, in output order
	Wildcard bool             // project every column of the input
	Filter   []*sql.Predicate // conjunction applied before projection
}

type Join interface {
	JoinName() string
	Dump() string
}

// NestedLoopJoin pairs every chunk of the left table with every chunk of the
// right table. Filters that only touch one side are applied while reading
// that side, see early_filter.go.
type NestedLoopJoin struct {
	Left        string
	Right       string
	On          []sql.JoinCond
	LeftFilter  []*sql.Predicate
	RightFilter []*sql.Predicate
}

func (self *NestedLoopJoin) JoinName() string { return "nested-loop" }

func (self *NestedLoopJoin) Dump() string {
	buf := strings.Builder{}
	buf.WriteString("##> Join\n")
	buf.WriteString("Name: nested-loop\n")
	buf.WriteString(fmt.Sprintf("Left: %s\n", self.Left))
	buf.WriteString(fmt.Sprintf("Right: %s\n", self.Right))
	for idx, c := range self.On {
		buf.WriteString(fmt.Sprintf("On[%d]: %s=%s\n", idx, c.Left, c.Right))
	}
	buf.WriteString(fmt.Sprintf("LeftFilter: %s\n", printFilter(self.LeftFilter)))
	buf.WriteString(fmt.Sprintf("RightFilter: %s\n", printFilter(self.RightFilter)))
	return buf.String()
}

type GroupBy struct {
	VarList []string // group key, in the order written by the user
}

// AggVar is one aggregate column of the group phase. The kind is resolved
// once while parsing, the group phase never looks at the function name.
type AggVar struct {
	AggType int    // sql.AggXXX
	Column  string // aggregated column
}

func (self *AggVar) AggName() string { return sql.AggName(self.AggType) }

// Name of the output column, ie count(a)
func (self *AggVar) Name() string {
	return fmt.Sprintf("%s(%s)", self.AggName(), self.Column)
}

type Agg struct {
	VarList []AggVar
}

type Sort struct {
	Asc     bool
	VarList []string
}

// Output describes the projected columns as written in the query, the group
// phase lays out its output columns from it.
type Output struct {
	VarList  []*sql.ColumnSpec
	Wildcard bool
}

// Plan is the ordered list of phases one select runs through, every phase
// other than TableScan and Output is optional.
type Plan struct {
	Table     string // source table of the query
	Join      *NestedLoopJoin
	TableScan *TableScan
	GroupBy   *GroupBy
	Agg       *Agg
	Sort      *Sort
	Output    *Output

	// private data, used while planning
	filter []*sql.Predicate // filters not pushed into the join
}

func newPlan() *Plan {
	return &Plan{}
}

// PlanSelect turns a parsed select into its phase plan. Only checks that
// need no schema happen here, columns are resolved while executing.
func PlanSelect(s *sql.Select) (*Plan, error) {
	p := newPlan()
	if err := p.plan(s); err != nil {
		return nil, err
	}
	return p, nil
}

func (self *Plan) HasJoin() bool    { return self.Join != nil }
func (self *Plan) HasGroupBy() bool { return self.GroupBy != nil }
func (self *Plan) HasAgg() bool     { return self.Agg != nil && len(self.Agg.VarList) > 0 }
func (self *Plan) HasSort() bool    { return self.Sort != nil }

func (self *Plan) err(kind errs.Kind, stage string, f string, args ...interface{}) error {
	return errs.New(kind, stage, f, args...)
}
