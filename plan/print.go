package plan

import (
	"fmt"
	"strings"

	"github.com/dianpeng/flatdb/sql"
)

// Printing the plan out, for testing, debugging, visualization purpose etc ...

func (self *Plan) Print() string {
	buf := &strings.Builder{}
	self.printJoin(buf)
	self.printTableScan(buf)
	self.printGroupBy(buf)
	self.printAgg(buf)
	self.printSort(buf)
	self.printOutput(buf)
	return buf.String()
}

func printFilter(f []*sql.Predicate) string {
	l := []string{}
	for _, p := range f {
		l = append(l, p.String())
	}
	return strings.Join(l, ",")
}

func (self *Plan) printJoin(
	buf *strings.Builder,
) {
	if self.Join == nil {
		buf.WriteString("##> Join\n")
		buf.WriteString("--\n")
	} else {
		buf.WriteString(self.Join.Dump())
	}
}

func (self *Plan) printTableScan(
	buf *strings.Builder,
) {
	ts := self.TableScan
	buf.WriteString("##> TableScan\n")
	if ts.FromJoin {
		buf.WriteString("Input: join\n")
	} else {
		buf.WriteString(fmt.Sprintf("Input: %s\n", ts.Table))
	}
	if ts.Wildcard {
		buf.WriteString("Var: *\n")
	} else {
		for idx, v := range ts.VarList {
			buf.WriteString(fmt.Sprintf("Var[%d]: %s\n", idx, v))
		}
	}
	buf.WriteString(fmt.Sprintf("Filter: %s\n", printFilter(ts.Filter)))
}

func (self *Plan) printGroupBy(
	buf *strings.Builder,
) {
	groupBy := self.GroupBy
	buf.WriteString("##> GroupBy\n")
	if groupBy == nil {
		buf.WriteString("--\n")
	} else {
		for idx, v := range groupBy.VarList {
			buf.WriteString(fmt.Sprintf("Var[%d]: %s\n", idx, v))
		}
	}
}

func (self *Plan) printAgg(
	buf *strings.Builder,
) {
	agg := self.Agg
	buf.WriteString("##> Agg\n")
	if agg == nil {
		buf.WriteString("--\n")
	} else {
		for idx, avar := range agg.VarList {
			buf.WriteString(fmt.Sprintf("Var[%d]: %s\n", idx, avar.Name()))
		}
	}
}

func (self *Plan) printSort(
	buf *strings.Builder,
) {
	sort := self.Sort
	buf.WriteString("##> OrderBy\n")
	if sort == nil {
		buf.WriteString("--\n")
	} else {
		if sort.Asc {
			buf.WriteString("Order: asc\n")
		} else {
			buf.WriteString("Order: desc\n")
		}
		for idx, v := range sort.VarList {
			buf.WriteString(fmt.Sprintf("Sort[%d]: %s\n", idx, v))
		}
	}
}

func (self *Plan) printOutput(
	buf *strings.Builder,
) {
	output := self.Output
	buf.WriteString("##> Output\n")
	for idx, c := range output.VarList {
		buf.WriteString(fmt.Sprintf("Var[%d]: %s\n", idx, c.ColName()))
	}
}
