package plan

import (
	"github.com/dianpeng/flatdb/errs"
	"github.com/dianpeng/flatdb/sql"
)

func (self *Plan) planPrepare(s *sql.Select) error {
	if s.Table == "" {
		return self.err(errs.KindUnsupportedQuery, "plan", "select without a source table")
	}
	self.Table = s.Table
	self.filter = s.Where

	// perform semantic check
	if err := self.semaCheck(s); err != nil {
		return err
	}
	return nil
}

// ----------------------------------------------------------------------------
// plan join node, predicates that only reference one side of the join are
// moved into the join itself
func (self *Plan) planJoin(s *sql.Select) {
	if s.Join == nil {
		return
	}
	j := &NestedLoopJoin{
		Left:  s.Table,
		Right: s.Join.Table,
		On:    s.Join.On,
	}
	self.filter = self.anaEarlyFilter(j, s.Where)
	self.Join = j
}

// ----------------------------------------------------------------------------
// plan *table scan* node. The projected columns are the union of the plain
// columns, the aggregated columns and the group key, so later phases find
// every column they need inside of the scan's artifact.
func (self *Plan) planTableScan(s *sql.Select) {
	ts := &TableScan{
		Table:    s.Table,
		FromJoin: self.HasJoin(),
		Wildcard: s.HasStar(),
		Filter:   self.filter,
	}

	if !ts.Wildcard {
		seen := make(map[string]bool)
		add := func(n string) {
			if !seen[n] {
				seen[n] = true
				ts.VarList = append(ts.VarList, n)
			}
		}
		for _, c := range s.Columns {
			add(c.Name)
		}
		for _, n := range s.GroupBy {
			add(n)
		}
	}

	self.TableScan = ts
}

// ----------------------------------------------------------------------------
// plan group by
func (self *Plan) planGroupBy(s *sql.Select) {
	if len(s.GroupBy) > 0 {
		self.GroupBy = &GroupBy{
			VarList: s.GroupBy,
		}
	}
}

// ----------------------------------------------------------------------------
// plan aggregation, the aggregate kind was already resolved by the parser
func (self *Plan) planAgg(s *sql.Select) {
	agg := &Agg{}
	for _, c := range s.Columns {
		if c.IsAgg() {
			agg.VarList = append(agg.VarList, AggVar{
				AggType: c.Agg,
				Column:  c.Name,
			})
		}
	}
	if len(agg.VarList) > 0 {
		self.Agg = agg
	}
}

// ----------------------------------------------------------------------------
// plan the sorting
func (self *Plan) planSort(s *sql.Select) {
	if s.OrderBy != nil {
		self.Sort = &Sort{
			Asc:     s.OrderBy.Order == sql.OrderAsc,
			VarList: s.OrderBy.Name,
		}
	}
}

// ----------------------------------------------------------------------------
// plan output
func (self *Plan) planOutput(s *sql.Select) {
	self.Output = &Output{
		VarList:  s.Columns,
		Wildcard: s.HasStar(),
	}
}

func (self *Plan) plan(s *sql.Select) error {
	if err := self.planPrepare(s); err != nil {
		return err
	}
	self.planJoin(s)
	self.planTableScan(s)
	self.planGroupBy(s)
	self.planAgg(s)
	self.planSort(s)
	self.planOutput(s)
	return nil
}
