package plan

import (
	"strings"

	"github.com/dianpeng/flatdb/errs"
	"github.com/dianpeng/flatdb/sql"
)

// Semantic checking, just check obvious query bugs that need no schema
//
// ----------------------------------------------------------------------------
//
// [1] aggregation without group by is rejected, the group phase only runs when
//     the query names a group key
//
// [2] a column of the group key must not be aggregated in the same query
//
// [3] a join needs at least one equality and a second table
//
// ----------------------------------------------------------------------------

// two names refer to the same column when they are equal or when one of them
// is the qualified form of the other, ie t.a and a
func sameColumn(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasSuffix(a, "."+b) || strings.HasSuffix(b, "."+a)
}

func (self *Plan) anaGroupBy(s *sql.Select) error {
	if len(s.GroupBy) == 0 {
		if s.HasAgg() {
			return self.err(
				errs.KindUnsupportedQuery,
				"sema",
				"[group_by]: aggregation requires a groupby clause",
			)
		}
		return nil
	}

	for _, key := range s.GroupBy {
		for _, c := range s.Columns {
			if c.IsAgg() && sameColumn(key, c.Name) {
				return self.err(
					errs.KindInvalidGrouping,
					"sema",
					"[group_by]: column %s is grouped and aggregated by %s",
					key,
					c.ColName(),
				)
			}
		}
	}
	return nil
}

func (self *Plan) anaJoin(s *sql.Select) error {
	if s.Join == nil {
		return nil
	}
	if s.Join.Table == "" {
		return self.err(errs.KindUnsupportedQuery, "sema", "[join]: missing table")
	}
	if len(s.Join.On) == 0 {
		return self.err(errs.KindUnsupportedQuery, "sema", "[join]: missing join condition")
	}
	return nil
}

func (self *Plan) semaCheck(s *sql.Select) error {
	if len(s.Columns) == 0 {
		return self.err(errs.KindUnsupportedQuery, "sema", "nothing is selected")
	}
	if err := self.anaGroupBy(s); err != nil {
		return err
	}
	if err := self.anaJoin(s); err != nil {
		return err
	}
	return nil
}
