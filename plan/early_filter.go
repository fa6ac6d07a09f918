package plan

import (
	"strings"

	"github.com/dianpeng/flatdb/sql"
)

// ----------------------------------------------------------------------------
//
// Early filter splits the filter of a join query into 3 parts:
//
//  1) predicates qualified with the left table name, ie t1.a>1, evaluated
//     while reading the left table
//
//  2) predicates qualified with the right table name, evaluated while reading
//     the right table
//
//  3) everything else, evaluated by the table scan over the join artifact
//
// Unqualified names stay in 3) since which table owns them is only known once
// the schemas are read. A self join never splits, both sides share a name.
//
// ----------------------------------------------------------------------------

func qualifiedBy(table, column string) (string, bool) {
	prefix := table + "."
	if strings.HasPrefix(column, prefix) && len(column) > len(prefix) {
		return column[len(prefix):], true
	}
	return "", false
}

// returns the predicates that could not be moved into the join
func (self *Plan) anaEarlyFilter(
	j *NestedLoopJoin,
	input []*sql.Predicate,
) []*sql.Predicate {
	if j.Left == j.Right {
		return input
	}

	rest := []*sql.Predicate{}
	for _, p := range input {
		if col, ok := qualifiedBy(j.Left, p.Column); ok {
			j.LeftFilter = append(j.LeftFilter, &sql.Predicate{
				Column: col,
				Op:     p.Op,
				Value:  p.Value,
			})
		} else if col, ok := qualifiedBy(j.Right, p.Column); ok {
			j.RightFilter = append(j.RightFilter, &sql.Predicate{
				Column: col,
				Op:     p.Op,
				Value:  p.Value,
			})
		} else {
			rest = append(rest, p)
		}
	}
	return rest
}
