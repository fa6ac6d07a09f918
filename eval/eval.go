// Package eval evaluates single binary predicates against stored records.
//
// Records are plain text, typing only happens here: a predicate is bound once
// against a header and its type row, which fixes the column index and the
// comparison used for every record afterwards.
//
//   - <, <=, >, >= on int/float columns compare both sides as float64
//   - <, <=, >, >= on string columns compare case folded text
//   - = on int/float columns is numeric equality
//   - = on string columns is case insensitive equality (Unicode case folding)
//   - != is raw text inequality, no coercion at all
//
// Quotes around the literal and around stored values are stripped before
// any comparison.
package eval

import (
	"strconv"
	"strings"

	"github.com/dianpeng/flatdb/errs"
	"github.com/dianpeng/flatdb/sql"
	"golang.org/x/text/cases"
)

// ColumnIndex finds name inside of header. An exact match wins, otherwise an
// unqualified name matches a single qualified header, ie a matches t.a when
// no other table contributes a column named a.
func ColumnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if h == name {
			return i, nil
		}
	}

	if !strings.Contains(name, ".") {
		found := -1
		for i, h := range header {
			if strings.HasSuffix(h, "."+name) {
				if found >= 0 {
					return -1, errs.New(errs.KindColumnError, "column", "column %s is ambiguous", name)
				}
				found = i
			}
		}
		if found >= 0 {
			return found, nil
		}
	}
	return -1, errs.New(errs.KindColumnError, "column", "unknown column %s", name)
}

func IsNumeric(ty string) bool {
	return ty == sql.TypeInt || ty == sql.TypeFloat
}

type cond struct {
	index   int
	op      int
	numeric bool
	text    string  // unquoted literal
	folded  string  // case folded literal, string columns only
	number  float64 // parsed literal, numeric columns only
}

type Filter struct {
	conds []cond
	fold  cases.Caser
}

// Compile binds a conjunction of predicates to a header/type row. Unknown
// columns fail with ColumnError, a non numeric literal compared against a
// numeric column fails with TypeError.
func Compile(
	preds []*sql.Predicate,
	header []string,
	types []string,
) (*Filter, error) {
	f := &Filter{
		fold: cases.Fold(),
	}

	for _, p := range preds {
		idx, err := ColumnIndex(header, p.Column)
		if err != nil {
			return nil, err
		}

		ty := sql.TypeString
		if idx < len(types) {
			ty = types[idx]
		}

		c := cond{
			index:   idx,
			op:      p.Op,
			numeric: IsNumeric(ty),
			text:    sql.Unquote(p.Value),
		}

		if c.op != sql.OpNe {
			if c.numeric {
				v, err := strconv.ParseFloat(c.text, 64)
				if err != nil {
					return nil, errs.New(
						errs.KindTypeError,
						"condition",
						"column %s is %s, cannot compare with %q",
						p.Column,
						ty,
						p.Value,
					)
				}
				c.number = v
			} else {
				c.folded = f.fold.String(c.text)
			}
		}

		f.conds = append(f.conds, c)
	}
	return f, nil
}

func (self *Filter) Empty() bool { return self == nil || len(self.conds) == 0 }

// Match reports whether all predicates hold for record. An empty filter
// matches everything.
func (self *Filter) Match(record []string) bool {
	if self == nil {
		return true
	}
	for i := range self.conds {
		if !self.matchOne(&self.conds[i], record) {
			return false
		}
	}
	return true
}

func (self *Filter) matchOne(c *cond, record []string) bool {
	field := ""
	if c.index < len(record) {
		field = sql.Unquote(record[c.index])
	}

	if c.op == sql.OpNe {
		return field != c.text
	}

	var r int
	if c.numeric {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return false // unparsable stored value never satisfies a numeric test
		}
		switch {
		case v < c.number:
			r = -1
		case v > c.number:
			r = 1
		}
	} else {
		r = strings.Compare(self.fold.String(field), c.folded)
	}

	switch c.op {
	case sql.OpLt:
		return r < 0
	case sql.OpLe:
		return r <= 0
	case sql.OpEq:
		return r == 0
	case sql.OpGt:
		return r > 0
	case sql.OpGe:
		return r >= 0
	default:
		return false
	}
}

// Equal is the join equality of two stored values. Both sides are unquoted,
// two numeric columns compare as numbers, anything else compares raw text.
func Equal(lty, l, rty, r string) bool {
	l, r = sql.Unquote(l), sql.Unquote(r)
	if IsNumeric(lty) && IsNumeric(rty) {
		lv, lerr := strconv.ParseFloat(strings.TrimSpace(l), 64)
		rv, rerr := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if lerr == nil && rerr == nil {
			return lv == rv
		}
	}
	return l == r
}
