package exec

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dianpeng/flatdb/errs"
	"github.com/dianpeng/flatdb/eval"
	"github.com/dianpeng/flatdb/plan"
	"github.com/dianpeng/flatdb/sql"
	"github.com/dianpeng/flatdb/store"
)

// aggregation state of one aggregate column inside of one group
type aggState struct {
	count int     // records of the group
	n     int     // numeric values seen
	sum   float64 // sum of numeric values
	min   float64
	max   float64
}

func (self *aggState) next(v string) {
	self.count++
	f, err := strconv.ParseFloat(strings.TrimSpace(sql.Unquote(v)), 64)
	if err != nil {
		return // non numeric values only count
	}
	if self.n == 0 {
		self.min, self.max = f, f
	} else {
		self.min = math.Min(self.min, f)
		self.max = math.Max(self.max, f)
	}
	self.n++
	self.sum += f
}

func formatNumber(v float64, ty string) string {
	if ty == sql.TypeInt && v == math.Trunc(v) && math.Abs(v) < 1e18 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// result type of an aggregate over a column of type src
func aggType(agg int, src string) string {
	switch agg {
	case sql.AggCount:
		return sql.TypeInt
	case sql.AggAvg:
		return sql.TypeFloat
	default:
		if src == sql.TypeInt {
			return sql.TypeInt
		}
		return sql.TypeFloat
	}
}

func (self *aggState) flush(agg int, ty string) string {
	switch agg {
	case sql.AggCount:
		return strconv.Itoa(self.count)
	case sql.AggSum:
		return formatNumber(self.sum, ty)
	case sql.AggAvg:
		if self.n == 0 {
			return "0"
		}
		return formatNumber(self.sum/float64(self.n), ty)
	case sql.AggMin:
		if self.n == 0 {
			return ""
		}
		return formatNumber(self.min, ty)
	case sql.AggMax:
		if self.n == 0 {
			return ""
		}
		return formatNumber(self.max, ty)
	default:
		return ""
	}
}

// one output column of the group phase
type groupColumn struct {
	name  string
	ty    string
	index int // input column
	agg   int // sql.AggNone for key columns and first value columns
	key   bool
}

type group struct {
	key   []string
	first []string // first record observed for the group
	aggs  []aggState
}

// layout computes the output columns: the key columns sorted by name, then
// the projected columns in projection order. Plain columns that are part of
// the key are not repeated.
func layout(p *plan.Plan, header, types []string) ([]groupColumn, error) {
	keys := []groupColumn{}
	inKey := make(map[int]bool)

	for _, n := range p.GroupBy.VarList {
		idx, err := eval.ColumnIndex(header, n)
		if err != nil {
			return nil, err
		}
		if inKey[idx] {
			continue
		}
		inKey[idx] = true
		keys = append(keys, groupColumn{
			name:  header[idx],
			ty:    types[idx],
			index: idx,
			key:   true,
		})
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].name < keys[j].name
	})

	rest := []groupColumn{}
	seen := make(map[int]bool)
	plain := func(idx int) {
		if inKey[idx] || seen[idx] {
			return
		}
		seen[idx] = true
		rest = append(rest, groupColumn{
			name:  header[idx],
			ty:    types[idx],
			index: idx,
		})
	}

	for _, c := range p.Output.VarList {
		switch {
		case c.Star:
			for i := range header {
				plain(i)
			}

		case c.IsAgg():
			idx, err := eval.ColumnIndex(header, c.Name)
			if err != nil {
				return nil, err
			}
			if inKey[idx] {
				return nil, errs.New(
					errs.KindInvalidGrouping,
					"group",
					"column %s is grouped and aggregated by %s",
					header[idx],
					c.ColName(),
				)
			}
			rest = append(rest, groupColumn{
				name:  c.ColName(),
				ty:    aggType(c.Agg, types[idx]),
				index: idx,
				agg:   c.Agg,
			})

		default:
			idx, err := eval.ColumnIndex(header, c.Name)
			if err != nil {
				return nil, err
			}
			plain(idx)
		}
	}
	return append(keys, rest...), nil
}

// Group-By/Aggregate. Groups are emitted in order of their first record, the
// memory used is proportional to the number of groups, not of records.
func (self *Executor) groupBy(
	p *plan.Plan,
	in *store.Artifact,
) (*store.Artifact, error) {
	scan, err := in.Scan(self.chunkSize)
	if err != nil {
		return nil, err
	}
	defer scan.Close()

	cols, err := layout(p, scan.Header(), scan.Types())
	if err != nil {
		return nil, err
	}

	keyIndex := []int{}
	aggIndex := []int{} // position in cols of each aggregate
	for i, c := range cols {
		if c.key {
			keyIndex = append(keyIndex, c.index)
		} else if c.agg != sql.AggNone {
			aggIndex = append(aggIndex, i)
		}
	}

	groups := make(map[string]*group)
	order := []*group{}

	err = drain(scan, func(chunk store.Chunk) error {
		for _, rec := range chunk {
			key := pick(rec, keyIndex)
			hash := strings.Join(key, "\x00")

			g, ok := groups[hash]
			if !ok {
				g = &group{
					key:   key,
					first: rec,
					aggs:  make([]aggState, len(aggIndex)),
				}
				groups[hash] = g
				order = append(order, g)
			}

			for i, ci := range aggIndex {
				idx := cols[ci].index
				v := ""
				if idx < len(rec) {
					v = rec[idx]
				}
				g.aggs[i].next(v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	header := []string{}
	types := []string{}
	for _, c := range cols {
		header = append(header, c.name)
		types = append(types, c.ty)
	}

	w, err := self.arts.Create(header, types)
	if err != nil {
		return nil, err
	}

	for _, g := range order {
		rec := make([]string, 0, len(cols))
		ai := 0
		for _, c := range cols {
			switch {
			case c.agg != sql.AggNone:
				rec = append(rec, g.aggs[ai].flush(c.agg, c.ty))
				ai++
			case c.index < len(g.first):
				rec = append(rec, g.first[c.index])
			default:
				rec = append(rec, "")
			}
		}
		if err := w.Write(rec); err != nil {
			w.Abort()
			return nil, err
		}
	}

	self.log.Debug("groups", "count", len(order))
	return w.Close()
}
