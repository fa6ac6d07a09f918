package exec

import (
	"github.com/dianpeng/flatdb/eval"
	"github.com/dianpeng/flatdb/plan"
	"github.com/dianpeng/flatdb/store"
)

// project resolves the projected names against header. A name resolving to
// a column that was already projected is dropped.
func project(header []string, names []string, wildcard bool) ([]int, error) {
	out := []int{}
	if wildcard {
		for i := range header {
			out = append(out, i)
		}
		return out, nil
	}

	seen := make(map[int]bool)
	for _, n := range names {
		idx, err := eval.ColumnIndex(header, n)
		if err != nil {
			return nil, err
		}
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	return out, nil
}

func pick(rec []string, index []int) []string {
	out := make([]string, len(index))
	for i, idx := range index {
		if idx < len(rec) {
			out[i] = rec[idx]
		}
	}
	return out
}

// Project+Filter, reads the base table or in when the query has a join.
func (self *Executor) tableScan(
	ts *plan.TableScan,
	in *store.Artifact,
) (*store.Artifact, error) {
	var scan *store.Scanner
	var err error

	if ts.FromJoin {
		scan, err = in.Scan(self.chunkSize)
	} else {
		scan, err = self.store.ScanTable(ts.Table)
	}
	if err != nil {
		return nil, err
	}
	defer scan.Close()

	header, types := scan.Header(), scan.Types()

	filter, err := eval.Compile(ts.Filter, header, types)
	if err != nil {
		return nil, err
	}
	index, err := project(header, ts.VarList, ts.Wildcard)
	if err != nil {
		return nil, err
	}

	w, err := self.arts.Create(pick(header, index), pick(types, index))
	if err != nil {
		return nil, err
	}

	err = drain(scan, func(chunk store.Chunk) error {
		for _, rec := range chunk {
			if !filter.Match(rec) {
				continue
			}
			if err := w.Write(pick(rec, index)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		w.Abort()
		return nil, err
	}
	return w.Close()
}
