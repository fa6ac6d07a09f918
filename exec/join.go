package exec

import (
	"github.com/dianpeng/flatdb/eval"
	"github.com/dianpeng/flatdb/plan"
	"github.com/dianpeng/flatdb/sql"
	"github.com/dianpeng/flatdb/store"
)

// ----------------------------------------------------------------------------
// Nested loop join over chunk pairs.
//
//   for each chunk L of the left table
//     for each chunk R of the right table
//       for each l in L, r in R
//         if every equality holds, emit l ++ r
//
// The right table is rescanned once per left chunk, so the cost is O(n*m) in
// record count and the number of right table passes grows with the left table
// size. This is the known scalability ceiling of the join, it is only meant
// for tables that are small compared with the chunk budget.
// ----------------------------------------------------------------------------

type joinKey struct {
	left  int
	right int
}

func qualify(table string, header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = table + "." + h
	}
	return out
}

// resolve one equality, each name is looked up in the qualified header of its
// side first, when that fails the sides are swapped, ie s.name=p.name
func resolveJoinKey(c sql.JoinCond, lh, rh []string) (joinKey, error) {
	l, lerr := eval.ColumnIndex(lh, c.Left)
	r, rerr := eval.ColumnIndex(rh, c.Right)
	if lerr == nil && rerr == nil {
		return joinKey{left: l, right: r}, nil
	}

	l, serr := eval.ColumnIndex(lh, c.Right)
	r, rserr := eval.ColumnIndex(rh, c.Left)
	if serr == nil && rserr == nil {
		return joinKey{left: l, right: r}, nil
	}

	if lerr != nil {
		return joinKey{}, lerr
	}
	return joinKey{}, rerr
}

func (self *Executor) join(j *plan.NestedLoopJoin) (*store.Artifact, error) {
	left, err := self.store.DescribeTable(j.Left)
	if err != nil {
		return nil, err
	}
	right, err := self.store.DescribeTable(j.Right)
	if err != nil {
		return nil, err
	}

	// both tables stay read locked for all passes over the right table
	unlock, err := self.store.ReadLock(j.Left, j.Right)
	if err != nil {
		return nil, err
	}
	defer unlock()

	lh, rh := qualify(left.Name, left.Header()), qualify(right.Name, right.Header())
	lt, rt := left.Types(), right.Types()

	keys := []joinKey{}
	for _, c := range j.On {
		k, err := resolveJoinKey(c, lh, rh)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}

	lf, err := eval.Compile(j.LeftFilter, left.Header(), lt)
	if err != nil {
		return nil, err
	}
	rf, err := eval.Compile(j.RightFilter, right.Header(), rt)
	if err != nil {
		return nil, err
	}

	w, err := self.arts.Create(
		append(append([]string{}, lh...), rh...),
		append(append([]string{}, lt...), rt...),
	)
	if err != nil {
		return nil, err
	}

	match := func(l, r []string) bool {
		for _, k := range keys {
			if k.left >= len(l) || k.right >= len(r) {
				return false
			}
			if !eval.Equal(lt[k.left], l[k.left], rt[k.right], r[k.right]) {
				return false
			}
		}
		return true
	}

	lscan, err := store.Scan(left.Path, self.chunkSize)
	if err != nil {
		w.Abort()
		return nil, err
	}
	defer lscan.Close()

	passes := 0
	err = drain(lscan, func(lchunk store.Chunk) error {
		lchunk = filterChunk(lf, lchunk)
		if len(lchunk) == 0 {
			return nil
		}

		rscan, err := store.Scan(right.Path, self.chunkSize)
		if err != nil {
			return err
		}
		defer rscan.Close()
		passes++

		return drain(rscan, func(rchunk store.Chunk) error {
			rchunk = filterChunk(rf, rchunk)
			for _, l := range lchunk {
				for _, r := range rchunk {
					if !match(l, r) {
						continue
					}
					rec := make([]string, 0, len(lh)+len(rh))
					rec = append(append(rec, pad(l, len(lh))...), pad(r, len(rh))...)
					if err := w.Write(rec); err != nil {
						return err
					}
				}
			}
			return nil
		})
	})
	if err != nil {
		w.Abort()
		return nil, err
	}

	self.log.Debug("join passes", "left", j.Left, "right", j.Right, "passes", passes)
	return w.Close()
}

func filterChunk(f *eval.Filter, chunk store.Chunk) store.Chunk {
	if f.Empty() {
		return chunk
	}
	out := store.Chunk{}
	for _, rec := range chunk {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// short records are padded so every joined record has the full width
func pad(rec []string, n int) []string {
	if len(rec) >= n {
		return rec[:n]
	}
	out := make([]string, n)
	copy(out, rec)
	return out
}
