package exec

import (
	"container/heap"
	"io"
	"sort"
	"strings"

	"github.com/dianpeng/flatdb/eval"
	"github.com/dianpeng/flatdb/plan"
	"github.com/dianpeng/flatdb/store"
)

// ----------------------------------------------------------------------------
// Order by. Keys compare as text on the stored representation, tuple wise.
// Both strategies are stable, records with equal keys keep their input order,
// so they always produce the same ordering:
//
//  1) memory, load the whole artifact, sort, write it back
//
//  2) external, sort each chunk and spill it into its own artifact, then
//     merge the spill files with a heap holding the head record of every
//     spill. Ties on the key are broken by spill number, which is the input
//     order of the chunks.
// ----------------------------------------------------------------------------

type sortKey struct {
	index []int
	asc   bool
}

func (self *sortKey) compare(a, b []string) int {
	for _, idx := range self.index {
		var x, y string
		if idx < len(a) {
			x = a[idx]
		}
		if idx < len(b) {
			y = b[idx]
		}
		if r := strings.Compare(x, y); r != 0 {
			if !self.asc {
				return -r
			}
			return r
		}
	}
	return 0
}

func (self *sortKey) sortChunk(chunk store.Chunk) {
	sort.SliceStable(chunk, func(i, j int) bool {
		return self.compare(chunk[i], chunk[j]) < 0
	})
}

func (self *Executor) sort(s *plan.Sort, in *store.Artifact) (*store.Artifact, error) {
	key := &sortKey{asc: s.Asc}
	for _, n := range s.VarList {
		idx, err := eval.ColumnIndex(in.Header, n)
		if err != nil {
			return nil, err
		}
		key.index = append(key.index, idx)
	}

	strategy := self.strategy
	if strategy == SortAuto {
		if in.Records <= self.chunkSize {
			strategy = SortMemory
		} else {
			strategy = SortExternal
		}
	}
	self.log.Debug("sort", "strategy", strategy.String(), "records", in.Records)

	if strategy == SortMemory {
		return self.memorySort(key, in)
	}
	return self.externalSort(key, in)
}

func (self *Executor) memorySort(key *sortKey, in *store.Artifact) (*store.Artifact, error) {
	scan, err := in.Scan(self.chunkSize)
	if err != nil {
		return nil, err
	}
	defer scan.Close()

	all, err := scan.ReadAll()
	if err != nil {
		return nil, err
	}
	key.sortChunk(all)

	w, err := self.arts.Create(in.Header, in.Types)
	if err != nil {
		return nil, err
	}
	if err := w.WriteChunk(all); err != nil {
		w.Abort()
		return nil, err
	}
	return w.Close()
}

// spill writes every chunk of in, sorted, into its own artifact
func (self *Executor) spill(key *sortKey, in *store.Artifact) ([]*store.Artifact, error) {
	scan, err := in.Scan(self.chunkSize)
	if err != nil {
		return nil, err
	}
	defer scan.Close()

	out := []*store.Artifact{}
	err = drain(scan, func(chunk store.Chunk) error {
		key.sortChunk(chunk)
		w, err := self.arts.Create(in.Header, in.Types)
		if err != nil {
			return err
		}
		if err := w.WriteChunk(chunk); err != nil {
			w.Abort()
			return err
		}
		a, err := w.Close()
		if err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out, err
}

func (self *Executor) externalSort(key *sortKey, in *store.Artifact) (*store.Artifact, error) {
	spills, err := self.spill(key, in)
	defer func() {
		for _, a := range spills {
			if err := a.Remove(); err != nil {
				self.log.Warn("cannot remove spill", "artifact", a.Path, "error", err)
			}
		}
	}()
	if err != nil {
		return nil, err
	}
	self.log.Debug("spilled", "files", len(spills))

	streams := []*store.Scanner{}
	defer func() {
		for _, s := range streams {
			s.Close()
		}
	}()
	for _, a := range spills {
		s, err := a.Scan(self.chunkSize)
		if err != nil {
			return nil, err
		}
		streams = append(streams, s)
	}

	w, err := self.arts.Create(in.Header, in.Types)
	if err != nil {
		return nil, err
	}
	if err := merge(key, streams, w.Write); err != nil {
		w.Abort()
		return nil, err
	}
	return w.Close()
}

// merge performs the k-way merge of already sorted streams into emit
func merge(key *sortKey, streams []*store.Scanner, emit func([]string) error) error {
	h := &recordHeap{key: key}
	for i, s := range streams {
		rec, err := s.Read()
		if err == io.EOF {
			continue
		}
		if err != nil {
			return err
		}
		h.items = append(h.items, heapItem{rec: rec, stream: i})
	}
	heap.Init(h)

	for h.Len() > 0 {
		item := heap.Pop(h).(heapItem)
		if err := emit(item.rec); err != nil {
			return err
		}
		rec, err := streams[item.stream].Read()
		if err == io.EOF {
			continue
		}
		if err != nil {
			return err
		}
		heap.Push(h, heapItem{rec: rec, stream: item.stream})
	}
	return nil
}

type heapItem struct {
	rec    []string
	stream int
}

type recordHeap struct {
	key   *sortKey
	items []heapItem
}

func (self *recordHeap) Len() int { return len(self.items) }

func (self *recordHeap) Less(i, j int) bool {
	a, b := self.items[i], self.items[j]
	if r := self.key.compare(a.rec, b.rec); r != 0 {
		return r < 0
	}
	return a.stream < b.stream
}

func (self *recordHeap) Swap(i, j int) { self.items[i], self.items[j] = self.items[j], self.items[i] }

func (self *recordHeap) Push(x interface{}) { self.items = append(self.items, x.(heapItem)) }

func (self *recordHeap) Pop() interface{} {
	n := len(self.items)
	item := self.items[n-1]
	self.items = self.items[:n-1]
	return item
}
