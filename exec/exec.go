// Package exec runs a query plan phase by phase. Every phase reads the
// current artifact chunk by chunk and writes its output into a new artifact,
// the previous artifact is retired once its successor is complete.
package exec

import (
	"io"
	"log/slog"
	"strings"

	"github.com/dianpeng/flatdb/errs"
	"github.com/dianpeng/flatdb/plan"
	"github.com/dianpeng/flatdb/store"
)

type Strategy int

const (
	SortAuto Strategy = iota
	SortMemory
	SortExternal
)

func (self Strategy) String() string {
	switch self {
	case SortMemory:
		return "memory"
	case SortExternal:
		return "external"
	default:
		return "auto"
	}
}

func ParseStrategy(x string) (Strategy, error) {
	switch strings.ToLower(x) {
	case "", "auto":
		return SortAuto, nil
	case "memory":
		return SortMemory, nil
	case "external":
		return SortExternal, nil
	default:
		return SortAuto, errs.New(errs.KindUnsupportedQuery, "config", "unknown sort strategy %q", x)
	}
}

type Options struct {
	ChunkSize int
	Strategy  Strategy
	Logger    *slog.Logger
}

type Executor struct {
	store     *store.Store
	arts      *store.Artifacts
	chunkSize int
	strategy  Strategy
	log       *slog.Logger
}

func New(st *store.Store, arts *store.Artifacts, opt Options) *Executor {
	if opt.ChunkSize <= 0 {
		opt.ChunkSize = st.ChunkSize()
	}
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{
		store:     st,
		arts:      arts,
		chunkSize: opt.ChunkSize,
		strategy:  opt.Strategy,
		log:       opt.Logger,
	}
}

// Run executes p and returns the final artifact. On failure the artifacts
// already written stay on disk until the next start up sweep.
func (self *Executor) Run(p *plan.Plan) (*store.Artifact, error) {
	var cur *store.Artifact
	var err error

	// 1) join
	if p.HasJoin() {
		if cur, err = self.join(p.Join); err != nil {
			return nil, err
		}
		self.done("join", cur)
	}

	// 2) project + filter
	next, err := self.tableScan(p.TableScan, cur)
	if err != nil {
		return nil, err
	}
	cur = self.supersede(cur, next)
	self.done("scan", cur)

	// 3) group by, aggregation
	if p.HasGroupBy() {
		if next, err = self.groupBy(p, cur); err != nil {
			return nil, err
		}
		cur = self.supersede(cur, next)
		self.done("group", cur)
	}

	// 4) order by
	if p.HasSort() {
		if next, err = self.sort(p.Sort, cur); err != nil {
			return nil, err
		}
		cur = self.supersede(cur, next)
		self.done("sort", cur)
	}

	return cur, nil
}

// retire the old artifact and drop its file, next takes over
func (self *Executor) supersede(prev, next *store.Artifact) *store.Artifact {
	if prev != nil {
		if err := prev.Remove(); err != nil {
			self.log.Warn("cannot remove superseded artifact", "artifact", prev.Path, "error", err)
		}
	}
	return next
}

func (self *Executor) done(stage string, a *store.Artifact) {
	self.log.Debug(
		"stage done",
		"stage", stage,
		"artifact", a.Path,
		"records", a.Records,
	)
}

// drain feeds every chunk of s to fn
func drain(s *store.Scanner, fn func(store.Chunk) error) error {
	for {
		chunk, err := s.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
}
