// Package engine is the command interpreter. It parses one command, routes
// DDL/DML to the table store and runs selects through the phase pipeline,
// every outcome is reported as a Result, errors never cross the boundary.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/dianpeng/flatdb/errs"
	"github.com/dianpeng/flatdb/exec"
	"github.com/dianpeng/flatdb/plan"
	"github.com/dianpeng/flatdb/sql"
	"github.com/dianpeng/flatdb/store"
	"github.com/google/uuid"
)

// Engine owns the catalog and the artifact counter of one data directory.
// It is safe for concurrent use, writes to one table are serialized by the
// store.
type Engine struct {
	cfg      Config
	store    *store.Store
	arts     *store.Artifacts
	strategy exec.Strategy
	log      *slog.Logger
}

func Open(cfg Config) (*Engine, error) {
	cfg.fill()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	strategy, _ := exec.ParseStrategy(cfg.SortStrategy)

	st, err := store.Open(cfg.DataDir, store.Options{
		ChunkSize: cfg.ChunkSize,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:      cfg,
		store:    st,
		arts:     store.NewArtifacts(cfg.DataDir),
		strategy: strategy,
		log:      cfg.Logger,
	}, nil
}

func (self *Engine) Config() Config      { return self.cfg }
func (self *Engine) Store() *store.Store { return self.store }

// Exec runs one command
func (self *Engine) Exec(cmd string) (r *Result) {
	r = &Result{
		QueryID: uuid.NewString(),
		Command: cmd,
	}
	log := self.log.With("query", r.QueryID)

	defer func() {
		if x := recover(); x != nil {
			log.Error("command panicked", "command", cmd, "panic", x)
			r.fail(errs.New(errs.KindIO, "engine", "internal error: %v", x))
		}
		if r.Err != nil {
			log.Warn("command failed", "command", cmd, "kind", r.Kind, "error", r.Err)
		}
	}()

	action, err := sql.Parse(cmd)
	if err != nil {
		r.fail(err)
		return
	}
	self.dispatch(action, r, log)
	return
}

// Select runs cmd only when it is a select, anything else is rejected with
// UnsupportedQuery.
func (self *Engine) Select(cmd string) *Result {
	action, err := sql.Parse(cmd)
	if err == nil && action.Type() != sql.ActionSelect {
		r := &Result{
			QueryID: uuid.NewString(),
			Command: cmd,
		}
		r.fail(errs.New(errs.KindUnsupportedQuery, "engine", "not a select: %s", cmd))
		return r
	}
	return self.Exec(cmd)
}

// ExecScript runs the ';' separated commands of src in order and stops at the
// first failing one. The results of every command run are returned.
func (self *Engine) ExecScript(src string) []*Result {
	out := []*Result{}
	for _, cmd := range sql.SplitScript(src) {
		r := self.Exec(cmd)
		out = append(out, r)
		if !r.OK {
			break
		}
	}
	return out
}

func (self *Engine) dispatch(action sql.Action, r *Result, log *slog.Logger) {
	var err error

	switch action.Type() {
	case sql.ActionCreateTable:
		err = self.createTable(action.(*sql.CreateTable), r)

	case sql.ActionInsert:
		err = self.insert(action.(*sql.Insert), r)

	case sql.ActionDelete:
		err = self.delete(action.(*sql.Delete), r)

	case sql.ActionUpdate:
		err = self.update(action.(*sql.Update), r)

	case sql.ActionDisplay:
		err = self.display(action.(*sql.Display), r)

	case sql.ActionListTables:
		self.listTables(r)

	case sql.ActionDescribe:
		err = self.describe(action.(*sql.Describe), r)

	case sql.ActionSelect:
		err = self.query(action.(*sql.Select), r, log)

	default:
		u, _ := action.(*sql.Unknown)
		kw := ""
		if u != nil {
			kw = u.Keyword
		}
		err = errs.New(errs.KindUnsupportedQuery, "engine", "unknown command %q, nothing is done", kw)
	}

	if err != nil {
		r.fail(err)
		return
	}
	r.OK = true
	if r.Message != "" {
		log.Info(r.Message)
	}
}

func (self *Engine) createTable(a *sql.CreateTable, r *Result) error {
	if err := self.store.CreateTable(a.Table, a.Columns); err != nil {
		return err
	}
	r.Message = fmt.Sprintf("table %s created", a.Table)
	return nil
}

func (self *Engine) insert(a *sql.Insert, r *Result) error {
	if err := self.store.Insert(a.Table, a.Values); err != nil {
		return err
	}
	r.Message = fmt.Sprintf("1 record inserted into %s", a.Table)
	return nil
}

func (self *Engine) delete(a *sql.Delete, r *Result) error {
	n, err := self.store.DeleteWhere(a.Table, a.Where)
	if err != nil {
		return err
	}
	r.Message = fmt.Sprintf("%d records deleted from %s", n, a.Table)
	return nil
}

func (self *Engine) update(a *sql.Update, r *Result) error {
	n, err := self.store.UpdateWhere(a.Table, a.Where, a.Set)
	if err != nil {
		return err
	}
	r.Message = fmt.Sprintf("%d records updated in %s", n, a.Table)
	return nil
}

func (self *Engine) display(a *sql.Display, r *Result) error {
	scan, err := self.store.ScanTable(a.Table)
	if err != nil {
		return err
	}
	defer scan.Close()

	rows, err := scan.ReadAll()
	if err != nil {
		return err
	}
	r.Header, r.Types, r.Rows, r.Path = scan.Header(), scan.Types(), rows, scan.Path()
	return nil
}

func (self *Engine) listTables(r *Result) {
	r.Header = []string{"table"}
	r.Types = []string{sql.TypeString}
	r.Rows = [][]string{}
	for _, n := range self.store.ListTables() {
		r.Rows = append(r.Rows, []string{n})
	}
}

func (self *Engine) describe(a *sql.Describe, r *Result) error {
	t, err := self.store.DescribeTable(a.Table)
	if err != nil {
		return err
	}
	r.Header = []string{"column", "type"}
	r.Types = []string{sql.TypeString, sql.TypeString}
	r.Rows = [][]string{}
	for _, c := range t.Columns {
		r.Rows = append(r.Rows, []string{c.Name, c.Type})
	}
	r.Path = t.Path
	return nil
}

func (self *Engine) query(s *sql.Select, r *Result, log *slog.Logger) error {
	p, err := plan.PlanSelect(s)
	if err != nil {
		return err
	}
	log.Debug("plan", "select", sql.PrintSelect(s), "plan", p.Print())

	x := exec.New(self.store, self.arts, exec.Options{
		ChunkSize: self.cfg.ChunkSize,
		Strategy:  self.strategy,
		Logger:    log,
	})
	a, err := x.Run(p)
	if err != nil {
		return err
	}

	scan, err := a.Scan(self.cfg.ChunkSize)
	if err != nil {
		return err
	}
	defer scan.Close()

	rows, err := scan.ReadAll()
	if err != nil {
		return err
	}
	r.Header, r.Types, r.Rows, r.Path = a.Header, a.Types, rows, a.Path
	return nil
}
