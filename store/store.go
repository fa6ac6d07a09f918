// Package store keeps tables as schema tagged delimited files.
//
// A table file is plain CSV:
//
//	line 1: column names, declared order
//	line 2: type tags (int | float | string), aligned with line 1
//	line 3+: data records, stored as text
//
// Temp artifacts produced by the query pipeline share the same layout and
// live in the same directory under the reserved TempPrefix, every file with
// that prefix is removed when a Store is opened.
package store

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dianpeng/flatdb/errs"
	"github.com/dianpeng/flatdb/sql"
)

const (
	TempPrefix       = "temp_"
	TableExt         = ".csv"
	DefaultChunkSize = 20
)

type Table struct {
	Name    string
	Path    string
	Columns []sql.ColumnDef
}

func (self *Table) Header() []string {
	out := make([]string, len(self.Columns))
	for i, c := range self.Columns {
		out[i] = c.Name
	}
	return out
}

func (self *Table) Types() []string {
	out := make([]string, len(self.Columns))
	for i, c := range self.Columns {
		out[i] = c.Type
	}
	return out
}

type Options struct {
	ChunkSize int
	Logger    *slog.Logger
}

// Store owns the table catalog of one data directory. The catalog is built
// once when the store is opened and kept in memory afterwards.
type Store struct {
	dir       string
	chunkSize int
	log       *slog.Logger

	mu     sync.RWMutex // guards tables and locks
	tables map[string]*Table
	locks  map[string]*sync.RWMutex
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Open sweeps leftover temp artifacts from dir and loads the catalog from the
// first two rows of every table file found.
func Open(dir string, opt Options) (*Store, error) {
	if opt.ChunkSize <= 0 {
		opt.ChunkSize = DefaultChunkSize
	}
	if opt.Logger == nil {
		opt.Logger = discardLogger()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindIO, "store", err, "cannot prepare data directory %s", dir)
	}

	s := &Store{
		dir:       dir,
		chunkSize: opt.ChunkSize,
		log:       opt.Logger,
		tables:    make(map[string]*Table),
		locks:     make(map[string]*sync.RWMutex),
	}

	if err := s.purge(); err != nil {
		return nil, err
	}
	if err := s.loadCatalog(); err != nil {
		return nil, err
	}
	return s, nil
}

func (self *Store) Dir() string    { return self.dir }
func (self *Store) ChunkSize() int { return self.chunkSize }

func (self *Store) purge() error {
	entries, err := os.ReadDir(self.dir)
	if err != nil {
		return errs.Wrap(errs.KindIO, "store", err, "cannot list %s", self.dir)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), TempPrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(self.dir, e.Name())); err != nil {
			self.log.Warn("cannot remove stale artifact", "file", e.Name(), "error", err)
		} else {
			self.log.Debug("removed stale artifact", "file", e.Name())
		}
	}
	return nil
}

func (self *Store) loadCatalog() error {
	entries, err := os.ReadDir(self.dir)
	if err != nil {
		return errs.Wrap(errs.KindIO, "store", err, "cannot list %s", self.dir)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), TableExt) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), TableExt)
		path := filepath.Join(self.dir, e.Name())

		t, err := readTableMeta(name, path)
		if err != nil {
			self.log.Warn("skip malformed table file", "file", e.Name(), "error", err)
			continue
		}
		self.tables[name] = t
	}
	self.log.Info("catalog loaded", "dir", self.dir, "tables", len(self.tables))
	return nil
}

func readTableMeta(name, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := newReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	types, err := r.Read()
	if err != nil && err != io.EOF {
		return nil, err
	}

	t := &Table{
		Name: name,
		Path: path,
	}
	for i, h := range header {
		ty := sql.TypeString
		if i < len(types) {
			ty = types[i]
		}
		t.Columns = append(t.Columns, sql.ColumnDef{Name: h, Type: ty})
	}
	return t, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr
}

// writeRecord writes rec through w, out is the writer w was created on. A
// record of one empty field would come out as a blank line, which the reader
// skips, so it is written as a quoted empty field instead.
func writeRecord(w *csv.Writer, out io.Writer, rec []string) error {
	if len(rec) == 1 && rec[0] == "" {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		_, err := io.WriteString(out, "\"\"\n")
		return err
	}
	return w.Write(rec)
}

func (self *Store) lockFor(name string) *sync.RWMutex {
	self.mu.Lock()
	defer self.mu.Unlock()
	l, ok := self.locks[name]
	if !ok {
		l = &sync.RWMutex{}
		self.locks[name] = l
	}
	return l
}

func (self *Store) table(stage, name string) (*Table, error) {
	self.mu.RLock()
	defer self.mu.RUnlock()
	t, ok := self.tables[name]
	if !ok {
		return nil, errs.New(errs.KindNotFound, stage, "table %s does not exist", name)
	}
	return t, nil
}

// ListTables returns the names of all known tables, sorted.
func (self *Store) ListTables() []string {
	self.mu.RLock()
	defer self.mu.RUnlock()
	out := make([]string, 0, len(self.tables))
	for k := range self.tables {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DescribeTable returns the catalog entry of a table, a copy.
func (self *Store) DescribeTable(name string) (*Table, error) {
	t, err := self.table("describe", name)
	if err != nil {
		return nil, err
	}
	cp := *t
	cp.Columns = append([]sql.ColumnDef(nil), t.Columns...)
	return &cp, nil
}

// ScanTable opens a chunked scan over a table while holding its read lock,
// the lock is released by Scanner.Close.
func (self *Store) ScanTable(name string) (*Scanner, error) {
	t, err := self.table("scan", name)
	if err != nil {
		return nil, err
	}
	l := self.lockFor(name)
	l.RLock()

	s, err := Scan(t.Path, self.chunkSize)
	if err != nil {
		l.RUnlock()
		return nil, err
	}
	s.onClose = l.RUnlock
	return s, nil
}

// ReadLock takes the read lock of every named table, in name order, and
// returns the function releasing them. Used by operators that rescan a table
// several times and must see one version of it.
func (self *Store) ReadLock(names ...string) (func(), error) {
	uniq := []string{}
	seen := make(map[string]bool)
	for _, n := range names {
		if _, err := self.table("lock", n); err != nil {
			return nil, err
		}
		if !seen[n] {
			seen[n] = true
			uniq = append(uniq, n)
		}
	}
	sort.Strings(uniq)

	locks := []*sync.RWMutex{}
	for _, n := range uniq {
		l := self.lockFor(n)
		l.RLock()
		locks = append(locks, l)
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].RUnlock()
		}
	}, nil
}
