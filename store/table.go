package store

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dianpeng/flatdb/errs"
	"github.com/dianpeng/flatdb/eval"
	"github.com/dianpeng/flatdb/sql"
)

// CheckValue is the structural type check applied on insert/update. Integers
// must be all digit text, floats must parse, strings pass through.
func CheckValue(ty string, v string) bool {
	switch ty {
	case sql.TypeInt:
		if v == "" {
			return false
		}
		for _, c := range v {
			if c < '0' || c > '9' {
				return false
			}
		}
		return true
	case sql.TypeFloat:
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	default:
		return true
	}
}

func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, TempPrefix) {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && name != "." && name != ".."
}

// CreateTable persists the header and type rows of a new, empty table.
func (self *Store) CreateTable(name string, columns []sql.ColumnDef) error {
	if !validName(name) {
		return errs.New(errs.KindUnsupportedQuery, "create", "invalid table name %q", name)
	}
	if len(columns) == 0 {
		return errs.New(errs.KindSchemaMismatch, "create", "table %s needs at least one column", name)
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	if _, ok := self.tables[name]; ok {
		return errs.New(errs.KindAlreadyExists, "create", "table %s already exists", name)
	}

	t := &Table{
		Name:    name,
		Path:    filepath.Join(self.dir, name+TableExt),
		Columns: append([]sql.ColumnDef(nil), columns...),
	}

	f, err := os.OpenFile(t.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return errs.New(errs.KindAlreadyExists, "create", "table file %s already exists", t.Path)
		}
		return errs.Wrap(errs.KindIO, "create", err, "cannot create %s", t.Path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write(t.Header())
	w.Write(t.Types())
	w.Flush()
	if err := w.Error(); err != nil {
		os.Remove(t.Path)
		return errs.Wrap(errs.KindIO, "create", err, "cannot write %s", t.Path)
	}

	self.tables[name] = t
	self.log.Info("table created", "table", name, "columns", len(columns))
	return nil
}

// Insert appends one record after checking arity and value types.
func (self *Store) Insert(name string, values []string) error {
	t, err := self.table("insert", name)
	if err != nil {
		return err
	}
	if len(values) != len(t.Columns) {
		return errs.New(
			errs.KindSchemaMismatch,
			"insert",
			"table %s has %d columns but %d values are given",
			name,
			len(t.Columns),
			len(values),
		)
	}
	for i, c := range t.Columns {
		if !CheckValue(c.Type, values[i]) {
			return errs.New(errs.KindTypeError, "insert", "value %q for %s should be %s", values[i], c.Name, c.Type)
		}
	}

	l := self.lockFor(name)
	l.Lock()
	defer l.Unlock()

	f, err := os.OpenFile(t.Path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return errs.Wrap(errs.KindNotFound, "insert", err, "table file of %s is gone", name)
		}
		return errs.Wrap(errs.KindIO, "insert", err, "cannot open %s", t.Path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	err = writeRecord(w, f, values)
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if err != nil {
		return errs.Wrap(errs.KindIO, "insert", err, "cannot append to %s", t.Path)
	}
	return nil
}

// DeleteWhere removes every record for which all predicates hold and returns
// how many records were removed. The file is replaced atomically.
func (self *Store) DeleteWhere(name string, preds []*sql.Predicate) (int, error) {
	t, err := self.table("delete", name)
	if err != nil {
		return 0, err
	}
	filter, err := eval.Compile(preds, t.Header(), t.Types())
	if err != nil {
		return 0, err
	}

	l := self.lockFor(name)
	l.Lock()
	defer l.Unlock()

	removed := 0
	err = self.rewrite(t, func(rec []string) ([]string, error) {
		if filter.Match(rec) {
			removed++
			return nil, nil
		}
		return rec, nil
	})
	if err != nil {
		return 0, err
	}
	self.log.Info("records deleted", "table", name, "count", removed)
	return removed, nil
}

// UpdateWhere overwrites the assigned columns of every record for which all
// predicates hold and returns how many records changed.
func (self *Store) UpdateWhere(
	name string,
	preds []*sql.Predicate,
	set []*sql.Assignment,
) (int, error) {
	t, err := self.table("update", name)
	if err != nil {
		return 0, err
	}
	filter, err := eval.Compile(preds, t.Header(), t.Types())
	if err != nil {
		return 0, err
	}

	type assign struct {
		index int
		value string
	}
	assigns := []assign{}
	header := t.Header()

	for _, a := range set {
		idx, err := eval.ColumnIndex(header, a.Column)
		if err != nil {
			return 0, err
		}
		if !CheckValue(t.Columns[idx].Type, a.Value) {
			return 0, errs.New(
				errs.KindTypeError,
				"update",
				"value %q for %s should be %s",
				a.Value,
				a.Column,
				t.Columns[idx].Type,
			)
		}
		assigns = append(assigns, assign{index: idx, value: a.Value})
	}

	l := self.lockFor(name)
	l.Lock()
	defer l.Unlock()

	updated := 0
	err = self.rewrite(t, func(rec []string) ([]string, error) {
		if !filter.Match(rec) {
			return rec, nil
		}
		for _, a := range assigns {
			if a.index >= len(rec) {
				return nil, errs.New(errs.KindSchemaMismatch, "update", "short record in %s", t.Path)
			}
			rec[a.index] = a.value
		}
		updated++
		return rec, nil
	})
	if err != nil {
		return 0, err
	}
	self.log.Info("records updated", "table", name, "count", updated)
	return updated, nil
}

// rewrite streams the table through fn chunk by chunk into a sibling temp file
// and renames it over the table file. A nil record from fn drops the record.
// On any failure the temp file is removed and the table file is untouched.
func (self *Store) rewrite(
	t *Table,
	fn func([]string) ([]string, error),
) (err error) {
	scan, err := Scan(t.Path, self.chunkSize)
	if err != nil {
		return err
	}
	defer scan.Close()

	tmp, err := os.CreateTemp(self.dir, TempPrefix+"rewrite_*")
	if err != nil {
		return errs.Wrap(errs.KindIO, "rewrite", err, "cannot create temp file for %s", t.Name)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	w.Write(scan.Header())
	w.Write(scan.Types())

	for {
		chunk, nerr := scan.Next()
		if nerr == io.EOF {
			break
		}
		if nerr != nil {
			return nerr
		}
		for _, rec := range chunk {
			out, ferr := fn(rec)
			if ferr != nil {
				return ferr
			}
			if out == nil {
				continue
			}
			if err = writeRecord(w, tmp, out); err != nil {
				return errs.Wrap(errs.KindIO, "rewrite", err, "cannot write temp file for %s", t.Name)
			}
		}
	}

	w.Flush()
	if err = w.Error(); err != nil {
		return errs.Wrap(errs.KindIO, "rewrite", err, "cannot write temp file for %s", t.Name)
	}
	if err = tmp.Sync(); err != nil {
		return errs.Wrap(errs.KindIO, "rewrite", err, "cannot sync temp file for %s", t.Name)
	}
	if err = tmp.Close(); err != nil {
		return errs.Wrap(errs.KindIO, "rewrite", err, "cannot close temp file for %s", t.Name)
	}
	scan.Close()

	if err = os.Rename(tmp.Name(), t.Path); err != nil {
		return errs.Wrap(errs.KindIO, "rewrite", err, "cannot replace %s", t.Path)
	}
	return nil
}
