package store

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/dianpeng/flatdb/errs"
	"github.com/dianpeng/flatdb/sql"
)

// Chunk is a bounded batch of records from one file
type Chunk [][]string

// Scanner produces a lazy, finite and non restartable sequence of chunks from
// a table shaped file. The header and type rows are read when the scan is
// opened and are exposed through Header/Types, they are never part of a chunk.
type Scanner struct {
	path    string
	size    int
	f       *os.File
	r       *csv.Reader
	header  []string
	types   []string
	done    bool
	onClose func()
}

// Scan opens path for a chunked pass. A missing file fails with NotFound.
func Scan(path string, chunkSize int) (*Scanner, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.KindNotFound, "scan", err, "cannot open %s", path)
		}
		return nil, errs.Wrap(errs.KindIO, "scan", err, "cannot open %s", path)
	}

	s := &Scanner{
		path: path,
		size: chunkSize,
		f:    f,
		r:    newReader(f),
	}

	if s.header, err = s.r.Read(); err != nil {
		if err == io.EOF {
			s.header = nil
			s.done = true
			return s, nil
		}
		f.Close()
		return nil, errs.Wrap(errs.KindIO, "scan", err, "cannot read header of %s", path)
	}

	types, err := s.r.Read()
	switch {
	case err == io.EOF:
		s.done = true
	case err != nil:
		f.Close()
		return nil, errs.Wrap(errs.KindIO, "scan", err, "cannot read types of %s", path)
	}

	s.types = make([]string, len(s.header))
	for i := range s.types {
		if i < len(types) {
			s.types[i] = types[i]
		} else {
			s.types[i] = sql.TypeString
		}
	}
	return s, nil
}

func (self *Scanner) Path() string      { return self.path }
func (self *Scanner) Header() []string  { return self.header }
func (self *Scanner) Types() []string   { return self.types }
func (self *Scanner) ChunkSize() int    { return self.size }

// Read returns the next single record, io.EOF once the file is exhausted.
func (self *Scanner) Read() ([]string, error) {
	if self.done {
		return nil, io.EOF
	}
	rec, err := self.r.Read()
	if err == io.EOF {
		self.done = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "scan", err, "cannot read %s", self.path)
	}
	return rec, nil
}

// Next returns the next chunk, holding at most ChunkSize records. The final
// chunk may be shorter, after it Next returns io.EOF.
func (self *Scanner) Next() (Chunk, error) {
	var chunk Chunk
	for len(chunk) < self.size {
		rec, err := self.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		chunk = append(chunk, rec)
	}
	if len(chunk) == 0 {
		return nil, io.EOF
	}
	return chunk, nil
}

func (self *Scanner) Close() error {
	if self.f == nil {
		return nil
	}
	err := self.f.Close()
	self.f = nil
	self.done = true
	if self.onClose != nil {
		self.onClose()
		self.onClose = nil
	}
	return err
}

// ReadAll drains the scanner chunk by chunk, only meant for small results
// that are handed to a caller in full, ie the display of a query result.
func (self *Scanner) ReadAll() ([][]string, error) {
	out := [][]string{}
	for {
		chunk, err := self.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
}
