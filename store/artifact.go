package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/dianpeng/flatdb/errs"
)

// Artifact is a typed handle of an intermediate, table shaped file produced
// by one pipeline stage. Once a later stage supersedes it the handle is
// retired and stages refuse to read from it.
type Artifact struct {
	ID      int64
	Path    string
	Header  []string
	Types   []string
	Records int

	retired atomic.Bool
}

func (self *Artifact) Retire()       { self.retired.Store(true) }
func (self *Artifact) Retired() bool { return self.retired.Load() }

// Open a chunked scan over the artifact. Retired artifacts cannot be opened.
func (self *Artifact) Scan(chunkSize int) (*Scanner, error) {
	if self.Retired() {
		return nil, errs.New(
			errs.KindUnsupportedQuery,
			"artifact",
			"artifact %d has been superseded",
			self.ID,
		)
	}
	return Scan(self.Path, chunkSize)
}

// Remove retires the artifact and deletes its backing file.
func (self *Artifact) Remove() error {
	self.Retire()
	if err := os.Remove(self.Path); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.KindIO, "artifact", err, "cannot remove %s", self.Path)
	}
	return nil
}

// Artifacts allocates artifact files inside of a directory. Identifiers come
// from a monotonically increasing counter owned by this object, so two
// Artifacts over the same directory must never coexist.
type Artifacts struct {
	dir  string
	next atomic.Int64
}

func NewArtifacts(dir string) *Artifacts {
	return &Artifacts{dir: dir}
}

func (self *Artifacts) Dir() string { return self.dir }

func (self *Artifacts) pathOf(id int64) string {
	return filepath.Join(self.dir, fmt.Sprintf("%s%d%s", TempPrefix, id, TableExt))
}

// Create opens a new artifact for writing, the header and type rows are
// written right away.
func (self *Artifacts) Create(header, types []string) (*ArtifactWriter, error) {
	id := self.next.Add(1) - 1
	a := &Artifact{
		ID:     id,
		Path:   self.pathOf(id),
		Header: append([]string(nil), header...),
		Types:  append([]string(nil), types...),
	}

	f, err := os.OpenFile(a.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "artifact", err, "cannot create %s", a.Path)
	}

	w := &ArtifactWriter{
		a: a,
		f: f,
		w: csv.NewWriter(f),
	}
	w.w.Write(a.Header)
	w.w.Write(a.Types)
	return w, nil
}

type ArtifactWriter struct {
	a *Artifact
	f *os.File
	w *csv.Writer
}

func (self *ArtifactWriter) Artifact() *Artifact { return self.a }

func (self *ArtifactWriter) Write(rec []string) error {
	if err := writeRecord(self.w, self.f, rec); err != nil {
		return errs.Wrap(errs.KindIO, "artifact", err, "cannot write %s", self.a.Path)
	}
	self.a.Records++
	return nil
}

func (self *ArtifactWriter) WriteChunk(chunk Chunk) error {
	for _, rec := range chunk {
		if err := self.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the file and hands out the finished artifact.
func (self *ArtifactWriter) Close() (*Artifact, error) {
	self.w.Flush()
	werr := self.w.Error()
	cerr := self.f.Close()
	if werr != nil {
		return nil, errs.Wrap(errs.KindIO, "artifact", werr, "cannot flush %s", self.a.Path)
	}
	if cerr != nil {
		return nil, errs.Wrap(errs.KindIO, "artifact", cerr, "cannot close %s", self.a.Path)
	}
	return self.a, nil
}

// Abort closes the file on an error path. The partial file stays on disk
// and is swept on the next start up.
func (self *ArtifactWriter) Abort() {
	self.f.Close()
	self.a.Retire()
}
