package engine

import (
	"encoding/json"

	"github.com/dianpeng/flatdb/errs"
)

// Result is the typed outcome of one command. A failed command has OK unset
// and carries the error kind, a select/display carries its table contents.
type Result struct {
	QueryID string
	Command string
	OK      bool
	Message string

	Kind string // errs.Kind name of a failure
	Err  error

	Header []string
	Types  []string
	Rows   [][]string
	Path   string // table file or final artifact
}

func (self *Result) fail(err error) {
	self.OK = false
	self.Err = err
	self.Message = err.Error()
	if k, ok := errs.KindOf(err); ok {
		self.Kind = k.String()
	} else {
		self.Kind = errs.KindIO.String()
	}
}

func (self *Result) HasTable() bool { return self.Header != nil }

// Records translates the rows into field to value mappings
func (self *Result) Records() []map[string]string {
	out := make([]map[string]string, 0, len(self.Rows))
	for _, row := range self.Rows {
		m := make(map[string]string, len(self.Header))
		for i, h := range self.Header {
			if i < len(row) {
				m[h] = row[i]
			} else {
				m[h] = ""
			}
		}
		out = append(out, m)
	}
	return out
}

type jsonResult struct {
	QueryID string      `json:"query_id"`
	OK      bool        `json:"ok"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Columns []string    `json:"columns,omitempty"`
	Data    interface{} `json:"data,omitempty"` // nil unless the result is a table
}

// JSON is the payload handed to a JSON facing caller, a failure becomes an
// error payload.
func (self *Result) JSON() ([]byte, error) {
	out := jsonResult{
		QueryID: self.QueryID,
		OK:      self.OK,
	}
	if self.OK {
		out.Message = self.Message
		if self.HasTable() {
			out.Columns = self.Header
			out.Data = self.Records()
		}
	} else {
		out.Error = self.Message
		out.Kind = self.Kind
	}
	return json.Marshal(out)
}
