package sql

import (
	"fmt"
	"strings"
)

const (
	ActionUnknown = iota
	ActionCreateTable
	ActionInsert
	ActionDelete
	ActionUpdate
	ActionDisplay
	ActionListTables
	ActionDescribe
	ActionSelect
)

const (
	OpLt = iota
	OpLe
	OpEq
	OpGt
	OpGe
	OpNe
)

const (
	OrderAsc = iota
	OrderDesc
)

const (
	AggNone = iota
	AggMin
	AggMax
	AggAvg
	AggSum
	AggCount
)

const (
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeString = "string"
)

type CodeInfo struct {
	Start   int
	End     int
	Snippet string
}

// Action is the parsed form of one command. The engine switches on Type()
// and every concrete action below has exactly one type tag.
type Action interface {
	Type() int
	CInfo() CodeInfo
}

type ColumnDef struct {
	Name string
	Type string // one of TypeInt, TypeFloat, TypeString
}

type CreateTable struct {
	CodeInfo CodeInfo
	Table    string
	Columns  []ColumnDef
}

type Insert struct {
	CodeInfo CodeInfo
	Table    string
	Values   []string
}

type Delete struct {
	CodeInfo CodeInfo
	Table    string
	Where    []*Predicate
}

type Update struct {
	CodeInfo CodeInfo
	Table    string
	Where    []*Predicate
	Set      []*Assignment
}

type Display struct {
	CodeInfo CodeInfo
	Table    string
}

type ListTables struct {
	CodeInfo CodeInfo
}

type Describe struct {
	CodeInfo CodeInfo
	Table    string
}

type Unknown struct {
	CodeInfo CodeInfo
	Keyword  string
}

// Select query descriptor

type ColumnSpec struct {
	Name string // column name, empty for star
	Agg  int    // AggNone if this is a plain column
	Star bool
}

type JoinCond struct {
	Left  string
	Right string
}

type Join struct {
	Table string
	On    []JoinCond
}

type OrderBy struct {
	Order int
	Name  []string
}

type Select struct {
	CodeInfo CodeInfo
	Table    string
	Columns  []*ColumnSpec
	Join     *Join
	Where    []*Predicate
	GroupBy  []string
	OrderBy  *OrderBy
}

type Predicate struct {
	Column string
	Op     int
	Value  string // raw literal, may still be quoted
}

type Assignment struct {
	Column string
	Value  string
}

func (self *CreateTable) Type() int { return ActionCreateTable }
func (self *Insert) Type() int      { return ActionInsert }
func (self *Delete) Type() int      { return ActionDelete }
func (self *Update) Type() int      { return ActionUpdate }
func (self *Display) Type() int     { return ActionDisplay }
func (self *ListTables) Type() int  { return ActionListTables }
func (self *Describe) Type() int    { return ActionDescribe }
func (self *Select) Type() int      { return ActionSelect }
func (self *Unknown) Type() int     { return ActionUnknown }

func (self *CreateTable) CInfo() CodeInfo { return self.CodeInfo }
func (self *Insert) CInfo() CodeInfo      { return self.CodeInfo }
func (self *Delete) CInfo() CodeInfo      { return self.CodeInfo }
func (self *Update) CInfo() CodeInfo      { return self.CodeInfo }
func (self *Display) CInfo() CodeInfo     { return self.CodeInfo }
func (self *ListTables) CInfo() CodeInfo  { return self.CodeInfo }
func (self *Describe) CInfo() CodeInfo    { return self.CodeInfo }
func (self *Select) CInfo() CodeInfo      { return self.CodeInfo }
func (self *Unknown) CInfo() CodeInfo     { return self.CodeInfo }

func AggName(agg int) string {
	switch agg {
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggAvg:
		return "avg"
	case AggSum:
		return "sum"
	case AggCount:
		return "count"
	default:
		return ""
	}
}

// AggKind resolves an aggregate function name, AggNone if it is not one.
func AggKind(name string) int {
	switch strings.ToLower(name) {
	case "min":
		return AggMin
	case "max":
		return AggMax
	case "avg":
		return AggAvg
	case "sum":
		return AggSum
	case "count":
		return AggCount
	default:
		return AggNone
	}
}

func OpName(op int) string {
	switch op {
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpEq:
		return "="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpNe:
		return "!="
	default:
		return "?"
	}
}

// Output name of the column, ie sum(t.a) for aggregation, used as the header
// of the aggregated artifact as well.
func (self *ColumnSpec) ColName() string {
	if self.Star {
		return "*"
	}
	if self.Agg != AggNone {
		return fmt.Sprintf("%s(%s)", AggName(self.Agg), self.Name)
	}
	return self.Name
}

func (self *ColumnSpec) IsAgg() bool { return self.Agg != AggNone }

func (self *Select) HasStar() bool {
	for _, c := range self.Columns {
		if c.Star {
			return true
		}
	}
	return false
}

func (self *Select) HasAgg() bool {
	for _, c := range self.Columns {
		if c.IsAgg() {
			return true
		}
	}
	return false
}

func (self *Predicate) String() string {
	return fmt.Sprintf("%s%s%s", self.Column, OpName(self.Op), self.Value)
}

func (self *Assignment) String() string {
	return fmt.Sprintf("%s=%s", self.Column, self.Value)
}
