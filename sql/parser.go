package sql

// parser of the command language. Parsing is purely positional, names of
// tables or columns are never checked here, execution does that. We briefly
// describe the grammar as following EBNF
//
// ### shorthand commands -----------------------------------------------------
//
// make := MAKE TABLE ID col-def (',' col-def)*
// col-def := ID ':' (int | float | string | str)
//
// add := ADD INTO ID value (',' value)*
//
// show := SHOW TABLE ID | SHOW TABLES
// describe := DESCRIBE TABLE? ID
//
// delete := DELETE FROM ID (THAT | WHERE) cond-list THAT?
// update := UPDATE ID (THAT | WHERE) cond-list TO assign-list
//
// cond-list := cond (',' cond)*
// cond := ID op value
// op := '<' | '<=' | '=' | '>' | '>=' | '!='
// assign-list := ID '=' value (',' ID '=' value)*
//
// ### select -----------------------------------------------------------------
//
// select :=
//     SELECT FROM ID (THAT cond-list)? |
//     SELECT projection FROM ID
//     join?
//     that?
//     group-by?
//     order-by?
//
// projection := STAR | col (',' col)*
// col := col-name | agg '(' col-name ')'
// agg := MIN | MAX | AVG | SUM | COUNT
// col-name := ID ('.' ID)?
//
// join := JOIN ID ON col-name '=' col-name (',' col-name '=' col-name)*
// that := (THAT | WHERE) cond-list
// group-by := GROUPBY col-name (',' col-name)*
// order-by := ORDERBY col-name (',' col-name)* (ASC | DESC)?
//
// ----------------------------------------------------------------------------

import (
	"fmt"
	"strings"

	"github.com/dianpeng/flatdb/errs"
)

type Parser struct {
	L *Lexer
}

func newParser(xx string) *Parser {
	return &Parser{
		L: newLexer(xx),
	}
}

func NewParser(xx string) *Parser {
	return newParser(xx)
}

// Parse is a shortcut of NewParser(xx).Parse()
func Parse(xx string) (Action, error) {
	return newParser(xx).Parse()
}

func (self *Parser) err(msg string, args ...interface{}) error {
	if self.L.Token == TkError {
		return errs.New(errs.KindUnsupportedQuery, "parse", "%s", self.L.Lexeme.Text)
	}
	return errs.New(
		errs.KindUnsupportedQuery,
		"parse",
		"%s: %s",
		self.L.dinfo(),
		fmt.Sprintf(msg, args...),
	)
}

func (self *Parser) expect(tk int) error {
	if self.L.Token == tk {
		self.L.Next()
		return nil
	}
	return self.err("expect *%s* but got %q", GetTokenName(tk), self.L.Lexeme.Text)
}

func (self *Parser) expectWord(what string) (string, error) {
	if self.L.IsKeyword() {
		return "", self.err("expect %s but got keyword *%s*", what, strings.ToLower(self.L.Lexeme.Text))
	}
	if self.L.Token != TkWord {
		return "", self.err("expect %s but got %q", what, self.L.Lexeme.Text)
	}
	w := self.L.Lexeme.Text
	self.L.Next()
	return w, nil
}

// collect words until any of the stop token (or EOF) shows up, the result is
// the words joined by a single space
func (self *Parser) words(stop ...int) string {
	out := []string{}
LOOP:
	for self.L.Token != TkEof && self.L.Token != TkError {
		for _, s := range stop {
			if self.L.Token == s {
				break LOOP
			}
		}
		out = append(out, self.L.Lexeme.Text)
		self.L.Next()
	}
	return strings.Join(out, " ")
}

func (self *Parser) codeInfo() CodeInfo {
	return CodeInfo{
		Start:   0,
		End:     len(self.L.Source),
		Snippet: self.L.Source,
	}
}

func (self *Parser) Parse() (Action, error) {
	self.L.Next()

	var act Action
	var err error

	switch self.L.Token {
	case TkMake:
		act, err = self.parseMake()
	case TkAdd:
		act, err = self.parseAdd()
	case TkShow:
		act, err = self.parseShow()
	case TkDescribe:
		act, err = self.parseDescribe()
	case TkDelete:
		act, err = self.parseDelete()
	case TkUpdate:
		act, err = self.parseUpdate()
	case TkSelect:
		act, err = self.parseSelect()
	case TkError:
		return nil, self.err("")
	default:
		return &Unknown{
			CodeInfo: self.codeInfo(),
			Keyword:  self.L.Lexeme.Text,
		}, nil
	}

	if err != nil {
		return nil, err
	}

	if self.L.Token == TkError {
		return nil, self.err("")
	}
	if self.L.Token != TkEof {
		return nil, self.err("dangling input %q after the command", self.L.Lexeme.Text)
	}
	return act, nil
}

func normalizeType(t string) (string, bool) {
	switch strings.ToLower(t) {
	case "int":
		return TypeInt, true
	case "float":
		return TypeFloat, true
	case "string", "str":
		return TypeString, true
	default:
		return "", false
	}
}

func (self *Parser) parseMake() (Action, error) {
	self.L.Next()
	if err := self.expect(TkTable); err != nil {
		return nil, err
	}
	name, err := self.expectWord("table name")
	if err != nil {
		return nil, err
	}
	body := self.words()
	if body == "" {
		return nil, self.err("expect column definitions for table %s", name)
	}

	cols := []ColumnDef{}
	seen := map[string]bool{}

	for _, x := range SplitList(body, ',') {
		idx := strings.IndexByte(x, ':')
		if idx <= 0 {
			return nil, self.err("column definition must be name:type, got %q", x)
		}
		cname := strings.TrimSpace(x[:idx])
		ty, ok := normalizeType(strings.TrimSpace(x[idx+1:]))
		if !ok {
			return nil, errs.New(
				errs.KindTypeError,
				"parse",
				"unknown type %q for column %s",
				strings.TrimSpace(x[idx+1:]),
				cname,
			)
		}
		if seen[cname] {
			return nil, self.err("duplicated column %s", cname)
		}
		seen[cname] = true
		cols = append(cols, ColumnDef{Name: cname, Type: ty})
	}

	return &CreateTable{
		CodeInfo: self.codeInfo(),
		Table:    name,
		Columns:  cols,
	}, nil
}

func (self *Parser) parseAdd() (Action, error) {
	self.L.Next()
	if err := self.expect(TkInto); err != nil {
		return nil, err
	}
	name, err := self.expectWord("table name")
	if err != nil {
		return nil, err
	}
	body := self.words()
	if body == "" {
		return nil, self.err("expect values to add into %s", name)
	}
	return &Insert{
		CodeInfo: self.codeInfo(),
		Table:    name,
		Values:   SplitList(body, ','),
	}, nil
}

func (self *Parser) parseShow() (Action, error) {
	self.L.Next()
	switch self.L.Token {
	case TkTables:
		self.L.Next()
		return &ListTables{CodeInfo: self.codeInfo()}, nil
	case TkTable:
		self.L.Next()
		name, err := self.expectWord("table name")
		if err != nil {
			return nil, err
		}
		return &Display{CodeInfo: self.codeInfo(), Table: name}, nil
	default:
		return nil, self.err("expect *table* or *tables* after show")
	}
}

func (self *Parser) parseDescribe() (Action, error) {
	self.L.Next()
	if self.L.Token == TkTable {
		self.L.Next()
	}
	name, err := self.expectWord("table name")
	if err != nil {
		return nil, err
	}
	return &Describe{CodeInfo: self.codeInfo(), Table: name}, nil
}

func (self *Parser) parseCondition() ([]*Predicate, error) {
	if self.L.Token != TkThat && self.L.Token != TkWhere {
		return nil, self.err("expect *that* or *where* but got %q", self.L.Lexeme.Text)
	}
	self.L.Next()
	return ParsePredicateList(self.words(TkThat, TkTo))
}

func (self *Parser) parseDelete() (Action, error) {
	self.L.Next()
	if err := self.expect(TkFrom); err != nil {
		return nil, err
	}
	name, err := self.expectWord("table name")
	if err != nil {
		return nil, err
	}
	where, err := self.parseCondition()
	if err != nil {
		return nil, err
	}
	// trailing *that* is tolerated, ie delete from t where a=1 that
	if self.L.Token == TkThat {
		self.L.Next()
	}
	return &Delete{
		CodeInfo: self.codeInfo(),
		Table:    name,
		Where:    where,
	}, nil
}

func (self *Parser) parseUpdate() (Action, error) {
	self.L.Next()
	name, err := self.expectWord("table name")
	if err != nil {
		return nil, err
	}
	where, err := self.parseCondition()
	if err != nil {
		return nil, err
	}
	if err := self.expect(TkTo); err != nil {
		return nil, err
	}
	set, err := ParseAssignmentList(self.words())
	if err != nil {
		return nil, err
	}
	return &Update{
		CodeInfo: self.codeInfo(),
		Table:    name,
		Where:    where,
		Set:      set,
	}, nil
}

// ----------------------------------------------------------------------------
// select

func (self *Parser) parseColumnSpec(x string) (*ColumnSpec, error) {
	if x == "*" {
		return &ColumnSpec{Star: true}, nil
	}
	if x == "" {
		return nil, self.err("empty column in projection")
	}

	lpar := strings.IndexByte(x, '(')
	if lpar < 0 {
		return &ColumnSpec{Name: x}, nil
	}
	if !strings.HasSuffix(x, ")") || lpar == 0 {
		return nil, self.err("malformed column %q", x)
	}

	fn := strings.TrimSpace(x[:lpar])
	agg := AggKind(fn)
	if agg == AggNone {
		return nil, self.err("unknown aggregation function %s", fn)
	}
	col := strings.TrimSpace(x[lpar+1 : len(x)-1])
	if col == "" || col == "*" {
		return nil, self.err("aggregation %s requires a column", fn)
	}
	return &ColumnSpec{Name: col, Agg: agg}, nil
}

func (self *Parser) parseProjection(body string) ([]*ColumnSpec, error) {
	out := []*ColumnSpec{}
	for _, x := range SplitList(body, ',') {
		c, err := self.parseColumnSpec(x)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (self *Parser) parseNameList(body string, what string) ([]string, error) {
	out := []string{}
	for _, x := range SplitList(body, ',') {
		if x == "" {
			return nil, self.err("empty column name in %s", what)
		}
		out = append(out, x)
	}
	return out, nil
}

var clauseStop = []int{TkJoin, TkThat, TkWhere, TkGroupBy, TkOrderBy}

func (self *Parser) parseJoin() (*Join, error) {
	self.L.Next()
	name, err := self.expectWord("join table name")
	if err != nil {
		return nil, err
	}
	if err := self.expect(TkOn); err != nil {
		return nil, err
	}
	body := self.words(clauseStop...)
	if body == "" {
		return nil, self.err("expect join condition after *on*")
	}
	j := &Join{Table: name}
	for _, x := range SplitList(body, ',') {
		c, err := parseJoinCond(x)
		if err != nil {
			return nil, err
		}
		j.On = append(j.On, c)
	}
	return j, nil
}

func (self *Parser) parseOrderBy() (*OrderBy, error) {
	self.L.Next()
	body := self.words(append(clauseStop, TkAsc, TkDesc)...)
	if body == "" {
		return nil, self.err("expect column list after *orderby*")
	}
	names, err := self.parseNameList(body, "orderby")
	if err != nil {
		return nil, err
	}
	o := &OrderBy{Order: OrderAsc, Name: names}
	switch self.L.Token {
	case TkDesc:
		o.Order = OrderDesc
		self.L.Next()
	case TkAsc:
		self.L.Next()
	}
	return o, nil
}

func (self *Parser) parseSelect() (Action, error) {
	self.L.Next() // skip the *select* keyword

	// select from t that ...
	if self.L.Token == TkFrom {
		self.L.Next()
		name, err := self.expectWord("table name")
		if err != nil {
			return nil, err
		}
		s := &Select{
			CodeInfo: self.codeInfo(),
			Table:    name,
			Columns:  []*ColumnSpec{{Star: true}},
		}
		if self.L.Token == TkThat || self.L.Token == TkWhere {
			if s.Where, err = self.parseCondition(); err != nil {
				return nil, err
			}
		}
		return s, nil
	}

	body := self.words(TkFrom)
	if body == "" {
		return nil, self.err("expect projection list")
	}
	columns, err := self.parseProjection(body)
	if err != nil {
		return nil, err
	}
	if err := self.expect(TkFrom); err != nil {
		return nil, err
	}
	name, err := self.expectWord("table name")
	if err != nil {
		return nil, err
	}

	s := &Select{
		CodeInfo: self.codeInfo(),
		Table:    name,
		Columns:  columns,
	}

LOOP:
	for {
		switch self.L.Token {
		case TkJoin:
			if s.Join != nil {
				return nil, self.err("join clause has already been specified")
			}
			if s.Join, err = self.parseJoin(); err != nil {
				return nil, err
			}

		case TkThat, TkWhere:
			if s.Where != nil {
				return nil, self.err("that clause has already been specified")
			}
			self.L.Next()
			if s.Where, err = ParsePredicateList(self.words(clauseStop...)); err != nil {
				return nil, err
			}

		case TkGroupBy:
			if s.GroupBy != nil {
				return nil, self.err("groupby clause has already been specified")
			}
			self.L.Next()
			body := self.words(clauseStop...)
			if body == "" {
				return nil, self.err("expect column list after *groupby*")
			}
			if s.GroupBy, err = self.parseNameList(body, "groupby"); err != nil {
				return nil, err
			}

		case TkOrderBy:
			if s.OrderBy != nil {
				return nil, self.err("orderby clause has already been specified")
			}
			if s.OrderBy, err = self.parseOrderBy(); err != nil {
				return nil, err
			}

		default:
			break LOOP
		}
	}

	return s, nil
}
