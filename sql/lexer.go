package sql

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// The command language is word oriented. A command is split into words on
// white space, each word is either one of the fixed keywords or a plain word
// whose meaning is decided by its position. Quoted segments, '...' or "...",
// never split a word even when they contain white space.

const (
	TkWord = iota

	// Keywords
	TkMake
	TkTable
	TkTables
	TkAdd
	TkInto
	TkShow
	TkDescribe
	TkDelete
	TkFrom
	TkWhere
	TkThat
	TkUpdate
	TkTo
	TkSelect
	TkJoin
	TkOn
	TkGroupBy
	TkOrderBy
	TkAsc
	TkDesc

	TkError
	TkEof
)

var keywords = map[string]int{
	"make":     TkMake,
	"table":    TkTable,
	"tables":   TkTables,
	"add":      TkAdd,
	"into":     TkInto,
	"show":     TkShow,
	"describe": TkDescribe,
	"delete":   TkDelete,
	"from":     TkFrom,
	"where":    TkWhere,
	"that":     TkThat,
	"update":   TkUpdate,
	"to":       TkTo,
	"select":   TkSelect,
	"join":     TkJoin,
	"on":       TkOn,
	"groupby":  TkGroupBy,
	"orderby":  TkOrderBy,
	"asc":      TkAsc,
	"desc":     TkDesc,
}

func GetTokenName(tk int) string {
	switch tk {
	case TkWord:
		return "<word>"
	case TkError:
		return "<error>"
	case TkEof:
		return "<eof>"
	default:
		for k, v := range keywords {
			if v == tk {
				return k
			}
		}
		return "<unknown>"
	}
}

type Lexeme struct {
	Text  string
	Start int // byte offset of the word inside of the source
}

type Lexer struct {
	Source string
	Cursor int
	Token  int
	Lexeme Lexeme
}

func newLexer(source string) *Lexer {
	return &Lexer{
		Source: source,
		Token:  TkError,
	}
}

func (self *Lexer) dinfo() string {
	return fmt.Sprintf("around position(%d)", self.Lexeme.Start)
}

func (self *Lexer) err(msg string) int {
	self.Lexeme.Text = fmt.Sprintf("%s: %s", self.dinfo(), msg)
	self.Token = TkError
	return TkError
}

func (self *Lexer) skipWS() {
	for self.Cursor < len(self.Source) {
		r, sz := utf8.DecodeRuneInString(self.Source[self.Cursor:])
		if !unicode.IsSpace(r) {
			break
		}
		self.Cursor += sz
	}
}

// reads one word, honoring quotes
func (self *Lexer) lexWord() (string, bool) {
	start := self.Cursor
	var quote rune

	for self.Cursor < len(self.Source) {
		r, sz := utf8.DecodeRuneInString(self.Source[self.Cursor:])
		if r == utf8.RuneError && sz == 1 {
			return "", false
		}
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case unicode.IsSpace(r):
			return self.Source[start:self.Cursor], true
		}
		self.Cursor += sz
	}
	return self.Source[start:self.Cursor], true
}

// peekWord returns the next word without consuming it
func (self *Lexer) peekWord() string {
	saved := self.Cursor
	self.skipWS()
	w, _ := self.lexWord()
	self.Cursor = saved
	return w
}

func (self *Lexer) Next() int {
	self.skipWS()
	self.Lexeme = Lexeme{Start: self.Cursor}

	if self.Cursor == len(self.Source) {
		self.Token = TkEof
		return TkEof
	}

	w, ok := self.lexWord()
	if !ok {
		return self.err("invalid utf8 character")
	}
	self.Lexeme.Text = w

	lower := strings.ToLower(w)

	// "group by" and "order by" are accepted as two words as well
	if lower == "group" || lower == "order" {
		if strings.ToLower(self.peekWord()) == "by" {
			self.skipWS()
			self.lexWord()
			self.Lexeme.Text = self.Source[self.Lexeme.Start:self.Cursor]
			lower += "by"
		}
	}

	if tk, ok := keywords[lower]; ok {
		self.Token = tk
	} else {
		self.Token = TkWord
	}
	return self.Token
}

func (self *Lexer) IsKeyword() bool {
	return self.Token != TkWord && self.Token != TkEof && self.Token != TkError
}
