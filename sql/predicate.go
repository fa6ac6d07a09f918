package sql

import (
	"strings"

	"github.com/dianpeng/flatdb/errs"
)

// ----------------------------------------------------------------------------
//
// Predicate syntax is <column><operator><value>, white space is optional.
//
// The operator is located by scanning for the first operator character, the
// column is everything in front of it. At that position the two character
// operators (<=, >=, !=) are tried before the single character ones, so a
// predicate like a<=3 is never split as a < "=3". Everything after the
// operator is the value, which means a value may itself contain operator
// characters, ie name=a<b compares name against "a<b".
//
// ----------------------------------------------------------------------------

func isOpChar(c byte) bool {
	return c == '<' || c == '>' || c == '=' || c == '!'
}

func ParsePredicate(text string) (*Predicate, error) {
	text = strings.TrimSpace(text)
	pos := -1

	for i := 0; i < len(text); i++ {
		if c := text[i]; c == '\'' || c == '"' {
			break // operator never lives inside of the quoted value
		} else if isOpChar(c) {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, errs.New(errs.KindConditionSyntax, "condition", "no operator found in %q", text)
	}

	op := -1
	width := 1
	rest := text[pos:]

	switch {
	case strings.HasPrefix(rest, "<="):
		op, width = OpLe, 2
	case strings.HasPrefix(rest, ">="):
		op, width = OpGe, 2
	case strings.HasPrefix(rest, "!="):
		op, width = OpNe, 2
	case strings.HasPrefix(rest, "<"):
		op = OpLt
	case strings.HasPrefix(rest, ">"):
		op = OpGt
	case strings.HasPrefix(rest, "="):
		op = OpEq
	default:
		return nil, errs.New(errs.KindConditionSyntax, "condition", "invalid operator in %q", text)
	}

	column := strings.TrimSpace(text[:pos])
	value := strings.TrimSpace(text[pos+width:])

	if column == "" {
		return nil, errs.New(errs.KindConditionSyntax, "condition", "missing column in %q", text)
	}
	if value == "" {
		return nil, errs.New(errs.KindConditionSyntax, "condition", "missing value in %q", text)
	}

	return &Predicate{
		Column: column,
		Op:     op,
		Value:  value,
	}, nil
}

func ParsePredicateList(text string) ([]*Predicate, error) {
	out := []*Predicate{}
	for _, x := range SplitList(text, ',') {
		if x == "" {
			continue
		}
		p, err := ParsePredicate(x)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, errs.New(errs.KindConditionSyntax, "condition", "empty condition list")
	}
	return out, nil
}

func ParseAssignment(text string) (*Assignment, error) {
	idx := strings.IndexByte(text, '=')
	if idx < 0 {
		return nil, errs.New(errs.KindConditionSyntax, "assignment", "expect column=value, got %q", text)
	}
	col := strings.TrimSpace(text[:idx])
	if col == "" {
		return nil, errs.New(errs.KindConditionSyntax, "assignment", "missing column in %q", text)
	}
	return &Assignment{
		Column: col,
		Value:  strings.TrimSpace(text[idx+1:]),
	}, nil
}

func ParseAssignmentList(text string) ([]*Assignment, error) {
	out := []*Assignment{}
	for _, x := range SplitList(text, ',') {
		if x == "" {
			continue
		}
		a, err := ParseAssignment(x)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, errs.New(errs.KindConditionSyntax, "assignment", "empty assignment list")
	}
	return out, nil
}

func parseJoinCond(text string) (JoinCond, error) {
	idx := strings.IndexByte(text, '=')
	if idx < 0 {
		return JoinCond{}, errs.New(errs.KindConditionSyntax, "join", "expect a=b, got %q", text)
	}
	l := strings.TrimSpace(text[:idx])
	r := strings.TrimSpace(text[idx+1:])
	if l == "" || r == "" {
		return JoinCond{}, errs.New(errs.KindConditionSyntax, "join", "incomplete equality %q", text)
	}
	return JoinCond{Left: l, Right: r}, nil
}

// Unquote strips one pair of matching ' or " quotes, otherwise the input is
// returned as is.
func Unquote(v string) string {
	if len(v) >= 2 {
		f, l := v[0], v[len(v)-1]
		if (f == '\'' || f == '"') && f == l {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// SplitList splits on sep outside of quotes and trims every element.
func SplitList(text string, sep byte) []string {
	out := []string{}
	var quote byte
	start := 0

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == sep:
			out = append(out, strings.TrimSpace(text[start:i]))
			start = i + 1
		}
	}
	out = append(out, strings.TrimSpace(text[start:]))
	return out
}

// SplitScript breaks a multi command input on ';', empty commands are dropped
func SplitScript(src string) []string {
	out := []string{}
	for _, x := range SplitList(src, ';') {
		x = strings.TrimSpace(strings.ReplaceAll(x, "\n", " "))
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}
