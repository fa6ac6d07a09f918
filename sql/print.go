package sql

import (
	"fmt"
	"strings"
)

// Print an action back into a canonical command string. The output can be
// parsed again and yields an equal action, mostly used by logging and tests.
func Print(a Action) string {
	switch a.Type() {
	case ActionCreateTable:
		ct := a.(*CreateTable)
		cols := []string{}
		for _, c := range ct.Columns {
			cols = append(cols, fmt.Sprintf("%s:%s", c.Name, c.Type))
		}
		return fmt.Sprintf("make table %s %s", ct.Table, strings.Join(cols, ","))

	case ActionInsert:
		in := a.(*Insert)
		return fmt.Sprintf("add into %s %s", in.Table, strings.Join(in.Values, ","))

	case ActionDelete:
		d := a.(*Delete)
		return fmt.Sprintf("delete from %s that %s", d.Table, printPredicate(d.Where))

	case ActionUpdate:
		u := a.(*Update)
		set := []string{}
		for _, x := range u.Set {
			set = append(set, x.String())
		}
		return fmt.Sprintf(
			"update %s that %s to %s",
			u.Table,
			printPredicate(u.Where),
			strings.Join(set, ","),
		)

	case ActionDisplay:
		return fmt.Sprintf("show table %s", a.(*Display).Table)

	case ActionListTables:
		return "show tables"

	case ActionDescribe:
		return fmt.Sprintf("describe table %s", a.(*Describe).Table)

	case ActionSelect:
		return PrintSelect(a.(*Select))

	default:
		return fmt.Sprintf("unknown(%s)", a.(*Unknown).Keyword)
	}
}

func printPredicate(p []*Predicate) string {
	out := []string{}
	for _, x := range p {
		out = append(out, x.String())
	}
	return strings.Join(out, ",")
}

func PrintSelect(s *Select) string {
	buf := strings.Builder{}

	cols := []string{}
	for _, c := range s.Columns {
		cols = append(cols, c.ColName())
	}
	buf.WriteString(fmt.Sprintf("select %s from %s", strings.Join(cols, ","), s.Table))

	if s.Join != nil {
		on := []string{}
		for _, x := range s.Join.On {
			on = append(on, fmt.Sprintf("%s=%s", x.Left, x.Right))
		}
		buf.WriteString(fmt.Sprintf(" join %s on %s", s.Join.Table, strings.Join(on, ",")))
	}
	if len(s.Where) > 0 {
		buf.WriteString(fmt.Sprintf(" that %s", printPredicate(s.Where)))
	}
	if len(s.GroupBy) > 0 {
		buf.WriteString(fmt.Sprintf(" groupby %s", strings.Join(s.GroupBy, ",")))
	}
	if s.OrderBy != nil {
		buf.WriteString(fmt.Sprintf(" orderby %s", strings.Join(s.OrderBy.Name, ",")))
		if s.OrderBy.Order == OrderDesc {
			buf.WriteString(" desc")
		}
	}
	return buf.String()
}
