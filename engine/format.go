package engine

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dianpeng/flatdb/eval"
	"github.com/fatih/color"
)

// ----------------------------------------------------------------------------
// Format of a rendered result, allowing better visualization of the data in
// terminal. The format is layered, based on the customization priority,
// descendingly:
// ----------------------------------------------------------------------------
// 1) column[index], if applicable takes highest priority
// 2) type, number or string column, if applicable kicks in
// 3) rest, 1 and 2 option missed, then the rest format kicks in
// ----------------------------------------------------------------------------

const (
	ColorBlack = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorNone
)

type FormatInstruction struct {
	Ignore    bool   // whether this field is entirely ignored
	Bold      bool   // whether this field will be showed in bold font
	Italic    bool   // whether this field will be showed in italic font
	Underline bool   // whether this field will be showed with underline
	Color     int    // color code of the field
	Index     int    // index, used only by column formatting
	StrOption string // string option, ie the border string
	IntOption int    // int value, ie the minimum column width
}

type Format struct {
	Title   *FormatInstruction
	Border  *FormatInstruction
	Number  *FormatInstruction
	String  *FormatInstruction
	Rest    *FormatInstruction
	Padding *FormatInstruction
	Error   *FormatInstruction
	Column  []*FormatInstruction
}

// builtin format policy
var PlainFormat = &Format{
	Title:   &FormatInstruction{Color: ColorNone},
	Border:  &FormatInstruction{StrOption: " "},
	Padding: &FormatInstruction{IntOption: 4},
	Error:   &FormatInstruction{Color: ColorNone},
}

var ColorFormat = &Format{
	Title: &FormatInstruction{
		Color: ColorBlue,
		Bold:  true,
	},
	Border: &FormatInstruction{
		StrOption: " | ",
		Color:     ColorBlack,
		Bold:      true,
	},
	Padding: &FormatInstruction{IntOption: 4},
	Number: &FormatInstruction{
		Color: ColorGreen,
		Bold:  true,
	},
	String: &FormatInstruction{
		Color:  ColorRed,
		Italic: true,
	},
	Rest: &FormatInstruction{
		Color: ColorNone,
	},
	Error: &FormatInstruction{
		Color: ColorRed,
		Bold:  true,
	},
}

func (self *Format) GetColumn(
	idx int,
) *FormatInstruction {
	for _, x := range self.Column {
		if x.Index == idx {
			return x
		}
	}
	return nil
}

func (self *Format) GetBorderString() string {
	if self.Border == nil || self.Border.StrOption == "" {
		return " "
	}
	return self.Border.StrOption
}

// style of a data column, see the layering above
func (self *Format) columnStyle(
	idx int,
	ty string,
) *FormatInstruction {
	if c := self.GetColumn(idx); c != nil {
		return c
	}
	if eval.IsNumeric(ty) && self.Number != nil {
		return self.Number
	}
	if !eval.IsNumeric(ty) && self.String != nil {
		return self.String
	}
	return self.Rest
}

func mapcolor(
	c int,
) color.Attribute {
	switch c {
	default:
		return color.Reset
	case ColorBlack:
		return color.FgBlack
	case ColorRed:
		return color.FgRed
	case ColorGreen:
		return color.FgGreen
	case ColorYellow:
		return color.FgYellow
	case ColorBlue:
		return color.FgBlue
	case ColorMagenta:
		return color.FgMagenta
	case ColorCyan:
		return color.FgCyan
	case ColorWhite:
		return color.FgWhite
	}
}

func stylish(
	fins *FormatInstruction,
	text string,
) string {
	if fins == nil || fins.Color == ColorNone && !fins.Bold && !fins.Italic && !fins.Underline {
		return text
	}
	cobj := color.New(mapcolor(fins.Color))
	if fins.Bold {
		cobj.Add(color.Bold)
	}
	if fins.Underline {
		cobj.Add(color.Underline)
	}
	if fins.Italic {
		cobj.Add(color.Italic)
	}
	return cobj.Sprint(text)
}

// pad before styling, escape sequences would break the alignment otherwise
func padRight(x string, width int) string {
	n := utf8.RuneCountInString(x)
	if n >= width {
		return x
	}
	return x + strings.Repeat(" ", width-n)
}

// Render writes r in human readable form. Tables are laid out in aligned
// columns, messages and failures are a single line.
func Render(w io.Writer, r *Result, f *Format) error {
	if f == nil {
		f = PlainFormat
	}

	if !r.OK {
		_, err := fmt.Fprintf(w, "%s\n", stylish(f.Error, fmt.Sprintf("ERROR [%s] %s", r.Kind, r.Message)))
		return err
	}
	if !r.HasTable() {
		_, err := fmt.Fprintf(w, "%s\n", r.Message)
		return err
	}

	width := make([]int, len(r.Header))
	for i, h := range r.Header {
		width[i] = utf8.RuneCountInString(h)
		if f.Padding != nil && width[i] < f.Padding.IntOption {
			width[i] = f.Padding.IntOption
		}
	}
	for _, row := range r.Rows {
		for i := 0; i < len(row) && i < len(width); i++ {
			if n := utf8.RuneCountInString(row[i]); n > width[i] {
				width[i] = n
			}
		}
	}

	sep := stylish(f.Border, f.GetBorderString())
	buf := strings.Builder{}

	if f.Title == nil || !f.Title.Ignore {
		cells := []string{}
		for i, h := range r.Header {
			cells = append(cells, stylish(f.Title, padRight(h, width[i])))
		}
		buf.WriteString(strings.TrimRight(strings.Join(cells, sep), " "))
		buf.WriteString("\n")

		dashes := []string{}
		for _, n := range width {
			dashes = append(dashes, strings.Repeat("-", n))
		}
		buf.WriteString(strings.Join(dashes, strings.Repeat("-", utf8.RuneCountInString(f.GetBorderString()))))
		buf.WriteString("\n")
	}

	for _, row := range r.Rows {
		cells := []string{}
		for i := range r.Header {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			ty := ""
			if i < len(r.Types) {
				ty = r.Types[i]
			}
			cells = append(cells, stylish(f.columnStyle(i, ty), padRight(v, width[i])))
		}
		buf.WriteString(strings.TrimRight(strings.Join(cells, sep), " "))
		buf.WriteString("\n")
	}
	buf.WriteString(fmt.Sprintf("(%d rows)\n", len(r.Rows)))

	_, err := io.WriteString(w, buf.String())
	return err
}
