package entcheck

import (
	"strings"
)

// Format formats a File AST back into canonical .ent source code.
// Broken records are printed as far as they were parsed; callers should not
// overwrite a file whose parse failed.
func Format(file *File) string {
	var b strings.Builder

	f := &formatter{b: &b, indent: 0}
	f.formatFile(file)

	return strings.TrimSpace(b.String()) + "\n"
}

type formatter struct {
	b      *strings.Builder
	indent int
}

func (f *formatter) write(s string) {
	f.b.WriteString(s)
}

func (f *formatter) writeLine(s string) {
	f.writeIndent()
	f.write(s)
	f.write("\n")
}

func (f *formatter) writeIndent() {
	for range f.indent {
		f.write("\t")
	}
}

func (f *formatter) blankLine() {
	f.write("\n")
}

func (f *formatter) comments(lines []string) {
	for _, c := range lines {
		f.writeLine(c)
	}
}

func withTrailing(s, comment string) string {
	if comment == "" {
		return s
	}

	return s + " " + comment
}

func (f *formatter) formatFile(file *File) {
	if len(file.LeadingComments) > 0 {
		f.comments(file.LeadingComments)
		f.blankLine()
	}

	if file.Module != nil {
		f.writeLine("module " + file.Module.Name + ";")
	}

	for i, r := range file.Records {
		if i > 0 || file.Module != nil {
			f.blankLine()
		}

		f.formatRecord(r)
	}
}

func (f *formatter) formatRecord(r *Record) {
	f.comments(r.LeadingComments)

	for _, a := range r.Annotations {
		f.writeLine(annotationString(a))
	}

	open, closer := "{", "}"
	if r.Closed {
		open, closer = "{|", "|}"
	}

	f.writeLine("record " + r.Name.Name + " " + open)
	f.indent++

	for _, m := range r.Members {
		f.comments(m.LeadingComments)
		f.writeLine(withTrailing(memberString(m), m.TrailingComment))
	}

	f.comments(r.DanglingComments)

	f.indent--
	f.writeLine(withTrailing(closer, r.TrailingComment))
}

// memberString renders a member on a single line, including its semicolon.
func memberString(m *Member) string {
	switch {
	case m.Include != nil:
		return "*" + m.Include.Name.Name + ";"
	case m.Rest != nil:
		if m.Rest.Type != nil {
			return "...: " + m.Rest.Type.String() + ";"
		}

		return "...;"
	case m.Field != nil:
		return fieldString(m.Field)
	default:
		return ""
	}
}

func fieldString(field *Field) string {
	var b strings.Builder

	if field.Readonly != nil {
		b.WriteString("readonly ")
	}

	b.WriteString(field.Name.Name)
	b.WriteString(": ")
	b.WriteString(field.Type.String())

	if field.Default != nil {
		b.WriteString(" = ")
		b.WriteString(field.Default.String())
	}

	for _, a := range field.Annotations {
		b.WriteString(" ")
		b.WriteString(annotationString(a))
	}

	b.WriteString(";")

	return b.String()
}

func annotationString(a *Annotation) string {
	if !a.Parens {
		return "@" + a.Name.Name
	}

	args := make([]string, len(a.Args))
	for i, arg := range a.Args {
		args[i] = arg.Name.Name + ": " + arg.Value.String()
	}

	return "@" + a.Name.Name + "(" + strings.Join(args, ", ") + ")"
}
