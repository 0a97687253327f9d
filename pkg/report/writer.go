package report

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ContentWriter is a buffered line sink over a file or stream.
type ContentWriter struct {
	w      *bufio.Writer
	closer io.Closer
}

func newContentWriter(w io.Writer, closer io.Closer) *ContentWriter {
	return &ContentWriter{w: bufio.NewWriter(w), closer: closer}
}

// Write implements io.Writer.
func (cw *ContentWriter) Write(p []byte) (int, error) {
	return cw.w.Write(p)
}

// Println writes line followed by a newline.
func (cw *ContentWriter) Println(line string) error {
	if _, err := cw.w.WriteString(line); err != nil {
		return err
	}
	return cw.w.WriteByte('\n')
}

// Close flushes pending output and closes the underlying file, if any.
func (cw *ContentWriter) Close() error {
	err := cw.w.Flush()
	if cw.closer != nil {
		if cerr := cw.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Attr is one XML attribute. Attributes are written in the order given.
type Attr struct {
	Name  string
	Value string
}

const indentUnit = "  "

// ErrTagMismatch is returned when a close does not match the open tag.
var ErrTagMismatch = errors.New("xml tag mismatch")

// XMLWriter emits indented XML one line per tag. Attribute values and text
// content are escaped.
type XMLWriter struct {
	cw    *ContentWriter
	stack []string
}

// NewXMLWriter creates a writer over cw.
func NewXMLWriter(cw *ContentWriter) *XMLWriter {
	return &XMLWriter{cw: cw}
}

func (x *XMLWriter) indent(s string) string {
	return strings.Repeat(indentUnit, len(x.stack)) + s
}

// OpenTag writes <name attrs...> and nests subsequent tags under it.
func (x *XMLWriter) OpenTag(name string, attrs ...Attr) error {
	if err := x.cw.Println(x.indent("<" + name + attrString(attrs) + ">")); err != nil {
		return err
	}
	x.stack = append(x.stack, name)
	return nil
}

// CloseTag closes the innermost tag, which must be name.
func (x *XMLWriter) CloseTag(name string) error {
	if len(x.stack) == 0 {
		return fmt.Errorf("%w: close %s with no tag open", ErrTagMismatch, name)
	}
	open := x.stack[len(x.stack)-1]
	if open != name {
		return fmt.Errorf("%w: close %s while %s is open", ErrTagMismatch, name, open)
	}
	x.stack = x.stack[:len(x.stack)-1]
	return x.cw.Println(x.indent("</" + name + ">"))
}

// InlineTag writes a complete element on one line. Empty content produces
// a self-closing tag.
func (x *XMLWriter) InlineTag(name string, attrs []Attr, content string) error {
	s := "<" + name + attrString(attrs)
	if content != "" {
		s += ">" + escape(content) + "</" + name + ">"
	} else {
		s += "/>"
	}
	return x.cw.Println(x.indent(s))
}

// CloseAll closes every open tag, innermost first.
func (x *XMLWriter) CloseAll() error {
	for len(x.stack) > 0 {
		if err := x.CloseTag(x.stack[len(x.stack)-1]); err != nil {
			return err
		}
	}
	return nil
}

// Depth returns the number of open tags.
func (x *XMLWriter) Depth() int {
	return len(x.stack)
}

func attrString(attrs []Attr) string {
	var b strings.Builder
	for _, a := range attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(escape(a.Value))
		b.WriteByte('"')
	}
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	// strings.Builder never fails a write.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
