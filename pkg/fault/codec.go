package fault

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/StricklySoft/faultline/pkg/flerr"
)

// Wire grammar element and attribute names. These are a stable interop
// contract: any consumer that parses signaled failure text depends on them.
const (
	elemError   = "err"
	elemContext = "ctx"

	attrCode             = "code"
	attrUserMessage      = "userMessage"
	attrDeveloperMessage = "developerMessage"
	attrSourceProcedure  = "sourceProcedure"
	attrSourceLine       = "sourceLine"
)

// marker is the prefix that identifies encoded tree text.
const marker = "<" + elemError

// IsEncoded reports whether text carries an encoded tree, i.e. whether its
// first non-space bytes are the tree's element marker. It does not validate
// the rest of the document.
func IsEncoded(text string) bool {
	s := strings.TrimLeft(text, " \t\r\n")
	if !strings.HasPrefix(s, marker) {
		return false
	}
	rest := s[len(marker):]
	if rest == "" {
		return false
	}
	switch rest[0] {
	case ' ', '\t', '\r', '\n', '>', '/':
		return true
	}
	return false
}

// Encode renders the tree as its compact textual wire form. Encoding never
// fails for trees built through this package's constructors.
func Encode(n *Node) string {
	var sb strings.Builder
	enc := xml.NewEncoder(&sb)
	encodeNode(enc, n)
	// Flush cannot fail when writing to a strings.Builder.
	_ = enc.Flush()
	return sb.String()
}

func encodeNode(enc *xml.Encoder, n *Node) {
	start := xml.StartElement{Name: xml.Name{Local: elemError}}
	start.Attr = append(start.Attr,
		xml.Attr{Name: xml.Name{Local: attrCode}, Value: strconv.Itoa(n.Code)},
		xml.Attr{Name: xml.Name{Local: attrUserMessage}, Value: n.UserMessage},
	)
	if n.DeveloperMessage != "" {
		start.Attr = append(start.Attr,
			xml.Attr{Name: xml.Name{Local: attrDeveloperMessage}, Value: n.DeveloperMessage})
	}
	start.Attr = append(start.Attr,
		xml.Attr{Name: xml.Name{Local: attrSourceProcedure}, Value: n.SourceProcedure})
	if n.SourceLine > 0 {
		start.Attr = append(start.Attr,
			xml.Attr{Name: xml.Name{Local: attrSourceLine}, Value: strconv.Itoa(n.SourceLine)})
	}
	_ = enc.EncodeToken(start)
	for _, c := range n.Children {
		switch child := c.(type) {
		case *Context:
			encodeContext(enc, child)
		case *Node:
			encodeNode(enc, child)
		case *Extra:
			encodeExtra(enc, child)
		}
	}
	_ = enc.EncodeToken(xml.EndElement{Name: start.Name})
}

func encodeContext(enc *xml.Encoder, c *Context) {
	start := xml.StartElement{Name: xml.Name{Local: elemContext}}
	for _, a := range c.Attrs {
		start.Attr = append(start.Attr,
			xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	_ = enc.EncodeToken(start)
	_ = enc.EncodeToken(xml.EndElement{Name: start.Name})
}

func encodeExtra(enc *xml.Encoder, e *Extra) {
	start := xml.StartElement{Name: xml.Name{Local: e.Name}}
	for _, a := range e.Attrs {
		start.Attr = append(start.Attr,
			xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	_ = enc.EncodeToken(start)
	if e.Text != "" {
		_ = enc.EncodeToken(xml.CharData(e.Text))
	}
	_ = enc.EncodeToken(xml.EndElement{Name: start.Name})
}

// Decode parses encoded tree text back into a tree. Element order among
// children is preserved; attribute order within context elements is
// preserved. Text that does not carry the element marker, or that is not a
// well-formed document, yields a [flerr.CodeValidationFormat] error and the
// caller should treat the input as an opaque message.
func Decode(text string) (*Node, error) {
	if !IsEncoded(text) {
		return nil, flerr.New(flerr.CodeValidationFormat,
			"fault: text does not begin with the tree element marker")
	}
	dec := xml.NewDecoder(strings.NewReader(text))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, flerr.Wrap(err, flerr.CodeValidationFormat,
				"fault: malformed tree text")
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != elemError {
			return nil, flerr.Newf(flerr.CodeValidationFormat,
				"fault: unexpected root element %q", start.Name.Local)
		}
		return decodeNode(dec, start)
	}
}

func decodeNode(dec *xml.Decoder, start xml.StartElement) (*Node, error) {
	n := &Node{}
	for _, a := range start.Attr {
		switch a.Name.Local {
		case attrCode:
			code, err := strconv.Atoi(a.Value)
			if err != nil {
				return nil, flerr.Wrapf(err, flerr.CodeValidationFormat,
					"fault: invalid code attribute %q", a.Value)
			}
			n.Code = code
		case attrUserMessage:
			n.UserMessage = a.Value
		case attrDeveloperMessage:
			n.DeveloperMessage = a.Value
		case attrSourceProcedure:
			n.SourceProcedure = a.Value
		case attrSourceLine:
			line, err := strconv.Atoi(a.Value)
			if err != nil {
				return nil, flerr.Wrapf(err, flerr.CodeValidationFormat,
					"fault: invalid sourceLine attribute %q", a.Value)
			}
			n.SourceLine = line
		}
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, flerr.Wrap(err, flerr.CodeValidationFormat,
				"fault: truncated tree text")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case elemError:
				child, err := decodeNode(dec, t)
				if err != nil {
					return nil, err
				}
				n.Children = append(n.Children, child)
			case elemContext:
				ctx := &Context{}
				for _, a := range t.Attr {
					ctx.Attrs = append(ctx.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
				}
				if err := dec.Skip(); err != nil {
					return nil, flerr.Wrap(err, flerr.CodeValidationFormat,
						"fault: malformed context element")
				}
				n.Children = append(n.Children, ctx)
			default:
				extra, err := decodeExtra(dec, t)
				if err != nil {
					return nil, err
				}
				n.Children = append(n.Children, extra)
			}
		case xml.EndElement:
			return n, nil
		}
	}
}

// decodeExtra captures an unknown element as a flat attachment. Nested
// elements inside an attachment are not preserved; only grammar-conformant
// trees round-trip exactly.
func decodeExtra(dec *xml.Decoder, start xml.StartElement) (*Extra, error) {
	e := &Extra{Name: start.Name.Local}
	for _, a := range start.Attr {
		e.Attrs = append(e.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
	}
	depth := 1
	var text strings.Builder
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, flerr.Wrap(err, flerr.CodeValidationFormat,
				"fault: truncated attachment element")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 1 {
				text.Write(t)
			}
		}
	}
	e.Text = text.String()
	return e, nil
}
