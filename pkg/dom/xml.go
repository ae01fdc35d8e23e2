package dom

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// MIMETypeXML is the media type XML items are parsed as.
	MIMETypeXML = "text/xml"
	// MIMETypeSVG is the media type SVG items are parsed as.
	MIMETypeSVG = "image/svg+xml"
)

// XMLNode is an element or text node of a parsed XML document.
// Text nodes have an empty Name.
type XMLNode struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []*XMLNode
	Text     string
}

// XMLDocument is a parsed XML document.
type XMLDocument struct {
	ContentType string
	Root        *XMLNode
}

// ParseXML parses text as a well-formed XML document. text is already
// decoded, so an encoding named in the XML declaration is ignored.
func ParseXML(text, contentType string) (*XMLDocument, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	var (
		root  *XMLNode
		stack []*XMLNode
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", contentType, err)
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			n := &XMLNode{Name: tok.Name, Attr: append([]xml.Attr(nil), tok.Attr...)}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("parsing %s: multiple root elements", contentType)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(tok)) != "" {
					return nil, fmt.Errorf("parsing %s: text outside root element", contentType)
				}
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &XMLNode{Text: string(tok)})
		}
	}
	if root == nil {
		return nil, fmt.Errorf("parsing %s: %w", contentType, errors.New("no root element"))
	}
	return &XMLDocument{ContentType: contentType, Root: root}, nil
}

// ParseSVG parses text as an SVG document; the root element must be <svg>.
func ParseSVG(text string) (*XMLDocument, error) {
	doc, err := ParseXML(text, MIMETypeSVG)
	if err != nil {
		return nil, err
	}
	if doc.Root.Name.Local != "svg" {
		return nil, fmt.Errorf("parsing %s: root element is <%s>, not <svg>", MIMETypeSVG, doc.Root.Name.Local)
	}
	return doc, nil
}

// IsText reports whether n is a text node.
func (n *XMLNode) IsText() bool {
	return n.Name.Local == ""
}

// GetAttr returns the value of the attribute with the given local name.
func (n *XMLNode) GetAttr(local string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// FindAll returns every descendant element (including n) with the given local name.
func (n *XMLNode) FindAll(local string) []*XMLNode {
	var out []*XMLNode
	var walk func(*XMLNode)
	walk = func(c *XMLNode) {
		if c.Name.Local == local {
			out = append(out, c)
		}
		for _, ch := range c.Children {
			walk(ch)
		}
	}
	walk(n)
	return out
}

// TextContent concatenates all descendant text.
func (n *XMLNode) TextContent() string {
	if n.IsText() {
		return n.Text
	}
	var sb strings.Builder
	for _, c := range n.Children {
		sb.WriteString(c.TextContent())
	}
	return sb.String()
}

func (d *XMLDocument) String() string {
	return fmt.Sprintf("%s document <%s>", d.ContentType, d.Root.Name.Local)
}
