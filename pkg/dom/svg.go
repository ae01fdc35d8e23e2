package dom

import (
	"fmt"
	"sync"

	"golang.org/x/net/html"
)

const xlinkNamespace = "http://www.w3.org/1999/xlink"

// SVGTag is a container element that a parsed SVG root is grafted into.
// Mutable
type SVGTag struct {
	mu   sync.Mutex
	doc  *Document
	Node *html.Node
	root *XMLNode
}

// NewSVGTag returns an <object type="image/svg+xml"> container. doc may be nil
// for a container that is never attached to a document.
func NewSVGTag(doc *Document) *SVGTag {
	n := &html.Node{Type: html.ElementNode, Data: "object"}
	if doc != nil {
		n = doc.CreateElement("object")
	}
	setAttr(n, "type", MIMETypeSVG)
	return &SVGTag{doc: doc, Node: n}
}

// Graft converts the SVG root into HTML nodes and appends it to the container.
func (t *SVGTag) Graft(root *XMLNode) {
	converted := svgToHTML(root)
	if t.doc != nil {
		t.doc.mu.Lock()
		defer t.doc.mu.Unlock()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Node.AppendChild(converted)
	t.root = root
}

// Root returns the grafted SVG root, or nil before Graft.
func (t *SVGTag) Root() *XMLNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root
}

func (t *SVGTag) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.root == nil {
		return "svg (empty)"
	}
	w, _ := t.root.GetAttr("width")
	h, _ := t.root.GetAttr("height")
	return fmt.Sprintf("svg %sx%s", w, h)
}

func svgToHTML(n *XMLNode) *html.Node {
	if n.IsText() {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}
	out := &html.Node{
		Type:      html.ElementNode,
		Data:      n.Name.Local,
		Namespace: "svg",
	}
	for _, a := range n.Attr {
		key := a.Name.Local
		switch a.Name.Space {
		case "":
		case "xmlns":
			key = "xmlns:" + key
		case xlinkNamespace:
			key = "xlink:" + key
		}
		out.Attr = append(out.Attr, html.Attribute{Key: key, Val: a.Value})
	}
	for _, c := range n.Children {
		out.AppendChild(svgToHTML(c))
	}
	return out
}
