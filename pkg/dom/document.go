// Package dom holds the browser-consumable representations a loader
// materializes results into: an HTML document with a head, image, script,
// style and SVG tags, and parsed XML documents.
package dom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const blankDocument = "<!DOCTYPE html><html><head></head><body></body></html>"

// Document is an HTML document that style and SVG results are inserted into.
// Mutable
type Document struct {
	mu     sync.Mutex
	doc    *goquery.Document
	sheets []*StyleTag
}

// NewDocument returns an empty HTML document.
func NewDocument() *Document {
	d, err := ParseDocument(strings.NewReader(blankDocument))
	if err != nil {
		panic(fmt.Sprintf("parsing blank document: %v", err))
	}
	return d
}

// ParseDocument parses an HTML document from r.
func ParseDocument(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return &Document{doc: doc}, nil
}

// Head returns the document's head element.
func (d *Document) Head() *html.Node {
	return d.doc.Find("head").Get(0)
}

// Body returns the document's body element.
func (d *Document) Body() *html.Node {
	return d.doc.Find("body").Get(0)
}

// Find runs a CSS selector against the document.
func (d *Document) Find(selector string) *goquery.Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Find(selector)
}

// CreateElement returns a detached element node.
func (d *Document) CreateElement(tag string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Lookup([]byte(tag)),
		Data:     tag,
	}
}

// AppendChild attaches child under parent, detaching it from any previous parent.
func (d *Document) AppendChild(parent, child *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	appendChild(parent, child)
}

// StyleSheets returns the text of every style injected into the document,
// in injection order.
func (d *Document) StyleSheets() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.sheets))
	for _, s := range d.sheets {
		out = append(out, s.text())
	}
	return out
}

// HTML renders the document.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var sb strings.Builder
	if err := html.Render(&sb, d.doc.Get(0)); err != nil {
		return "", fmt.Errorf("rendering document: %w", err)
	}
	return sb.String(), nil
}

func appendChild(parent, child *html.Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.AppendChild(child)
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
