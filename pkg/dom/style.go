package dom

import (
	"errors"

	"golang.org/x/net/html"
)

// StyleTag is a stylesheet container bound to a Document.
// A tag with a Node receives its text as a child text node; a tag without
// one keeps it in CSSText, the way old stylesheet objects did.
// Mutable
type StyleTag struct {
	doc  *Document
	Node *html.Node
	// CSSText holds the style text for node-less tags.
	CSSText string
}

// CreateStyle returns a detached <style> tag for the document.
func (d *Document) CreateStyle() *StyleTag {
	n := d.CreateElement("style")
	setAttr(n, "type", "text/css")
	return &StyleTag{doc: d, Node: n}
}

// CreateStyleSheet returns a node-less style tag for the document.
func (d *Document) CreateStyleSheet() *StyleTag {
	return &StyleTag{doc: d}
}

// Document returns the document the tag belongs to.
func (s *StyleTag) Document() *Document {
	return s.doc
}

// Inject inserts the tag into the document head and assigns text as its content.
func (s *StyleTag) Inject(text string) error {
	if s.doc == nil {
		return errors.New("style tag is not bound to a document")
	}
	d := s.doc
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.Node == nil {
		s.CSSText = text
	} else {
		head := d.doc.Find("head").Get(0)
		if head == nil {
			return errors.New("document has no head")
		}
		if s.Node.Parent != head {
			appendChild(head, s.Node)
		}
		for c := s.Node.FirstChild; c != nil; c = s.Node.FirstChild {
			s.Node.RemoveChild(c)
		}
		s.Node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}

	for _, sheet := range d.sheets {
		if sheet == s {
			return nil
		}
	}
	d.sheets = append(d.sheets, s)
	return nil
}

func (s *StyleTag) text() string {
	if s.Node == nil {
		return s.CSSText
	}
	var out string
	for c := s.Node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			out += c.Data
		}
	}
	return out
}

// Text returns the style text currently assigned to the tag.
func (s *StyleTag) Text() string {
	if s.doc != nil {
		s.doc.mu.Lock()
		defer s.doc.mu.Unlock()
	}
	return s.text()
}

func (s *StyleTag) String() string {
	return "style"
}
