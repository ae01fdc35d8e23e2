package common

import (
	"fmt"
	"strings"
)

// ItemType is the declared content kind of an Item.
type ItemType string

const (
	// TypeImage produces a prepared image tag.
	TypeImage ItemType = "image"
	// TypeJavaScript produces an executable script tag.
	TypeJavaScript ItemType = "javascript"
	// TypeCSS produces a stylesheet injected into a document head.
	TypeCSS ItemType = "css"
	// TypeXML produces a parsed XML document.
	TypeXML ItemType = "xml"
	// TypeSVG produces a container wrapping a parsed SVG root.
	TypeSVG ItemType = "svg"
	// TypeJSON produces a parsed JSON value.
	TypeJSON ItemType = "json"
	// TypeText passes the fetched text through.
	TypeText ItemType = "text"
	// TypeBinary passes the fetched bytes through.
	TypeBinary ItemType = "binary"
)

// ParseItemType converts a string into an ItemType.
// It supports common aliases like "js" or "img".
func ParseItemType(s string) (ItemType, error) {
	switch strings.ToLower(s) {
	case "image", "img":
		return TypeImage, nil
	case "javascript", "js", "script":
		return TypeJavaScript, nil
	case "css", "style":
		return TypeCSS, nil
	case "xml":
		return TypeXML, nil
	case "svg":
		return TypeSVG, nil
	case "json":
		return TypeJSON, nil
	case "text", "txt":
		return TypeText, nil
	case "binary", "bin":
		return TypeBinary, nil
	default:
		return "", fmt.Errorf("unsupported item type: %s", s)
	}
}

// TypeFromExtension maps a file extension (without the dot) to an ItemType.
// Unknown extensions are treated as text.
func TypeFromExtension(ext string) ItemType {
	switch strings.ToLower(ext) {
	case "jpeg", "jpg", "gif", "png", "webp", "bmp", "tif", "tiff":
		return TypeImage
	case "js":
		return TypeJavaScript
	case "css":
		return TypeCSS
	case "xml":
		return TypeXML
	case "svg":
		return TypeSVG
	case "json":
		return TypeJSON
	default:
		return TypeText
	}
}

// String returns the string representation of the ItemType.
func (t ItemType) String() string {
	return string(t)
}

// ProducesTag reports whether loading this type mutates a caller-supplied tag.
func (t ItemType) ProducesTag() bool {
	switch t {
	case TypeImage, TypeCSS, TypeSVG:
		return true
	}
	return false
}
