package loader

import (
	"regexp"

	"preload/pkg/common"
)

var filePattern = regexp.MustCompile(`(?i)(\w+:/{2})?((?:\w+\.){2}\w+)?(/?[\S]+/|/)?([\w\-%\.]+)(?:\.)(\w+)?(\?\S+)?`)

// URIParts is the decomposition of a URI produced by ParseURI.
// Absent components are empty.
type URIParts struct {
	Protocol  string
	Domain    string
	Path      string
	Filename  string
	Extension string
	Query     string
}

// ParseURI splits a URI into protocol, domain, path, file name, extension
// and query. It returns nil when s is empty or does not look like a file URI.
func ParseURI(s string) *URIParts {
	if s == "" {
		return nil
	}
	m := filePattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	return &URIParts{
		Protocol:  m[1],
		Domain:    m[2],
		Path:      m[3],
		Filename:  m[4],
		Extension: m[5],
		Query:     m[6],
	}
}

// InferType guesses the item type of src from its file extension.
// Sources without a recognizable extension are treated as text.
func InferType(src string) common.ItemType {
	p := ParseURI(src)
	if p == nil {
		return common.TypeText
	}
	return common.TypeFromExtension(p.Extension)
}
