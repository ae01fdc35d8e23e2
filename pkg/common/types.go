// Package common provides shared types used across the preload tool.
// It includes the item descriptor handed to loaders, the enumeration of
// content kinds, and the output structures rendered by the display.
package common

// Item describes one remote resource to preload.
// A loader copies the descriptor on construction; the Tag it points to is
// the only part a loader mutates, and only for tag-producing types.
type Item struct {
	// Src is the URI of the resource. Required.
	Src string
	// Type drives the transport configuration and the shape of the result.
	Type ItemType
	// ID is an optional caller-chosen identifier, passed through unchanged.
	ID string
	// Tag is a pre-built placeholder for IMAGE, CSS and SVG items
	// (*dom.ImageTag, *dom.StyleTag, *dom.SVGTag).
	Tag any
	// Data carries arbitrary caller metadata, passed through unchanged.
	Data map[string]any
}

// Output represents structured information to be displayed to the user.
type Output struct {
	Message string
	KV      []KV
	Table   *Table
	Blocks  []Block
}

// KV is a single labelled value in an Output.
type KV struct {
	Key   string
	Value string
}

// Table is a simple column-aligned table.
type Table struct {
	Header []string
	Rows   [][]string
}

// Block is a titled free-form section rendered after the table.
type Block struct {
	Title string
	Body  string
}

// ExecutionResult represents the outcome of a preload run.
type ExecutionResult struct {
	// ExitCode is the status code the process exits with.
	ExitCode int
	// Output is rendered by the display before exiting.
	Output *Output
}
