// Package cli turns command line arguments into a batch of items and
// runs them through loaders, reporting progress and a summary.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"preload/pkg/common"
	"preload/pkg/config"
	"preload/pkg/loader"
	"preload/pkg/manifest"
)

// ErrUsage marks command line errors.
var ErrUsage = errors.New("usage error")

// Options holds all command-line options.
type Options struct {
	URLs []string

	Type        string        // -type
	Origin      string        // -origin
	Timeout     time.Duration // -timeout
	Concurrency int           // -concurrency
	Transports  string        // -transport, comma separated
	Manifest    string        // -manifest
	Query       string        // -query

	TUI     bool
	Save    bool
	Verbose bool
	Version bool
}

// Parse parses command-line arguments into Options. It returns
// flag.ErrHelp when help was requested.
func Parse(args []string, stderr io.Writer) (*Options, error) {
	opts := &Options{}
	fs := flag.NewFlagSet("preload", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.Type, "type", "", "Item type for every URL (image, javascript, css, xml, svg, json, text, binary); inferred from the extension by default")
	fs.StringVar(&opts.Origin, "origin", "", "Page origin relative URLs resolve against and cross-domain checks compare with")
	fs.DurationVar(&opts.Timeout, "timeout", 0, "Per-item load timeout (default from settings, 8s)")
	fs.IntVar(&opts.Concurrency, "concurrency", 0, "Number of items loaded at once (default from settings, 4)")
	fs.StringVar(&opts.Transports, "transport", "", "Comma separated request variants to allow, in order (xhr, xdr, legacy)")
	fs.StringVar(&opts.Manifest, "manifest", "", "Starlark manifest declaring items to load")
	fs.StringVar(&opts.Query, "query", "", "jq expression applied to every JSON result")
	fs.BoolVar(&opts.TUI, "tui", false, "Show an interactive progress view")
	fs.BoolVar(&opts.Save, "save", false, "Write the effective settings to the settings file and exit")
	fs.BoolVar(&opts.Verbose, "v", false, "Print debugging information")
	fs.BoolVar(&opts.Version, "version", false, "Print version information and exit")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: preload [OPTIONS] URL [URL...]\n\n")
		fmt.Fprintln(fs.Output(), "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	opts.URLs = fs.Args()

	if err := opts.validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *Options) validate() error {
	if o.Version || o.Save {
		return nil
	}
	if len(o.URLs) == 0 && o.Manifest == "" {
		return fmt.Errorf("%w: no URLs given", ErrUsage)
	}
	if o.Type != "" {
		if _, err := common.ParseItemType(o.Type); err != nil {
			return fmt.Errorf("%w: %w", ErrUsage, err)
		}
	}
	if o.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrUsage)
	}
	if o.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must be positive", ErrUsage)
	}
	return nil
}

// TransportNames returns the -transport list, or nil when unset.
func (o *Options) TransportNames() []string {
	if strings.TrimSpace(o.Transports) == "" {
		return nil
	}
	return strings.Split(o.Transports, ",")
}

// Apply layers the options over w. A manifest origin applies only when
// -origin is not given.
func (o *Options) Apply(w config.Writable, m *manifest.Manifest) error {
	w.SetTimeout(o.Timeout)
	w.SetConcurrency(o.Concurrency)

	origin := o.Origin
	if origin == "" && m != nil {
		origin = m.Origin
	}
	if origin != "" {
		if err := w.SetOrigin(origin); err != nil {
			return fmt.Errorf("%w: %w", ErrUsage, err)
		}
	}
	return nil
}

// Items builds the batch: manifest items first, then one item per URL.
// -type overrides the inferred type of URL items only.
func (o *Options) Items(m *manifest.Manifest) []common.Item {
	var items []common.Item
	if m != nil {
		items = append(items, m.Items...)
	}
	forced, _ := common.ParseItemType(o.Type)
	for _, u := range o.URLs {
		t := forced
		if t == "" {
			t = loader.InferType(u)
		}
		items = append(items, common.Item{Src: u, Type: t})
	}
	return items
}
