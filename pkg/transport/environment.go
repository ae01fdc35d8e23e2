package transport

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Kind orders factories during selection.
type Kind int

const (
	// KindCrossDomain factories are preferred for cross-domain targets only.
	KindCrossDomain Kind = iota
	// KindStandard factories are the default choice.
	KindStandard
	// KindLegacy factories are the fallback chain, tried in order.
	KindLegacy
)

func (k Kind) String() string {
	switch k {
	case KindCrossDomain:
		return "cross-domain"
	case KindStandard:
		return "standard"
	case KindLegacy:
		return "legacy"
	}
	return "unknown"
}

// Factory constructs one handle variant. New returns ErrUnavailable (or any
// error) when the variant cannot be built in the environment.
type Factory struct {
	Name string
	Kind Kind
	New  func(env *Environment) (Handle, error)
}

var (
	XHR    = Factory{Name: "xhr", Kind: KindStandard, New: NewXHR}
	XDR    = Factory{Name: "xdr", Kind: KindCrossDomain, New: NewXDR}
	Legacy = Factory{Name: "legacy", Kind: KindLegacy, New: NewLegacy}
)

// Builtin lists every handle variant this package implements.
func Builtin() []Factory {
	return []Factory{XHR, XDR, Legacy}
}

// Lookup returns the built-in factories with the given names, in order.
func Lookup(names ...string) ([]Factory, error) {
	out := make([]Factory, 0, len(names))
	for _, name := range names {
		found := false
		for _, f := range Builtin() {
			if strings.EqualFold(f.Name, strings.TrimSpace(name)) {
				out = append(out, f)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrUnavailable, name)
		}
	}
	return out, nil
}

// Environment describes the page a loader runs in: its origin, the HTTP
// client requests go through, and the handle variants that exist.
// Immutable
type Environment struct {
	// Origin is the page origin. Nil means every target is same-origin.
	Origin    *url.URL
	Client    *http.Client
	UserAgent string
	Factories []Factory
}

// NewEnvironment returns an environment with the modern variant and the legacy fallback.
func NewEnvironment(origin *url.URL, client *http.Client) *Environment {
	return &Environment{
		Origin:    origin,
		Client:    client,
		Factories: []Factory{XHR, Legacy},
	}
}

func (e *Environment) client() *http.Client {
	if e.Client != nil {
		return e.Client
	}
	return http.DefaultClient
}

// Select returns the first handle that can be constructed for target.
// Cross-domain factories come first when target is cross-domain, then
// standard factories, then the legacy chain in declaration order.
func (e *Environment) Select(target *url.URL) (Handle, Factory, error) {
	cross := IsCrossDomain(e.Origin, target)
	var errs []error
	for _, f := range e.candidates(cross) {
		h, err := f.New(e)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Name, err))
			continue
		}
		return h, f, nil
	}
	if len(errs) == 0 {
		return nil, Factory{}, ErrNoTransport
	}
	return nil, Factory{}, fmt.Errorf("%w: %w", ErrNoTransport, errors.Join(errs...))
}

func (e *Environment) candidates(cross bool) []Factory {
	var out []Factory
	order := []Kind{KindStandard, KindLegacy}
	if cross {
		order = []Kind{KindCrossDomain, KindStandard, KindLegacy}
	}
	for _, k := range order {
		for _, f := range e.Factories {
			if f.Kind == k && f.New != nil {
				out = append(out, f)
			}
		}
	}
	return out
}

// IsCrossDomain reports whether target differs from origin in scheme, host or port.
func IsCrossDomain(origin, target *url.URL) bool {
	if origin == nil || target == nil {
		return false
	}
	if target.Host == "" {
		return false
	}
	return !strings.EqualFold(origin.Scheme, target.Scheme) ||
		!strings.EqualFold(origin.Hostname(), target.Hostname()) ||
		effectivePort(origin) != effectivePort(target)
}

// OriginString serializes the scheme, host and port of u.
func OriginString(u *url.URL) string {
	if u == nil {
		return "null"
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return ""
}

func allowsOrigin(h http.Header, origin *url.URL) bool {
	v := strings.TrimSpace(h.Get("Access-Control-Allow-Origin"))
	return v == "*" || strings.EqualFold(v, OriginString(origin))
}
