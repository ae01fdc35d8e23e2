package transport

import (
	"bytes"
	"fmt"
	"mime"
	"strings"
	"time"
)

// xhr is the modern, level 2 request: typed responses, native timeout,
// full event coverage and CORS support.
type xhr struct {
	*request
}

// NewXHR constructs a level 2 handle.
func NewXHR(env *Environment) (Handle, error) {
	return &xhr{newRequest(env, allEvents, true)}, nil
}

func (x *xhr) SetResponseType(t ResponseType) error {
	switch t {
	case ResponseTypeText, ResponseTypeArrayBuffer:
	default:
		return fmt.Errorf("unsupported response type: %s", t)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.sent {
		return fmt.Errorf("%w: response type must be set before send", ErrInvalidState)
	}
	x.responseType = t
	return nil
}

func (x *xhr) Response() (any, error) {
	x.mu.Lock()
	rt := x.responseType
	if rt == ResponseTypeArrayBuffer {
		defer x.mu.Unlock()
		if x.state != Done || !x.succeeded {
			return nil, nil
		}
		return bytes.Clone(x.body), nil
	}
	x.mu.Unlock()
	return x.ResponseText()
}

func (x *xhr) SetTimeout(d time.Duration) {
	x.mu.Lock()
	x.timeout = d
	x.mu.Unlock()
}

func (x *xhr) OverrideMIMEType(m string) error {
	if _, _, err := mime.ParseMediaType(m); err != nil {
		return fmt.Errorf("invalid mime type %q: %w", m, err)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.sent {
		return fmt.Errorf("%w: mime type must be overridden before send", ErrInvalidState)
	}
	x.mimeOverride = m
	return nil
}

func (x *xhr) SetRequestHeader(key, value string) error {
	return x.setRequestHeader(key, value)
}

// xdr is a cross-domain request from an older generation: no ready-state
// events, no status code, no typed responses.
type xdr struct {
	*request
}

// NewXDR constructs a level 1 cross-domain handle.
func NewXDR(env *Environment) (Handle, error) {
	r := newRequest(env, evLoadStart|evProgress|evLoad|evError|evTimeout, true)
	r.statusless = true
	return &xdr{r}, nil
}

// legacy is the oldest request variant. It only reports ready-state changes
// and has no native timeout.
type legacy struct {
	*request
}

// NewLegacy constructs a level 1 handle.
func NewLegacy(env *Environment) (Handle, error) {
	return &legacy{newRequest(env, evReadyState, false)}, nil
}

func (l *legacy) SetRequestHeader(key, value string) error {
	return l.setRequestHeader(key, value)
}

// ResponseXML returns the raw body when the response declares an XML media type.
func (l *legacy) ResponseXML() (any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Done || !l.succeeded {
		return nil, nil
	}
	mt, _, _ := mime.ParseMediaType(l.contentType)
	if mt != "text/xml" && mt != "application/xml" && !strings.HasSuffix(mt, "+xml") {
		return nil, fmt.Errorf("%w: response is not xml (%s)", ErrInvalidState, mt)
	}
	return bytes.Clone(l.body), nil
}

func (r *request) setRequestHeader(key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Opened || r.sent {
		return fmt.Errorf("%w: headers must be set on an opened request", ErrInvalidState)
	}
	r.header.Set(key, value)
	return nil
}
