package transport

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"regexp"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/net/html/charset"
)

const acceptEncoding = "zstd, gzip"

// decodeContent undoes the Content-Encoding applied by the server.
func decodeContent(encoding string, body []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("failed to decode gzip body: %w", err)
		}
		return out, nil
	case "zstd":
		zr, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		out, err := zr.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decode zstd body: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding: %s", encoding)
	}
}

// xmlEncoding matches the encoding named in an XML declaration.
var xmlEncoding = regexp.MustCompile(`^\s*<\?xml[^>]*\sencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

// decodeText converts body to a string using the charset declared in
// contentType, or else the encoding named in an XML declaration. An
// overridden MIME type keeps the bytes untouched.
func decodeText(body []byte, contentType, override string) (string, error) {
	if override != "" {
		return string(body), nil
	}
	label := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		label = params["charset"]
	}
	sniffed := false
	if label == "" {
		label, sniffed = sniffXMLEncoding(body), true
	}
	if label == "" {
		return string(body), nil
	}
	enc, name := charset.Lookup(label)
	if enc == nil {
		if sniffed {
			return string(body), nil
		}
		return "", fmt.Errorf("unsupported charset %q", label)
	}
	if name == "utf-8" {
		return string(body), nil
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("decoding %s text: %w", name, err)
	}
	return string(out), nil
}

// sniffXMLEncoding returns the encoding label of an XML declaration at the
// start of body, or "".
func sniffXMLEncoding(body []byte) string {
	head := body[:min(len(body), 256)]
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	if m := xmlEncoding.FindSubmatch(head); m != nil {
		return string(m[1])
	}
	return ""
}
