package loader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"preload/pkg/common"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		in   string
		want *URIParts
	}{
		{
			in: "http://www.example.com/path/to/file.png?x=1",
			want: &URIParts{
				Protocol:  "http://",
				Domain:    "www.example.com",
				Path:      "/path/to/",
				Filename:  "file",
				Extension: "png",
				Query:     "?x=1",
			},
		},
		{
			in: "http://cdn.example.com/app.js",
			want: &URIParts{
				Protocol:  "http://",
				Domain:    "cdn.example.com",
				Path:      "/",
				Filename:  "app",
				Extension: "js",
			},
		},
		{
			in:   "img/logo.svg",
			want: &URIParts{Path: "img/", Filename: "logo", Extension: "svg"},
		},
		{
			in:   "style.css",
			want: &URIParts{Filename: "style", Extension: "css"},
		},
		{in: "", want: nil},
		{in: "noextension", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, ParseURI(tt.in))
		})
	}
}

func TestInferType(t *testing.T) {
	tests := map[string]common.ItemType{
		"http://cdn.example.com/img/logo.PNG?v=2": common.TypeImage,
		"/static/app.js":                          common.TypeJavaScript,
		"site.css":                                common.TypeCSS,
		"icons/arrow.svg":                         common.TypeSVG,
		"data/feed.xml":                           common.TypeXML,
		"api/config.json":                         common.TypeJSON,
		"notes.md":                                common.TypeText,
		"":                                        common.TypeText,
		"noextension":                             common.TypeText,
	}
	for src, want := range tests {
		require.Equal(t, want, InferType(src), src)
	}
}
