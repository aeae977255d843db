package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
)

// uriToPath maps a file:// URI (or a bare path) to an absolute filesystem
// path. Non-file schemes yield an empty string.
func uriToPath(uri string) string {
	if uri == "" {
		return ""
	}

	path := uri
	if strings.Contains(uri, "://") || strings.HasPrefix(uri, "file:") {
		parsed, err := url.Parse(uri)
		if err != nil || parsed.Scheme != "file" {
			return ""
		}
		path = parsed.Path
	}
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	path = filepath.FromSlash(path)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path
}

func pathToURI(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// canonicalURI collapses the different spellings clients use for the same
// document into one key.
func canonicalURI(uri string) string {
	path := uriToPath(uri)
	if path == "" {
		return ""
	}
	return pathToURI(path)
}
