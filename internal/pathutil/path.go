// Package pathutil maps slash-separated entry names onto local paths.
package pathutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

// ErrEscapes is returned when a name would resolve outside its root.
var ErrEscapes = errors.New("path escapes destination")

// Normalize converts an entry name to fs.ValidPath form.
//
// It performs the following transformations:
//   - Converts backslashes to slashes: `a\b` → "a/b"
//   - Strips leading and trailing slashes: "/etc/nginx/" → "etc/nginx"
//   - Collapses consecutive slashes: "etc//nginx" → "etc/nginx"
//
// Dot and dot-dot elements are preserved so that Rel can reject them.
func Normalize(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	parts := strings.Split(name, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	return strings.Join(result, "/")
}

// Rel returns the local relative path for an entry name, or ErrEscapes if
// the normalized name is empty, contains "." or ".." elements, or is
// otherwise not a valid fs path.
func Rel(name string) (string, error) {
	n := Normalize(name)
	if n == "" || n == "." || !fs.ValidPath(n) {
		return "", ErrEscapes
	}
	local, err := filepath.Localize(n)
	if err != nil {
		return "", ErrEscapes
	}
	return local, nil
}
