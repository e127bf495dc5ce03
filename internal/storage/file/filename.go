package file

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// SecureFilename reduces a client-supplied name to a safe base name made of
// [A-Za-z0-9._-]. Directory parts and leading dots are dropped. An empty
// result becomes "file".
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	name = whitespace.ReplaceAllString(strings.TrimSpace(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")

	if name == "" {
		return "file"
	}

	return name
}

// BaseName returns name without its extension, sanitized.
func BaseName(name string) string {
	clean := SecureFilename(name)
	if ext := filepath.Ext(clean); ext != "" && ext != clean {
		clean = strings.TrimSuffix(clean, ext)
	}

	return clean
}
