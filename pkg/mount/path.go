package mount

import (
	"path"
	"strings"

	"github.com/peerdrive/peerdrive/pkg/store"
)

// Normalize canonicalizes a drive-relative path: slash-separated, no leading
// or trailing slash, "" meaning the drive root. Fails with InvalidPath for
// paths that escape the root or contain NUL bytes.
func Normalize(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", store.NewError(store.ErrInvalidPath, p, "path contains NUL byte")
	}

	cleaned := path.Clean(strings.Trim(p, "/"))
	if cleaned == "." {
		return "", nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", store.NewError(store.ErrInvalidPath, p, "path escapes drive root")
	}
	return cleaned, nil
}

// HasPathPrefix reports whether p equals prefix or lives beneath it.
// An empty prefix matches every path.
func HasPathPrefix(p, prefix string) bool {
	if prefix == "" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
