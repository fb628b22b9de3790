package vfs

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/filecrate/filecrate/internal/errs"
)

// Resource keys are reduced to this alphabet; everything else becomes '_'.
var keyIllegalChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// SanitizeKey maps an untrusted resource key to a safe directory name.
// An empty or whitespace-only key yields a generated unique fallback, so
// repeated calls with a usable key are idempotent but empty keys are not.
func SanitizeKey(key string) string {
	sanitized := keyIllegalChars.ReplaceAllString(strings.TrimSpace(key), "_")
	if sanitized == "" {
		return "res_" + uuid.NewString()
	}
	return sanitized
}

// resolveRoot maps a resource key to its absolute root directory, creating
// it on first access.
func (s *Store) resolveRoot(key string) (string, string, error) {
	sanitized := SanitizeKey(key)
	root := filepath.Join(s.basePath, sanitized)
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", "", errs.Wrap(errs.KindIO, "create resource root "+sanitized, err)
	}
	return root, sanitized, nil
}

// normalizePath validates and canonicalizes a caller-supplied relative path.
// The result uses forward slashes with no leading or trailing slash; the
// empty string denotes the resource root. The traversal check is textual:
// any ".." substring in the normalized path is rejected before touching
// the filesystem. Symlinks inside a resource root are not resolved, which
// is a known limitation of this scheme.
func normalizePath(path string, required bool) (string, error) {
	p := strings.TrimSpace(path)
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.Trim(p, "/")

	if p == "" {
		if required {
			return "", errs.New(errs.KindInvalidArgument, "path is required")
		}
		return "", nil
	}
	if strings.Contains(p, "..") {
		return "", errs.New(errs.KindAccessDenied, "path traversal rejected: "+path)
	}
	return p, nil
}

// absPath joins a resource root with a normalized relative path.
func absPath(root, rel string) string {
	if rel == "" {
		return root
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}
