package vfs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/filecrate/filecrate/internal/errs"
)

// Characters that cannot appear in a filesystem entry name, plus control
// characters, all replaced with '_'.
var nameIllegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// Bail out of candidate loops eventually instead of spinning forever on a
// pathological directory.
const maxNameAttempts = 10000

// sanitizeName maps an untrusted entry name to a safe one. If nothing
// usable remains, fallback is substituted.
func sanitizeName(name, fallback string) string {
	sanitized := strings.TrimSpace(nameIllegalChars.ReplaceAllString(name, "_"))
	if sanitized == "" || sanitized == "." || sanitized == ".." {
		return fallback
	}
	return sanitized
}

// splitExt splits a name into base and extension. Names without a dot
// come back with an empty extension.
func splitExt(name string) (base, ext string) {
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// counterName produces the n-th collision candidate for desired:
// "photo.jpg" -> "photo (1).jpg" -> "photo (2).jpg" ...
func counterName(desired string, n int) string {
	if n == 0 {
		return desired
	}
	base, ext := splitExt(desired)
	return base + " (" + strconv.Itoa(n) + ")" + ext
}

// createUniqueFile creates a new file in dir under the desired name, or the
// first free counter variant of it. Creation is exclusive, so two concurrent
// callers racing for the same name get distinct files instead of one
// clobbering the other.
func createUniqueFile(dir, desired string) (*os.File, string, error) {
	for n := 0; n < maxNameAttempts; n++ {
		name := counterName(desired, n)
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, name, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return nil, "", errs.Wrap(errs.KindIO, "create file "+name, err)
	}
	return nil, "", errs.New(errs.KindIO, "no free name for "+desired)
}

// createUniqueDir creates a new directory in dir under the desired name or
// the first free counter variant, using the same exclusive-create scheme.
func createUniqueDir(dir, desired string) (string, error) {
	for n := 0; n < maxNameAttempts; n++ {
		name := counterName(desired, n)
		err := os.Mkdir(filepath.Join(dir, name), 0755)
		if err == nil {
			return name, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", errs.Wrap(errs.KindIO, "create directory "+name, err)
	}
	return "", errs.New(errs.KindIO, "no free name for "+desired)
}

// freeName returns desired or its first counter variant that does not
// collide with an existing entry in dir. Unlike the create helpers this is
// a check, not a reservation; rename-based callers accept the window.
func freeName(dir, desired string) (string, error) {
	for n := 0; n < maxNameAttempts; n++ {
		name := counterName(desired, n)
		_, err := os.Lstat(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			return name, nil
		}
		if err != nil {
			return "", errs.Wrap(errs.KindIO, "stat "+name, err)
		}
	}
	return "", errs.New(errs.KindIO, "no free name for "+desired)
}
