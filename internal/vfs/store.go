// Package vfs implements a sandboxed, multi-tenant virtual file store.
//
// Every operation takes a resource key selecting a per-tenant root directory
// under the base path, and a forward-slash relative path confined to that
// root. The filesystem itself is the source of truth: nothing is indexed or
// cached, and the on-disk layout mirrors the logical tree 1:1.
package vfs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/filecrate/filecrate/internal/errs"
	"github.com/filecrate/filecrate/internal/icons"
)

const (
	defaultFileName     = "item"
	defaultFolderName   = "New Folder"
	defaultShortcutName = "New URL"
)

// Store is the virtual file store. Safe for concurrent use; operations on
// distinct paths never interfere, and name allocation is create-exclusive.
type Store struct {
	basePath      string
	icons         *icons.Set
	maxUploadSize int64
}

// New creates a Store rooted at basePath, creating it if absent.
func New(basePath string, iconSet *icons.Set, maxUploadSize int64) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}
	if maxUploadSize <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	if iconSet == nil {
		iconSet = icons.Defaults()
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create base path %s: %w", basePath, err)
	}
	return &Store{
		basePath:      basePath,
		icons:         iconSet,
		maxUploadSize: maxUploadSize,
	}, nil
}

// MaxUploadSize returns the per-file upload cap in bytes.
func (s *Store) MaxUploadSize() int64 { return s.maxUploadSize }

// ListResult is the outcome of a List call.
type ListResult struct {
	CurrentPath string `json:"currentPath"`
	Items       []Item `json:"items"`
}

// List enumerates the directory at path within the resource, folders before
// files, each group ordered case-insensitively by name. Listing the trash
// area creates it on demand; any other missing directory is NotFound.
func (s *Store) List(_ context.Context, key, path string) (*ListResult, error) {
	root, _, err := s.resolveRoot(key)
	if err != nil {
		return nil, err
	}
	rel, err := normalizePath(path, false)
	if err != nil {
		return nil, err
	}
	dir := absPath(root, rel)

	info, statErr := os.Stat(dir)
	if statErr != nil {
		if !errors.Is(statErr, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.KindIO, "stat "+rel, statErr)
		}
		if !isTrashPath(rel) {
			return nil, errs.New(errs.KindNotFound, "directory does not exist: "+rel)
		}
		// The trash area is always listable
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errs.Wrap(errs.KindIO, "create trash "+rel, err)
		}
	} else if !info.IsDir() {
		return nil, errs.New(errs.KindNotFound, "not a directory: "+rel)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "read directory "+rel, err)
	}

	var dirs, files []string
	for _, entry := range entries {
		if rel == "" && entry.Name() == TrashDirName {
			continue
		}
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		} else {
			files = append(files, entry.Name())
		}
	}
	sortCaseInsensitive(dirs)
	sortCaseInsensitive(files)

	items := make([]Item, 0, len(dirs)+len(files))
	for _, name := range dirs {
		items = append(items, s.projectItem(rel, name, true))
	}
	for _, name := range files {
		items = append(items, s.projectItem(rel, name, false))
	}

	return &ListResult{CurrentPath: rel, Items: items}, nil
}

func sortCaseInsensitive(names []string) {
	sort.Slice(names, func(i, j int) bool {
		li, lj := strings.ToLower(names[i]), strings.ToLower(names[j])
		if li == lj {
			return names[i] < names[j]
		}
		return li < lj
	})
}

// UploadFile is one incoming file: a stream plus its declared length.
// Size < 0 means the length is unknown and is enforced while copying.
type UploadFile struct {
	Name    string
	Size    int64
	Content io.Reader
}

// Upload streams the given files into the directory at path, creating it if
// absent. Zero-length files are skipped. A file whose declared size exceeds
// the cap fails the whole call before anything is written; a stream that
// turns out oversized mid-copy fails the call and the partial file is
// removed. Cancellation likewise removes the partial destination file.
func (s *Store) Upload(ctx context.Context, key, path string, files []UploadFile) ([]Item, error) {
	if len(files) == 0 {
		return nil, errs.New(errs.KindInvalidArgument, "no files to upload")
	}

	root, _, err := s.resolveRoot(key)
	if err != nil {
		return nil, err
	}
	rel, err := normalizePath(path, false)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if f.Size > s.maxUploadSize {
			return nil, errs.Errorf(errs.KindPayloadTooLarge,
				"file %s exceeds the %d byte limit", f.Name, s.maxUploadSize)
		}
	}

	dir := absPath(root, rel)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Wrap(errs.KindIO, "create directory "+rel, err)
	}

	var items []Item
	for _, f := range files {
		if f.Size == 0 {
			continue
		}

		name := sanitizeName(f.Name, defaultFileName)
		written, finalName, err := s.writeFile(ctx, dir, name, f.Content)
		if err != nil {
			return nil, err
		}
		if written == 0 {
			// Stream of unknown length that turned out empty
			os.Remove(filepath.Join(dir, finalName))
			continue
		}
		items = append(items, s.projectItem(rel, finalName, false))
	}
	return items, nil
}

// writeFile streams content into a freshly created, uniquely named file.
// The partial file is deleted on any failure, including cancellation.
func (s *Store) writeFile(ctx context.Context, dir, name string, content io.Reader) (int64, string, error) {
	dst, finalName, err := createUniqueFile(dir, name)
	if err != nil {
		return 0, "", err
	}
	target := filepath.Join(dir, finalName)

	w := bufio.NewWriter(dst)
	written, copyErr := copyWithContext(ctx, w, io.LimitReader(content, s.maxUploadSize+1))
	if copyErr == nil {
		copyErr = w.Flush()
	}
	if closeErr := dst.Close(); copyErr == nil {
		copyErr = closeErr
	}

	if copyErr == nil && written > s.maxUploadSize {
		copyErr = errs.Errorf(errs.KindPayloadTooLarge,
			"file %s exceeds the %d byte limit", name, s.maxUploadSize)
	}
	if copyErr != nil {
		os.Remove(target)
		var e *errs.Error
		if errors.As(copyErr, &e) {
			return 0, "", copyErr
		}
		return 0, "", errs.Wrap(errs.KindIO, "write "+finalName, copyErr)
	}
	return written, finalName, nil
}

// copyWithContext copies src to dst, aborting between chunks once ctx is
// cancelled.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, werr
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

// Download opens the file at path for sequential reading and reports its
// content type and display name. A missing or non-regular target is
// NotFound.
func (s *Store) Download(_ context.Context, key, path string) (io.ReadCloser, string, string, error) {
	root, _, err := s.resolveRoot(key)
	if err != nil {
		return nil, "", "", err
	}
	rel, err := normalizePath(path, true)
	if err != nil {
		return nil, "", "", err
	}
	target := absPath(root, rel)

	info, statErr := os.Stat(target)
	if statErr != nil || info.IsDir() {
		return nil, "", "", errs.New(errs.KindNotFound, "file does not exist: "+rel)
	}

	f, err := os.Open(target)
	if err != nil {
		return nil, "", "", errs.Wrap(errs.KindIO, "open "+rel, err)
	}

	name := filepath.Base(target)
	contentType := s.icons.ContentType(filepath.Ext(name))
	return f, contentType, name, nil
}

// CreateFolder creates a new folder with a sanitized, collision-free name
// inside the directory at path and returns its projection.
func (s *Store) CreateFolder(_ context.Context, key, path, name string) (*Item, error) {
	root, _, err := s.resolveRoot(key)
	if err != nil {
		return nil, err
	}
	rel, err := normalizePath(path, false)
	if err != nil {
		return nil, err
	}
	dir := absPath(root, rel)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Wrap(errs.KindIO, "create directory "+rel, err)
	}

	desired := sanitizeName(name, defaultFolderName)
	finalName, err := createUniqueDir(dir, desired)
	if err != nil {
		return nil, err
	}

	item := s.projectItem(rel, finalName, true)
	return &item, nil
}

// CreateShortcut creates a .url shortcut file pointing at url inside the
// directory at path and returns its projection.
func (s *Store) CreateShortcut(_ context.Context, key, path, name, url string) (*Item, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errs.New(errs.KindInvalidArgument, "url is required")
	}

	root, _, err := s.resolveRoot(key)
	if err != nil {
		return nil, err
	}
	rel, err := normalizePath(path, false)
	if err != nil {
		return nil, err
	}
	dir := absPath(root, rel)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Wrap(errs.KindIO, "create directory "+rel, err)
	}

	desired := sanitizeName(name, defaultShortcutName)
	if !IsShortcutName(desired) {
		desired += ShortcutExt
	}

	f, finalName, err := createUniqueFile(dir, desired)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(f, "[InternetShortcut]\nURL=%s\n", url); err != nil {
		f.Close()
		os.Remove(filepath.Join(dir, finalName))
		return nil, errs.Wrap(errs.KindIO, "write shortcut "+finalName, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(filepath.Join(dir, finalName))
		return nil, errs.Wrap(errs.KindIO, "close shortcut "+finalName, err)
	}

	item := s.projectItem(rel, finalName, false)
	return &item, nil
}

// Delete permanently removes the file or directory at path. Directories are
// removed recursively. A missing target is NotFound.
func (s *Store) Delete(_ context.Context, key, path string) error {
	root, _, err := s.resolveRoot(key)
	if err != nil {
		return err
	}
	rel, err := normalizePath(path, true)
	if err != nil {
		return err
	}
	target := absPath(root, rel)

	info, statErr := os.Stat(target)
	if statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return errs.New(errs.KindNotFound, "path does not exist: "+rel)
		}
		return errs.Wrap(errs.KindIO, "stat "+rel, statErr)
	}

	if info.IsDir() {
		if err := os.RemoveAll(target); err != nil {
			return errs.Wrap(errs.KindIO, "delete directory "+rel, err)
		}
		return nil
	}
	if err := os.Remove(target); err != nil {
		return errs.Wrap(errs.KindIO, "delete file "+rel, err)
	}
	return nil
}
