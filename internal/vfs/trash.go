package vfs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/filecrate/filecrate/internal/errs"
	"github.com/filecrate/filecrate/internal/logging"
)

// TrashDirName is the soft-delete area inside every resource root.
const TrashDirName = ".trash"

// trashTimeLayout renders the timestamp prefix: 8 digits, underscore,
// 6 digits. trashPrefixRe is its decode counterpart and must only ever
// match at the start of a stored name.
const trashTimeLayout = "20060102_150405"

var trashPrefixRe = regexp.MustCompile(`^\d{8}_\d{6}_`)

// trashName encodes the stored name of a trashed entry.
func trashName(original string, now time.Time) string {
	return now.Format(trashTimeLayout) + "_" + original
}

// restoredName decodes the original name from a stored trash name by
// stripping one timestamp prefix. A name without the prefix is returned
// unchanged: the entry is still restorable, only its original name is lost.
func restoredName(stored string) string {
	if m := trashPrefixRe.FindString(stored); m != "" {
		stored = stored[len(m):]
	}
	if stored == "" {
		return defaultFileName
	}
	return stored
}

// trashCounterName produces the n-th collision candidate for a stored trash
// name, keeping the timestamp prefix intact: "20240101_120000_a.txt" ->
// "20240101_120000_a_1.txt".
func trashCounterName(stored string, n int) string {
	if n == 0 {
		return stored
	}
	base, ext := splitExt(stored)
	return base + "_" + strconv.Itoa(n) + ext
}

func isTrashPath(rel string) bool {
	return rel == TrashDirName || strings.HasPrefix(rel, TrashDirName+"/")
}

// MoveToTrash moves the file or directory at path into the resource's trash
// area under a timestamp-prefixed name. The move is a single rename; the
// trash shares the resource root's volume.
func (s *Store) MoveToTrash(_ context.Context, key, path string) error {
	root, _, err := s.resolveRoot(key)
	if err != nil {
		return err
	}
	rel, err := normalizePath(path, true)
	if err != nil {
		return err
	}
	if isTrashPath(rel) {
		return errs.New(errs.KindInvalidOperation, "already in trash: "+rel)
	}
	src := absPath(root, rel)

	if _, statErr := os.Lstat(src); statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return errs.New(errs.KindNotFound, "path does not exist: "+rel)
		}
		return errs.Wrap(errs.KindIO, "stat "+rel, statErr)
	}

	trashDir := filepath.Join(root, TrashDirName)
	if err := os.MkdirAll(trashDir, 0755); err != nil {
		return errs.Wrap(errs.KindIO, "create trash", err)
	}

	stored := trashName(filepath.Base(src), time.Now())
	for n := 0; n < maxNameAttempts; n++ {
		candidate := trashCounterName(stored, n)
		dst := filepath.Join(trashDir, candidate)
		if _, statErr := os.Lstat(dst); statErr == nil {
			continue
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			return errs.Wrap(errs.KindIO, "stat trash entry "+candidate, statErr)
		}
		if err := os.Rename(src, dst); err != nil {
			return errs.Wrap(errs.KindIO, "move to trash "+rel, err)
		}
		return nil
	}
	return errs.New(errs.KindIO, "no free trash name for "+stored)
}

// RestoreFromTrash moves a trash entry back to the resource root under its
// recovered original name, or the first free counter variant of it. The
// path must name an entry inside the trash area; restoring the trash root
// itself is invalid. Failures during the move are logged and re-raised.
func (s *Store) RestoreFromTrash(_ context.Context, key, path string) error {
	root, sanitizedKey, err := s.resolveRoot(key)
	if err != nil {
		return err
	}
	rel, err := normalizePath(path, true)
	if err != nil {
		return err
	}
	if rel == TrashDirName {
		return errs.New(errs.KindInvalidOperation, "cannot restore the trash itself")
	}
	if !strings.HasPrefix(rel, TrashDirName+"/") {
		return errs.New(errs.KindInvalidOperation, "not a trash path: "+rel)
	}
	src := absPath(root, rel)

	if _, statErr := os.Lstat(src); statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return errs.New(errs.KindNotFound, "trash entry does not exist: "+rel)
		}
		return errs.Wrap(errs.KindIO, "stat "+rel, statErr)
	}

	original := restoredName(filepath.Base(src))
	finalName, err := freeName(root, original)
	if err != nil {
		return err
	}

	if err := os.Rename(src, filepath.Join(root, finalName)); err != nil {
		logging.Error("restore from trash failed",
			zap.String("resource", sanitizedKey),
			zap.String("entry", rel),
			zap.Error(err))
		return errs.Wrap(errs.KindIO, "restore "+rel, err)
	}
	return nil
}
