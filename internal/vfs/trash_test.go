package vfs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/filecrate/filecrate/internal/errs"
)

func TestTrashNameCodec(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 30, 45, 0, time.UTC)

	stored := trashName("b.txt", now)
	if stored != "20240315_093045_b.txt" {
		t.Errorf("encode: got %q", stored)
	}
	if !trashPrefixRe.MatchString(stored) {
		t.Error("encoded name must match the prefix grammar")
	}
	if got := restoredName(stored); got != "b.txt" {
		t.Errorf("decode: got %q, want b.txt", got)
	}
}

func TestRestoredNameWithoutPrefixIsUnchanged(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain.txt", "plain.txt"},
		{"2024_note.txt", "2024_note.txt"},                        // too few digits
		{"202403150_093045_x", "202403150_093045_x"},              // nine digits
		{"x20240315_093045_y.txt", "x20240315_093045_y.txt"},      // prefix not at start
		{"20240315_093045_20240315_093045_a", "20240315_093045_a"}, // strip exactly one
		{"20240315_093045_", "item"},                              // nothing left after strip
	}
	for _, c := range cases {
		if got := restoredName(c.in); got != c.want {
			t.Errorf("restoredName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTrashCounterNamePreservesPrefix(t *testing.T) {
	stored := "20240315_093045_b.txt"
	got := trashCounterName(stored, 1)
	if got != "20240315_093045_b_1.txt" {
		t.Errorf("got %q", got)
	}
	if !trashPrefixRe.MatchString(got) {
		t.Error("counter variant must keep the timestamp prefix")
	}
	if trashCounterName(stored, 0) != stored {
		t.Error("zeroth candidate must be the stored name itself")
	}
}

func TestMoveToTrashAndRestoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	content := []byte("round trip payload")

	uploadOne(t, s, "k", "a", "b.txt", content)

	if err := s.MoveToTrash(ctx, "k", "a/b.txt"); err != nil {
		t.Fatalf("MoveToTrash failed: %v", err)
	}

	// Gone from its directory
	res, err := s.List(ctx, "k", "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 0 {
		t.Fatalf("file should be gone from its directory, got %d items", len(res.Items))
	}

	// Present in trash with the timestamp prefix
	trash, err := s.List(ctx, "k", TrashDirName)
	if err != nil {
		t.Fatal(err)
	}
	if len(trash.Items) != 1 {
		t.Fatalf("expected 1 trash entry, got %d", len(trash.Items))
	}
	stored := trash.Items[0].DisplayName
	if !trashPrefixRe.MatchString(stored) {
		t.Fatalf("trash entry %q lacks the timestamp prefix", stored)
	}
	if !strings.HasSuffix(stored, "_b.txt") {
		t.Fatalf("trash entry %q should end with the original name", stored)
	}

	if err := s.RestoreFromTrash(ctx, "k", trash.Items[0].RelativePath); err != nil {
		t.Fatalf("RestoreFromTrash failed: %v", err)
	}

	rc, _, _, err := s.Download(ctx, "k", "b.txt")
	if err != nil {
		t.Fatalf("restored file unreadable: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, content) {
		t.Error("restored content differs from the original")
	}
}

func TestMoveToTrashMissingIsNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.MoveToTrash(context.Background(), "k", "ghost.txt")
	if !errs.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestMoveToTrashDirectory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	uploadOne(t, s, "k", "album", "p.jpg", []byte("x"))

	if err := s.MoveToTrash(ctx, "k", "album"); err != nil {
		t.Fatalf("trashing a directory failed: %v", err)
	}

	trash, err := s.List(ctx, "k", TrashDirName)
	if err != nil {
		t.Fatal(err)
	}
	if len(trash.Items) != 1 || trash.Items[0].Kind != KindFolder {
		t.Fatalf("expected one trashed folder, got %+v", trash.Items)
	}

	if err := s.RestoreFromTrash(ctx, "k", trash.Items[0].RelativePath); err != nil {
		t.Fatalf("restoring a directory failed: %v", err)
	}
	if _, _, _, err := s.Download(ctx, "k", "album/p.jpg"); err != nil {
		t.Errorf("directory content lost through trash: %v", err)
	}
}

func TestMoveToTrashCollisionAppendsCounter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	trashDir := filepath.Join(s.basePath, "k", TrashDirName)

	// Occupy the zeroth candidate for every second the move could land in,
	// so the move must fall back to the _1 variant.
	if err := os.MkdirAll(trashDir, 0755); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	var occupied []string
	for d := -1 * time.Second; d <= 3*time.Second; d += time.Second {
		name := trashName("b.txt", now.Add(d))
		occupied = append(occupied, name)
		if err := os.WriteFile(filepath.Join(trashDir, name), []byte("old"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	uploadOne(t, s, "k", "", "b.txt", []byte("2"))
	if err := s.MoveToTrash(ctx, "k", "b.txt"); err != nil {
		t.Fatal(err)
	}

	trash, err := s.List(ctx, "k", TrashDirName)
	if err != nil {
		t.Fatal(err)
	}
	if len(trash.Items) != len(occupied)+1 {
		t.Fatalf("expected %d trash entries, got %d", len(occupied)+1, len(trash.Items))
	}
	found := false
	for _, item := range trash.Items {
		if strings.HasSuffix(item.DisplayName, "_b_1.txt") {
			if !trashPrefixRe.MatchString(item.DisplayName) {
				t.Errorf("collision entry %q lost its timestamp prefix", item.DisplayName)
			}
			found = true
		}
	}
	if !found {
		t.Errorf("expected a _1 collision entry among %+v", trash.Items)
	}
}

func TestRestoreCollisionLeavesExistingUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	uploadOne(t, s, "k", "", "b.txt", []byte("original"))
	if err := s.MoveToTrash(ctx, "k", "b.txt"); err != nil {
		t.Fatal(err)
	}
	uploadOne(t, s, "k", "", "b.txt", []byte("newer"))

	trash, err := s.List(ctx, "k", TrashDirName)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RestoreFromTrash(ctx, "k", trash.Items[0].RelativePath); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	rc, _, _, err := s.Download(ctx, "k", "b.txt")
	if err != nil {
		t.Fatal(err)
	}
	existing, _ := io.ReadAll(rc)
	rc.Close()
	if string(existing) != "newer" {
		t.Errorf("pre-existing file was touched: %q", existing)
	}

	rc, _, _, err = s.Download(ctx, "k", "b (1).txt")
	if err != nil {
		t.Fatalf("restored file should land at b (1).txt: %v", err)
	}
	restored, _ := io.ReadAll(rc)
	rc.Close()
	if string(restored) != "original" {
		t.Errorf("restored content mismatch: %q", restored)
	}
}

func TestRestoreUnprefixedEntryKeepsStoredName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	root := filepath.Join(s.basePath, "k")

	if err := os.MkdirAll(filepath.Join(root, TrashDirName), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, TrashDirName, "odd.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := s.RestoreFromTrash(ctx, "k", ".trash/odd.txt"); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if _, _, _, err := s.Download(ctx, "k", "odd.txt"); err != nil {
		t.Errorf("unprefixed entry should restore under its stored name: %v", err)
	}
}

func TestRestoreInvalidTargets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.RestoreFromTrash(ctx, "k", TrashDirName); !errs.IsInvalidOperation(err) {
		t.Errorf("restoring the trash root: expected InvalidOperation, got %v", err)
	}
	if err := s.RestoreFromTrash(ctx, "k", "live/file.txt"); !errs.IsInvalidOperation(err) {
		t.Errorf("non-trash path: expected InvalidOperation, got %v", err)
	}
	if err := s.RestoreFromTrash(ctx, "k", ".trash/ghost"); !errs.IsNotFound(err) {
		t.Errorf("missing entry: expected NotFound, got %v", err)
	}
}

func TestMoveToTrashRejectsTrashTargets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	uploadOne(t, s, "k", "", "a.txt", []byte("x"))
	if err := s.MoveToTrash(ctx, "k", "a.txt"); err != nil {
		t.Fatal(err)
	}
	trash, err := s.List(ctx, "k", TrashDirName)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.MoveToTrash(ctx, "k", TrashDirName); !errs.IsInvalidOperation(err) {
		t.Errorf("trash root: expected InvalidOperation, got %v", err)
	}
	if err := s.MoveToTrash(ctx, "k", trash.Items[0].RelativePath); !errs.IsInvalidOperation(err) {
		t.Errorf("trash entry: expected InvalidOperation, got %v", err)
	}
}
