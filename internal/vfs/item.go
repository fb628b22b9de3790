package vfs

import (
	"path"
	"path/filepath"
	"strings"
)

// ItemKind classifies a projected directory entry.
type ItemKind string

const (
	KindFolder   ItemKind = "folder"
	KindFile     ItemKind = "file"
	KindShortcut ItemKind = "shortcut"
)

// ShortcutExt marks shortcut files.
const ShortcutExt = ".url"

// Item is the projection of one directory entry. It is recomputed on every
// listing; the filesystem entry is the source of truth.
type Item struct {
	Kind                        ItemKind `json:"kind"`
	DisplayName                 string   `json:"displayName"`
	DisplayNameWithoutExtension string   `json:"displayNameWithoutExtension"`
	// RelativePath is the full forward-slash path from the resource root,
	// directly reusable as the path argument of subsequent calls.
	RelativePath string `json:"relativePath"`
	Icon         string `json:"icon"`
}

// IsShortcutName reports whether a file name denotes a shortcut.
func IsShortcutName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ShortcutExt)
}

// projectItem builds the Item for an entry named name inside the directory
// at relative path relDir ("" for the resource root).
func (s *Store) projectItem(relDir, name string, isDir bool) Item {
	rel := name
	if relDir != "" {
		rel = path.Join(relDir, name)
	}

	base, ext := splitExt(name)

	item := Item{
		DisplayName:                 name,
		DisplayNameWithoutExtension: base,
		RelativePath:                rel,
	}

	switch {
	case isDir:
		item.Kind = KindFolder
		item.DisplayNameWithoutExtension = name
		item.Icon = s.icons.Folder
	case IsShortcutName(name):
		item.Kind = KindShortcut
		item.Icon = s.icons.Shortcut
	default:
		item.Kind = KindFile
		item.Icon = s.icons.ForExtension(ext)
	}
	return item
}
