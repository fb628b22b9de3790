// Package icons holds the static extension lookup tables used to project
// directory entries: icon tokens for the UI and MIME types for downloads.
// The tables are immutable after load; the vfs store receives them at
// construction.
package icons

import (
	"fmt"
	"mime"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Set is a read-only icon and content-type lookup table.
type Set struct {
	Folder    string            `yaml:"folder"`
	Shortcut  string            `yaml:"shortcut"`
	Default   string            `yaml:"default"`
	ByExt     map[string]string `yaml:"by_extension"`
	MimeByExt map[string]string `yaml:"mime_by_extension"`
}

// Defaults returns the built-in icon set.
func Defaults() *Set {
	return &Set{
		Folder:   "folder",
		Shortcut: "link",
		Default:  "document",
		ByExt: map[string]string{
			".jpg":  "image",
			".jpeg": "image",
			".png":  "image",
			".gif":  "image",
			".webp": "image",
			".bmp":  "image",
			".mp4":  "video",
			".mov":  "video",
			".mp3":  "audio",
			".wav":  "audio",
			".pdf":  "pdf",
			".txt":  "text",
			".md":   "text",
			".zip":  "archive",
			".tar":  "archive",
			".gz":   "archive",
		},
		MimeByExt: map[string]string{},
	}
}

// Load reads a YAML icon table from path and merges it over the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (*Set, error) {
	set := Defaults()
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read icons file %s: %w", path, err)
	}

	var overlay Set
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse icons file %s: %w", path, err)
	}

	if overlay.Folder != "" {
		set.Folder = overlay.Folder
	}
	if overlay.Shortcut != "" {
		set.Shortcut = overlay.Shortcut
	}
	if overlay.Default != "" {
		set.Default = overlay.Default
	}
	for ext, icon := range overlay.ByExt {
		set.ByExt[normalizeExt(ext)] = icon
	}
	for ext, mt := range overlay.MimeByExt {
		set.MimeByExt[normalizeExt(ext)] = mt
	}
	return set, nil
}

// ForExtension returns the icon token for a file extension (with leading
// dot, any case), falling back to the default document icon.
func (s *Set) ForExtension(ext string) string {
	if icon, ok := s.ByExt[normalizeExt(ext)]; ok {
		return icon
	}
	return s.Default
}

// ContentType returns the MIME type for a file extension, consulting the
// configured table first, then the platform table, then the octet-stream
// fallback.
func (s *Set) ContentType(ext string) string {
	if mt, ok := s.MimeByExt[normalizeExt(ext)]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
