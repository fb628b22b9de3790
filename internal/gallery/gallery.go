// Package gallery is a read-only browsing view over the file store: top
// level folders are years, their subfolders are categories, and files with
// image extensions are the displayable media. It is built entirely on
// vfs.Store.List and holds no state of its own.
package gallery

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/filecrate/filecrate/internal/errs"
	"github.com/filecrate/filecrate/internal/vfs"
)

var yearRe = regexp.MustCompile(`^\d{4}$`)

var imageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".bmp": {},
}

// IsImageName reports whether a file name has a displayable image extension.
func IsImageName(name string) bool {
	_, ok := imageExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Category is one album folder within a year.
type Category struct {
	Name   string     `json:"name"`
	Path   string     `json:"path"`
	Photos []vfs.Item `json:"photos"`
}

// Year groups the categories of one top-level year folder.
type Year struct {
	Name       string     `json:"name"`
	Categories []Category `json:"categories"`
}

// Service projects a resource's folder tree into years and categories.
type Service struct {
	store *vfs.Store
}

// New creates a gallery service over the given store.
func New(store *vfs.Store) *Service {
	return &Service{store: store}
}

// Years lists the year folders of a resource, most recent first.
func (g *Service) Years(ctx context.Context, key string) ([]string, error) {
	res, err := g.store.List(ctx, key, "")
	if err != nil {
		return nil, err
	}
	var years []string
	for _, item := range res.Items {
		if item.Kind == vfs.KindFolder && yearRe.MatchString(item.DisplayName) {
			years = append(years, item.DisplayName)
		}
	}
	// List returns ascending order; the gallery shows newest first.
	for i, j := 0, len(years)-1; i < j; i, j = i+1, j-1 {
		years[i], years[j] = years[j], years[i]
	}
	return years, nil
}

// Photos lists the image items directly inside one category folder.
func (g *Service) Photos(ctx context.Context, key, path string) ([]vfs.Item, error) {
	res, err := g.store.List(ctx, key, path)
	if err != nil {
		return nil, err
	}
	photos := []vfs.Item{}
	for _, item := range res.Items {
		if item.Kind == vfs.KindFile && IsImageName(item.DisplayName) {
			photos = append(photos, item)
		}
	}
	return photos, nil
}

// Browse builds the full year/category projection for a resource. A year or
// category folder that vanishes between listing calls is deliberately
// treated as empty: missing branches yield zero items here, in the
// presentation layer, never inside the store. Any error other than NotFound
// propagates.
func (g *Service) Browse(ctx context.Context, key string) ([]Year, error) {
	yearNames, err := g.Years(ctx, key)
	if err != nil {
		return nil, err
	}

	years := []Year{}
	for _, yearName := range yearNames {
		res, err := g.store.List(ctx, key, yearName)
		if err != nil {
			if errs.IsNotFound(err) {
				continue
			}
			return nil, err
		}

		year := Year{Name: yearName, Categories: []Category{}}
		for _, item := range res.Items {
			if item.Kind != vfs.KindFolder {
				continue
			}
			photos, err := g.Photos(ctx, key, item.RelativePath)
			if err != nil {
				if errs.IsNotFound(err) {
					continue
				}
				return nil, err
			}
			year.Categories = append(year.Categories, Category{
				Name:   item.DisplayName,
				Path:   item.RelativePath,
				Photos: photos,
			})
		}
		years = append(years, year)
	}
	return years, nil
}
