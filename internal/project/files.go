package project

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// skipDirs are never descended into by the listing helpers.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// ListOptions filters ListFiles.
type ListOptions struct {
	MaxDepth int
	// Pattern matches the root-relative slash path.
	Pattern *regexp.Regexp
	// Glob is a doublestar pattern matched against the root-relative
	// slash path.
	Glob     string
	DirsOnly bool
}

// Entry is one listed file or directory.
type Entry struct {
	Name string `json:"name"`
	Dir  bool   `json:"dir"`
	Size int64  `json:"size"`
}

// ListFiles walks dir (already resolved under root) down to MaxDepth
// levels and returns matching entries with root-relative names.
func ListFiles(root, dir string, opts ListOptions) ([]Entry, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 1
	}
	if opts.Glob != "" && !doublestar.ValidatePattern(opts.Glob) {
		return nil, fmt.Errorf("invalid glob %q", opts.Glob)
	}
	items := []Entry{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if path == dir {
			return nil
		}
		depth := strings.Count(Rel(dir, path), "/") + 1
		if d.IsDir() && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if depth > opts.MaxDepth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if opts.DirsOnly && !d.IsDir() {
			return nil
		}
		name := Rel(root, path)
		if opts.Pattern != nil && !opts.Pattern.MatchString(name) {
			return nil
		}
		if opts.Glob != "" && !doublestar.MatchUnvalidated(opts.Glob, name) {
			return nil
		}
		e := Entry{Name: name, Dir: d.IsDir()}
		if !e.Dir {
			if info, err := d.Info(); err == nil {
				e.Size = info.Size()
			}
		}
		items = append(items, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	return items, nil
}

// FileInfo is one file in a project summary.
type FileInfo struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Files lists every regular file under root, sorted by path.
func Files(root string) ([]FileInfo, error) {
	files := []FileInfo{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		files = append(files, FileInfo{Path: Rel(root, path), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
