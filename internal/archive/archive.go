// Package archive exports project directories to zip files and extracts
// downloaded asset archives.
package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// skipDirs are never exported.
var skipDirs = map[string]bool{".git": true, "node_modules": true}

// Result describes a finished export.
type Result struct {
	Archive string `json:"archive"`
	Files   int    `json:"files"`
	Bytes   int64  `json:"bytes"`
}

// Export writes every file under root into a deflate-compressed zip at out.
// Entries use forward slashes relative to root. The archive itself is
// skipped when out lives inside root.
func Export(root, out string) (res Result, err error) {
	absOut, err := filepath.Abs(out)
	if err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absOut), 0o755); err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	tmp := absOut + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	zw := zip.NewWriter(f)
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if d.IsDir() {
			if p != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		abs, _ := filepath.Abs(p)
		if abs == absOut || abs == tmp || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		n, err := addFile(zw, p, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		res.Files++
		res.Bytes += n
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	if err = zw.Close(); err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	if err = f.Close(); err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	if err = os.Rename(tmp, absOut); err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	res.Archive = absOut
	return res, nil
}

func addFile(zw *zip.Writer, path, name string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return 0, err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return 0, err
	}
	src, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return io.Copy(w, src)
}

// Extracted lists what Unzip wrote and which entries it refused.
type Extracted struct {
	Files   []string `json:"files"`
	Skipped []string `json:"skipped,omitempty"`
}

// Unzip extracts zipPath into destDir, preserving directory structure and
// overwriting existing files. Entries that would land outside destDir are
// skipped and reported.
func Unzip(zipPath, destDir string) (*Extracted, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("unzip: %w", err)
	}
	defer r.Close()
	absDir, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("unzip: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return nil, fmt.Errorf("unzip: %w", err)
	}
	out := &Extracted{}
	for _, f := range r.File {
		dest := filepath.Join(absDir, filepath.FromSlash(f.Name))
		if dest != absDir && !strings.HasPrefix(dest, absDir+string(os.PathSeparator)) || filepath.IsAbs(f.Name) {
			out.Skipped = append(out.Skipped, f.Name)
			continue
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return nil, fmt.Errorf("unzip: %w", err)
			}
			continue
		}
		if err := extractFile(f, dest); err != nil {
			return nil, fmt.Errorf("unzip %s: %w", f.Name, err)
		}
		out.Files = append(out.Files, dest)
	}
	return out, nil
}

func extractFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	w, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, rc); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
