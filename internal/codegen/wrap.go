package codegen

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// WrappedMarker identifies files that already carry the registration guard.
const WrappedMarker = "Safe AFRAME registration"

// WrapStatus reports what WrapSource did.
type WrapStatus string

const (
	StatusWrapped        WrapStatus = "wrapped"
	StatusAlreadyWrapped WrapStatus = "already wrapped"
	StatusNoRegistration WrapStatus = "no AFRAME.register found"
	StatusUnterminated   WrapStatus = "end of AFRAME.register not found"
)

// Wrapper places registration code inside the guard.
type Wrapper interface {
	Wrap(body string) (string, error)
}

var registerLine = regexp.MustCompile(`^AFRAME\.register`)

// WrapSource wraps every top-level AFRAME.register* call in src. Lines
// before the first call (usually comments) stay in front of the guard;
// lines after the last call stay after it.
func WrapSource(w Wrapper, src string) (string, WrapStatus, error) {
	if strings.Contains(src, WrappedMarker) {
		return src, StatusAlreadyWrapped, nil
	}
	lines := strings.Split(src, "\n")

	first, last := -1, -1
	inRegister, depth := false, 0
	for i, line := range lines {
		if registerLine.MatchString(line) {
			if first < 0 {
				first = i
			}
			inRegister, depth = true, 0
		}
		if !inRegister {
			continue
		}
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth == 0 && strings.Contains(line, ");") {
			last = i
			inRegister = false
		}
	}
	if first < 0 {
		return src, StatusNoRegistration, nil
	}
	if last < 0 {
		return src, StatusUnterminated, nil
	}

	wrapped, err := w.Wrap(strings.Join(lines[first:last+1], "\n"))
	if err != nil {
		return "", "", err
	}
	var b strings.Builder
	if first > 0 {
		b.WriteString(strings.Join(lines[:first], "\n"))
		b.WriteString("\n")
	}
	b.WriteString(wrapped)
	if rest := strings.Join(lines[last+1:], "\n"); strings.TrimSpace(rest) != "" {
		b.WriteString(rest)
	}
	return b.String(), StatusWrapped, nil
}

// FileReport is the per-file outcome of WrapDir.
type FileReport struct {
	File   string     `json:"file"`
	Status WrapStatus `json:"status"`
}

// WrapDir applies WrapSource to every .js file in dir, rewriting the ones
// that changed.
func WrapDir(w Wrapper, dir string) ([]FileReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".js") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	reports := make([]FileReport, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		src, err := os.ReadFile(path)
		if err != nil {
			return reports, fmt.Errorf("reading %s: %w", path, err)
		}
		out, status, err := WrapSource(w, string(src))
		if err != nil {
			return reports, fmt.Errorf("wrapping %s: %w", name, err)
		}
		if status == StatusWrapped {
			if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
				return reports, fmt.Errorf("writing %s: %w", path, err)
			}
		}
		reports = append(reports, FileReport{File: name, Status: status})
	}
	return reports, nil
}
