// Package webscene edits the web entry points of a scaffolded project:
// A-Frame markup in index.html and Three.js code in main.js.
//
// All functions are pure text transforms; callers own the file I/O.
package webscene

import (
	"regexp"
	"strconv"
	"strings"
)

// Engine is the rendering library a project's index.html loads.
type Engine int

const (
	EngineUnknown Engine = iota
	EngineAFrame
	EngineThree
)

func (e Engine) String() string {
	switch e {
	case EngineAFrame:
		return "aframe"
	case EngineThree:
		return "three"
	}
	return "unknown"
}

// MarshalText lets Engine render as its name in JSON results.
func (e Engine) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// DetectEngine inspects index.html.
func DetectEngine(html string) Engine {
	l := strings.ToLower(html)
	switch {
	case strings.Contains(l, "aframe.min.js"), strings.Contains(l, "<a-scene"):
		return EngineAFrame
	case strings.Contains(l, "three.module.js"), strings.Contains(l, "vrbutton.js"):
		return EngineThree
	}
	return EngineUnknown
}

var (
	sceneClose  = regexp.MustCompile(`(?i)</a-scene\s*>`)
	bodyClose   = regexp.MustCompile(`(?i)</body>`)
	sceneOpen   = regexp.MustCompile(`(?i)<a-scene([^>]*)>`)
	bgAttr      = regexp.MustCompile(`(?i)background="[^"]*"`)
	threeScene  = regexp.MustCompile(`const\s+scene\s*=\s*new\s+THREE\.Scene\s*\([^)]*\)\s*;?`)
	threeCamera = regexp.MustCompile(`(?m)const\s+camera\s*=\s*new\s+THREE\.PerspectiveCamera[\s\S]*?;\s*`)
	animLoop    = regexp.MustCompile(`(?m)renderer\.setAnimationLoop\s*\(\s*\(\)\s*=>\s*\{`)
	bgAssign    = regexp.MustCompile(`scene\.background\s*=`)
	bgColor     = regexp.MustCompile(`scene\.background\s*=\s*new\s+THREE\.Color\([^)]*\)\s*;?`)
)

// InjectEntity inserts markup before </a-scene>, or before </body> when
// the page has no scene element.
func InjectEntity(html, markup string) string {
	if loc := sceneClose.FindStringIndex(html); loc != nil {
		return html[:loc[0]] + "  " + markup + "\n</a-scene>" + html[loc[1]:]
	}
	if loc := bodyClose.FindStringIndex(html); loc != nil {
		return html[:loc[0]] + markup + "\n</body>" + html[loc[1]:]
	}
	return html
}

// SetAFrameBackground sets or replaces the background attribute of the
// first <a-scene>.
func SetAFrameBackground(html, color string) string {
	loc := sceneOpen.FindStringSubmatchIndex(html)
	if loc == nil {
		return html
	}
	tag := html[loc[0]:loc[1]]
	attr := `background="color: ` + color + `"`
	var repl string
	if bgAttr.MatchString(tag) {
		repl = bgAttr.ReplaceAllLiteralString(tag, attr)
	} else {
		repl = "<a-scene" + html[loc[2]:loc[3]] + " " + attr + ">"
	}
	return html[:loc[0]] + repl + html[loc[1]:]
}

// AddImport prepends an import line unless main.js already has it.
func AddImport(js, line string) (string, bool) {
	if strings.Contains(js, line) {
		return js, false
	}
	return line + "\n" + js, true
}

// InsertAfterScene places snippet right after the scene constructor, or
// appends it when there is none. The boolean reports whether the marker
// was found.
func InsertAfterScene(js, snippet string) (string, bool) {
	return insertAfter(js, threeScene, snippet)
}

// InsertAfterCamera is InsertAfterScene for the camera constructor.
func InsertAfterCamera(js, snippet string) (string, bool) {
	return insertAfter(js, threeCamera, snippet)
}

func insertAfter(js string, marker *regexp.Regexp, snippet string) (string, bool) {
	loc := marker.FindStringIndex(js)
	if loc == nil {
		return js + "\n" + snippet + "\n", false
	}
	return js[:loc[1]] + "\n" + snippet + "\n" + js[loc[1]:], true
}

// InjectIntoLoop prepends stmt to the body of the first
// renderer.setAnimationLoop(() => { ... }) callback.
func InjectIntoLoop(js, stmt string) (string, bool) {
	loc := animLoop.FindStringIndex(js)
	if loc == nil {
		return js, false
	}
	return js[:loc[1]] + stmt + "\n" + js[loc[1]:], true
}

// SetThreeBackground replaces existing scene.background color assignments
// or adds one after the scene constructor.
func SetThreeBackground(js, color string) string {
	stmt := "scene.background = new THREE.Color('" + color + "');"
	if bgAssign.MatchString(js) {
		return bgColor.ReplaceAllLiteralString(js, stmt)
	}
	out, _ := InsertAfterScene(js, stmt)
	return out
}

// Num formats a number the way JavaScript prints it in templates.
func Num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Join formats a vector as space separated numbers for A-Frame attributes.
func Join(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = Num(f)
	}
	return strings.Join(parts, " ")
}

// Vec fills a 3-vector from v, using def when v is too short.
func Vec(v []float64, def [3]float64) [3]float64 {
	if len(v) >= 3 {
		return [3]float64{v[0], v[1], v[2]}
	}
	return def
}
