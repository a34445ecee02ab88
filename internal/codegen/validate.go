// Package codegen checks, wraps and generates the JavaScript the server
// writes into projects, and turns free-form experience descriptions into
// build plans.
package codegen

import (
	"fmt"
	"strings"
)

// Result is the outcome of a validation pass.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func result(errs []string) Result {
	if errs == nil {
		errs = []string{}
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

// undefinedAPIs are identifiers that look like 8th Wall APIs but are not.
var undefinedAPIs = []string{"XR9", "XR7", "unknownAPI"}

// ValidateJavaScript runs cheap textual checks: balanced braces and
// parentheses, no eval or Function constructor, and no known-bogus APIs.
// It is not a parser.
func ValidateJavaScript(code string) Result {
	var errs []string
	if o, c := strings.Count(code, "{"), strings.Count(code, "}"); o != c {
		errs = append(errs, fmt.Sprintf("Syntax error: Mismatched braces (%d open, %d close)", o, c))
	}
	if o, c := strings.Count(code, "("), strings.Count(code, ")"); o != c {
		errs = append(errs, fmt.Sprintf("Syntax error: Mismatched parentheses (%d open, %d close)", o, c))
	}
	if strings.Contains(code, "eval(") {
		errs = append(errs, "Security: eval() is not allowed")
	}
	if strings.Contains(code, "Function(") {
		errs = append(errs, "Security: Function constructor is not allowed")
	}
	for _, api := range undefinedAPIs {
		if strings.Contains(code, api) {
			errs = append(errs, "Warning: Potentially undefined API: "+api)
		}
	}
	return result(errs)
}

// ValidateComponent checks code meant for desktop_add_custom_component.
func ValidateComponent(code string) Result {
	var errs []string
	if !strings.Contains(code, "AFRAME.registerComponent") {
		errs = append(errs, "Component must use AFRAME.registerComponent()")
	}
	if strings.Count(code, "{") != strings.Count(code, "}") {
		errs = append(errs, "Mismatched braces - check syntax")
	}
	if strings.Count(code, "(") != strings.Count(code, ")") {
		errs = append(errs, "Mismatched parentheses - check syntax")
	}
	return result(errs)
}
