package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FieldError names the argument that failed validation.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Msg)
}

// Compile builds a validator for a tool's input schema.
func Compile(name string, schema mcp.ToolInputSchema) (*jsonschema.Schema, error) {
	if schema.Type == "" {
		schema.Type = "object"
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("registry: encoding schema for %q: %w", name, err)
	}
	loaded, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("registry: decoding schema for %q: %w", name, err)
	}
	loc := "mem://tools/" + url.PathEscape(name) + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(loc, loaded); err != nil {
		return nil, fmt.Errorf("registry: schema for %q: %w", name, err)
	}
	compiled, err := c.Compile(loc)
	if err != nil {
		return nil, fmt.Errorf("registry: compiling schema for %q: %w", name, err)
	}
	return compiled, nil
}

// Validate compiles schema and checks args against it. See validate.
func Validate(schema mcp.ToolInputSchema, args map[string]any) (map[string]any, error) {
	compiled, err := Compile("tool", schema)
	if err != nil {
		return nil, err
	}
	return validate(compiled, schema, args)
}

// validate checks args and returns a copy with declared defaults filled
// in. Null arguments count as absent. Arguments the schema does not
// declare pass through. Go numbers are normalized to float64; *doc.Object
// values are kept so handlers see the caller's key order.
func validate(compiled *jsonschema.Schema, schema mcp.ToolInputSchema, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if v != nil {
			out[k] = normalize(v)
		}
	}

	instance, err := jsonInstance(out)
	if err != nil {
		return nil, err
	}
	if err := compiled.Validate(instance); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return nil, fieldError(verr)
		}
		return nil, err
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, present := out[name]; present {
			continue
		}
		prop, ok := schema.Properties[name].(map[string]any)
		if !ok {
			continue
		}
		if def, ok := prop["default"]; ok {
			out[name] = normalize(def)
		}
	}
	return out, nil
}

// jsonInstance re-reads args the way the validator expects them:
// numbers as json.Number, objects as map[string]any.
func jsonInstance(args map[string]any) (any, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, &FieldError{Msg: fmt.Sprintf("arguments are not valid JSON: %v", err)}
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}

// fieldError reports the first leaf failure, named by where it occurred
// in the arguments, e.g. position[1] or customize.color.
func fieldError(verr *jsonschema.ValidationError) *FieldError {
	leaf := verr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	field := fieldPath(leaf.InstanceLocation)
	switch k := leaf.ErrorKind.(type) {
	case *kind.Required:
		missing := k.Missing[0]
		if field != "" {
			missing = field + "." + missing
		}
		return &FieldError{Field: missing, Msg: "is required"}
	case *kind.Type:
		return &FieldError{Field: field, Msg: fmt.Sprintf("expected %s, got %s", strings.Join(k.Want, " or "), k.Got)}
	case *kind.Enum:
		want := make([]string, len(k.Want))
		for i, w := range k.Want {
			want[i] = fmt.Sprint(w)
		}
		return &FieldError{Field: field, Msg: fmt.Sprintf("must be one of %s", strings.Join(want, ", "))}
	case *kind.MinItems:
		return &FieldError{Field: field, Msg: fmt.Sprintf("needs at least %d items, got %d", k.Want, k.Got)}
	case *kind.MaxItems:
		return &FieldError{Field: field, Msg: fmt.Sprintf("allows at most %d items, got %d", k.Want, k.Got)}
	}
	return &FieldError{Field: field, Msg: leaf.ErrorKind.LocalizedString(printer)}
}

func fieldPath(loc []string) string {
	var b strings.Builder
	for _, tok := range loc {
		if _, err := strconv.Atoi(tok); err == nil && b.Len() > 0 {
			fmt.Fprintf(&b, "[%s]", tok)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(tok)
	}
	return b.String()
}

// normalize converts the numeric and slice types Go callers may pass into
// the shapes a JSON decoder produces.
func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []float64:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = f
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	}
	return v
}
