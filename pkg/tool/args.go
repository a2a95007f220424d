package tool

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

// Shape is the invocation shape derived from a resolved step input.
type Shape int

const (
	// ShapeNone invokes the capability without arguments (input was null).
	ShapeNone Shape = iota
	// ShapeNamed expands a mapping input into named arguments.
	ShapeNamed
	// ShapePositional passes any other value as a single positional argument.
	ShapePositional
)

func (s Shape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeNamed:
		return "named"
	default:
		return "positional"
	}
}

// Args carries the arguments of one capability invocation.
type Args struct {
	shape Shape
	named map[string]any
	value any
}

// ArgsFrom classifies a resolved input into an invocation shape.
func ArgsFrom(input any) Args {
	switch v := input.(type) {
	case nil:
		return Args{shape: ShapeNone}
	case map[string]any:
		return Args{shape: ShapeNamed, named: v}
	case map[any]any:
		return Args{shape: ShapeNamed, named: cast.ToStringMap(v)}
	default:
		return Args{shape: ShapePositional, value: v}
	}
}

// NamedArgs builds named arguments directly.
func NamedArgs(named map[string]any) Args {
	return Args{shape: ShapeNamed, named: named}
}

// Shape reports the invocation shape.
func (a Args) Shape() Shape { return a.shape }

// Named returns the named arguments, or nil for other shapes.
func (a Args) Named() map[string]any { return a.named }

// Value returns the positional argument.
func (a Args) Value() (any, bool) {
	return a.value, a.shape == ShapePositional
}

// Lookup returns a single named argument.
func (a Args) Lookup(key string) (any, bool) {
	if a.shape != ShapeNamed {
		return nil, false
	}
	v, ok := a.named[key]
	return v, ok
}

// Decode copies named arguments into target, matching keys against json tags.
// Values are weakly typed ("3" decodes into an int) and unknown keys are
// rejected. Fields tagged jsonschema:"required" must be present; other fields
// keep the defaults already set in target.
func (a Args) Decode(target any) error {
	if a.shape == ShapePositional {
		return fmt.Errorf("expected named arguments, got positional %T", a.value)
	}
	if missing := missingRequired(target, a.named); len(missing) > 0 {
		return fmt.Errorf("missing required arguments: %s", strings.Join(missing, ", "))
	}
	if a.shape == ShapeNone {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(a.named)
}

// Bind decodes named arguments into target, or assigns a positional value to
// the field named key. It lets single-parameter tools accept both
// {"content": "..."} and a bare "...".
func (a Args) Bind(target any, key string) error {
	if a.shape == ShapePositional {
		return NamedArgs(map[string]any{key: a.value}).Decode(target)
	}
	return a.Decode(target)
}

// missingRequired lists the json names of target's required fields that are
// absent from named, in field order.
func missingRequired(target any, named map[string]any) []string {
	t := reflect.TypeOf(target)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var missing []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || !isRequired(f.Tag.Get("jsonschema")) {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			name = f.Name
		}
		if _, ok := named[name]; !ok {
			missing = append(missing, fmt.Sprintf("%q", name))
		}
	}
	return missing
}

func isRequired(tag string) bool {
	for _, part := range strings.Split(tag, ",") {
		if part == "required" {
			return true
		}
	}
	return false
}
