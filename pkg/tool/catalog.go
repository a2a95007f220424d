package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/jllopis/spaceagent/pkg/llm"
)

var reflector = &jsonschema.Reflector{
	Anonymous:      true,
	DoNotReference: true,
	ExpandedStruct: true,
}

// SchemaFor reflects the JSON schema of a parameter struct. Field docs come
// from jsonschema struct tags.
func SchemaFor(params any) *jsonschema.Schema {
	s := reflector.Reflect(params)
	s.Version = ""
	return s
}

// Descriptor is the catalog entry for one tool.
type Descriptor struct {
	Name        string             `json:"name"`
	DisplayName string             `json:"display_name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// DescriptorOption configures a Descriptor at registration time.
type DescriptorOption func(*Descriptor)

// WithDescription sets the tool description shown to the model.
func WithDescription(desc string) DescriptorOption {
	return func(d *Descriptor) { d.Description = desc }
}

// WithDisplayName overrides the display name (defaults to the capability name).
func WithDisplayName(name string) DescriptorOption {
	return func(d *Descriptor) { d.DisplayName = name }
}

// WithParams derives the parameter schema from a struct value.
func WithParams(params any) DescriptorOption {
	return func(d *Descriptor) { d.Parameters = SchemaFor(params) }
}

// WithSchema sets an explicit parameter schema.
func WithSchema(s *jsonschema.Schema) DescriptorOption {
	return func(d *Descriptor) { d.Parameters = s }
}

// Catalog is the set of tools the model may use, by unique id.
type Catalog struct {
	byName map[string]Descriptor
	order  []string
}

// NewCatalog builds a catalog. Later descriptors replace earlier ones with the
// same name.
func NewCatalog(descs ...Descriptor) *Catalog {
	c := &Catalog{byName: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		if _, ok := c.byName[d.Name]; !ok {
			c.order = append(c.order, d.Name)
		}
		c.byName[d.Name] = d
	}
	return c
}

// Lookup returns the descriptor for name.
func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Names lists tool ids in catalog order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Descriptors lists descriptors in catalog order.
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

// Len returns the number of tools.
func (c *Catalog) Len() int { return len(c.order) }

// Without returns a copy of the catalog minus the named tools.
func (c *Catalog) Without(names ...string) *Catalog {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	var keep []Descriptor
	for _, d := range c.Descriptors() {
		if _, ok := drop[d.Name]; !ok {
			keep = append(keep, d)
		}
	}
	return NewCatalog(keep...)
}

// LLMTools converts the catalog into function tool definitions.
func (c *Catalog) LLMTools() []llm.Tool {
	out := make([]llm.Tool, 0, len(c.order))
	for _, d := range c.Descriptors() {
		var params any = map[string]any{"type": "object"}
		if d.Parameters != nil {
			params = d.Parameters
		}
		out = append(out, llm.Tool{
			Type: llm.ToolTypeFunction,
			Function: llm.FunctionDef{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// Describe renders the numbered tool list embedded in the planning prompt.
func (c *Catalog) Describe() string {
	var b strings.Builder
	for i, d := range c.Descriptors() {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. **%s(%s)**\n", i+1, d.Name, strings.Join(paramNames(d.Parameters), ", "))
		if d.Description != "" {
			fmt.Fprintf(&b, "   - %s\n", d.Description)
		}
		if d.Parameters == nil || d.Parameters.Properties == nil || d.Parameters.Properties.Len() == 0 {
			continue
		}
		b.WriteString("   - **Parameters:**\n")
		required := make(map[string]bool, len(d.Parameters.Required))
		for _, r := range d.Parameters.Required {
			required[r] = true
		}
		for pair := d.Parameters.Properties.Oldest(); pair != nil; pair = pair.Next() {
			p := pair.Value
			typ := p.Type
			if typ == "" {
				typ = "any"
			}
			if !required[pair.Key] {
				typ += ", optional"
			}
			fmt.Fprintf(&b, "     - `%s` (%s)", pair.Key, typ)
			if p.Description != "" {
				fmt.Fprintf(&b, ": %s", p.Description)
			}
			b.WriteString("\n")
			if len(p.Enum) > 0 {
				opts := make([]string, 0, len(p.Enum))
				for _, e := range p.Enum {
					opts = append(opts, Format(e))
				}
				fmt.Fprintf(&b, "       - Options: [%s]\n", strings.Join(opts, ", "))
			}
			if p.Default != nil {
				raw, _ := json.Marshal(p.Default)
				fmt.Fprintf(&b, "       - Default: %s\n", raw)
			}
		}
	}
	return b.String()
}

func paramNames(s *jsonschema.Schema) []string {
	if s == nil || s.Properties == nil {
		return nil
	}
	var names []string
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}
