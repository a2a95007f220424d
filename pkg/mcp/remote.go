package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/spaceagent/pkg/tool"
)

// ToolSource lists and calls the tools of a remote MCP server. *Client
// satisfies it.
type ToolSource interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// RemoteGroup lists the tools of src and returns them as a tool group under
// namespace. Separators in remote tool names are replaced with underscores so
// every tool keeps a "<namespace>-<capability>" id. Two remote names that map
// to the same capability name are rejected.
func RemoteGroup(ctx context.Context, namespace string, src ToolSource) (*tool.Group, error) {
	tools, err := src.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools of %q: %w", namespace, err)
	}
	g := tool.NewGroup(namespace)
	seen := make(map[string]string, len(tools))
	for _, t := range tools {
		name := strings.ReplaceAll(t.Name, tool.Separator, "_")
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("remote tools %q and %q of %q both map to %q", prev, t.Name, namespace, name)
		}
		seen[name] = t.Name
		schema, err := inputSchema(t)
		if err != nil {
			return nil, fmt.Errorf("schema of %q: %w", t.Name, err)
		}
		g.Add(name, remoteCall(src, t),
			tool.WithDescription(t.Description),
			tool.WithDisplayName(t.Name),
			tool.WithSchema(schema))
	}
	return g, nil
}

func remoteCall(src ToolSource, t mcp.Tool) tool.AsyncFunc {
	return func(ctx context.Context, args tool.Args) tool.Future {
		named, err := remoteArgs(t, args)
		if err != nil {
			return tool.Ready(tool.Result{}, err)
		}
		return tool.Go(ctx, func(ctx context.Context) (tool.Result, error) {
			res, err := src.CallTool(ctx, t.Name, named)
			if err != nil {
				return tool.Result{}, err
			}
			return toolResult(res), nil
		})
	}
}

// remoteArgs maps tool arguments onto the remote argument object. A bare
// value goes to the only required field, or to "input" otherwise.
func remoteArgs(t mcp.Tool, args tool.Args) (map[string]any, error) {
	switch args.Shape() {
	case tool.ShapeNamed:
		return args.Named(), nil
	case tool.ShapePositional:
		v, _ := args.Value()
		key := "input"
		if req := t.InputSchema.Required; len(req) == 1 {
			key = req[0]
		}
		return map[string]any{key: v}, nil
	}
	if req := t.InputSchema.Required; len(req) > 0 {
		return nil, fmt.Errorf("missing required field %q", req[0])
	}
	return map[string]any{}, nil
}

func inputSchema(t mcp.Tool) (*jsonschema.Schema, error) {
	raw := t.RawInputSchema
	if raw == nil {
		b, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func toolResult(res *mcp.CallToolResult) tool.Result {
	if res == nil {
		return tool.Err("remote tool returned no result")
	}
	text := textContent(res.Content)
	if res.IsError {
		return tool.Err(text)
	}
	if res.StructuredContent != nil {
		return tool.OK(res.StructuredContent)
	}
	return tool.OK(text)
}

func textContent(items []mcp.Content) string {
	var parts []string
	for _, item := range items {
		switch c := item.(type) {
		case mcp.TextContent:
			parts = append(parts, c.Text)
		case *mcp.TextContent:
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}
