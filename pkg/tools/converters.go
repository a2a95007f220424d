package tools

import (
	"context"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/jllopis/spaceagent/pkg/tool"
)

// ContentConverters is the namespace of the document conversion tools.
const ContentConverters = "content_converters"

type htmlParams struct {
	Content string `json:"content" jsonschema:"required,description=HTML document or fragment to convert"`
}

// NewContentConverters returns the html_to_markdown tool.
func NewContentConverters() *tool.Group {
	conv := md.NewConverter("", true, nil)
	htmlToMarkdown := func(_ context.Context, args tool.Args) (tool.Result, error) {
		var p htmlParams
		if err := args.Bind(&p, "content"); err != nil {
			return tool.Result{}, err
		}
		out, err := conv.ConvertString(p.Content)
		if err != nil {
			return tool.Result{}, err
		}
		return tool.OK(strings.TrimSpace(out)), nil
	}
	return tool.NewGroup(ContentConverters).
		Add("html_to_markdown", tool.Func(htmlToMarkdown),
			tool.WithDescription("Converts HTML content into Markdown. Use it to clean up web pages or rich text before summarising them."),
			tool.WithParams(&htmlParams{}))
}
