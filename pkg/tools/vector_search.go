package tools

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/jllopis/spaceagent/pkg/knowledge"
	"github.com/jllopis/spaceagent/pkg/tool"
)

const (
	// VectorSearch is the namespace of the knowledge base search tool.
	VectorSearch = "vector_search"

	defaultTopK = 5
	// DefaultMaxTopK caps top_k when no other limit is configured.
	DefaultMaxTopK = 25
)

// Searcher is the part of the knowledge base the search tool needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]knowledge.Match, error)
}

type encyclopediaParams struct {
	Message string `json:"message"`
	TopK    int    `json:"top_k"`
}

// NewVectorSearch returns the encyclopedia_search tool. Searches run
// asynchronously; maxTopK <= 0 means DefaultMaxTopK.
func NewVectorSearch(kb Searcher, maxTopK int) *tool.Group {
	if maxTopK <= 0 {
		maxTopK = DefaultMaxTopK
	}
	search := func(ctx context.Context, args tool.Args) tool.Future {
		p := encyclopediaParams{TopK: defaultTopK}
		if err := args.Bind(&p, "message"); err != nil {
			return tool.Ready(tool.Result{}, err)
		}
		if p.Message == "" {
			return tool.Ready(tool.Err("Input message must be a non-empty string."), nil)
		}
		if p.TopK < 1 {
			return tool.Ready(tool.Err("top_k must be at least 1."), nil)
		}
		if p.TopK > maxTopK {
			return tool.Ready(tool.Errf("No more than %d results may be returned for a single query.", maxTopK), nil)
		}
		return tool.Go(ctx, func(ctx context.Context) (tool.Result, error) {
			matches, err := kb.Search(ctx, p.Message, p.TopK)
			switch {
			case stderrors.Is(err, knowledge.ErrEmpty):
				return tool.OK("Vector database is empty. Initialize it first."), nil
			case err != nil:
				return tool.Errf("An error occurred during vector search: %v", err), nil
			case len(matches) == 0:
				return tool.OK("No relevant information found for: '" + p.Message + "'"), nil
			}
			return tool.OK(matches), nil
		})
	}
	return tool.NewGroup(VectorSearch).
		Add("encyclopedia_search", tool.AsyncFunc(search),
			tool.WithDescription("Searches the Aetherian encyclopedia by semantic similarity. Use it for background on places, species, history and technology of the Aetherian universe, or to find context for a question when exact keywords are unknown."),
			tool.WithSchema(encyclopediaSchema(maxTopK)))
}

// encyclopediaSchema is built by hand because the top_k bound is configurable.
func encyclopediaSchema(maxTopK int) *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	props.Set("message", &jsonschema.Schema{
		Type:        "string",
		Description: "Natural language query describing the information to look up",
	})
	props.Set("top_k", &jsonschema.Schema{
		Type:        "integer",
		Description: "The number of top matching results to return.",
		Default:     defaultTopK,
		Minimum:     json.Number("1"),
		Maximum:     json.Number(strconv.Itoa(maxTopK)),
	})
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   []string{"message"},
	}
}
