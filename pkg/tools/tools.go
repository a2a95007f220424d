// Package tools provides the concrete tool groups the agent can plan with:
// content conversion, navigation maths, signal decoding, the stellar
// catalogue and the encyclopedia search.
package tools

import (
	"context"

	"github.com/jllopis/spaceagent/pkg/knowledge"
	"github.com/jllopis/spaceagent/pkg/tool"
)

// Config selects the collaborators of the default tool set.
type Config struct {
	// Knowledge backs vector_search. Nil leaves the encyclopedia empty.
	Knowledge Searcher
	// MaxTopK bounds encyclopedia_search results.
	MaxTopK int
	Stellar []StellarOption
}

// Groups returns every built-in tool group in catalog order.
func Groups(cfg Config) []*tool.Group {
	kb := cfg.Knowledge
	if kb == nil {
		kb = emptySearcher{}
	}
	return []*tool.Group{
		NewContentConverters(),
		NewSpaceCalculator(),
		NewSignalDecoder(),
		NewStellarLocator(cfg.Stellar...),
		NewVectorSearch(kb, cfg.MaxTopK),
	}
}

// NewRegistry builds the registry of built-in tools.
func NewRegistry(cfg Config) (*tool.Registry, error) {
	return tool.NewRegistry(Groups(cfg)...)
}

type emptySearcher struct{}

func (emptySearcher) Search(context.Context, string, int) ([]knowledge.Match, error) {
	return nil, knowledge.ErrEmpty
}
