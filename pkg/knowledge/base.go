// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jllopis/spaceagent/pkg/errors"
	"github.com/jllopis/spaceagent/pkg/telemetry"
)

// ErrEmpty is returned by Search before anything has been indexed.
var ErrEmpty = stderrors.New("knowledge base is empty")

var errClosed = errors.New(errors.CodeKnowledgeError, "knowledge base is closed", nil)

// IndexStats summarises one IndexMarkdown run.
type IndexStats struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
	Added  int    `json:"added"`
	Failed int    `json:"failed"`
}

// Option configures a Base.
type Option func(*Base)

// WithWorkers bounds the number of concurrent embedding calls while indexing.
func WithWorkers(n int) Option {
	return func(b *Base) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Base) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithName labels the base in logs and spans.
func WithName(name string) Option {
	return func(b *Base) { b.name = name }
}

// Base owns a store and an embedder for the lifetime of the process. It must
// be opened before use and closed when done.
type Base struct {
	store    Store
	embedder Embedder
	workers  int
	name     string
	logger   *slog.Logger
	tracer   trace.Tracer

	mu     sync.RWMutex
	opened bool
}

// New creates a Base. Call Open before searching.
func New(store Store, embedder Embedder, opts ...Option) *Base {
	b := &Base{
		store:    store,
		embedder: embedder,
		workers:  4,
		name:     "encyclopedia",
		logger:   slog.Default(),
		tracer:   otel.Tracer("spaceagent/knowledge"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open prepares the store, reloading any previously indexed chunks.
func (b *Base) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.opened {
		return nil
	}
	if err := b.store.Open(ctx); err != nil {
		return errors.New(errors.CodeKnowledgeError, "open knowledge store", err)
	}
	b.opened = true
	if n, err := b.store.Count(ctx); err == nil && n > 0 {
		b.logger.Info("knowledge.loaded", slog.String("name", b.name), slog.Int("chunks", n))
	}
	return nil
}

// Close releases the store. The base cannot be used afterwards.
func (b *Base) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.opened {
		return nil
	}
	b.opened = false
	return b.store.Close()
}

// Len returns the number of indexed chunks.
func (b *Base) Len(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.opened {
		return 0, errClosed
	}
	return b.store.Count(ctx)
}

// IndexMarkdown replaces the contents of the base with the non-empty lines of
// the file at path. Chunks whose embedding fails are logged and skipped.
func (b *Base) IndexMarkdown(ctx context.Context, path string) (IndexStats, error) {
	stats := IndexStats{Source: path}
	raw, err := os.ReadFile(path)
	if err != nil {
		return stats, errors.New(errors.CodeKnowledgeError, fmt.Sprintf("File not found: %s", path), err)
	}
	chunks := SplitLines(string(raw))
	stats.Chunks = len(chunks)
	if len(chunks) == 0 {
		return stats, errors.New(errors.CodeKnowledgeError, "No content chunks found in the file.", nil)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.opened {
		return stats, errClosed
	}

	b.logger.Info("knowledge.index.start",
		slog.String("name", b.name),
		slog.String("source", path),
		slog.Int("chunks", len(chunks)),
		slog.Int("workers", b.workers),
	)

	embedded := make([]Chunk, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	var failed sync.Map
	for i, text := range chunks {
		g.Go(func() error {
			vec, err := b.embedder.Embed(gctx, text)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failed.Store(i, err)
				return nil
			}
			embedded[i] = Chunk{
				ID:      chunkID(path, i),
				ChunkID: i,
				Text:    text,
				Vector:  vec,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, errors.New(errors.CodeKnowledgeError, "index cancelled", err)
	}

	ok := embedded[:0]
	for i, c := range embedded {
		if v, bad := failed.Load(i); bad {
			stats.Failed++
			b.logger.Warn("knowledge.index.chunk_failed",
				slog.String("source", path),
				slog.Int("chunk_id", i),
				slog.String("error", v.(error).Error()),
			)
			continue
		}
		ok = append(ok, c)
	}
	if len(ok) == 0 {
		return stats, errors.New(errors.CodeKnowledgeError, "no chunk could be embedded", nil)
	}

	if err := b.store.Reset(ctx, len(ok[0].Vector)); err != nil {
		return stats, errors.New(errors.CodeKnowledgeError, "reset knowledge store", err)
	}
	if err := b.store.Upsert(ctx, ok); err != nil {
		return stats, errors.New(errors.CodeKnowledgeError, "store chunks", err)
	}
	stats.Added = len(ok)
	b.logger.Info("knowledge.index.finish",
		slog.String("name", b.name),
		slog.Int("added", stats.Added),
		slog.Int("failed", stats.Failed),
	)
	return stats, nil
}

// Search embeds query and returns the k most similar chunks.
func (b *Base) Search(ctx context.Context, query string, k int) ([]Match, error) {
	ctx, span := b.tracer.Start(ctx, "Knowledge.Search")
	defer span.End()

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.opened {
		return nil, errClosed
	}
	n, err := b.store.Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.New(errors.CodeKnowledgeError, "count chunks", err)
	}
	if n == 0 {
		return nil, ErrEmpty
	}
	vec, err := b.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.New(errors.CodeKnowledgeError, "embed query", err).WithRecoverable(true)
	}
	matches, err := b.store.Search(ctx, vec, k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.New(errors.CodeKnowledgeError, "search chunks", err)
	}
	span.SetAttributes(telemetry.KnowledgeAttributes(b.name, k, len(matches))...)
	return matches, nil
}

// SplitLines returns the trimmed non-empty lines of content.
func SplitLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func chunkID(source string, i int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "%s#%d", source, i)).String()
}
