// Package alloydb computes query embeddings inside the database through the
// AlloyDB AI embedding functions, so query and catalog vectors come from the
// same models.
package alloydb

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/catalog-search/internal/core/domain"
	"github.com/kirillkom/catalog-search/internal/core/ports"
	"github.com/kirillkom/catalog-search/internal/core/sqlcompose"
	"github.com/kirillkom/catalog-search/internal/infrastructure/resilience"
)

const (
	textEmbeddingQuery  = `SELECT embedding($1, $2)::vector::text AS embedding`
	imageEmbeddingQuery = `SELECT ai.image_embedding(model_id => $1, image => $2, mimetype => $3)::vector::text AS embedding`
)

type Config struct {
	TextModel     string
	ImageModel    string
	ImageMimeType string

	// Resilience, when set, puts a breaker in front of the embedding
	// functions. Configure it without retries; see
	// resilience.InDatabaseEmbeddingConfig.
	Resilience *resilience.Executor
}

type Embedder struct {
	executor ports.QueryExecutor
	cfg      Config
}

func NewEmbedder(executor ports.QueryExecutor, cfg Config) *Embedder {
	if cfg.TextModel == "" {
		cfg.TextModel = "text-embedding-005"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "multimodalembedding@001"
	}
	if cfg.ImageMimeType == "" {
		cfg.ImageMimeType = "image/png"
	}
	return &Embedder{executor: executor, cfg: cfg}
}

func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, "embed_text", textEmbeddingQuery, e.cfg.TextModel, text)
}

func (e *Embedder) EmbedImage(ctx context.Context, uri string) ([]float32, error) {
	return e.embed(ctx, "embed_image", imageEmbeddingQuery, e.cfg.ImageModel, uri, e.cfg.ImageMimeType)
}

// embed runs one embedding statement. Any failure of the model call is
// temporary from the caller's point of view: the request itself was valid.
func (e *Embedder) embed(ctx context.Context, operation, query string, args ...any) ([]float32, error) {
	var rows []domain.Row
	call := func(ctx context.Context) error {
		var err error
		rows, err = e.executor.Query(ctx, query, args...)
		if err != nil {
			return domain.WrapError(domain.ErrTemporary, operation, err)
		}
		return nil
	}

	var err error
	if e.cfg.Resilience != nil {
		err = e.cfg.Resilience.Execute(ctx, "alloydb."+operation, call, classifyEmbeddingError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, resilience.Temporary(operation, err, classifyEmbeddingError)
	}
	return firstVector(rows)
}

func classifyEmbeddingError(err error) resilience.ErrorClassification {
	return resilience.Classify(err, nil)
}

func firstVector(rows []domain.Row) ([]float32, error) {
	if len(rows) == 0 {
		return nil, errors.New("embedding query returned no rows")
	}
	raw, ok := rows[0].Get("embedding")
	if !ok || raw == nil {
		return nil, errors.New("embedding query returned no value")
	}
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return nil, fmt.Errorf("unexpected embedding type %T", raw)
	}
	vector, err := sqlcompose.ParseVectorLiteral(text)
	if err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}
	return vector, nil
}
