package retrieval

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/couchly/sofa-advisor/internal/models"
	"github.com/couchly/sofa-advisor/internal/providers/embedding"
	pgrepo "github.com/couchly/sofa-advisor/internal/repositories/postgres"
	"github.com/couchly/sofa-advisor/internal/utils"

	"github.com/sirupsen/logrus"
)

const detailChunkLimit = 3

// Engine is the hybrid retrieval engine: it embeds the query side and ranks
// catalog products by ascending cosine distance. Safe for concurrent use;
// topK is fixed per instance.
type Engine struct {
	repo     pgrepo.ProductRepo
	embedder embedding.Provider
	topK     int
	log      *logrus.Entry
}

func NewEngine(repo pgrepo.ProductRepo, embedder embedding.Provider, topK int, log *logrus.Logger) *Engine {
	if topK <= 0 {
		topK = 5
	}
	return &Engine{
		repo:     repo,
		embedder: embedder,
		topK:     topK,
		log:      log.WithField("component", "retrieval"),
	}
}

func (e *Engine) SearchByText(ctx context.Context, query string, f models.SearchFilters) ([]models.ProductHit, error) {
	const op = "Engine.SearchByText"

	vec, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		e.log.WithError(err).Warn("text embedding failed")
		return nil, utils.E(utils.CodeUpstream, op, "text embedding failed", err)
	}

	hits, err := e.repo.SearchByVector(ctx, pgrepo.DescriptionVector, vec, f, e.topK)
	if err != nil {
		e.log.WithError(err).Warn("catalog search failed")
		return nil, utils.E(utils.CodeUpstream, op, "catalog search failed", err)
	}
	return hits, nil
}

func (e *Engine) SearchByImage(ctx context.Context, imageRef string, f models.SearchFilters) ([]models.ProductHit, error) {
	const op = "Engine.SearchByImage"

	vec, err := e.embedder.EmbedImage(ctx, imageRef)
	if err != nil {
		e.log.WithError(err).WithField("image", imageRef).Warn("image embedding failed")
		return nil, utils.E(utils.CodeUpstream, op, "image embedding failed", err)
	}

	hits, err := e.repo.SearchByVector(ctx, pgrepo.ImageVector, vec, f, e.topK)
	if err != nil {
		e.log.WithError(err).Warn("catalog search failed")
		return nil, utils.E(utils.CodeUpstream, op, "catalog search failed", err)
	}
	return hits, nil
}

// SearchHybrid requires at least one of query/imageRef. With only one input
// it delegates to the single-modality search. With both it ranks by
// textWeight*textDistance + (1-textWeight)*imageDistance, ascending.
func (e *Engine) SearchHybrid(ctx context.Context, query, imageRef string, f models.SearchFilters, textWeight float64) ([]models.ProductHit, error) {
	const op = "Engine.SearchHybrid"

	hasText := strings.TrimSpace(query) != ""
	hasImage := imageRef != ""

	switch {
	case !hasText && !hasImage:
		return nil, utils.E(utils.CodeInvalidArgument, op, "at least one of query or image is required", nil)
	case hasText && !hasImage:
		return e.SearchByText(ctx, query, f)
	case hasImage && !hasText:
		return e.SearchByImage(ctx, imageRef, f)
	}

	textVec, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		e.log.WithError(err).Warn("text embedding failed")
		return nil, utils.E(utils.CodeUpstream, op, "text embedding failed", err)
	}
	imageVec, err := e.embedder.EmbedImage(ctx, imageRef)
	if err != nil {
		e.log.WithError(err).WithField("image", imageRef).Warn("image embedding failed")
		return nil, utils.E(utils.CodeUpstream, op, "image embedding failed", err)
	}

	hits, err := e.repo.SearchHybridVectors(ctx, textVec, imageVec, f, textWeight, e.topK)
	if err != nil {
		e.log.WithError(err).Warn("catalog search failed")
		return nil, utils.E(utils.CodeUpstream, op, "catalog search failed", err)
	}

	// The store pre-orders for its LIMIT; the combination here is the
	// authoritative ranking.
	for i := range hits {
		if hits[i].TextDistance != nil && hits[i].ImageDistance != nil {
			hits[i].Distance = textWeight**hits[i].TextDistance + (1-textWeight)**hits[i].ImageDistance
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > e.topK {
		hits = hits[:e.topK]
	}
	return hits, nil
}

// RetrieveDetailChunks loads a product's basic attributes and ranks its doc
// chunks against queryText by ascending cosine distance, keeping the top 3.
// An empty queryText returns the basic info with no chunks.
func (e *Engine) RetrieveDetailChunks(ctx context.Context, productID int64, queryText string) (*models.ProductDetail, error) {
	const op = "Engine.RetrieveDetailChunks"

	product, chunks, err := e.repo.ProductWithChunks(ctx, productID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "product not found", err)
	}
	if err != nil {
		e.log.WithError(err).WithField("product_id", productID).Warn("detail lookup failed")
		return nil, utils.E(utils.CodeUpstream, op, "detail lookup failed", err)
	}

	detail := &models.ProductDetail{
		BasicInfo:      *product,
		RelevantChunks: []models.ChunkHit{},
		QueryText:      queryText,
	}
	if strings.TrimSpace(queryText) == "" {
		return detail, nil
	}

	queryVec, err := e.embedder.EmbedText(ctx, queryText)
	if err != nil {
		e.log.WithError(err).Warn("query embedding failed")
		return nil, utils.E(utils.CodeUpstream, op, "query embedding failed", err)
	}

	ranked := make([]models.ChunkHit, 0, len(chunks))
	for _, ch := range chunks {
		vec := ch.ChunkVector.Slice()
		if len(vec) != len(queryVec) {
			// unreadable or missing chunk vector: skip the record, keep the rest
			e.log.WithFields(logrus.Fields{"product_id": productID, "chunk_id": ch.ChunkID}).
				Warn("skipping chunk with unusable vector")
			continue
		}
		ranked = append(ranked, models.ChunkHit{
			ChunkID:      ch.ChunkID,
			ChunkTitle:   ch.ChunkTitle,
			ChunkContent: ch.ChunkContent,
			Similarity:   cosineSimilarity(queryVec, vec),
		})
	}

	// ascending cosine distance == descending similarity
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Similarity > ranked[j].Similarity })
	if len(ranked) > detailChunkLimit {
		ranked = ranked[:detailChunkLimit]
	}
	detail.RelevantChunks = ranked
	return detail, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
