package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/couchly/sofa-advisor/internal/models"
	"github.com/couchly/sofa-advisor/internal/utils"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// VectorColumn selects which product vector a single-modality search ranks by.
type VectorColumn string

const (
	DescriptionVector VectorColumn = "description_vector"
	ImageVector       VectorColumn = "image_vector"
)

const productColumns = `id, name, description, material, style, price, size, color,
	brand, service_locations, features, dimensions, promotion_policy, image_url`

type ProductRepo interface {
	// SearchByVector ranks products by ascending cosine distance of the given
	// column against vec, after applying filters.
	SearchByVector(ctx context.Context, column VectorColumn, vec []float32, f models.SearchFilters, limit int) ([]models.ProductHit, error)
	// SearchHybridVectors returns candidates with both raw distances; the
	// combined weighting and final ordering belong to the retrieval engine.
	SearchHybridVectors(ctx context.Context, textVec, imageVec []float32, f models.SearchFilters, textWeight float64, limit int) ([]models.ProductHit, error)
	// ProductWithChunks loads one product and all of its doc chunks.
	ProductWithChunks(ctx context.Context, productID int64) (*models.Product, []models.ProductDocChunk, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepo {
	return &productRepo{db: db}
}

// filterClause builds the WHERE fragment shared by every search mode.
// Substring match on the categorical columns, BETWEEN / open bound on price.
func filterClause(f models.SearchFilters) (string, []any) {
	var conds []string
	var args []any

	like := func(col, val string) {
		if val != "" {
			conds = append(conds, col+" LIKE ?")
			args = append(args, "%"+val+"%")
		}
	}
	like("material", f.Material)
	like("style", f.Style)
	like("color", f.Color)
	like("brand", f.Brand)
	like("size", f.Size)

	switch {
	case f.PriceMin != nil && f.PriceMax != nil:
		conds = append(conds, "price BETWEEN ? AND ?")
		args = append(args, *f.PriceMin, *f.PriceMax)
	case f.PriceMin != nil:
		conds = append(conds, "price >= ?")
		args = append(args, *f.PriceMin)
	case f.PriceMax != nil:
		conds = append(conds, "price <= ?")
		args = append(args, *f.PriceMax)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *productRepo) SearchByVector(ctx context.Context, column VectorColumn, vec []float32, f models.SearchFilters, limit int) ([]models.ProductHit, error) {
	where, whereArgs := filterClause(f)

	sql := fmt.Sprintf(`SELECT %s, %s <=> ? AS distance FROM %s%s ORDER BY distance ASC LIMIT ?`,
		productColumns, column, models.Product{}.TableName(), where)

	args := []any{pgvector.NewVector(vec)}
	args = append(args, whereArgs...)
	args = append(args, limit)

	var hits []models.ProductHit
	if err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&hits).Error; err != nil {
		return nil, err
	}
	return hits, nil
}

func (r *productRepo) SearchHybridVectors(ctx context.Context, textVec, imageVec []float32, f models.SearchFilters, textWeight float64, limit int) ([]models.ProductHit, error) {
	where, whereArgs := filterClause(f)

	// ORDER BY the combined score so LIMIT keeps the right candidates; the
	// engine recomputes the combination when it merges and truncates.
	sql := fmt.Sprintf(`SELECT %s,
	description_vector <=> ? AS text_distance,
	image_vector <=> ? AS image_distance,
	(? * (description_vector <=> ?) + ? * (image_vector <=> ?)) AS distance
FROM %s%s ORDER BY distance ASC LIMIT ?`,
		productColumns, models.Product{}.TableName(), where)

	tv := pgvector.NewVector(textVec)
	iv := pgvector.NewVector(imageVec)

	args := []any{tv, iv, textWeight, tv, 1 - textWeight, iv}
	args = append(args, whereArgs...)
	args = append(args, limit)

	var hits []models.ProductHit
	if err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&hits).Error; err != nil {
		return nil, err
	}
	return hits, nil
}

func (r *productRepo) ProductWithChunks(ctx context.Context, productID int64) (*models.Product, []models.ProductDocChunk, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", productID).Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	var chunks []models.ProductDocChunk
	err = r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("chunk_id ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, nil, err
	}
	return &product, chunks, nil
}
