package models

import (
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// Product is a catalog row. Both vectors are written once at ingestion time
// (by the loading scripts, outside this service) and must be non-null for any
// product that should be retrievable.
type Product struct {
	ID                int64           `gorm:"column:id;primaryKey" json:"id"`
	Name              string          `gorm:"column:name;type:text" json:"name"`
	Description       string          `gorm:"column:description;type:text" json:"description"`
	Material          string          `gorm:"column:material;type:text" json:"material"`
	Style             string          `gorm:"column:style;type:text" json:"style"`
	Price             float64         `gorm:"column:price" json:"price"`
	Size              string          `gorm:"column:size;type:text" json:"size"`
	Color             string          `gorm:"column:color;type:text" json:"color"`
	Brand             string          `gorm:"column:brand;type:text" json:"brand"`
	ServiceLocations  string          `gorm:"column:service_locations;type:text" json:"service_locations"` // comma-joined region names
	Features          string          `gorm:"column:features;type:text" json:"features"`
	Dimensions        string          `gorm:"column:dimensions;type:text" json:"dimensions"`
	PromotionPolicy   datatypes.JSON  `gorm:"column:promotion_policy;type:jsonb" json:"promotion_policy"`
	ImageURL          string          `gorm:"column:image_url;type:text" json:"image_url"`
	DescriptionVector pgvector.Vector `gorm:"column:description_vector;type:vector(1024)" json:"-"`
	ImageVector       pgvector.Vector `gorm:"column:image_vector;type:vector(1024)" json:"-"`
}

func (Product) TableName() string { return "sofa_products" }

// ProductDocChunk is a titled sub-section of a product's extended
// documentation, independently embedded for fine-grained ranking.
// (product_id, chunk_id) is unique.
type ProductDocChunk struct {
	ID           int64           `gorm:"column:id;primaryKey" json:"-"`
	ProductID    int64           `gorm:"column:product_id;uniqueIndex:uk_product_chunk" json:"product_id"`
	ChunkID      string          `gorm:"column:chunk_id;type:text;uniqueIndex:uk_product_chunk" json:"chunk_id"`
	ChunkTitle   string          `gorm:"column:chunk_title;type:text" json:"chunk_title"`
	ChunkContent string          `gorm:"column:chunk_content;type:text" json:"chunk_content"`
	ChunkVector  pgvector.Vector `gorm:"column:chunk_vector;type:vector(1024)" json:"-"`
}

func (ProductDocChunk) TableName() string { return "sofa_product_docs" }
