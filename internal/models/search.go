package models

import "gorm.io/datatypes"

// SearchFilters are the relational constraints applied alongside vector
// ordering. String fields match by substring; a nil price bound is open.
type SearchFilters struct {
	Material string   `json:"material,omitempty"`
	Style    string   `json:"style,omitempty"`
	Color    string   `json:"color,omitempty"`
	Brand    string   `json:"brand,omitempty"`
	Size     string   `json:"size,omitempty"`
	PriceMin *float64 `json:"price_min,omitempty"`
	PriceMax *float64 `json:"price_max,omitempty"`
}

func (f SearchFilters) IsZero() bool {
	return f.Material == "" && f.Style == "" && f.Color == "" &&
		f.Brand == "" && f.Size == "" && f.PriceMin == nil && f.PriceMax == nil
}

// ProductHit is one ranked search result. Distance is cosine distance
// (lower is better). For hybrid searches TextDistance and ImageDistance
// carry the raw per-modality distances that Distance combines.
type ProductHit struct {
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	Material         string         `json:"material"`
	Style            string         `json:"style"`
	Price            float64        `json:"price"`
	Size             string         `json:"size"`
	Color            string         `json:"color"`
	Brand            string         `json:"brand"`
	ServiceLocations string         `json:"service_locations"`
	Features         string         `json:"features"`
	Dimensions       string         `json:"dimensions"`
	PromotionPolicy  datatypes.JSON `json:"promotion_policy"`
	ImageURL         string         `json:"image_url"`
	Distance         float64        `json:"distance"`
	TextDistance     *float64       `json:"text_distance,omitempty"`
	ImageDistance    *float64       `json:"image_distance,omitempty"`
}

// ChunkHit is one ranked documentation chunk for a detail lookup.
type ChunkHit struct {
	ChunkID      string  `json:"chunk_id"`
	ChunkTitle   string  `json:"chunk_title"`
	ChunkContent string  `json:"chunk_content"`
	Similarity   float64 `json:"similarity"` // cosine similarity, for display
}

// ProductDetail is the result of a detail lookup: the product's basic
// attributes plus the chunks ranked against the query text.
type ProductDetail struct {
	BasicInfo      Product    `json:"product_basic_info"`
	RelevantChunks []ChunkHit `json:"relevant_chunks"`
	QueryText      string     `json:"query_text"`
}
