package retrieval

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/couchly/sofa-advisor/internal/models"
)

// Conditions is the extractor's flat output: every field optional, nulls
// omitted. SearchQuery is retrieval text, not a relational filter.
type Conditions struct {
	Material    string   `json:"material,omitempty"`
	Style       string   `json:"style,omitempty"`
	Color       string   `json:"color,omitempty"`
	Brand       string   `json:"brand,omitempty"`
	Size        string   `json:"size,omitempty"`
	Price       string   `json:"price,omitempty"` // free-text cue, e.g. "7000左右" or "5000-10000"
	PriceMin    *float64 `json:"price_min,omitempty"`
	PriceMax    *float64 `json:"price_max,omitempty"`
	SearchQuery string   `json:"search_query,omitempty"`
}

// HasAny reports whether any condition value is non-empty.
func (c Conditions) HasAny() bool {
	return c.Material != "" || c.Style != "" || c.Color != "" || c.Brand != "" ||
		c.Size != "" || c.Price != "" || c.PriceMin != nil || c.PriceMax != nil ||
		c.SearchQuery != ""
}

// Filters normalizes the conditions into the store's filter shape. Explicit
// price_min/price_max win over a free-text price cue.
func (c Conditions) Filters() models.SearchFilters {
	f := models.SearchFilters{
		Material: c.Material,
		Style:    c.Style,
		Color:    c.Color,
		Brand:    c.Brand,
		Size:     c.Size,
		PriceMin: c.PriceMin,
		PriceMax: c.PriceMax,
	}
	if f.PriceMin == nil && f.PriceMax == nil && c.Price != "" {
		f.PriceMin, f.PriceMax = ParsePriceRange(c.Price)
	}
	return f
}

var priceDigits = regexp.MustCompile(`\d+`)

// ParsePriceRange reads the numeric cues out of a free-text price phrase.
// One number means a center value with a ±20% tolerance band; two numbers
// mean an explicit inclusive range.
func ParsePriceRange(s string) (min, max *float64) {
	nums := priceDigits.FindAllString(strings.TrimSpace(s), -1)
	switch {
	case len(nums) == 0:
		return nil, nil
	case len(nums) == 1:
		p, err := strconv.ParseFloat(nums[0], 64)
		if err != nil {
			return nil, nil
		}
		lo, hi := p*0.8, p*1.2
		return &lo, &hi
	default:
		lo, err1 := strconv.ParseFloat(nums[0], 64)
		hi, err2 := strconv.ParseFloat(nums[1], 64)
		if err1 != nil || err2 != nil {
			return nil, nil
		}
		return &lo, &hi
	}
}
