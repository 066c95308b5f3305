package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/couchly/sofa-advisor/internal/retrieval"
)

// extract maps free-form user text into structured filter conditions. Any
// failure returns empty conditions, which downstream treats as "no
// conditions", never as an error.
func (a *Agent) extract(ctx context.Context, userMessage string) retrieval.Conditions {
	raw, err := a.llm.Generate(ctx, fmt.Sprintf(extractInfoPrompt, userMessage))
	if err != nil {
		a.log.WithError(err).Warn("condition extraction call failed")
		return retrieval.Conditions{}
	}

	// Decode loosely: models emit nulls, numbers for price bounds, and the
	// occasional numeric string. Unresolved fields stay zero-valued.
	var out map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &out); err != nil {
		a.log.WithError(err).Warn("condition extraction returned unparsable JSON")
		return retrieval.Conditions{}
	}

	cond := retrieval.Conditions{
		Material:    asString(out["material"]),
		Style:       asString(out["style"]),
		Color:       asString(out["color"]),
		Brand:       asString(out["brand"]),
		Size:        asString(out["size"]),
		Price:       asString(out["price"]),
		PriceMin:    asFloat(out["price_min"]),
		PriceMax:    asFloat(out["price_max"]),
		SearchQuery: asString(out["search_query"]),
	}

	a.log.WithField("conditions", cond).Debug("conditions extracted")
	return cond
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// a bare number for a textual field, e.g. price: 7000
		return fmt.Sprintf("%v", t)
	}
	return ""
}

func asFloat(v any) *float64 {
	if f, ok := v.(float64); ok {
		return &f
	}
	return nil
}
