package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractConditions(t *testing.T) {
	t.Run("full extraction with nulls omitted", func(t *testing.T) {
		llm := &fakeLLM{extractResp: `{
			"material": "布艺",
			"style": "北欧",
			"size": "三人",
			"price": "7000左右",
			"color": null,
			"brand": null,
			"search_query": "北欧风格三人布艺沙发"
		}`}
		a := newTestAgent(llm, &fakeRetriever{})

		cond := a.extract(context.Background(), "我想要一个北欧风格三人布艺沙发，预算7000左右")
		assert.Equal(t, "布艺", cond.Material)
		assert.Equal(t, "北欧", cond.Style)
		assert.Equal(t, "三人", cond.Size)
		assert.Equal(t, "7000左右", cond.Price)
		assert.Empty(t, cond.Color)
		assert.Empty(t, cond.Brand)
		assert.Equal(t, "北欧风格三人布艺沙发", cond.SearchQuery)
	})

	t.Run("numeric price bounds", func(t *testing.T) {
		llm := &fakeLLM{extractResp: `{"price_min": 5000, "price_max": 10000}`}
		a := newTestAgent(llm, &fakeRetriever{})

		cond := a.extract(context.Background(), "预算5000到10000")
		require.NotNil(t, cond.PriceMin)
		require.NotNil(t, cond.PriceMax)
		assert.Equal(t, 5000.0, *cond.PriceMin)
		assert.Equal(t, 10000.0, *cond.PriceMax)
	})

	t.Run("numeric price cue coerced to text", func(t *testing.T) {
		llm := &fakeLLM{extractResp: `{"price": 7000}`}
		a := newTestAgent(llm, &fakeRetriever{})

		cond := a.extract(context.Background(), "预算7000")
		assert.Equal(t, "7000", cond.Price)
	})

	t.Run("fenced output", func(t *testing.T) {
		llm := &fakeLLM{extractResp: "```json\n{\"style\": \"美式\"}\n```"}
		a := newTestAgent(llm, &fakeRetriever{})

		cond := a.extract(context.Background(), "美式风格")
		assert.Equal(t, "美式", cond.Style)
	})

	t.Run("call failure yields empty conditions", func(t *testing.T) {
		llm := &fakeLLM{extractErr: errors.New("timeout")}
		a := newTestAgent(llm, &fakeRetriever{})

		cond := a.extract(context.Background(), "随便")
		assert.False(t, cond.HasAny())
	})

	t.Run("unparsable output yields empty conditions", func(t *testing.T) {
		llm := &fakeLLM{extractResp: "这不是JSON"}
		a := newTestAgent(llm, &fakeRetriever{})

		cond := a.extract(context.Background(), "随便")
		assert.False(t, cond.HasAny())
	})
}
