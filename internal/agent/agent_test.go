package agent

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/couchly/sofa-advisor/internal/models"
	"github.com/couchly/sofa-advisor/internal/retrieval"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM routes on prompt markers so one fake serves all four call sites.
type fakeLLM struct {
	intentResp    string
	intentErr     error
	extractResp   string
	extractErr    error
	generateResp  string
	generateErr   error
	generateCalls int
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "意图分类器"):
		return f.intentResp, f.intentErr
	case strings.Contains(prompt, "筛选条件"):
		return f.extractResp, f.extractErr
	default:
		f.generateCalls++
		return f.generateResp, f.generateErr
	}
}

func (f *fakeLLM) Close() error { return nil }

type retrieverCall struct {
	mode     string
	query    string
	imageRef string
	filters  models.SearchFilters
	weight   float64
}

type fakeRetriever struct {
	hits   []models.ProductHit
	detail *models.ProductDetail
	err    error
	calls  []retrieverCall
}

func (f *fakeRetriever) SearchByText(_ context.Context, query string, filters models.SearchFilters) ([]models.ProductHit, error) {
	f.calls = append(f.calls, retrieverCall{mode: "text", query: query, filters: filters})
	return f.hits, f.err
}

func (f *fakeRetriever) SearchByImage(_ context.Context, imageRef string, filters models.SearchFilters) ([]models.ProductHit, error) {
	f.calls = append(f.calls, retrieverCall{mode: "image", imageRef: imageRef, filters: filters})
	return f.hits, f.err
}

func (f *fakeRetriever) SearchHybrid(_ context.Context, query, imageRef string, filters models.SearchFilters, weight float64) ([]models.ProductHit, error) {
	f.calls = append(f.calls, retrieverCall{mode: "hybrid", query: query, imageRef: imageRef, filters: filters, weight: weight})
	return f.hits, f.err
}

func (f *fakeRetriever) RetrieveDetailChunks(_ context.Context, productID int64, queryText string) (*models.ProductDetail, error) {
	f.calls = append(f.calls, retrieverCall{mode: "detail", query: queryText})
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestAgent(l *fakeLLM, r *fakeRetriever) *Agent {
	return New(l, r, quietLogger(), Config{TextWeight: 0.3})
}

func TestRecommendationScenario(t *testing.T) {
	llm := &fakeLLM{
		intentResp:   `{"intent": "product_recommendation", "confidence": 0.95, "reason": "用户想买沙发", "product_id": null}`,
		extractResp:  `{"material": "布艺", "style": "北欧", "size": "三人", "price": "7000左右", "search_query": "北欧风格三人布艺沙发", "color": null, "brand": null}`,
		generateResp: "为您推荐北欧简约三人布艺沙发，价格6800元，正在促销。",
	}
	retriever := &fakeRetriever{
		hits: []models.ProductHit{
			{ID: 1, Name: "北欧简约三人布艺沙发", Price: 6800, Distance: 0.12},
			{ID: 2, Name: "北欧双人布艺沙发", Price: 5200, Distance: 0.25},
			{ID: 3, Name: "简约布艺沙发", Price: 7400, Distance: 0.31},
			{ID: 4, Name: "北欧单人椅", Price: 2100, Distance: 0.40},
		},
	}
	a := newTestAgent(llm, retriever)

	res := a.Chat(context.Background(), Request{Input: "我想要一个北欧风格三人布艺沙发，预算7000左右"})

	assert.Equal(t, IntentProductRecommendation, res.Intent)
	assert.Equal(t, llm.generateResp, res.Reply)

	require.Len(t, retriever.calls, 1)
	call := retriever.calls[0]
	assert.Equal(t, "text", call.mode)
	assert.Equal(t, "北欧风格三人布艺沙发", call.query)
	assert.Equal(t, "北欧", call.filters.Style)
	assert.Equal(t, "布艺", call.filters.Material)
	assert.Equal(t, "三人", call.filters.Size)
	require.NotNil(t, call.filters.PriceMin)
	require.NotNil(t, call.filters.PriceMax)
	assert.InDelta(t, 5600, *call.filters.PriceMin, 1e-9)
	assert.InDelta(t, 8400, *call.filters.PriceMax, 1e-9)

	// top 3 carried forward, best match first
	require.Len(t, res.RecommendedProducts, 3)
	assert.Equal(t, "北欧简约三人布艺沙发", res.RecommendedProducts[0].Name)
}

func TestNormalChatScenario(t *testing.T) {
	llm := &fakeLLM{
		intentResp:   `{"intent": "normal_chat", "confidence": 0.99, "reason": "问候"}`,
		generateResp: "你好！有什么可以帮您的吗？",
	}
	retriever := &fakeRetriever{}
	a := newTestAgent(llm, retriever)

	res := a.Chat(context.Background(), Request{Input: "你好"})

	assert.Equal(t, IntentNormalChat, res.Intent)
	assert.Equal(t, "你好！有什么可以帮您的吗？", res.Reply)
	assert.Empty(t, retriever.calls, "no retrieval on normal chat")
	assert.Empty(t, res.RecommendedProducts)
}

func TestDetailInquiryScenario(t *testing.T) {
	llm := &fakeLLM{
		intentResp: `{"intent": "product_detail_inquiry", "confidence": 0.9, "reason": "询问保养", "product_id": 1}`,
	}
	retriever := &fakeRetriever{
		detail: &models.ProductDetail{
			BasicInfo: models.Product{ID: 1, Name: "北欧简约三人布艺沙发", Material: "布艺", Price: 6800},
			RelevantChunks: []models.ChunkHit{
				{ChunkID: "maintenance", ChunkTitle: "保养维护指南", ChunkContent: "定期吸尘，避免阳光直射。", Similarity: 0.91},
				{ChunkID: "material", ChunkTitle: "材质工艺详情", ChunkContent: "高密度海绵。", Similarity: 0.62},
			},
			QueryText: "这个沙发的保养方法是什么",
		},
	}
	a := newTestAgent(llm, retriever)

	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "推荐一个布艺沙发"},
		{Role: models.RoleAssistant, Content: "为您推荐北欧简约三人布艺沙发..."},
	}
	carry := []models.ProductHit{{ID: 1, Name: "北欧简约三人布艺沙发"}}

	res := a.Chat(context.Background(), Request{
		Input:               "这个沙发的保养方法是什么",
		History:             history,
		RecommendedProducts: carry,
	})

	assert.Equal(t, IntentProductDetailInquiry, res.Intent)
	require.Len(t, retriever.calls, 1)
	assert.Equal(t, "detail", retriever.calls[0].mode)

	assert.Contains(t, res.Reply, "北欧简约三人布艺沙发 - 详细信息")
	assert.Contains(t, res.Reply, "保养维护指南")
	// maintenance chunk is ranked first
	assert.Less(t, strings.Index(res.Reply, "保养维护指南"), strings.Index(res.Reply, "材质工艺详情"))
	assert.Contains(t, res.Reply, "91.00%")
}

func TestGuideUserScenario(t *testing.T) {
	llm := &fakeLLM{
		intentResp:  `{"intent": "product_recommendation", "confidence": 0.8, "reason": "想要推荐但无条件"}`,
		extractResp: `{}`,
	}
	retriever := &fakeRetriever{}
	a := newTestAgent(llm, retriever)

	res := a.Chat(context.Background(), Request{Input: "帮我推荐一下"})

	assert.Equal(t, IntentProductRecommendation, res.Intent)
	assert.Empty(t, retriever.calls, "no retrieval without conditions")
	assert.Contains(t, res.Reply, "您可以告诉我")
	assert.Contains(t, res.Reply, "上传一张")
}

func TestDetailWithoutTargetDowngrades(t *testing.T) {
	llm := &fakeLLM{
		intentResp:  `{"intent": "product_detail_inquiry", "confidence": 0.7, "reason": "咨询细节", "product_id": null}`,
		extractResp: `{}`,
	}
	retriever := &fakeRetriever{}
	a := newTestAgent(llm, retriever)

	res := a.Chat(context.Background(), Request{Input: "它的保养方法是什么"})

	// no resolvable product: routed as a recommendation turn instead
	assert.Equal(t, IntentProductRecommendation, res.Intent)
	for _, call := range retriever.calls {
		assert.NotEqual(t, "detail", call.mode)
	}
}

func TestMalformedIntentFallsBackToOther(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeLLM
	}{
		{name: "unparsable output", llm: &fakeLLM{intentResp: "我不知道"}},
		{name: "invalid label", llm: &fakeLLM{intentResp: `{"intent": "buy_now"}`}},
		{name: "call failure", llm: &fakeLLM{intentErr: errors.New("timeout")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAgent(tt.llm, &fakeRetriever{})
			res := a.Chat(context.Background(), Request{Input: "随便说点什么"})
			assert.Equal(t, IntentOther, res.Intent)
			assert.Contains(t, res.Reply, "沙发产品咨询助手")
		})
	}
}

func TestNormalChatGenerationFailure(t *testing.T) {
	llm := &fakeLLM{
		intentResp:  `{"intent": "normal_chat"}`,
		generateErr: errors.New("upstream down"),
	}
	a := newTestAgent(llm, &fakeRetriever{})

	res := a.Chat(context.Background(), Request{Input: "你好"})
	assert.Equal(t, fallbackChatMessage, res.Reply)
}

func TestRetrievalFailureDegradesToNoMatches(t *testing.T) {
	llm := &fakeLLM{
		intentResp:   `{"intent": "product_recommendation"}`,
		extractResp:  `{"style": "北欧"}`,
		generateResp: "暂时没有找到完全符合的产品，您可以调整一下条件。",
	}
	retriever := &fakeRetriever{err: errors.New("catalog down")}
	a := newTestAgent(llm, retriever)

	res := a.Chat(context.Background(), Request{Input: "推荐北欧风格的沙发"})

	assert.Equal(t, llm.generateResp, res.Reply)
	assert.Empty(t, res.RecommendedProducts)
}

func TestSearchModeSelection(t *testing.T) {
	t.Run("image with query text goes hybrid", func(t *testing.T) {
		llm := &fakeLLM{
			intentResp:   `{"intent": "product_recommendation"}`,
			extractResp:  `{}`,
			generateResp: "根据图片为您找到相似产品。",
		}
		retriever := &fakeRetriever{hits: []models.ProductHit{{ID: 5, Name: "相似沙发"}}}
		a := newTestAgent(llm, retriever)

		res := a.Chat(context.Background(), Request{Input: "帮我找类似的", ImageRef: "https://img/sofa.jpg"})

		// image counts as a condition even with an empty filter map
		require.Len(t, retriever.calls, 1)
		// query text is present, so image+text goes hybrid
		assert.Equal(t, "hybrid", retriever.calls[0].mode)
		assert.Equal(t, "https://img/sofa.jpg", retriever.calls[0].imageRef)
		assert.InDelta(t, 0.3, retriever.calls[0].weight, 1e-9)
		require.Len(t, res.RecommendedProducts, 1)
	})

	t.Run("raw message is the query when search_query is absent", func(t *testing.T) {
		llm := &fakeLLM{
			intentResp:   `{"intent": "product_recommendation"}`,
			extractResp:  `{"style": "美式"}`,
			generateResp: "好的。",
		}
		retriever := &fakeRetriever{}
		a := newTestAgent(llm, retriever)

		a.Chat(context.Background(), Request{Input: "来个美式的"})
		require.Len(t, retriever.calls, 1)
		assert.Equal(t, "text", retriever.calls[0].mode)
		assert.Equal(t, "来个美式的", retriever.calls[0].query)
	})
}

func TestChatStreamEventOrder(t *testing.T) {
	llm := &fakeLLM{
		intentResp:   `{"intent": "product_recommendation"}`,
		extractResp:  `{"style": "北欧"}`,
		generateResp: "为您推荐这款。",
	}
	retriever := &fakeRetriever{hits: []models.ProductHit{{ID: 1, Name: "北欧沙发"}}}
	a := newTestAgent(llm, retriever)

	var events []Event
	for ev := range a.ChatStream(context.Background(), Request{Input: "推荐北欧沙发"}) {
		events = append(events, ev)
	}

	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, EventIntent, events[0].Type)
	assert.Equal(t, IntentProductRecommendation, events[0].Intent)
	assert.Equal(t, EventProducts, events[1].Type)
	require.Len(t, events[1].Products, 1)

	var content strings.Builder
	for _, ev := range events[2:] {
		require.Equal(t, EventContent, ev.Type)
		content.WriteString(ev.Content)
	}
	assert.Equal(t, "为您推荐这款。", content.String())
}

func TestChatStreamWithoutProductsSkipsProductsEvent(t *testing.T) {
	llm := &fakeLLM{
		intentResp:   `{"intent": "normal_chat"}`,
		generateResp: "你好！",
	}
	a := newTestAgent(llm, &fakeRetriever{})

	var types []EventType
	for ev := range a.ChatStream(context.Background(), Request{Input: "你好"}) {
		types = append(types, ev.Type)
	}

	require.NotEmpty(t, types)
	assert.Equal(t, EventIntent, types[0])
	for _, typ := range types[1:] {
		assert.Equal(t, EventContent, typ)
	}
}

func conditionsWithStyle(s string) retrieval.Conditions {
	return retrieval.Conditions{Style: s}
}

func TestHasConditionsTruthTable(t *testing.T) {
	tests := []struct {
		name  string
		state ConversationState
		want  bool
	}{
		{name: "image only", state: ConversationState{UploadedImageRef: "x.jpg"}, want: true},
		{name: "conditions only", state: ConversationState{ExtractedConditions: conditionsWithStyle("北欧")}, want: true},
		{name: "both", state: ConversationState{UploadedImageRef: "x.jpg", ExtractedConditions: conditionsWithStyle("北欧")}, want: true},
		{name: "neither", state: ConversationState{}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.hasConditions())
		})
	}
}
