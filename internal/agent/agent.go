package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/couchly/sofa-advisor/internal/models"
	"github.com/couchly/sofa-advisor/internal/providers/llm"

	"github.com/sirupsen/logrus"
)

const maxRecommended = 3

// Retriever is the engine surface the orchestrator drives.
type Retriever interface {
	SearchByText(ctx context.Context, query string, f models.SearchFilters) ([]models.ProductHit, error)
	SearchByImage(ctx context.Context, imageRef string, f models.SearchFilters) ([]models.ProductHit, error)
	SearchHybrid(ctx context.Context, query, imageRef string, f models.SearchFilters, textWeight float64) ([]models.ProductHit, error)
	RetrieveDetailChunks(ctx context.Context, productID int64, queryText string) (*models.ProductDetail, error)
}

// Agent runs the per-turn conversation state machine. Stateless across
// turns: each call builds its state from the request and discards it.
type Agent struct {
	llm         llm.Provider
	retriever   Retriever
	log         *logrus.Entry
	textWeight  float64
	streamDelay time.Duration
}

type Config struct {
	// TextWeight is the hybrid-search text share (0..1).
	TextWeight float64
	// StreamDelay paces content events; cosmetic only, zero disables it.
	StreamDelay time.Duration
}

func New(provider llm.Provider, retriever Retriever, log *logrus.Logger, cfg Config) *Agent {
	if cfg.TextWeight <= 0 || cfg.TextWeight > 1 {
		cfg.TextWeight = 0.3
	}
	return &Agent{
		llm:         provider,
		retriever:   retriever,
		log:         log.WithField("component", "agent"),
		textWeight:  cfg.TextWeight,
		streamDelay: cfg.StreamDelay,
	}
}

// Request is one user turn plus the caller-owned carry-forward context.
type Request struct {
	Input               string               `json:"input"`
	History             []models.ChatMessage `json:"history,omitempty"`
	ImageRef            string               `json:"image_ref,omitempty"`
	RecommendedProducts []models.ProductHit  `json:"recommended_products,omitempty"`
}

// Result is the completed turn.
type Result struct {
	Reply               string              `json:"reply"`
	Intent              Intent              `json:"intent"`
	RecommendedProducts []models.ProductHit `json:"recommended_products,omitempty"`
}

// Chat processes one turn to completion and returns the final assistant
// message. It never fails: every upstream error degrades to a fallback reply.
func (a *Agent) Chat(ctx context.Context, req Request) Result {
	st := a.run(ctx, req)

	reply := st.lastAssistant()
	if reply == "" {
		reply = fallbackChatMessage
	}
	return Result{
		Reply:               reply,
		Intent:              st.Intent,
		RecommendedProducts: st.RecommendedProducts,
	}
}

type EventType string

const (
	EventIntent   EventType = "intent"
	EventProducts EventType = "products"
	EventContent  EventType = "content"
)

// Event re-expresses a finished turn as an ordered sequence: one intent
// event, an optional products event, then content.
type Event struct {
	Type     EventType           `json:"type"`
	Intent   Intent              `json:"intent,omitempty"`
	Products []models.ProductHit `json:"products,omitempty"`
	Content  string              `json:"content,omitempty"`
}

// ChatStream runs the same computation as Chat and emits it as events. The
// channel closes after the last content event or when ctx is cancelled.
func (a *Agent) ChatStream(ctx context.Context, req Request) <-chan Event {
	out := make(chan Event, 16)

	go func() {
		defer close(out)

		res := a.Chat(ctx, req)

		send := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(Event{Type: EventIntent, Intent: res.Intent}) {
			return
		}
		if len(res.RecommendedProducts) > 0 {
			if !send(Event{Type: EventProducts, Products: res.RecommendedProducts}) {
				return
			}
		}
		for _, r := range res.Reply {
			if !send(Event{Type: EventContent, Content: string(r)}) {
				return
			}
			if a.streamDelay > 0 {
				time.Sleep(a.streamDelay)
			}
		}
	}()

	return out
}

// run is the state machine. Entry is intent analysis; every branch ends with
// exactly one node appending the turn's assistant message.
func (a *Agent) run(ctx context.Context, req Request) *ConversationState {
	st := newState(req)

	a.analyzeIntent(ctx, st)

	switch st.Intent {
	case IntentNormalChat:
		a.normalChat(ctx, st)
	case IntentProductRecommendation:
		a.extractConditions(ctx, st)
		if st.hasConditions() {
			a.retrieveProducts(ctx, st)
			a.recommendProducts(ctx, st)
		} else {
			a.guideUser(st)
		}
	case IntentProductDetailInquiry:
		a.retrieveProductDetails(ctx, st)
		a.respondProductDetails(st)
	default:
		a.handleOther(st)
	}
	return st
}

func (a *Agent) analyzeIntent(ctx context.Context, st *ConversationState) {
	st.Intent, st.InferredProductID = a.classifyIntent(ctx, st)
}

func (a *Agent) normalChat(ctx context.Context, st *ConversationState) {
	reply, err := a.llm.Generate(ctx, fmt.Sprintf(normalChatPrompt, st.LastUserMessage))
	if err != nil {
		a.log.WithError(err).Warn("chat generation failed")
		st.appendAssistant(fallbackChatMessage)
		return
	}
	st.appendAssistant(reply)
}

// extractConditions is a silent data-gathering node.
func (a *Agent) extractConditions(ctx context.Context, st *ConversationState) {
	st.ExtractedConditions = a.extract(ctx, st.LastUserMessage)
}

func (a *Agent) guideUser(st *ConversationState) {
	st.appendAssistant(guideMessage)
}

// retrieveProducts picks the search mode from what this turn carries:
// hybrid when both an image and query text exist, image-only, or text.
func (a *Agent) retrieveProducts(ctx context.Context, st *ConversationState) {
	cond := st.ExtractedConditions

	query := cond.SearchQuery
	if query == "" {
		query = st.LastUserMessage
	}
	filters := cond.Filters()

	var (
		hits []models.ProductHit
		err  error
	)
	switch {
	case st.UploadedImageRef != "" && strings.TrimSpace(query) != "":
		hits, err = a.retriever.SearchHybrid(ctx, query, st.UploadedImageRef, filters, a.textWeight)
	case st.UploadedImageRef != "":
		hits, err = a.retriever.SearchByImage(ctx, st.UploadedImageRef, filters)
	default:
		hits, err = a.retriever.SearchByText(ctx, query, filters)
	}
	if err != nil {
		// degrade to "no matches": the conversation must not observe this
		a.log.WithError(err).Warn("product retrieval failed")
		hits = nil
	}

	st.SearchResults = hits
	a.log.WithField("results", len(hits)).Info("products retrieved")
}

func (a *Agent) recommendProducts(ctx context.Context, st *ConversationState) {
	top := st.SearchResults
	if len(top) > maxRecommended {
		top = top[:maxRecommended]
	}

	optionProducts := "未找到符合条件的产品"
	if len(top) > 0 {
		blocks := make([]string, 0, len(top))
		for i, p := range top {
			blocks = append(blocks, formatProduct(i+1, p))
		}
		optionProducts = strings.Join(blocks, "\n\n")
	}

	reply, err := a.llm.Generate(ctx, fmt.Sprintf(recommendationPrompt, optionProducts, st.LastUserMessage))
	if err != nil {
		a.log.WithError(err).Warn("recommendation generation failed")
		reply = fallbackRecommendMessage
	}
	st.appendAssistant(reply)

	// carried forward by the caller into the next turn's classifier context
	st.RecommendedProducts = top
}

func formatProduct(n int, p models.ProductHit) string {
	policy := "{}"
	if len(p.PromotionPolicy) > 0 {
		if b, err := json.Marshal(p.PromotionPolicy); err == nil {
			policy = string(b)
		}
	}
	return fmt.Sprintf(`产品%d（ID: %d）：%s
- 材质：%s
- 风格：%s
- 价格：%.0f元
- 尺寸：%s
- 颜色：%s
- 品牌：%s
- 特色功能：%s
- 具体尺寸：%s
- 优惠政策：%s
- 相似度评分：%.4f`,
		n, p.ID, p.Name, p.Material, p.Style, p.Price, p.Size, p.Color,
		p.Brand, p.Features, p.Dimensions, policy, p.Distance)
}

// retrieveProductDetails is silent; a missing target short-circuits into an
// error payload without touching the engine.
func (a *Agent) retrieveProductDetails(ctx context.Context, st *ConversationState) {
	if st.InferredProductID == nil {
		st.DetailError = noDetailTargetMessage
		a.log.Warn("detail inquiry reached retrieval without a product id")
		return
	}

	detail, err := a.retriever.RetrieveDetailChunks(ctx, *st.InferredProductID, st.LastUserMessage)
	if err != nil {
		a.log.WithError(err).WithField("product_id", *st.InferredProductID).Warn("detail retrieval failed")
		st.DetailError = detailLookupFailed
		return
	}
	st.ProductDetail = detail
}

const chunkContentCap = 500

func (a *Agent) respondProductDetails(st *ConversationState) {
	if st.DetailError != "" || st.ProductDetail == nil {
		msg := st.DetailError
		if msg == "" {
			msg = detailLookupFailed
		}
		st.appendAssistant(fmt.Sprintf("抱歉，%s，请稍后再试。", msg))
		return
	}

	info := st.ProductDetail.BasicInfo
	var b strings.Builder

	fmt.Fprintf(&b, "## 📋 %s - 详细信息\n\n", info.Name)
	b.WriteString("**🏷️ 基本信息:**\n")
	fmt.Fprintf(&b, "- **材质**: %s\n", info.Material)
	fmt.Fprintf(&b, "- **风格**: %s\n", info.Style)
	fmt.Fprintf(&b, "- **价格**: ¥%.0f\n", info.Price)
	fmt.Fprintf(&b, "- **尺寸**: %s\n", info.Size)
	fmt.Fprintf(&b, "- **颜色**: %s\n", info.Color)
	fmt.Fprintf(&b, "- **品牌**: %s\n\n", info.Brand)

	if len(st.ProductDetail.RelevantChunks) > 0 {
		fmt.Fprintf(&b, "**📖 针对您的咨询「%s」，为您提供以下详细信息:**\n\n", st.LastUserMessage)
		for i, ch := range st.ProductDetail.RelevantChunks {
			fmt.Fprintf(&b, "### %d. %s\n\n", i+1, ch.ChunkTitle)

			content := ch.ChunkContent
			if r := []rune(content); len(r) > chunkContentCap {
				content = string(r[:chunkContentCap]) + "..."
			}
			b.WriteString(content)
			fmt.Fprintf(&b, "\n\n*（相关度: %.2f%%）*\n\n---\n\n", ch.Similarity*100)
		}
	}

	b.WriteString("**💡 如需了解更多信息，您可以询问:**\n")
	b.WriteString("- 产品的材质工艺详情\n")
	b.WriteString("- 尺寸规格和空间搭配建议\n")
	b.WriteString("- 保养维护方法\n")
	b.WriteString("- 售后服务政策\n")
	b.WriteString("- 舒适体验和功能特性")

	st.appendAssistant(b.String())
}

func (a *Agent) handleOther(st *ConversationState) {
	st.appendAssistant(capabilityMessage)
}
