package agent

import (
	"github.com/couchly/sofa-advisor/internal/models"
	"github.com/couchly/sofa-advisor/internal/retrieval"
)

// Intent is the classified purpose of a user turn.
type Intent string

const (
	IntentNormalChat            Intent = "normal_chat"
	IntentProductRecommendation Intent = "product_recommendation"
	IntentProductDetailInquiry  Intent = "product_detail_inquiry"
	IntentOther                 Intent = "other"
)

// ParseIntent validates a raw classifier label.
func ParseIntent(s string) (Intent, bool) {
	switch Intent(s) {
	case IntentNormalChat, IntentProductRecommendation, IntentProductDetailInquiry, IntentOther:
		return Intent(s), true
	}
	return IntentOther, false
}

// ConversationState lives for exactly one turn: built from caller-supplied
// history plus the new input, mutated only by orchestrator nodes, discarded
// once the turn's reply is extracted.
type ConversationState struct {
	Messages            []models.ChatMessage
	Intent              Intent
	ExtractedConditions retrieval.Conditions
	SearchResults       []models.ProductHit
	LastUserMessage     string
	UploadedImageRef    string
	RecommendedProducts []models.ProductHit
	ProductDetail       *models.ProductDetail
	DetailError         string // structured error payload for the responding node
	InferredProductID   *int64
}

func newState(req Request) *ConversationState {
	msgs := make([]models.ChatMessage, 0, len(req.History)+1)
	msgs = append(msgs, req.History...)
	msgs = append(msgs, models.ChatMessage{Role: models.RoleUser, Content: req.Input})

	return &ConversationState{
		Messages:            msgs,
		LastUserMessage:     req.Input,
		UploadedImageRef:    req.ImageRef,
		RecommendedProducts: req.RecommendedProducts,
	}
}

func (s *ConversationState) appendAssistant(content string) {
	s.Messages = append(s.Messages, models.ChatMessage{Role: models.RoleAssistant, Content: content})
}

// lastAssistant is the turn's reply: the most recent assistant message.
func (s *ConversationState) lastAssistant() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == models.RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

// hasConditions: an uploaded image alone is sufficient retrieval signal.
func (s *ConversationState) hasConditions() bool {
	if s.UploadedImageRef != "" {
		return true
	}
	return s.ExtractedConditions.HasAny()
}
