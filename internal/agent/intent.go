package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/couchly/sofa-advisor/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	contextMessageWindow  = 4
	assistantPreviewRunes = 200
)

// classifyIntent maps the latest user turn plus recent context to an intent
// and an optional referenced product id. Every failure mode (call failure,
// unparsable JSON, invalid label) degrades to IntentOther.
func (a *Agent) classifyIntent(ctx context.Context, st *ConversationState) (Intent, *int64) {
	if strings.TrimSpace(st.LastUserMessage) == "" {
		return IntentOther, nil
	}

	prompt := fmt.Sprintf(intentClassificationPrompt, buildContext(st), st.LastUserMessage)

	raw, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		a.log.WithError(err).Warn("intent classification call failed")
		return IntentOther, nil
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &out); err != nil {
		a.log.WithError(err).Warn("intent classification returned unparsable JSON")
		return IntentOther, nil
	}

	label, _ := out["intent"].(string)
	intent, ok := ParseIntent(label)
	if !ok {
		a.log.WithField("intent", label).Warn("invalid intent label")
		return IntentOther, nil
	}

	productID := parseProductID(out["product_id"])

	a.log.WithFields(logrus.Fields{
		"intent":     intent,
		"confidence": out["confidence"],
		"reason":     out["reason"],
		"product_id": productID,
	}).Info("intent classified")

	// A detail inquiry with no resolvable target cannot be routed; treat it
	// as a recommendation request instead.
	if intent == IntentProductDetailInquiry && productID == nil {
		a.log.Warn("detail inquiry without a resolvable product id, downgrading to recommendation")
		return IntentProductRecommendation, nil
	}
	return intent, productID
}

// buildContext renders the last few prior messages (assistant previews
// truncated) plus the previous turn's recommended products.
func buildContext(st *ConversationState) string {
	prior := st.Messages[:len(st.Messages)-1]
	if len(prior) > contextMessageWindow {
		prior = prior[len(prior)-contextMessageWindow:]
	}

	var lines []string
	for _, msg := range prior {
		switch msg.Role {
		case models.RoleUser:
			lines = append(lines, "用户: "+msg.Content)
		case models.RoleAssistant:
			lines = append(lines, "助手: "+truncateRunes(msg.Content, assistantPreviewRunes)+"...")
		}
	}

	context := "无历史对话"
	if len(lines) > 0 {
		context = strings.Join(lines, "\n")
	}

	if len(st.RecommendedProducts) > 0 {
		lines = []string{context, "=== 最近推荐的产品信息 ==="}
		for i, p := range st.RecommendedProducts {
			lines = append(lines, fmt.Sprintf("产品%d: ID=%d, 名称=%s", i+1, p.ID, p.Name))
		}
		context = strings.Join(lines, "\n")
	}
	return context
}

// parseProductID accepts the id as a JSON number or a numeric string;
// anything else (null, "", 0) means no reference.
func parseProductID(v any) *int64 {
	switch t := v.(type) {
	case float64:
		if t > 0 {
			id := int64(t)
			return &id
		}
	case string:
		if id, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil && id > 0 {
			return &id
		}
	}
	return nil
}

// stripCodeFence removes a ```json / ``` wrapper some models emit around
// structured output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
