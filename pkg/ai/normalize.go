package ai

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Free-form model output arrives loosely typed: a field may be a string, a
// number, a list, or a nested object. This file is the single trust boundary
// where everything is coerced into the strict internal shapes before any
// business logic consumes it.

var textPolicy = bluemonday.StrictPolicy()

func toText(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return sanitizeText(v)
	case float64:
		return sanitizeText(strconv.FormatFloat(v, 'f', -1, 64))
	case int:
		return sanitizeText(strconv.Itoa(v))
	case bool:
		if v {
			return "true"
		}
		return "false"
	case map[string]interface{}:
		for _, key := range []string{"label", "text", "value", "summary"} {
			if nested, ok := v[key]; ok {
				if text := toText(nested); text != "" {
					return text
				}
			}
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return sanitizeText(string(encoded))
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if text := toText(item); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "; ")
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return sanitizeText(string(encoded))
	}
}

func sanitizeText(text string) string {
	return strings.TrimSpace(textPolicy.Sanitize(text))
}

func toTextList(value interface{}) []string {
	items, ok := value.([]interface{})
	if !ok {
		if single := toText(value); single != "" {
			return []string{single}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if text := toText(item); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func toConfidence(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return clampConfidence(v)
	case int:
		return clampConfidence(float64(v))
	case map[string]interface{}:
		for _, key := range []string{"score", "confidence", "value"} {
			if nested, ok := v[key]; ok {
				if n, isNumber := nested.(float64); isNumber {
					return clampConfidence(n)
				}
			}
		}
	}
	return 0
}

func clampConfidence(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func toBool(value interface{}, fallback bool) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	case float64:
		return v != 0
	}
	return fallback
}

// decodePlanPayload converts the raw action-planning JSON into the strict
// PlanResult shape. Confidence is clamped to [0,1], requires_approval
// defaults to true, and a title is synthesized from the summary when absent.
func decodePlanPayload(payload map[string]interface{}) PlanResult {
	result := PlanResult{
		Strategy:    toText(payload["strategy"]),
		Explanation: toText(payload["explanation"]),
	}

	rawActions, _ := payload["actions"].([]interface{})
	for _, raw := range rawActions {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		proposal := ActionProposal{
			ActionType:       toText(item["action_type"]),
			Title:            toText(item["title"]),
			Summary:          toText(item["summary"]),
			Confidence:       toConfidence(item["confidence"]),
			RequiresApproval: toBool(item["requires_approval"], true),
			CallToAction:     toText(item["call_to_action"]),
			SuggestedMessage: toText(item["suggested_message"]),
			Rationale:        toText(item["rationale"]),
		}
		if proposal.ActionType == "" {
			continue
		}
		if proposal.Title == "" {
			proposal.Title = synthesizeTitle(proposal.Summary, proposal.ActionType)
		}
		if proposal.Summary == "" {
			proposal.Summary = proposal.Title
		}
		result.Actions = append(result.Actions, proposal)
	}

	return result
}

func synthesizeTitle(summary, actionType string) string {
	if summary != "" {
		title := summary
		if len(title) > 80 {
			title = strings.TrimSpace(title[:77]) + "..."
		}
		return title
	}
	words := strings.Split(strings.ReplaceAll(actionType, "_", " "), " ")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// decodeTonePayload converts the raw tone-analysis JSON into the strict
// ToneAnalysis shape. The suggested reply keeps the sender's first-person
// voice and never fabricates a personal status the draft did not state.
func decodeTonePayload(payload map[string]interface{}, draft string) ToneAnalysis {
	analysis := ToneAnalysis{
		Sentiment:    toText(payload["sentiment"]),
		Confidence:   toConfidence(payload["confidence"]),
		ToneSummary:  toText(payload["tone_summary"]),
		CoachingTips: toTextList(payload["coaching_tips"]),
		Strengths:    toTextList(payload["strengths"]),
		Warnings:     toTextList(payload["warnings"]),
	}
	if analysis.Sentiment == "" {
		analysis.Sentiment = "neutral"
	}
	analysis.SuggestedReply = coerceSenderReply(toText(payload["suggested_reply"]), draft)
	return analysis
}

// decodeCoachingPayload converts the raw coaching JSON into suggestion cards.
func decodeCoachingPayload(payload map[string]interface{}) CoachingResult {
	result := CoachingResult{
		Strategy:    toText(payload["strategy"]),
		Explanation: toText(payload["explanation"]),
	}

	rawCards, _ := payload["suggestions"].([]interface{})
	for _, raw := range rawCards {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		card := SuggestionCard{
			Type:             toText(item["type"]),
			Title:            toText(item["title"]),
			Summary:          toText(item["summary"]),
			CallToAction:     toText(item["call_to_action"]),
			SuggestedMessage: toText(item["suggested_message"]),
		}
		if card.Type == "" {
			card.Type = "custom"
		}
		if card.Title == "" {
			card.Title = "Agent suggestion"
		}
		if _, present := item["confidence"]; present {
			confidence := toConfidence(item["confidence"])
			card.Confidence = &confidence
		}
		result.Cards = append(result.Cards, card)
	}

	return result
}

var disallowedReplyPrefixes = []string{
	"i'm good",
	"i am good",
	"i'm doing well",
	"i am doing well",
	"hi i'm good",
	"hi i am good",
	"i'm great",
	"i am great",
}

// coerceSenderReply keeps the reply in the sender's voice. When the model
// invents a personal status update the draft never made, the fabricated
// opener is stripped and the original draft restored in front.
func coerceSenderReply(reply, draft string) string {
	cleaned := strings.TrimSpace(strings.Trim(strings.TrimSpace(reply), `"`))
	if cleaned == "" {
		return ""
	}

	draft = strings.TrimSpace(strings.Trim(strings.TrimSpace(draft), `"`))
	lower := strings.ToLower(cleaned)

	if draft != "" {
		draftLower := strings.ToLower(draft)
		invented := false
		for _, prefix := range disallowedReplyPrefixes {
			if strings.Contains(lower, prefix) && !strings.Contains(draftLower, prefix) {
				invented = true
				break
			}
		}
		if invented {
			for _, prefix := range disallowedReplyPrefixes {
				if strings.HasPrefix(lower, prefix) {
					cleaned = strings.TrimLeft(strings.TrimPrefix(cleaned, cleaned[:len(prefix)]), ", ")
					break
				}
			}
			cleaned = strings.TrimSpace(draft + " " + cleaned)
		}
	}

	if cleaned != "" && !strings.ContainsAny(cleaned[len(cleaned)-1:], ".!?") {
		cleaned += "."
	}
	return cleaned
}
