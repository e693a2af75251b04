package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToTextCoercions(t *testing.T) {
	require.Equal(t, "", toText(nil))
	require.Equal(t, "hello", toText("  hello  "))
	require.Equal(t, "0.75", toText(0.75))
	require.Equal(t, "42", toText(float64(42)))
	require.Equal(t, "true", toText(true))
	require.Equal(t, "warm", toText(map[string]interface{}{"label": "warm"}))
	require.Equal(t, "warm", toText(map[string]interface{}{"text": "warm"}))
	require.Equal(t, "one; two", toText([]interface{}{"one", "two"}))
}

func TestToTextStripsMarkup(t *testing.T) {
	require.Equal(t, "hello", toText("<script>alert(1)</script>hello"))
	require.Equal(t, "bold move", toText("<b>bold</b> move"))
}

func TestToTextList(t *testing.T) {
	require.Nil(t, toTextList(nil))
	require.Equal(t, []string{"single"}, toTextList("single"))
	require.Equal(t, []string{"a", "b"}, toTextList([]interface{}{"a", "", "b"}))
}

func TestToConfidenceClampsAndUnnests(t *testing.T) {
	require.Equal(t, 0.6, toConfidence(0.6))
	require.Equal(t, 0.0, toConfidence(-0.5))
	require.Equal(t, 1.0, toConfidence(3.0))
	require.Equal(t, 0.8, toConfidence(map[string]interface{}{"score": 0.8}))
	require.Equal(t, 0.0, toConfidence("high"))
}

func TestToBool(t *testing.T) {
	require.True(t, toBool(true, false))
	require.True(t, toBool("YES", false))
	require.False(t, toBool("no", true))
	require.True(t, toBool(float64(1), false))
	require.True(t, toBool("maybe", true))
	require.False(t, toBool(nil, false))
}

func TestDecodePlanPayloadDefaults(t *testing.T) {
	result := decodePlanPayload(map[string]interface{}{
		"strategy": "llm_planner",
		"actions": []interface{}{
			map[string]interface{}{
				"action_type": "draft_partner_reply",
				"summary":     "Reply to the latest note",
				"confidence":  1.4,
			},
			map[string]interface{}{
				// No action type: dropped.
				"title": "orphan",
			},
			"not-an-object",
		},
	})

	require.Equal(t, "llm_planner", result.Strategy)
	require.Len(t, result.Actions, 1)

	action := result.Actions[0]
	require.Equal(t, "draft_partner_reply", action.ActionType)
	require.Equal(t, "Reply to the latest note", action.Title, "title is synthesized from the summary")
	require.Equal(t, 1.0, action.Confidence, "confidence is clamped to [0,1]")
	require.True(t, action.RequiresApproval, "approval defaults to required")
}

func TestDecodePlanPayloadSynthesizesTitleFromActionType(t *testing.T) {
	result := decodePlanPayload(map[string]interface{}{
		"actions": []interface{}{
			map[string]interface{}{"action_type": "send_daily_question_reminder"},
		},
	})
	require.Len(t, result.Actions, 1)
	require.Equal(t, "Send Daily Question Reminder", result.Actions[0].Title)
	require.Equal(t, "Send Daily Question Reminder", result.Actions[0].Summary)
}

func TestDecodeTonePayloadDefaultsSentiment(t *testing.T) {
	analysis := decodeTonePayload(map[string]interface{}{
		"confidence":    0.9,
		"coaching_tips": []interface{}{"Ask a question."},
	}, "draft text")

	require.Equal(t, "neutral", analysis.Sentiment)
	require.Equal(t, 0.9, analysis.Confidence)
	require.Equal(t, []string{"Ask a question."}, analysis.CoachingTips)
}

func TestDecodeCoachingPayloadDefaults(t *testing.T) {
	result := decodeCoachingPayload(map[string]interface{}{
		"suggestions": []interface{}{
			map[string]interface{}{
				"summary":    "Check in before lunch",
				"confidence": 0.55,
			},
		},
	})

	require.Len(t, result.Cards, 1)
	card := result.Cards[0]
	require.Equal(t, "custom", card.Type)
	require.Equal(t, "Agent suggestion", card.Title)
	require.NotNil(t, card.Confidence)
	require.Equal(t, 0.55, *card.Confidence)
}

func TestCoerceSenderReplyStripsInventedStatus(t *testing.T) {
	draft := "How was your day?"
	reply := "I'm good, thanks for asking! How was your day?"

	coerced := coerceSenderReply(reply, draft)
	require.NotContains(t, coerced, "I'm good")
	require.Contains(t, coerced, "How was your day?")
}

func TestCoerceSenderReplyKeepsHonestReplies(t *testing.T) {
	require.Equal(t, "Missing you today.", coerceSenderReply("Missing you today", "hey"))
	require.Equal(t, "", coerceSenderReply("   ", "hey"))
	require.Equal(t, "Sounds great!", coerceSenderReply(`"Sounds great!"`, "dinner?"))
}

func TestCoerceSenderReplyAllowsStatusPresentInDraft(t *testing.T) {
	draft := "I'm good, want to grab dinner?"
	reply := "I'm good, want to grab dinner tonight?"
	require.Equal(t, reply, coerceSenderReply(reply, draft))
}
