package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/together-agent-api/pkg/ai"
)

type fixedSentiment struct {
	label string
	prob  float64
}

func (f fixedSentiment) Score(_ string) (string, float64) {
	return f.label, f.prob
}

func TestAnalyzeRejectsEmptyContent(t *testing.T) {
	svc := NewToneService(nil, nil, &fakeContextProvider{}, nil, testLogger())

	_, err := svc.Analyze(context.Background(), "u1", "   ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestAnalyzeLegacyShortDraft(t *testing.T) {
	svc := NewToneService(nil, nil, &fakeContextProvider{}, fixedSentiment{"neutral", 0.5}, testLogger())

	result, err := svc.Analyze(context.Background(), "u1", "hey you")
	require.NoError(t, err)
	require.Equal(t, "legacy", result.AISource)
	require.Equal(t, "neutral", result.Analysis["sentiment"])
	require.Contains(t, result.Tips, "Consider adding a bit more detail so your partner has something to respond to.")
	require.Contains(t, result.Tips, "Add an emoji to bring warmth.")
	require.Empty(t, result.Strengths)
	require.False(t, result.GeneratedAt.IsZero())
}

func TestAnalyzeLegacyBalancedPositiveDraft(t *testing.T) {
	svc := NewToneService(nil, nil, &fakeContextProvider{}, fixedSentiment{"positive", 0.8}, testLogger())

	result, err := svc.Analyze(context.Background(), "u1", "I really loved our evening walk together, it made my whole week \U0001F60A")
	require.NoError(t, err)
	require.Contains(t, result.Strengths, "Nice balance of detail and brevity.")
	require.Contains(t, result.Strengths, "Friendly feel with emojis.")
	require.Contains(t, result.Strengths, "Positive tone that lifts the conversation.")
	require.Contains(t, result.Tips, "Looks great, send it with confidence!")
}

func TestAnalyzeLegacyExcitedDraftGetsPunctuationTip(t *testing.T) {
	svc := NewToneService(nil, nil, &fakeContextProvider{}, fixedSentiment{"positive", 0.9}, testLogger())

	result, err := svc.Analyze(context.Background(), "u1", "Wow!!!! Amazing news today \U0001F389")
	require.NoError(t, err)
	require.Contains(t, result.Tips, "Lots of exclamation marks. Double-check your tone if you want a mellow vibe.")
}

func TestAnalyzePrefersModelAnalysis(t *testing.T) {
	planner := &fakePlanner{tone: ai.ToneAnalysis{
		Sentiment:      "positive",
		Confidence:     0.92,
		ToneSummary:    "Warm and open.",
		CoachingTips:   []string{"Close with a question."},
		Strengths:      []string{"Specific and personal."},
		SuggestedReply: "That sounds wonderful, tell me more!",
		Model:          "gpt-4o-mini",
	}}
	svc := NewToneService(nil, planner, &fakeContextProvider{}, fixedSentiment{"neutral", 0.5}, testLogger())

	result, err := svc.Analyze(context.Background(), "u1", "Thinking about our trip plans")
	require.NoError(t, err)
	require.Equal(t, "model", result.AISource)
	require.Equal(t, "Warm and open.", result.LLMFeedback)
	require.Equal(t, "That sounds wonderful, tell me more!", result.SuggestedReply)
	require.Equal(t, []string{"Close with a question."}, result.Tips)
	require.Equal(t, "positive", result.Analysis["sentiment"])
	require.Equal(t, 0.92, result.Analysis["sentiment_probability_positive"])
}

func TestAnalyzeFallsBackWhenModelUnavailable(t *testing.T) {
	planner := &fakePlanner{toneErr: ai.ErrUnavailable}
	svc := NewToneService(nil, planner, &fakeContextProvider{}, fixedSentiment{"negative", 0.2}, testLogger())

	result, err := svc.Analyze(context.Background(), "u1", "I am upset about the missed dinner plans")
	require.NoError(t, err)
	require.Equal(t, "legacy", result.AISource)
	require.Contains(t, result.Tips, "Since the tone feels tense, acknowledge feelings gently and invite dialogue.")
}

func TestAnalyzeCachesResults(t *testing.T) {
	_, client := newTestRedis(t)
	svc := NewToneService(client, nil, &fakeContextProvider{}, fixedSentiment{"neutral", 0.5}, testLogger())

	first, err := svc.Analyze(context.Background(), "u1", "Good morning sunshine")
	require.NoError(t, err)

	second, err := svc.Analyze(context.Background(), "u1", "Good morning sunshine")
	require.NoError(t, err)
	require.Equal(t, first.GeneratedAt, second.GeneratedAt, "repeat analysis must come from cache")

	// Same text for a different user gets its own cache entry.
	_, err = svc.Analyze(context.Background(), "u2", "Good morning sunshine")
	require.NoError(t, err)
}

func TestBaselineMetricsAndKeywords(t *testing.T) {
	metrics := baselineMetrics("Dinner dinner tonight? Dinner plans, plans and tea!")

	require.Equal(t, 8, metrics.wordCount)
	require.Equal(t, 1, metrics.punctuation["?"])
	require.Equal(t, 1, metrics.punctuation["!"])
	require.Equal(t, 1, metrics.punctuation[","])
	// Frequency first, then first appearance. Words of three letters or fewer
	// are dropped.
	require.Equal(t, []string{"dinner", "plans", "tonight"}, metrics.keywords)
}
