package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/together-agent-api/internal/dto"
	"github.com/noah-isme/together-agent-api/pkg/ai"
)

const (
	toneCacheKeyPrefix = "agent:tone:"
	toneCacheTTL       = 3 * time.Hour
)

var (
	wordPattern  = regexp.MustCompile(`[\w']+`)
	emojiPattern = regexp.MustCompile(`[\x{1F1E0}-\x{1F1FF}\x{1F300}-\x{1F64F}\x{1F680}-\x{1F6FF}\x{1F900}-\x{1F9FF}\x{1FA70}-\x{1FAFF}]`)
)

// ToneService analyzes a draft message, language model first with a
// deterministic heuristic fallback.
type ToneService interface {
	Analyze(ctx context.Context, userID, content string) (dto.ToneAnalysisResponse, error)
}

type toneService struct {
	cache     *redis.Client
	planner   ai.Planner
	contexts  ContextProvider
	sentiment SentimentScorer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewToneService constructs the analyzer. Cache and planner are optional.
func NewToneService(cache *redis.Client, planner ai.Planner, contexts ContextProvider, sentiment SentimentScorer, logger zerolog.Logger) ToneService {
	return &toneService{
		cache:     cache,
		planner:   planner,
		contexts:  contexts,
		sentiment: sentiment,
		logger:    logger.With().Str("component", "tone_service").Logger(),
		now:       time.Now,
	}
}

func (s *toneService) Analyze(ctx context.Context, userID, content string) (dto.ToneAnalysisResponse, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return dto.ToneAnalysisResponse{}, fmt.Errorf("%w: content is required", ErrValidation)
	}

	if cached, ok := s.readCache(ctx, userID, text); ok {
		return cached, nil
	}

	metrics := baselineMetrics(text)

	response, ok := s.analyzeWithModel(ctx, userID, text, metrics)
	if !ok {
		response = s.legacyAnalysis(text, metrics)
	}
	response.GeneratedAt = s.now().UTC()

	s.writeCache(ctx, userID, text, response)
	return response, nil
}

func (s *toneService) analyzeWithModel(ctx context.Context, userID, text string, metrics baseline) (dto.ToneAnalysisResponse, bool) {
	if s.planner == nil {
		return dto.ToneAnalysisResponse{}, false
	}

	convo := ai.Context{}
	if built, err := s.contexts.BuildContext(ctx, userID); err == nil {
		convo = built
	}

	analysis, err := s.planner.AnalyzeTone(ctx, text, convo)
	if err != nil {
		if !errors.Is(err, ai.ErrUnavailable) {
			s.logger.Warn().Err(err).Msg("tone analysis call failed")
		}
		return dto.ToneAnalysisResponse{}, false
	}

	return dto.ToneAnalysisResponse{
		Analysis: map[string]interface{}{
			"length":                         metrics.length(),
			"emoji_count":                    metrics.emojiCount,
			"punctuation":                    metrics.punctuation,
			"sentiment":                      analysis.Sentiment,
			"sentiment_probability_positive": analysis.Confidence,
			"keywords":                       metrics.keywords,
		},
		Strengths:      analysis.Strengths,
		Tips:           analysis.CoachingTips,
		LLMFeedback:    analysis.ToneSummary,
		SuggestedReply: analysis.SuggestedReply,
		Warnings:       analysis.Warnings,
		AISource:       "model",
	}, true
}

func (s *toneService) legacyAnalysis(text string, metrics baseline) dto.ToneAnalysisResponse {
	sentiment, probPositive := "neutral", 0.5
	if s.sentiment != nil {
		sentiment, probPositive = s.sentiment.Score(text)
	}

	return dto.ToneAnalysisResponse{
		Analysis: map[string]interface{}{
			"length":                         metrics.length(),
			"emoji_count":                    metrics.emojiCount,
			"punctuation":                    metrics.punctuation,
			"sentiment":                      sentiment,
			"sentiment_probability_positive": probPositive,
			"keywords":                       metrics.keywords,
		},
		Strengths: legacyStrengths(metrics, sentiment),
		Tips:      legacyTips(metrics, sentiment),
		AISource:  "legacy",
	}
}

type baseline struct {
	charCount   int
	wordCount   int
	emojiCount  int
	punctuation map[string]int
	keywords    []string
}

func (b baseline) length() map[string]int {
	return map[string]int{"characters": b.charCount, "words": b.wordCount}
}

func baselineMetrics(text string) baseline {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)

	punctuation := map[string]int{}
	for _, r := range text {
		switch r {
		case '!', '?', '.', ',':
			punctuation[string(r)]++
		}
	}

	return baseline{
		charCount:   len([]rune(text)),
		wordCount:   len(words),
		emojiCount:  len(emojiPattern.FindAllString(text, -1)),
		punctuation: punctuation,
		keywords:    topKeywords(words, 6),
	}
}

// topKeywords picks the most frequent words longer than three characters,
// breaking ties by first appearance.
func topKeywords(words []string, limit int) []string {
	counts := map[string]int{}
	order := map[string]int{}
	for i, word := range words {
		if len(word) <= 3 {
			continue
		}
		if _, seen := counts[word]; !seen {
			order[word] = i
		}
		counts[word]++
	}

	candidates := make([]string, 0, len(counts))
	for word := range counts {
		candidates = append(candidates, word)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if counts[candidates[i]] != counts[candidates[j]] {
			return counts[candidates[i]] > counts[candidates[j]]
		}
		return order[candidates[i]] < order[candidates[j]]
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func legacyTips(metrics baseline, sentiment string) []string {
	var tips []string

	if metrics.wordCount < 4 {
		tips = append(tips, "Consider adding a bit more detail so your partner has something to respond to.")
	} else if metrics.wordCount > 60 {
		tips = append(tips, "It's a long message. Maybe break it into shorter notes or plan a call.")
	}

	if metrics.emojiCount == 0 {
		tips = append(tips, "Add an emoji to bring warmth.")
	} else if metrics.emojiCount > 5 {
		tips = append(tips, "Maybe trim a few emojis so the message stays clear.")
	}

	if metrics.punctuation["!"] > 3 {
		tips = append(tips, "Lots of exclamation marks. Double-check your tone if you want a mellow vibe.")
	}

	switch sentiment {
	case "negative":
		tips = append(tips, "Since the tone feels tense, acknowledge feelings gently and invite dialogue.")
	case "neutral":
		tips = append(tips, "Add a personal note or appreciation to keep things heartfelt.")
	}

	if len(tips) == 0 {
		tips = append(tips, "Looks great, send it with confidence!")
	}
	return tips
}

func legacyStrengths(metrics baseline, sentiment string) []string {
	var strengths []string
	if metrics.wordCount >= 6 && metrics.wordCount <= 50 {
		strengths = append(strengths, "Nice balance of detail and brevity.")
	}
	if metrics.emojiCount > 0 {
		strengths = append(strengths, "Friendly feel with emojis.")
	}
	if sentiment == "positive" {
		strengths = append(strengths, "Positive tone that lifts the conversation.")
	}
	return strengths
}

func toneCacheKey(userID, text string) string {
	sum := sha256.Sum256([]byte(userID + ":" + text))
	return toneCacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (s *toneService) readCache(ctx context.Context, userID, text string) (dto.ToneAnalysisResponse, bool) {
	if s.cache == nil {
		return dto.ToneAnalysisResponse{}, false
	}
	raw, err := s.cache.Get(ctx, toneCacheKey(userID, text)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("tone cache read failed")
		}
		return dto.ToneAnalysisResponse{}, false
	}
	var response dto.ToneAnalysisResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return dto.ToneAnalysisResponse{}, false
	}
	return response, true
}

func (s *toneService) writeCache(ctx context.Context, userID, text string, response dto.ToneAnalysisResponse) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, toneCacheKey(userID, text), raw, toneCacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("tone cache write failed")
	}
}
