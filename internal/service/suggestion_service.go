package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/together-agent-api/internal/dto"
	"github.com/noah-isme/together-agent-api/internal/observability"
	"github.com/noah-isme/together-agent-api/pkg/ai"
)

const (
	suggestionCacheKeyPrefix = "agent:suggestions:"

	// Strategies recorded on served bundles.
	strategyCoaching = "coaching_llm"
	strategyFallback = "deterministic_fallback"
)

// SuggestionServiceConfig tunes the cache/refresh behaviour.
type SuggestionServiceConfig struct {
	CacheTTL       time.Duration
	SyncWait       time.Duration
	RefreshTimeout time.Duration
	MaxRefreshers  int
}

func (c *SuggestionServiceConfig) applyDefaults() {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 6 * time.Hour
	}
	if c.SyncWait <= 0 {
		c.SyncWait = 2 * time.Second
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = 20 * time.Second
	}
	if c.MaxRefreshers <= 0 {
		c.MaxRefreshers = 4
	}
}

// SuggestionService serves cached coaching bundles under a latency bound.
type SuggestionService interface {
	GetSuggestions(ctx context.Context, userID string) (dto.SuggestionBundle, error)
}

// refreshTask is one in-flight recomputation of a user's bundle. Concurrent
// callers for the same user share the task instead of spawning duplicates.
type refreshTask struct {
	done   chan struct{}
	bundle dto.SuggestionBundle
	err    error
}

type suggestionService struct {
	cache    *redis.Client
	planner  ai.Planner
	contexts ContextProvider
	cfg      SuggestionServiceConfig
	logger   zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	inflight map[string]*refreshTask
	workers  chan struct{}
}

// NewSuggestionService constructs the suggestion manager. The cache client
// and planner are both optional; without them every read synthesizes a
// deterministic bundle.
func NewSuggestionService(cache *redis.Client, planner ai.Planner, contexts ContextProvider, cfg SuggestionServiceConfig, logger zerolog.Logger) SuggestionService {
	cfg.applyDefaults()
	return &suggestionService{
		cache:    cache,
		planner:  planner,
		contexts: contexts,
		cfg:      cfg,
		logger:   logger.With().Str("component", "suggestion_service").Logger(),
		now:      time.Now,
		inflight: make(map[string]*refreshTask),
		workers:  make(chan struct{}, cfg.MaxRefreshers),
	}
}

// GetSuggestions returns the cached bundle when fresh, otherwise schedules a
// single-flight refresh and waits for it up to the synchronous budget. On
// timeout or failure it serves a deterministic bundle while the refresh
// keeps running and fills the cache for later calls.
func (s *suggestionService) GetSuggestions(ctx context.Context, userID string) (dto.SuggestionBundle, error) {
	if userID == "" {
		return dto.SuggestionBundle{}, fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	if bundle, ok := s.readCache(ctx, userID); ok {
		observability.SuggestionReads.WithLabelValues("cache_hit").Inc()
		return bundle, nil
	}

	task := s.scheduleRefresh(userID)

	select {
	case <-task.done:
		if task.err == nil {
			observability.SuggestionReads.WithLabelValues("refreshed").Inc()
			return task.bundle, nil
		}
		s.logger.Warn().Err(task.err).Str("user_id", userID).Msg("suggestion refresh failed, serving fallback")
	case <-time.After(s.cfg.SyncWait):
	case <-ctx.Done():
	}

	observability.SuggestionReads.WithLabelValues("fallback").Inc()
	return s.fallbackBundle(ctx, userID), nil
}

// scheduleRefresh attaches to the in-flight task for the user or creates one.
// The registry entry is cleared on completion, success or failure, so a
// subsequent miss can schedule a fresh task.
func (s *suggestionService) scheduleRefresh(userID string) *refreshTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task, ok := s.inflight[userID]; ok {
		return task
	}

	task := &refreshTask{done: make(chan struct{})}
	s.inflight[userID] = task

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.inflight, userID)
			s.mu.Unlock()
			close(task.done)
		}()

		s.workers <- struct{}{}
		defer func() { <-s.workers }()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RefreshTimeout)
		defer cancel()

		task.bundle, task.err = s.refresh(ctx, userID)
	}()

	return task
}

func (s *suggestionService) refresh(ctx context.Context, userID string) (dto.SuggestionBundle, error) {
	convo, err := s.contexts.BuildContext(ctx, userID)
	if err != nil {
		return dto.SuggestionBundle{}, fmt.Errorf("context build failed: %w", err)
	}

	now := s.now().UTC()
	bundle := dto.SuggestionBundle{
		UserID:    userID,
		CreatedAt: now,
		Metadata: dto.BundleMetadata{
			Strategy:    strategyFallback,
			GeneratedAt: now,
		},
	}

	if s.planner != nil {
		result, planErr := s.planner.PlanCoaching(ctx, convo)
		if planErr != nil && !errors.Is(planErr, ai.ErrUnavailable) {
			s.logger.Warn().Err(planErr).Str("user_id", userID).Msg("coaching call failed")
		}
		if planErr == nil && len(result.Cards) > 0 {
			bundle.Suggestions = cardsToSuggestions(result.Cards, now)
			bundle.Metadata.Model = result.Model
			bundle.Metadata.Strategy = strategyCoaching
			bundle.Metadata.Explanation = result.Explanation
			if result.Strategy != "" {
				bundle.Metadata.Strategy = result.Strategy
			}
		}
	}

	bundle.Suggestions = mergeSuggestions(bundle.Suggestions, s.legacySuggestions(convo, now))

	s.writeCache(ctx, userID, bundle)
	return bundle, nil
}

// fallbackBundle synthesizes suggestions from the current context without
// touching the language model or the cache.
func (s *suggestionService) fallbackBundle(ctx context.Context, userID string) dto.SuggestionBundle {
	now := s.now().UTC()
	convo := ai.Context{}
	if built, err := s.contexts.BuildContext(ctx, userID); err == nil {
		convo = built
	}
	return dto.SuggestionBundle{
		UserID:      userID,
		Suggestions: s.legacySuggestions(convo, now),
		Metadata: dto.BundleMetadata{
			Strategy:    strategyFallback,
			GeneratedAt: now,
		},
		CreatedAt: now,
	}
}

// legacySuggestions reproduces the deterministic coaching cards: a
// connection ping after prolonged silence, the unanswered daily question,
// and an empty-calendar nudge.
func (s *suggestionService) legacySuggestions(convo ai.Context, now time.Time) []dto.Suggestion {
	var suggestions []dto.Suggestion

	if needsConnectionPing(convo, now) {
		tone := convo.StyleSummary
		if tone == "" {
			tone = "Keep it warm and genuine."
		}
		secondary := "No recent messages detected."
		if len(convo.RecentMessages) > 0 && convo.RecentMessages[0].Content != "" {
			secondary = fmt.Sprintf("Last exchange: %q", truncate(convo.RecentMessages[0].Content, 120))
		}
		confidence := 0.7
		suggestions = append(suggestions, dto.Suggestion{
			ID:          uuid.NewString(),
			Type:        "message_draft",
			Title:       "Send a quick note",
			Summary:     "Start a conversation to keep the connection strong.",
			Confidence:  &confidence,
			GeneratedAt: now,
			Payload: map[string]interface{}{
				"tone_hint":      tone,
				"secondary_text": secondary,
			},
			AISource: "legacy",
		})
	}

	if dq := convo.DailyQuestion; dq != nil && !dq.Answered && dq.Question != "" {
		confidence := 0.6
		suggestions = append(suggestions, dto.Suggestion{
			ID:          uuid.NewString(),
			Type:        "daily_question",
			Title:       "Answer today's reflection",
			Summary:     dq.Question,
			Confidence:  &confidence,
			GeneratedAt: now,
			Payload:     map[string]interface{}{"question": dq.Question},
			AISource:    "legacy",
		})
	}

	if len(convo.UpcomingEvents) == 0 {
		confidence := 0.4
		suggestions = append(suggestions, dto.Suggestion{
			ID:          uuid.NewString(),
			Type:        "calendar",
			Title:       "Plan something together",
			Summary:     "No shared plans in the next week. Consider scheduling a small event.",
			Confidence:  &confidence,
			GeneratedAt: now,
			Payload:     map[string]interface{}{"suggested_window": "next_7_days"},
			AISource:    "legacy",
		})
	}

	return suggestions
}

// needsConnectionPing reports whether the last exchange is older than 18
// hours. Missing or unparsable timestamps count as stale.
func needsConnectionPing(convo ai.Context, now time.Time) bool {
	if len(convo.RecentMessages) == 0 {
		return true
	}
	createdAt, err := time.Parse(time.RFC3339, convo.RecentMessages[0].CreatedAt)
	if err != nil {
		return true
	}
	return now.Sub(createdAt) > 18*time.Hour
}

func cardsToSuggestions(cards []ai.SuggestionCard, now time.Time) []dto.Suggestion {
	suggestions := make([]dto.Suggestion, 0, len(cards))
	for _, card := range cards {
		payload := map[string]interface{}{}
		if card.CallToAction != "" {
			payload["call_to_action"] = card.CallToAction
		}
		if card.SuggestedMessage != "" {
			payload["suggested_message"] = card.SuggestedMessage
		}
		suggestions = append(suggestions, dto.Suggestion{
			ID:          uuid.NewString(),
			Type:        card.Type,
			Title:       card.Title,
			Summary:     card.Summary,
			Confidence:  card.Confidence,
			GeneratedAt: now,
			Payload:     payload,
			AISource:    "model",
		})
	}
	return suggestions
}

// mergeSuggestions keeps every primary card and appends secondary cards
// whose type is not already present.
func mergeSuggestions(primary, secondary []dto.Suggestion) []dto.Suggestion {
	seen := make(map[string]struct{}, len(primary))
	for _, item := range primary {
		seen[item.Type] = struct{}{}
	}
	merged := primary
	for _, item := range secondary {
		if _, ok := seen[item.Type]; ok {
			continue
		}
		merged = append(merged, item)
	}
	return merged
}

func (s *suggestionService) readCache(ctx context.Context, userID string) (dto.SuggestionBundle, bool) {
	if s.cache == nil {
		return dto.SuggestionBundle{}, false
	}
	raw, err := s.cache.Get(ctx, suggestionCacheKeyPrefix+userID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("suggestion cache read failed")
		}
		return dto.SuggestionBundle{}, false
	}
	var bundle dto.SuggestionBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return dto.SuggestionBundle{}, false
	}
	return bundle, true
}

func (s *suggestionService) writeCache(ctx context.Context, userID string, bundle dto.SuggestionBundle) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(bundle)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, suggestionCacheKeyPrefix+userID, raw, s.cfg.CacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("suggestion cache write failed")
	}
}
