package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	plannerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "together",
		Subsystem: "agent_llm",
		Name:      "request_duration_seconds",
		Help:      "Duration of language model requests",
	}, []string{"operation", "model"})

	plannerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "together",
		Subsystem: "agent_llm",
		Name:      "request_failures_total",
		Help:      "Number of failed language model requests",
	}, []string{"operation", "model"})
)

// OpenAIConfig defines configuration options for the OpenAI-backed planner.
type OpenAIConfig struct {
	APIKey         string
	Model          string
	MaxTokens      int
	Temperature    float32
	RequestTimeout time.Duration
	Cooldown       time.Duration
	Logger         zerolog.Logger
}

// OpenAIPlanner implements Planner against the OpenAI chat completion API.
// After a backend failure it enters a cooldown window during which every
// call short-circuits to ErrUnavailable, so callers fall back to
// deterministic planning instead of compounding latency against a failing
// dependency.
type OpenAIPlanner struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
	now    func() time.Time

	mu           sync.Mutex
	coolingUntil time.Time
}

// NewOpenAIPlanner builds the planner. Availability is evaluated here, once,
// at startup: a missing key is a constructor error, not a runtime surprise.
func NewOpenAIPlanner(cfg OpenAIConfig) (*OpenAIPlanner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 640
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 6 * time.Second
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}

	return &OpenAIPlanner{
		client: openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey)),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/together-agent-api/pkg/ai/openai"),
		logger: cfg.Logger,
		now:    time.Now,
	}, nil
}

// PlanActions asks the model for next-best actions for an activity event.
func (p *OpenAIPlanner) PlanActions(ctx context.Context, event EventInput, conversation Context) (PlanResult, error) {
	payload, err := p.complete(ctx, "plan_actions", buildActionPrompt(event, conversation), actionPlanSchema)
	if err != nil {
		return PlanResult{}, err
	}
	result := decodePlanPayload(payload)
	result.Model = p.cfg.Model
	return result, nil
}

// PlanCoaching asks the model for coaching suggestion cards.
func (p *OpenAIPlanner) PlanCoaching(ctx context.Context, conversation Context) (CoachingResult, error) {
	payload, err := p.complete(ctx, "plan_coaching", buildCoachingPrompt(conversation), coachingSchema)
	if err != nil {
		return CoachingResult{}, err
	}
	result := decodeCoachingPayload(payload)
	result.Model = p.cfg.Model
	return result, nil
}

// AnalyzeTone asks the model to analyse a draft message.
func (p *OpenAIPlanner) AnalyzeTone(ctx context.Context, draft string, conversation Context) (ToneAnalysis, error) {
	if strings.TrimSpace(draft) == "" {
		return ToneAnalysis{}, ErrUnavailable
	}
	payload, err := p.complete(ctx, "analyze_tone", buildTonePrompt(draft, conversation), toneSchema)
	if err != nil {
		return ToneAnalysis{}, err
	}
	analysis := decodeTonePayload(payload, draft)
	analysis.Model = p.cfg.Model
	return analysis, nil
}

func (p *OpenAIPlanner) available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.coolingUntil.IsZero() || !p.now().Before(p.coolingUntil)
}

func (p *OpenAIPlanner) enterCooldown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.coolingUntil = p.now().Add(p.cfg.Cooldown)
}

// payloadSchema is satisfied by the compiled jsonschema documents.
type payloadSchema interface {
	Validate(v interface{}) error
}

func (p *OpenAIPlanner) complete(parent context.Context, operation, prompt string, schema payloadSchema) (map[string]interface{}, error) {
	if !p.available() {
		return nil, fmt.Errorf("%w: cooling down", ErrUnavailable)
	}

	ctx, span := p.tracer.Start(parent, "openai."+operation, trace.WithAttributes(
		attribute.String("model", p.cfg.Model),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: plannerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	plannerDuration.WithLabelValues(operation, p.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		plannerFailures.WithLabelValues(operation, p.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.enterCooldown()
		p.logger.Warn().Err(err).Str("operation", operation).Msg("language model request failed; entering cooldown")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		plannerFailures.WithLabelValues(operation, p.cfg.Model).Inc()
		return nil, fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	var payload map[string]interface{}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		plannerFailures.WithLabelValues(operation, p.cfg.Model).Inc()
		p.logger.Warn().Err(err).Str("operation", operation).Msg("language model returned unparseable JSON")
		return nil, fmt.Errorf("%w: malformed output", ErrUnavailable)
	}

	if err := schema.Validate(map[string]interface{}(payload)); err != nil {
		plannerFailures.WithLabelValues(operation, p.cfg.Model).Inc()
		p.logger.Warn().Err(err).Str("operation", operation).Msg("language model output failed schema validation")
		return nil, fmt.Errorf("%w: schema violation", ErrUnavailable)
	}

	return payload, nil
}

const plannerSystemPrompt = "You are the Together relationship agent. Respond strictly with JSON matching the requested schema. Keep language warm, supportive, and concise."

func buildActionPrompt(event EventInput, conversation Context) string {
	parts := []string{
		"Given the new activity, outline the next best actions as JSON.",
		"Event type: " + event.EventType,
		"Workflow scenario: " + event.Scenario,
	}
	if conversation.PartnerStatus != "" {
		parts = append(parts, "Partner status: "+conversation.PartnerStatus)
	}
	if len(event.Payload) > 0 {
		if serialized, err := json.Marshal(event.Payload); err == nil {
			text := string(serialized)
			if len(text) > 800 {
				text = text[:800]
			}
			parts = append(parts, "Event payload: "+text)
		}
	}
	if conversation.DailyQuestion != nil {
		if serialized, err := json.Marshal(conversation.DailyQuestion); err == nil {
			parts = append(parts, "Daily question context: "+string(serialized))
		}
	}
	if block := renderMessages(conversation.RecentMessages); block != "" {
		parts = append(parts, "Recent messages:\n"+block)
	}
	if block := renderEvents(conversation.UpcomingEvents); block != "" {
		parts = append(parts, "Upcoming events:\n"+block)
	}
	if conversation.StyleSummary != "" {
		parts = append(parts, "User style summary: "+conversation.StyleSummary)
	}
	parts = append(parts, "Return JSON with an actions array. Each action needs action_type, title, summary, optional confidence (0-1), requires_approval (boolean), optional call_to_action (<=120 chars), optional suggested_message (<=220 chars), optional rationale. Prefer 1-2 focused actions grounded in the context.")
	return strings.Join(parts, "\n\n")
}

func buildCoachingPrompt(conversation Context) string {
	parts := []string{
		"Produce 1-2 concise coaching suggestion cards as JSON.",
	}
	if conversation.PartnerStatus != "" {
		parts = append(parts, "Partner status: "+conversation.PartnerStatus)
	}
	if dq := conversation.DailyQuestion; dq != nil && dq.Question != "" {
		parts = append(parts, "Today's shared reflection question: "+dq.Question)
		if dq.YourAnswer != "" {
			parts = append(parts, "User answered: "+dq.YourAnswer)
		}
		if dq.PartnerAnswer != "" {
			parts = append(parts, "Partner answered: "+dq.PartnerAnswer)
		}
	}
	if block := renderEvents(conversation.UpcomingEvents); block != "" {
		parts = append(parts, "Upcoming events:\n"+block)
	}
	if block := renderMessages(conversation.RecentMessages); block != "" {
		parts = append(parts, "Recent messages:\n"+block)
	}
	parts = append(parts, "Each card requires: type keyword (message_draft/daily_question/calendar/custom), short title, summary (<=200 chars), optional confidence (0-1), optional call_to_action, optional suggested_message (<=200 chars).")
	return strings.Join(parts, "\n\n")
}

func buildTonePrompt(draft string, conversation Context) string {
	parts := []string{
		"Analyse the draft and respond with compact JSON (keep strings short).",
		"Partner status: " + orUnknown(conversation.PartnerStatus),
	}
	if conversation.StyleSummary != "" {
		parts = append(parts, "User style profile summary: "+conversation.StyleSummary)
	}
	if block := renderMessages(conversation.RecentMessages); block != "" {
		parts = append(parts, "Recent message history:\n"+block)
	}
	parts = append(parts, "Draft message:\n"+draft)
	parts = append(parts, "Return JSON with sentiment (positive/neutral/negative/mixed), confidence (0-1), short tone_summary, strengths[], coaching_tips[], optional suggested_reply, warnings[] (omit when empty). Keep each string under 160 characters. The suggested_reply must be an improved version of the user's draft that they can send next. Keep the sender's first-person perspective and never role-play the partner. Do not invent personal status updates about the sender unless the draft already makes that claim.")
	return strings.Join(parts, "\n\n")
}

func renderMessages(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	lines := make([]string, 0, len(messages))
	for i, message := range messages {
		if i >= 5 {
			break
		}
		author := message.Author
		if author == "" {
			author = "User"
		}
		lines = append(lines, "- "+author+": "+message.Content)
	}
	return strings.Join(lines, "\n")
}

func renderEvents(events []CalendarEvent) string {
	if len(events) == 0 {
		return ""
	}
	lines := make([]string, 0, len(events))
	for i, event := range events {
		if i >= 5 {
			break
		}
		lines = append(lines, "- "+event.Title+" at "+event.StartTime)
	}
	return strings.Join(lines, "\n")
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
