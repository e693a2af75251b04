package harvester

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/together-agent-api/internal/models"
	"github.com/noah-isme/together-agent-api/internal/observability"
	"github.com/noah-isme/together-agent-api/internal/repository"
	"github.com/noah-isme/together-agent-api/internal/service"
)

// Cursor names used by the incremental polls.
const (
	cursorMessagesLastID    = "messages:last_id"
	cursorQuizLastCompleted = "quiz:last_completed_at"
	cursorCalendarLastCheck = "calendar:last_check_at"
)

const (
	messageBatchLimit = 500
	quizBatchLimit    = 200
)

// Harvester translates one domain feed into activity events.
type Harvester interface {
	Name() string
	Harvest(ctx context.Context) error
}

// MessageHarvester records message_sent/message_received pairs for new
// messages, advancing an opaque id cursor.
type MessageHarvester struct {
	feed     MessageFeed
	activity service.ActivityService
	cursors  repository.CursorRepository
}

func NewMessageHarvester(feed MessageFeed, activity service.ActivityService, cursors repository.CursorRepository) *MessageHarvester {
	return &MessageHarvester{feed: feed, activity: activity, cursors: cursors}
}

func (h *MessageHarvester) Name() string { return "messages" }

func (h *MessageHarvester) Harvest(ctx context.Context) error {
	cursor, err := h.cursors.Get(ctx, cursorMessagesLastID)
	if err != nil {
		return err
	}

	messages, next, err := h.feed.MessagesAfter(ctx, cursor, messageBatchLimit)
	if err != nil {
		return err
	}

	for _, msg := range messages {
		snippet := msg.Content
		if len(snippet) > 160 {
			snippet = snippet[:157] + "..."
		}
		payload := map[string]interface{}{
			"message_id":  msg.ID,
			"preview":     snippet,
			"sender_id":   msg.SenderID,
			"receiver_id": msg.ReceiverID,
		}

		if msg.SenderID != "" {
			if err := h.record(ctx, service.RecordEventInput{
				UserID:     msg.SenderID,
				EventType:  models.EventMessageSent,
				Source:     "messages",
				Scenario:   models.ScenarioDailyCheckIn,
				Payload:    payload,
				DedupeKey:  fmt.Sprintf("msg:%s:sender", msg.ID),
				OccurredAt: msg.CreatedAt,
			}); err != nil {
				return err
			}
		}
		if msg.ReceiverID != "" {
			if err := h.record(ctx, service.RecordEventInput{
				UserID:     msg.ReceiverID,
				EventType:  models.EventMessageReceived,
				Source:     "messages",
				Scenario:   models.ScenarioDailyCheckIn,
				Payload:    payload,
				DedupeKey:  fmt.Sprintf("msg:%s:receiver", msg.ID),
				OccurredAt: msg.CreatedAt,
			}); err != nil {
				return err
			}
		}
	}

	if next != "" && next != cursor {
		return h.cursors.Set(ctx, cursorMessagesLastID, next)
	}
	return nil
}

func (h *MessageHarvester) record(ctx context.Context, input service.RecordEventInput) error {
	if _, err := h.activity.RecordEvent(ctx, input); err != nil {
		return err
	}
	observability.HarvestedEvents.WithLabelValues(h.Name()).Inc()
	return nil
}

// QuizHarvester records quiz_completed events per participant, advancing a
// completed-at cursor.
type QuizHarvester struct {
	feed     QuizFeed
	activity service.ActivityService
	cursors  repository.CursorRepository
}

func NewQuizHarvester(feed QuizFeed, activity service.ActivityService, cursors repository.CursorRepository) *QuizHarvester {
	return &QuizHarvester{feed: feed, activity: activity, cursors: cursors}
}

func (h *QuizHarvester) Name() string { return "quiz" }

func (h *QuizHarvester) Harvest(ctx context.Context) error {
	since := time.Time{}
	if raw, err := h.cursors.Get(ctx, cursorQuizLastCompleted); err != nil {
		return err
	} else if raw != "" {
		parsed, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr == nil {
			since = parsed
		}
	}

	completions, err := h.feed.CompletionsAfter(ctx, since, quizBatchLimit)
	if err != nil {
		return err
	}

	var latest time.Time
	for _, session := range completions {
		payload := map[string]interface{}{
			"session_id": session.SessionID,
		}
		if session.Score != nil {
			payload["score"] = *session.Score
		}
		if session.Matches != nil {
			payload["matches"] = *session.Matches
		}
		if session.Total != nil {
			payload["total"] = *session.Total
		}

		for _, userID := range session.UserIDs {
			if userID == "" {
				continue
			}
			if _, err := h.activity.RecordEvent(ctx, service.RecordEventInput{
				UserID:     userID,
				EventType:  models.EventQuizCompleted,
				Source:     "quiz_sessions",
				Scenario:   models.ScenarioQuizFollowUp,
				Payload:    payload,
				DedupeKey:  fmt.Sprintf("quiz:%s:%s", session.SessionID, userID),
				OccurredAt: session.CompletedAt,
			}); err != nil {
				return err
			}
			observability.HarvestedEvents.WithLabelValues(h.Name()).Inc()
		}
		if session.CompletedAt.After(latest) {
			latest = session.CompletedAt
		}
	}

	if !latest.IsZero() {
		return h.cursors.Set(ctx, cursorQuizLastCompleted, latest.UTC().Format(time.RFC3339))
	}
	return nil
}

// ReflectionHarvester records daily_question_missed events for reflections
// unanswered longer than the threshold. The per-user-per-date dedupe key
// keeps repeated polls idempotent without a cursor.
type ReflectionHarvester struct {
	feed      ReflectionFeed
	activity  service.ActivityService
	threshold time.Duration
	now       func() time.Time
}

func NewReflectionHarvester(feed ReflectionFeed, activity service.ActivityService, threshold time.Duration) *ReflectionHarvester {
	if threshold <= 0 {
		threshold = 24 * time.Hour
	}
	return &ReflectionHarvester{feed: feed, activity: activity, threshold: threshold, now: time.Now}
}

func (h *ReflectionHarvester) Name() string { return "daily_questions" }

func (h *ReflectionHarvester) Harvest(ctx context.Context) error {
	threshold := h.now().UTC().Add(-h.threshold)
	missed, err := h.feed.MissedReflections(ctx, threshold.Format("2006-01-02"))
	if err != nil {
		return err
	}

	for _, record := range missed {
		if record.UserID == "" {
			continue
		}
		occurredAt := record.CreatedAt
		if occurredAt.IsZero() {
			if parsed, parseErr := time.Parse("2006-01-02", record.Date); parseErr == nil {
				occurredAt = parsed
			} else {
				occurredAt = threshold
			}
		}
		if _, err := h.activity.RecordEvent(ctx, service.RecordEventInput{
			UserID:    record.UserID,
			EventType: models.EventDailyQuestionMissed,
			Source:    "daily_questions",
			Scenario:  models.ScenarioDailyCheckIn,
			Payload: map[string]interface{}{
				"question": record.Question,
				"date":     record.Date,
			},
			DedupeKey:  fmt.Sprintf("daily-miss:%s:%s", record.UserID, record.Date),
			OccurredAt: occurredAt,
		}); err != nil {
			return err
		}
		observability.HarvestedEvents.WithLabelValues(h.Name()).Inc()
	}
	return nil
}

// CalendarGapHarvester records calendar_gap_detected events for users with
// an empty seven-day window, at most once per check interval.
type CalendarGapHarvester struct {
	feed     CalendarFeed
	activity service.ActivityService
	cursors  repository.CursorRepository
	interval time.Duration
	now      func() time.Time
}

func NewCalendarGapHarvester(feed CalendarFeed, activity service.ActivityService, cursors repository.CursorRepository, interval time.Duration) *CalendarGapHarvester {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &CalendarGapHarvester{feed: feed, activity: activity, cursors: cursors, interval: interval, now: time.Now}
}

func (h *CalendarGapHarvester) Name() string { return "calendar" }

func (h *CalendarGapHarvester) Harvest(ctx context.Context) error {
	now := h.now().UTC()

	if raw, err := h.cursors.Get(ctx, cursorCalendarLastCheck); err != nil {
		return err
	} else if raw != "" {
		if lastRun, parseErr := time.Parse(time.RFC3339, raw); parseErr == nil && now.Sub(lastRun) < h.interval {
			return nil
		}
	}

	windowEnd := now.Add(7 * 24 * time.Hour)
	userIDs, err := h.feed.UsersWithoutPlans(ctx, now, windowEnd)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		if userID == "" {
			continue
		}
		if _, err := h.activity.RecordEvent(ctx, service.RecordEventInput{
			UserID:    userID,
			EventType: models.EventCalendarGapDetected,
			Source:    "events",
			Scenario:  models.ScenarioAnniversaryPlanning,
			Payload: map[string]interface{}{
				"gap_window_start": now.Format(time.RFC3339),
				"gap_window_end":   windowEnd.Format(time.RFC3339),
			},
			DedupeKey:  fmt.Sprintf("calendar-gap:%s:%s", userID, now.Format("2006-01-02")),
			OccurredAt: now,
		}); err != nil {
			return err
		}
		observability.HarvestedEvents.WithLabelValues(h.Name()).Inc()
	}

	return h.cursors.Set(ctx, cursorCalendarLastCheck, now.Format(time.RFC3339))
}
