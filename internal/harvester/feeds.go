package harvester

import (
	"context"
	"time"
)

// FeedMessage is one conversation message observed by the message feed.
type FeedMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// QuizCompletion is one finished compatibility session.
type QuizCompletion struct {
	SessionID   string    `json:"session_id"`
	UserIDs     []string  `json:"user_ids"`
	Score       *float64  `json:"score,omitempty"`
	Matches     *int      `json:"matches,omitempty"`
	Total       *int      `json:"total,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// MissedReflection is a daily question left unanswered past the threshold.
type MissedReflection struct {
	UserID    string    `json:"user_id"`
	Question  string    `json:"question"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageFeed pages new messages after an opaque cursor, oldest first.
type MessageFeed interface {
	MessagesAfter(ctx context.Context, cursor string, limit int) ([]FeedMessage, string, error)
}

// QuizFeed lists quiz completions after the given instant, oldest first.
type QuizFeed interface {
	CompletionsAfter(ctx context.Context, since time.Time, limit int) ([]QuizCompletion, error)
}

// ReflectionFeed lists reflections unanswered on or before the threshold date.
type ReflectionFeed interface {
	MissedReflections(ctx context.Context, thresholdDate string) ([]MissedReflection, error)
}

// CalendarFeed reports users with no shared plans inside the window.
type CalendarFeed interface {
	UsersWithoutPlans(ctx context.Context, from, to time.Time) ([]string, error)
}
