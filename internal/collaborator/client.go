package collaborator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/together-agent-api/internal/harvester"
	"github.com/noah-isme/together-agent-api/pkg/ai"
)

// Config locates the platform core that owns users, messages, reflections,
// quizzes, and the calendar.
type Config struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// Client is the JSON client for the platform core's internal API. It
// implements the service collaborator contracts and the harvester feeds.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     zerolog.Logger
}

// NewClient constructs the collaborator client.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("collaborator base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		token:      cfg.APIToken,
		logger:     logger.With().Str("component", "collaborator_client").Logger(),
	}, nil
}

// SendMessage delivers a composed message on the user's behalf.
func (c *Client) SendMessage(ctx context.Context, userID, content string) (map[string]interface{}, error) {
	var result map[string]interface{}
	err := c.do(ctx, http.MethodPost, "/internal/messages", map[string]interface{}{
		"user_id": userID,
		"content": content,
	}, &result)
	return result, err
}

// CreateEvent creates a shared calendar event on the user's behalf.
func (c *Client) CreateEvent(ctx context.Context, userID, title, date, timeOfDay, description string) (map[string]interface{}, error) {
	var result map[string]interface{}
	err := c.do(ctx, http.MethodPost, "/internal/calendar/events", map[string]interface{}{
		"user_id":     userID,
		"title":       title,
		"date":        date,
		"time":        timeOfDay,
		"description": description,
	}, &result)
	return result, err
}

// BuildContext fetches the bounded conversational context for a user.
func (c *Client) BuildContext(ctx context.Context, userID string) (ai.Context, error) {
	var convo ai.Context
	err := c.do(ctx, http.MethodGet, "/internal/agent-context/"+url.PathEscape(userID), nil, &convo)
	return convo, err
}

// MessagesAfter pages new messages past an opaque cursor, oldest first.
func (c *Client) MessagesAfter(ctx context.Context, cursor string, limit int) ([]harvester.FeedMessage, string, error) {
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if cursor != "" {
		query.Set("after", cursor)
	}
	var payload struct {
		Messages   []harvester.FeedMessage `json:"messages"`
		NextCursor string                  `json:"next_cursor"`
	}
	if err := c.do(ctx, http.MethodGet, "/internal/feeds/messages?"+query.Encode(), nil, &payload); err != nil {
		return nil, "", err
	}
	return payload.Messages, payload.NextCursor, nil
}

// CompletionsAfter lists quiz completions after the given instant.
func (c *Client) CompletionsAfter(ctx context.Context, since time.Time, limit int) ([]harvester.QuizCompletion, error) {
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if !since.IsZero() {
		query.Set("since", since.UTC().Format(time.RFC3339))
	}
	var payload struct {
		Completions []harvester.QuizCompletion `json:"completions"`
	}
	if err := c.do(ctx, http.MethodGet, "/internal/feeds/quiz-completions?"+query.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Completions, nil
}

// MissedReflections lists reflections unanswered on or before the date.
func (c *Client) MissedReflections(ctx context.Context, thresholdDate string) ([]harvester.MissedReflection, error) {
	query := url.Values{"threshold_date": {thresholdDate}}
	var payload struct {
		Missed []harvester.MissedReflection `json:"missed"`
	}
	if err := c.do(ctx, http.MethodGet, "/internal/feeds/missed-reflections?"+query.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Missed, nil
}

// UsersWithoutPlans lists users whose shared calendar is empty in the window.
func (c *Client) UsersWithoutPlans(ctx context.Context, from, to time.Time) ([]string, error) {
	query := url.Values{
		"from": {from.UTC().Format(time.RFC3339)},
		"to":   {to.UTC().Format(time.RFC3339)},
	}
	var payload struct {
		UserIDs []string `json:"user_ids"`
	}
	if err := c.do(ctx, http.MethodGet, "/internal/feeds/calendar-gaps?"+query.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	return payload.UserIDs, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("collaborator call %s %s failed: status %d: %s", method, path, resp.StatusCode, snippet)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
