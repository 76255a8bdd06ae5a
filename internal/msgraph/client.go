// Package msgraph reads Outlook calendars through Microsoft Graph so their
// events can be imported as fixed slots.
package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/christopherklint97/dayslot/internal/calendar"
)

const (
	defaultBaseURL = "https://graph.microsoft.com/v1.0"
	maxRetries     = 3
)

// TokenSource yields bearer tokens for Graph requests.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client lists calendar events. It implements calendar.Source.
type Client struct {
	tokens     TokenSource
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		tokens:     tokens,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type calendarView struct {
	Value    []graphEvent `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

type graphEvent struct {
	Subject     string        `json:"subject"`
	Start       graphDateTime `json:"start"`
	End         graphDateTime `json:"end"`
	IsCancelled bool          `json:"isCancelled"`
	IsAllDay    bool          `json:"isAllDay"`
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// Events returns the timed, non-cancelled events between start and end.
func (c *Client) Events(ctx context.Context, start, end time.Time) ([]calendar.Event, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"startDateTime": {start.UTC().Format("2006-01-02T15:04:05")},
		"endDateTime":   {end.UTC().Format("2006-01-02T15:04:05")},
		"$select":       {"subject,start,end,isCancelled,isAllDay"},
		"$top":          {"100"},
		"$orderby":      {"start/dateTime"},
	}

	next := c.baseURL + "/me/calendarView?" + params.Encode()
	var events []calendar.Event
	for next != "" {
		page, link, err := c.page(ctx, token, next)
		if err != nil {
			return nil, err
		}
		events = append(events, page...)
		next = link
	}

	c.logger.Debug("graph events fetched", "count", len(events))
	return events, nil
}

func (c *Client) page(ctx context.Context, token, pageURL string) ([]calendar.Event, string, error) {
	body, err := c.get(ctx, token, pageURL)
	if err != nil {
		return nil, "", err
	}

	var view calendarView
	if err := json.Unmarshal(body, &view); err != nil {
		return nil, "", fmt.Errorf("parsing graph response: %w", err)
	}

	var events []calendar.Event
	for _, ge := range view.Value {
		if ge.IsCancelled || ge.IsAllDay || ge.Subject == "" {
			continue
		}
		start, err := parseDateTime(ge.Start)
		if err != nil {
			c.logger.Debug("skipping event", "subject", ge.Subject, "error", err)
			continue
		}
		end, err := parseDateTime(ge.End)
		if err != nil {
			c.logger.Debug("skipping event", "subject", ge.Subject, "error", err)
			continue
		}
		events = append(events, calendar.Event{Summary: ge.Subject, StartTime: start, EndTime: end})
	}
	return events, view.NextLink, nil
}

// get fetches pageURL, retrying throttled and failed requests with
// exponential backoff.
func (c *Client) get(ctx context.Context, token, pageURL string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating graph request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Prefer", `outlook.timezone="UTC"`)

		resp, err := c.httpClient.Do(req)
		if err == nil && resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("reading graph response: %w", err)
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return nil, fmt.Errorf("graph API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
			}
			return body, nil
		}

		if err == nil {
			resp.Body.Close()
			err = fmt.Errorf("graph API returned status %d", resp.StatusCode)
		}
		if attempt == maxRetries {
			return nil, fmt.Errorf("graph request failed after %d retries: %w", maxRetries, err)
		}
		c.logger.Debug("retrying graph request", "attempt", attempt+1, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
}

// parseDateTime reads Graph's "2006-01-02T15:04:05.0000000" timestamps.
func parseDateTime(gdt graphDateTime) (time.Time, error) {
	loc := time.UTC
	if gdt.TimeZone != "" && gdt.TimeZone != "UTC" {
		if l, err := time.LoadLocation(gdt.TimeZone); err == nil {
			loc = l
		}
	}

	for _, layout := range []string{"2006-01-02T15:04:05.0000000", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, gdt.DateTime, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse datetime %q", gdt.DateTime)
}

var backoff = func(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
