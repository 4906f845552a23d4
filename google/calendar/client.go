package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lexfirm/google-services/google"
)

const (
	DefaultBaseURL    = "https://www.googleapis.com/calendar/v3"
	DefaultCalendarID = "primary"
)

// EventTime is either a timed instant (DateTime) or an all-day date (Date).
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type Event struct {
	ID          string    `json:"id,omitempty"`
	Status      string    `json:"status,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       EventTime `json:"start,omitempty"`
	End         EventTime `json:"end,omitempty"`
	HTMLLink    string    `json:"htmlLink,omitempty"`
}

type eventListPayload struct {
	Items         []Event `json:"items"`
	NextPageToken string  `json:"nextPageToken"`
}

type ListEventsRequest struct {
	CalendarID string
	TimeMin    time.Time
	TimeMax    time.Time
	MaxResults int
}

type ClientConfig struct {
	BaseURL    string
	HTTPClient google.HTTPDoer
}

type Client struct {
	baseURL    string
	httpClient google.HTTPDoer
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = google.DefaultHTTPClient()
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// ListEvents pages through the calendar until MaxResults events are collected
// or the listing is exhausted.
func (c *Client) ListEvents(ctx context.Context, accessToken string, req ListEventsRequest) ([]Event, error) {
	if c == nil {
		return nil, fmt.Errorf("calendar: client is nil")
	}
	calendarID := resolveCalendarID(req.CalendarID)

	events := []Event{}
	pageToken := ""
	for {
		query := url.Values{}
		query.Set("singleEvents", "true")
		query.Set("orderBy", "startTime")
		if !req.TimeMin.IsZero() {
			query.Set("timeMin", req.TimeMin.UTC().Format(time.RFC3339))
		}
		if !req.TimeMax.IsZero() {
			query.Set("timeMax", req.TimeMax.UTC().Format(time.RFC3339))
		}
		if req.MaxResults > 0 {
			query.Set("maxResults", strconv.Itoa(req.MaxResults))
		}
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		endpoint := fmt.Sprintf("%s/calendars/%s/events?%s", c.baseURL, url.PathEscape(calendarID), query.Encode())
		statusCode, body, err := google.DoJSON(ctx, c.httpClient, http.MethodGet, endpoint, accessToken, "", nil)
		if err != nil {
			return nil, err
		}
		if statusCode != http.StatusOK {
			return nil, google.NewAPIError("calendar", statusCode, body)
		}

		var payload eventListPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("calendar: decode event list: %w", err)
		}
		events = append(events, payload.Items...)

		pageToken = strings.TrimSpace(payload.NextPageToken)
		if pageToken == "" {
			break
		}
		if req.MaxResults > 0 && len(events) >= req.MaxResults {
			events = events[:req.MaxResults]
			break
		}
	}
	return events, nil
}

func (c *Client) InsertEvent(ctx context.Context, accessToken string, calendarID string, event Event) (Event, error) {
	if c == nil {
		return Event{}, fmt.Errorf("calendar: client is nil")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return Event{}, fmt.Errorf("calendar: encode event: %w", err)
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(resolveCalendarID(calendarID)))
	statusCode, body, err := google.DoJSON(ctx, c.httpClient, http.MethodPost, endpoint, accessToken, "application/json", payload)
	if err != nil {
		return Event{}, err
	}
	if statusCode != http.StatusOK {
		return Event{}, google.NewAPIError("calendar", statusCode, body)
	}

	var created Event
	if err := json.Unmarshal(body, &created); err != nil {
		return Event{}, fmt.Errorf("calendar: decode created event: %w", err)
	}
	return created, nil
}

func (c *Client) DeleteEvent(ctx context.Context, accessToken string, calendarID string, eventID string) error {
	if c == nil {
		return fmt.Errorf("calendar: client is nil")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("calendar: event id is required")
	}

	endpoint := fmt.Sprintf(
		"%s/calendars/%s/events/%s",
		c.baseURL,
		url.PathEscape(resolveCalendarID(calendarID)),
		url.PathEscape(eventID),
	)
	statusCode, body, err := google.DoJSON(ctx, c.httpClient, http.MethodDelete, endpoint, accessToken, "", nil)
	if err != nil {
		return err
	}
	if statusCode != http.StatusNoContent && statusCode != http.StatusOK {
		return google.NewAPIError("calendar", statusCode, body)
	}
	return nil
}

func resolveCalendarID(calendarID string) string {
	calendarID = strings.TrimSpace(calendarID)
	if calendarID == "" {
		return DefaultCalendarID
	}
	return calendarID
}
