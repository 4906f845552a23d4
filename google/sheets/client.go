package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/lexfirm/google-services/google"
)

const DefaultBaseURL = "https://sheets.googleapis.com/v4"

// ValueInputOption controls how written values are interpreted server-side.
const (
	InputRaw         = "RAW"
	InputUserEntered = "USER_ENTERED"
)

var spreadsheetURLPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9\-_]+)`)

// SpreadsheetIDFromURL extracts the document id from a sharing URL, or returns
// the input unchanged when it already looks like a bare id.
func SpreadsheetIDFromURL(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("sheets: spreadsheet url is required")
	}
	if match := spreadsheetURLPattern.FindStringSubmatch(value); len(match) == 2 {
		return match[1], nil
	}
	if strings.ContainsAny(value, "/?#") {
		return "", fmt.Errorf("sheets: could not extract spreadsheet id from %q", value)
	}
	return value, nil
}

type ValueRange struct {
	Range          string  `json:"range,omitempty"`
	MajorDimension string  `json:"majorDimension,omitempty"`
	Values         [][]any `json:"values,omitempty"`
}

type updateResponse struct {
	UpdatedRange   string `json:"updatedRange"`
	UpdatedRows    int    `json:"updatedRows"`
	UpdatedColumns int    `json:"updatedColumns"`
	UpdatedCells   int    `json:"updatedCells"`
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

func (c *Client) GetValues(ctx context.Context, accessToken string, spreadsheetID string, readRange string) (ValueRange, error) {
	if c == nil {
		return ValueRange{}, fmt.Errorf("sheets: client is nil")
	}
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return ValueRange{}, fmt.Errorf("sheets: spreadsheet id is required")
	}
	readRange = strings.TrimSpace(readRange)
	if readRange == "" {
		return ValueRange{}, fmt.Errorf("sheets: read range is required")
	}

	endpoint := fmt.Sprintf(
		"%s/spreadsheets/%s/values/%s",
		c.baseURL,
		url.PathEscape(spreadsheetID),
		url.PathEscape(readRange),
	)
	statusCode, body, err := google.DoJSON(ctx, c.httpClient, http.MethodGet, endpoint, accessToken, "", nil)
	if err != nil {
		return ValueRange{}, err
	}
	if statusCode != http.StatusOK {
		return ValueRange{}, google.NewAPIError("sheets", statusCode, body)
	}

	var values ValueRange
	if err := json.Unmarshal(body, &values); err != nil {
		return ValueRange{}, fmt.Errorf("sheets: decode values: %w", err)
	}
	return values, nil
}

func (c *Client) UpdateValues(ctx context.Context, accessToken string, spreadsheetID string, writeRange string, values [][]any) (int, error) {
	return c.writeValues(ctx, accessToken, spreadsheetID, writeRange, values, false)
}

// AppendValues adds rows after the last row of the table found in writeRange.
func (c *Client) AppendValues(ctx context.Context, accessToken string, spreadsheetID string, writeRange string, values [][]any) (int, error) {
	return c.writeValues(ctx, accessToken, spreadsheetID, writeRange, values, true)
}

func (c *Client) writeValues(ctx context.Context, accessToken string, spreadsheetID string, writeRange string, values [][]any, appendRows bool) (int, error) {
	if c == nil {
		return 0, fmt.Errorf("sheets: client is nil")
	}
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return 0, fmt.Errorf("sheets: spreadsheet id is required")
	}
	writeRange = strings.TrimSpace(writeRange)
	if writeRange == "" {
		return 0, fmt.Errorf("sheets: write range is required")
	}

	payload, err := json.Marshal(ValueRange{Range: writeRange, Values: values})
	if err != nil {
		return 0, fmt.Errorf("sheets: encode values: %w", err)
	}

	method := http.MethodPut
	endpoint := fmt.Sprintf(
		"%s/spreadsheets/%s/values/%s?valueInputOption=%s",
		c.baseURL,
		url.PathEscape(spreadsheetID),
		url.PathEscape(writeRange),
		InputUserEntered,
	)
	if appendRows {
		method = http.MethodPost
		endpoint = fmt.Sprintf(
			"%s/spreadsheets/%s/values/%s:append?valueInputOption=%s",
			c.baseURL,
			url.PathEscape(spreadsheetID),
			url.PathEscape(writeRange),
			InputUserEntered,
		)
	}

	statusCode, body, err := google.DoJSON(ctx, c.httpClient, method, endpoint, accessToken, "application/json", payload)
	if err != nil {
		return 0, err
	}
	if statusCode != http.StatusOK {
		return 0, google.NewAPIError("sheets", statusCode, body)
	}

	var result struct {
		updateResponse
		Updates updateResponse `json:"updates"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("sheets: decode write response: %w", err)
	}
	if appendRows {
		return result.Updates.UpdatedCells, nil
	}
	return result.UpdatedCells, nil
}
