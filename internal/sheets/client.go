// Package sheets reads value ranges from the Google Sheets v4 REST API using a plain API key.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codyseavey/treasury-tracker/internal/metrics"
	"github.com/codyseavey/treasury-tracker/internal/models"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com"
	defaultTimeout = 8 * time.Second
)

// Client reads ranges from one spreadsheet
type Client struct {
	client        *http.Client
	baseURL       string
	spreadsheetID string
	apiKey        string
}

// ValueRange is one range of cell values, rows first
type ValueRange struct {
	Range  string     `json:"range"`
	Values [][]string `json:"values"`
}

type valueRangeResponse struct {
	Range  string  `json:"range"`
	Values [][]any `json:"values"`
}

type batchGetResponse struct {
	SpreadsheetID string               `json:"spreadsheetId"`
	ValueRanges   []valueRangeResponse `json:"valueRanges"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewClient creates a Sheets client. An empty baseURL or zero timeout selects the defaults.
func NewClient(baseURL, spreadsheetID, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		client:        &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(baseURL, "/"),
		spreadsheetID: spreadsheetID,
		apiKey:        apiKey,
	}
}

// BatchGet reads several ranges in one request. Results are returned in request order.
// A single unknown range fails the whole batch.
func (c *Client) BatchGet(ctx context.Context, ranges []string) ([]ValueRange, error) {
	if len(ranges) == 0 {
		return nil, nil
	}

	params := url.Values{}
	for _, r := range ranges {
		params.Add("ranges", r)
	}
	params.Set("majorDimension", "ROWS")
	params.Set("valueRenderOption", "FORMATTED_VALUE")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	reqURL := fmt.Sprintf("%s/v4/spreadsheets/%s/values:batchGet?%s", c.baseURL, url.PathEscape(c.spreadsheetID), params.Encode())

	var resp batchGetResponse
	if err := c.get(ctx, reqURL, &resp); err != nil {
		metrics.SheetReadsTotal.WithLabelValues("batch", "failed").Inc()
		return nil, err
	}
	metrics.SheetReadsTotal.WithLabelValues("batch", "success").Inc()

	out := make([]ValueRange, 0, len(resp.ValueRanges))
	for _, vr := range resp.ValueRanges {
		out = append(out, ValueRange{Range: vr.Range, Values: stringify(vr.Values)})
	}
	return out, nil
}

// Get reads a single range
func (c *Client) Get(ctx context.Context, rng string) (ValueRange, error) {
	params := url.Values{}
	params.Set("majorDimension", "ROWS")
	params.Set("valueRenderOption", "FORMATTED_VALUE")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	reqURL := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?%s", c.baseURL, url.PathEscape(c.spreadsheetID), url.PathEscape(rng), params.Encode())

	var resp valueRangeResponse
	if err := c.get(ctx, reqURL, &resp); err != nil {
		metrics.SheetReadsTotal.WithLabelValues("single", "failed").Inc()
		return ValueRange{}, err
	}
	metrics.SheetReadsTotal.WithLabelValues("single", "success").Inc()

	return ValueRange{Range: resp.Range, Values: stringify(resp.Values)}, nil
}

func (c *Client) get(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sheets request failed: %v", models.ErrSourceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read sheets response: %v", models.ErrSourceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%w: sheets API error (status %d): %s", models.ErrSourceUnavailable, resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("%w: sheets API returned status %d", models.ErrSourceUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to parse sheets response: %v", models.ErrSourceUnavailable, err)
	}
	return nil
}

// stringify converts formatted cells to strings; numbers only appear when a caller asks for unformatted values
func stringify(rows [][]any) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, v := range row {
			switch t := v.(type) {
			case nil:
			case string:
				cells[j] = t
			case float64:
				cells[j] = strconv.FormatFloat(t, 'f', -1, 64)
			default:
				cells[j] = fmt.Sprint(t)
			}
		}
		out[i] = cells
	}
	return out
}

// Records maps each data row onto the header row. Header cells are trimmed and
// short rows are padded with empty strings.
func (v ValueRange) Records() (header []string, records []map[string]string) {
	if len(v.Values) == 0 {
		return nil, nil
	}
	header = make([]string, len(v.Values[0]))
	for i, h := range v.Values[0] {
		header[i] = strings.TrimSpace(h)
	}
	for _, row := range v.Values[1:] {
		rec := make(map[string]string, len(header))
		empty := true
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(row) {
				rec[h] = strings.TrimSpace(row[i])
				if rec[h] != "" {
					empty = false
				}
			} else {
				rec[h] = ""
			}
		}
		if !empty {
			records = append(records, rec)
		}
	}
	return header, records
}

// MissingColumns returns the required columns absent from header
func MissingColumns(header []string, required ...string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, r := range required {
		if !present[r] {
			missing = append(missing, r)
		}
	}
	return missing
}
