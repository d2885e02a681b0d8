// Package elastic queries the gateway's traffic log store over its HTTP
// search API. One Client serves one named connection from the configuration
// store; the Registry resolves connection names to ready clients.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gateguard/gateguard/internal/models"
)

const (
	defaultTimeout = 60 * time.Second

	// errorStatusFloor is the status code from which a request counts as
	// failed in the error-rate aggregations.
	errorStatusFloor = 400

	// maxEntityBuckets bounds the per-API terms aggregation.
	maxEntityBuckets = 10000
)

// esTimeLayout renders window bounds the way the log store's range filter
// expects them. The trailing Z is appended separately; the store always
// receives UTC.
const esTimeLayout = "2006-01-02T15:04:05.000"

// Client is an HTTP client for one log-store connection.
type Client struct {
	baseURL      string
	indexPattern string
	username     string
	password     string
	httpClient   *http.Client
}

// NewClient builds a Client from a stored connection definition.
func NewClient(conn models.ElasticConnection) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(conn.URL, "/"),
		indexPattern: conn.IndexPattern,
		httpClient:   &http.Client{Timeout: defaultTimeout},
	}
	if conn.Authenticate {
		c.username = conn.Username
		c.password = conn.Password
	}
	return c
}

// dataStreamIndices returns the wildcard over the data stream's backing
// indices, which is where the aggregation queries must run.
func (c *Client) dataStreamIndices() string {
	return ".ds-" + c.indexPattern + "-*"
}

// search POSTs a query to index/_search and decodes the response into out.
func (c *Client) search(ctx context.Context, index string, query map[string]any, out any) error {
	body, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("encoding search query: %w", err)
	}

	url := c.baseURL + "/" + index + "/_search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("searching %s: %w", index, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("searching %s: status %d: %s", index, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding search response from %s: %w", index, err)
	}
	return nil
}

// Ping checks that the log store answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("log store answered with status %d", resp.StatusCode)
	}
	return nil
}

// formatWindowBound renders one bound of the observation window.
func formatWindowBound(t time.Time) string {
	return t.UTC().Format(esTimeLayout) + "Z"
}

// rangeFilter builds the @timestamp window filter shared by every query.
func rangeFilter(start, end time.Time) map[string]any {
	return map[string]any{
		"range": map[string]any{
			"@timestamp": map[string]any{
				"gte": formatWindowBound(start),
				"lte": formatWindowBound(end),
			},
		},
	}
}

func termFilter(field, value string) map[string]any {
	return map[string]any{"term": map[string]any{field: value}}
}
