package elastic

import (
	"context"

	"github.com/gateguard/gateguard/internal/sensitive"
)

type recordsSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				Headers   string `json:"fcrh"`
				Body      string `json:"fcrb"`
				Timestamp string `json:"@timestamp"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// FetchRecentRecords returns the newest logged payloads for one API, up to
// limit records, for the sensitive-field scan.
func (c *Client) FetchRecentRecords(ctx context.Context, apiID string, limit int) ([]sensitive.Record, error) {
	query := map[string]any{
		"size": limit,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{termFilter(fieldAPI, apiID)},
			},
		},
		"sort":    []map[string]any{{fieldTimestamp: map[string]any{"order": "desc"}}},
		"_source": []string{fieldReqHeaders, fieldReqBody, fieldTimestamp},
	}

	var resp recordsSearchResponse
	if err := c.search(ctx, c.indexPattern, query, &resp); err != nil {
		return nil, err
	}

	records := make([]sensitive.Record, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		records = append(records, sensitive.Record{
			Headers:   hit.Source.Headers,
			Body:      hit.Source.Body,
			Timestamp: hit.Source.Timestamp,
		})
	}
	return records, nil
}
