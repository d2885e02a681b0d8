package elastic

import (
	"context"
	"time"

	"github.com/gateguard/gateguard/internal/models"
	"github.com/gateguard/gateguard/internal/traffic"
)

// Log document field names as the gateway writes them. The names are terse
// on purpose; the gateway compresses its log schema.
const (
	fieldAPI          = "api"   // API identifier
	fieldAPIName      = "apn"   // API display name
	fieldEnvironment  = "ei"    // environment identifier
	fieldClientIP     = "hr1ra" // first remote address header
	fieldUserKey      = "uok"   // user or consumer key
	fieldResponseTime = "trt"   // total response time, ms
	fieldStatusCode   = "sc"    // HTTP status code
	fieldReqHeaders   = "fcrh"  // full client request headers
	fieldReqBody      = "fcrb"  // full client request body
	fieldTimestamp    = "@timestamp"
)

type trafficSearchResponse struct {
	Aggregations struct {
		APIs struct {
			Buckets []traffic.EntityBucket `json:"buckets"`
		} `json:"apis"`
	} `json:"aggregations"`
}

// FetchTrafficAggregation runs the per-API traffic aggregation over the
// window. An empty apiID aggregates every API in one pass.
func (c *Client) FetchTrafficAggregation(ctx context.Context, apiID string, start, end time.Time) ([]traffic.EntityBucket, error) {
	must := []map[string]any{rangeFilter(start, end)}
	if apiID != "" {
		must = append(must, termFilter(fieldAPI, apiID))
	}

	query := map[string]any{
		"size":  0,
		"query": map[string]any{"bool": map[string]any{"must": must}},
		"aggs": map[string]any{
			"apis": map[string]any{
				"terms": map[string]any{"field": fieldAPI, "size": maxEntityBuckets},
				"aggs": map[string]any{
					"api_name":    map[string]any{"terms": map[string]any{"field": fieldAPIName, "size": 1}},
					"environment": map[string]any{"terms": map[string]any{"field": fieldEnvironment, "size": 100}},
					"by_hour": map[string]any{
						"date_histogram": map[string]any{"field": fieldTimestamp, "fixed_interval": "1h"},
					},
					"unique_ips":   map[string]any{"cardinality": map[string]any{"field": fieldClientIP + ".keyword"}},
					"unique_users": map[string]any{"cardinality": map[string]any{"field": fieldUserKey + ".keyword"}},
					"top_ips":      map[string]any{"terms": map[string]any{"field": fieldClientIP + ".keyword", "size": 10}},
					"top_users":    map[string]any{"terms": map[string]any{"field": fieldUserKey + ".keyword", "size": 10}},
					"avg_response_time": map[string]any{"avg": map[string]any{"field": fieldResponseTime}},
					"status_codes":      map[string]any{"terms": map[string]any{"field": fieldStatusCode, "size": 20}},
					"error_count": map[string]any{
						"filter": map[string]any{
							"range": map[string]any{fieldStatusCode: map[string]any{"gte": errorStatusFloor}},
						},
					},
				},
			},
		},
	}

	var resp trafficSearchResponse
	if err := c.search(ctx, c.dataStreamIndices(), query, &resp); err != nil {
		return nil, err
	}
	return resp.Aggregations.APIs.Buckets, nil
}

type timelineSearchResponse struct {
	Aggregations struct {
		Timeline struct {
			Buckets []struct {
				KeyAsString     string            `json:"key_as_string"`
				DocCount        int64             `json:"doc_count"`
				AvgResponseTime traffic.AvgAgg    `json:"avg_response_time"`
				ErrorCount      traffic.FilterAgg `json:"error_count"`
			} `json:"buckets"`
		} `json:"timeline"`
	} `json:"aggregations"`
}

// FetchTimeline returns the request-volume timeline for one API at the given
// histogram interval, such as "1h" or "5m".
func (c *Client) FetchTimeline(ctx context.Context, apiID string, start, end time.Time, interval string) ([]models.TimelinePoint, error) {
	query := map[string]any{
		"size": 0,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{termFilter(fieldAPI, apiID), rangeFilter(start, end)},
			},
		},
		"aggs": map[string]any{
			"timeline": map[string]any{
				"date_histogram": map[string]any{"field": fieldTimestamp, "fixed_interval": interval},
				"aggs": map[string]any{
					"avg_response_time": map[string]any{"avg": map[string]any{"field": fieldResponseTime}},
					"error_count": map[string]any{
						"filter": map[string]any{
							"range": map[string]any{fieldStatusCode: map[string]any{"gte": errorStatusFloor}},
						},
					},
				},
			},
		},
	}

	var resp timelineSearchResponse
	if err := c.search(ctx, c.dataStreamIndices(), query, &resp); err != nil {
		return nil, err
	}

	points := make([]models.TimelinePoint, 0, len(resp.Aggregations.Timeline.Buckets))
	for _, b := range resp.Aggregations.Timeline.Buckets {
		var avg float64
		if b.AvgResponseTime.Value != nil {
			avg = *b.AvgResponseTime.Value
		}
		points = append(points, models.TimelinePoint{
			Timestamp:       b.KeyAsString,
			Requests:        b.DocCount,
			AvgResponseTime: avg,
			Errors:          b.ErrorCount.DocCount,
		})
	}
	return points, nil
}

type hourlySearchResponse struct {
	Aggregations struct {
		ByHour traffic.DateHistogramAgg `json:"by_hour"`
	} `json:"aggregations"`
}

// FetchHourlyDistribution builds the hour-of-day heatmap for one API across
// the window.
func (c *Client) FetchHourlyDistribution(ctx context.Context, apiID string, start, end time.Time) (*models.HourlyDistribution, error) {
	query := map[string]any{
		"size": 0,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{termFilter(fieldAPI, apiID), rangeFilter(start, end)},
			},
		},
		"aggs": map[string]any{
			"by_hour": map[string]any{
				"date_histogram": map[string]any{"field": fieldTimestamp, "calendar_interval": "hour"},
			},
		},
	}

	var resp hourlySearchResponse
	if err := c.search(ctx, c.indexPattern, query, &resp); err != nil {
		return nil, err
	}

	dist := &models.HourlyDistribution{}
	for _, b := range resp.Aggregations.ByHour.Buckets {
		h, ok := traffic.HourOfDay(b.KeyAsString)
		if !ok {
			continue
		}
		dist.HourlyCounts[h] += b.DocCount
		dist.TotalRequests += b.DocCount
		if dist.HourlyCounts[h] > dist.MaxTraffic {
			dist.MaxTraffic = dist.HourlyCounts[h]
		}
	}
	return dist, nil
}
