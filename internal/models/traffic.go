package models

// ActorCount is one entry of a top-talkers ranking: a client IP or user key
// together with its request count.
type ActorCount struct {
	Actor string `json:"actor"`
	Count int64  `json:"count"`
}

// TrafficStats is the per-API traffic profile derived from one observation
// window of the gateway's access logs.
type TrafficStats struct {
	APIName              string             `json:"api_name"`
	TotalRequests        int64              `json:"total_requests"`
	AvgRequestsPerHour   float64            `json:"avg_requests_per_hour"`
	MaxRequestsPerHour   int64              `json:"max_requests_per_hour"`
	MaxRequestsPerMinute int64              `json:"max_requests_per_minute"`
	PeakHour             string             `json:"peak_hour,omitempty"`
	PeakHours            []int              `json:"peak_hours"`
	UniqueIPs            int64              `json:"unique_ips"`
	UniqueUsers          int64              `json:"unique_users"`
	TopIPs               []ActorCount       `json:"top_ips"`
	TopUsers             []ActorCount       `json:"top_users"`
	AvgResponseTimeMs    float64            `json:"avg_response_time_ms"`
	StatusCodes          map[int]int64      `json:"status_codes"`
	ErrorCount           int64              `json:"error_count"`
	ErrorRate            float64            `json:"error_rate"`
	SuccessRate          float64            `json:"success_rate"`
	SensitiveData        *SensitiveExposure `json:"sensitive_data,omitempty"`
}

// KeywordExposure counts how often one sensitive keyword appeared in a log
// sample, split by where it was seen.
type KeywordExposure struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	InHeaders  int     `json:"in_headers"`
	InBody     int     `json:"in_body"`
	Exists     bool    `json:"exists"`
}

// SensitiveExposure is the result of scanning a sample of logged payloads for
// sensitive keywords. Error is set when the log store could not be queried;
// the counts are then all zero.
type SensitiveExposure struct {
	TotalLogsChecked  int                        `json:"total_logs_checked"`
	SensitiveKeywords map[string]KeywordExposure `json:"sensitive_keywords"`
	HasSensitiveData  bool                       `json:"has_sensitive_data"`
	Error             string                     `json:"error,omitempty"`
}

// TimelinePoint is one bucket of a request-volume timeline.
type TimelinePoint struct {
	Timestamp       string  `json:"timestamp"`
	Requests        int64   `json:"requests"`
	AvgResponseTime float64 `json:"avg_response_time"`
	Errors          int64   `json:"errors"`
}

// HourlyDistribution is a 24-slot heatmap of request volume by hour of day,
// accumulated across the observation window.
type HourlyDistribution struct {
	HourlyCounts  [24]int64 `json:"hourly_distribution"`
	MaxTraffic    int64     `json:"max_traffic"`
	TotalRequests int64     `json:"total_requests"`
}
