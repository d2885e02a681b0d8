// Package traffic turns raw log-store aggregation buckets into per-API
// traffic statistics. The aggregation itself runs inside the log store; this
// package owns the shape of the buckets it returns and the pure reduction
// from buckets to stats.
package traffic

// TermBucket is one bucket of a string-keyed terms aggregation.
type TermBucket struct {
	Key      string `json:"key"`
	DocCount int64  `json:"doc_count"`
}

// NumericTermBucket is one bucket of a numeric terms aggregation, such as the
// status-code breakdown.
type NumericTermBucket struct {
	Key      int   `json:"key"`
	DocCount int64 `json:"doc_count"`
}

// DateBucket is one slot of a date histogram.
type DateBucket struct {
	Key         int64  `json:"key"`
	KeyAsString string `json:"key_as_string"`
	DocCount    int64  `json:"doc_count"`
}

// TermsAgg holds the buckets of a terms aggregation.
type TermsAgg struct {
	Buckets []TermBucket `json:"buckets"`
}

// NumericTermsAgg holds the buckets of a numeric terms aggregation.
type NumericTermsAgg struct {
	Buckets []NumericTermBucket `json:"buckets"`
}

// DateHistogramAgg holds the slots of a date histogram.
type DateHistogramAgg struct {
	Buckets []DateBucket `json:"buckets"`
}

// CardinalityAgg is a distinct-count metric.
type CardinalityAgg struct {
	Value int64 `json:"value"`
}

// AvgAgg is an average metric. Value is nil when the bucket holds no
// documents with the averaged field.
type AvgAgg struct {
	Value *float64 `json:"value"`
}

// FilterAgg is the document count of a filter sub-aggregation.
type FilterAgg struct {
	DocCount int64 `json:"doc_count"`
}

// EntityBucket is the per-API bucket produced by the log store's traffic
// aggregation: one terms bucket keyed by API identifier, carrying every
// sub-aggregation the reduction needs.
type EntityBucket struct {
	Key             string           `json:"key"`
	DocCount        int64            `json:"doc_count"`
	APIName         TermsAgg         `json:"api_name"`
	ByHour          DateHistogramAgg `json:"by_hour"`
	UniqueIPs       CardinalityAgg   `json:"unique_ips"`
	UniqueUsers     CardinalityAgg   `json:"unique_users"`
	TopIPs          TermsAgg         `json:"top_ips"`
	TopUsers        TermsAgg         `json:"top_users"`
	AvgResponseTime AvgAgg           `json:"avg_response_time"`
	StatusCodes     NumericTermsAgg  `json:"status_codes"`
	ErrorCount      FilterAgg        `json:"error_count"`
}
