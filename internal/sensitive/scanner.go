package sensitive

import (
	"context"
	"math"
	"strings"

	"github.com/gateguard/gateguard/internal/models"
)

// Record is one sampled log entry: the logged request headers and body as
// free-text blobs.
type Record struct {
	Headers   string
	Body      string
	Timestamp string
}

// RecordFetcher retrieves the most recent logged payloads for one API.
type RecordFetcher interface {
	FetchRecentRecords(ctx context.Context, apiID string, limit int) ([]Record, error)
}

// Scanner samples an API's recent logs and reports sensitive-keyword
// exposure. A fetch failure never fails the scan: it degrades to a zero
// exposure carrying the error text, so scoring can proceed.
type Scanner struct {
	fetcher  RecordFetcher
	keywords []string
}

// NewScanner builds a Scanner over the given fetcher. An empty keyword list
// falls back to DefaultKeywords.
func NewScanner(fetcher RecordFetcher, keywords []string) *Scanner {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	return &Scanner{fetcher: fetcher, keywords: keywords}
}

// Keywords returns the keyword list the scanner matches against.
func (s *Scanner) Keywords() []string {
	return s.keywords
}

// Scan fetches up to sampleSize recent records for the API and scans them.
func (s *Scanner) Scan(ctx context.Context, apiID string, sampleSize int) *models.SensitiveExposure {
	records, err := s.fetcher.FetchRecentRecords(ctx, apiID, sampleSize)
	if err != nil {
		return &models.SensitiveExposure{
			SensitiveKeywords: map[string]models.KeywordExposure{},
			Error:             err.Error(),
		}
	}
	return ScanRecords(records, s.keywords)
}

// ScanRecords matches every keyword against every record, case-insensitively.
// A record counts at most once per keyword even when the keyword appears in
// both headers and body. Keywords that never match are omitted from the
// result.
func ScanRecords(records []Record, keywords []string) *models.SensitiveExposure {
	type tally struct {
		count     int
		inHeaders int
		inBody    int
	}

	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		normalized = append(normalized, strings.ToLower(kw))
	}

	tallies := make(map[string]*tally, len(normalized))
	for _, r := range records {
		headers := strings.ToLower(r.Headers)
		body := strings.ToLower(r.Body)
		for _, kw := range normalized {
			inHeaders := strings.Contains(headers, kw)
			inBody := strings.Contains(body, kw)
			if !inHeaders && !inBody {
				continue
			}
			t := tallies[kw]
			if t == nil {
				t = &tally{}
				tallies[kw] = t
			}
			t.count++
			if inHeaders {
				t.inHeaders++
			}
			if inBody {
				t.inBody++
			}
		}
	}

	total := len(records)
	exposures := make(map[string]models.KeywordExposure, len(tallies))
	for kw, t := range tallies {
		var pct float64
		if total > 0 {
			pct = round2(float64(t.count) / float64(total) * 100)
		}
		exposures[kw] = models.KeywordExposure{
			Count:      t.count,
			Percentage: pct,
			InHeaders:  t.inHeaders,
			InBody:     t.inBody,
			Exists:     true,
		}
	}

	return &models.SensitiveExposure{
		TotalLogsChecked:  total,
		SensitiveKeywords: exposures,
		HasSensitiveData:  len(exposures) > 0,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
