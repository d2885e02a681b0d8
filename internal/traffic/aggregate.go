package traffic

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gateguard/gateguard/internal/models"
)

// ErrInvalidRange reports an observation window whose end precedes its start.
var ErrInvalidRange = errors.New("invalid date range: end before start")

const (
	// subHourBurstFactor estimates the busiest minute from the busiest
	// hour: traffic is never spread evenly, so the per-minute peak is
	// assumed 1.5x the hourly average of that hour.
	subHourBurstFactor = 1.5

	// topPeakHours caps the hour-of-day concentration list.
	topPeakHours = 5

	// topActorCount caps the top-IP and top-user rankings.
	topActorCount = 5
)

// Aggregate reduces the log store's per-API buckets to traffic statistics
// keyed by API identifier. The window bounds only set the averaging divisor;
// windows shorter than one hour count as one hour. A bucket with zero
// documents yields all-zero stats with a 100% success rate.
func Aggregate(buckets []EntityBucket, start, end time.Time) (map[string]*models.TrafficStats, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: start %s, end %s", ErrInvalidRange,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	hours := end.Sub(start).Hours()
	if hours < 1 {
		hours = 1
	}

	stats := make(map[string]*models.TrafficStats, len(buckets))
	for i := range buckets {
		stats[buckets[i].Key] = reduceBucket(&buckets[i], hours)
	}
	return stats, nil
}

func reduceBucket(b *EntityBucket, windowHours float64) *models.TrafficStats {
	total := b.DocCount

	name := "Unknown"
	if len(b.APIName.Buckets) > 0 && b.APIName.Buckets[0].Key != "" {
		name = b.APIName.Buckets[0].Key
	}

	var (
		maxPerHour int64
		peakHour   string
		hourTotals [24]int64
		hourSeen   [24]bool
	)
	if len(b.ByHour.Buckets) > 0 {
		peak := b.ByHour.Buckets[0]
		for _, hb := range b.ByHour.Buckets[1:] {
			if hb.DocCount > peak.DocCount {
				peak = hb
			}
		}
		maxPerHour = peak.DocCount
		peakHour = peak.KeyAsString
	}
	for _, hb := range b.ByHour.Buckets {
		h, ok := HourOfDay(hb.KeyAsString)
		if !ok {
			continue
		}
		hourTotals[h] += hb.DocCount
		hourSeen[h] = true
	}

	var maxPerMinute int64
	if maxPerHour > 0 {
		maxPerMinute = int64(float64(maxPerHour) / 60 * subHourBurstFactor)
	}

	var errorRate float64
	if total > 0 {
		errorRate = float64(b.ErrorCount.DocCount) / float64(total) * 100
	}

	var avgResponse float64
	if b.AvgResponseTime.Value != nil {
		avgResponse = round2(*b.AvgResponseTime.Value)
	}

	codes := make(map[int]int64, len(b.StatusCodes.Buckets))
	for _, cb := range b.StatusCodes.Buckets {
		codes[cb.Key] = cb.DocCount
	}

	return &models.TrafficStats{
		APIName:              name,
		TotalRequests:        total,
		AvgRequestsPerHour:   round2(float64(total) / windowHours),
		MaxRequestsPerHour:   maxPerHour,
		MaxRequestsPerMinute: maxPerMinute,
		PeakHour:             peakHour,
		PeakHours:            peakHoursOf(hourTotals, hourSeen),
		UniqueIPs:            b.UniqueIPs.Value,
		UniqueUsers:          b.UniqueUsers.Value,
		TopIPs:               topActors(b.TopIPs),
		TopUsers:             topActors(b.TopUsers),
		AvgResponseTimeMs:    avgResponse,
		StatusCodes:          codes,
		ErrorCount:           b.ErrorCount.DocCount,
		ErrorRate:            round2(errorRate),
		SuccessRate:          round2(100 - errorRate),
	}
}

// peakHoursOf picks the top hours of day by accumulated count. Only hours
// that appeared in at least one histogram slot compete; ties go to the
// smaller hour. The result is sorted ascending so callers can render it as a
// time window.
func peakHoursOf(totals [24]int64, seen [24]bool) []int {
	type hourCount struct {
		hour  int
		count int64
	}
	candidates := make([]hourCount, 0, 24)
	for h := 0; h < 24; h++ {
		if seen[h] {
			candidates = append(candidates, hourCount{hour: h, count: totals[h]})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].count > candidates[j].count
	})
	if len(candidates) > topPeakHours {
		candidates = candidates[:topPeakHours]
	}
	peaks := make([]int, 0, len(candidates))
	for _, c := range candidates {
		peaks = append(peaks, c.hour)
	}
	sort.Ints(peaks)
	return peaks
}

func topActors(agg TermsAgg) []models.ActorCount {
	n := len(agg.Buckets)
	if n > topActorCount {
		n = topActorCount
	}
	actors := make([]models.ActorCount, 0, n)
	for _, tb := range agg.Buckets[:n] {
		actors = append(actors, models.ActorCount{Actor: tb.Key, Count: tb.DocCount})
	}
	return actors
}

// HourOfDay extracts the 0-23 hour from a histogram timestamp such as
// "2026-08-18T14:00:00.000Z" or "2026-08-18 14:00:00". Malformed or
// out-of-range values report ok=false and are skipped by callers.
func HourOfDay(ts string) (int, bool) {
	var rest string
	if i := strings.IndexByte(ts, 'T'); i >= 0 {
		rest = ts[i+1:]
	} else if i := strings.IndexByte(ts, ' '); i >= 0 {
		rest = ts[i+1:]
	} else {
		return 0, false
	}
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		rest = rest[:i]
	}
	h, err := strconv.Atoi(rest)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
