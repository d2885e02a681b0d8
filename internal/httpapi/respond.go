package httpapi

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gateguard/gateguard/internal/models"
)

// envelope is the JSON wrapper every endpoint answers with.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("httpapi: encoding response: %v", err)
	}
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// dateLayouts are the accepted shapes of start_date/end_date parameters:
// full RFC 3339, a bare datetime, or a bare date.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want ISO 8601)", value)
}

// dateRange resolves the start_date/end_date query parameters, defaulting to
// a window of defaultDays ending now and enforcing the server's maximum.
func (s *Server) dateRange(q url.Values, defaultDays int) (models.DateRange, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -defaultDays)

	if v := q.Get("start_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return models.DateRange{}, err
		}
		start = t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return models.DateRange{}, err
		}
		end = t
	}

	if end.Before(start) {
		return models.DateRange{}, fmt.Errorf("end_date precedes start_date")
	}
	if max := time.Duration(s.maxRangeDays) * 24 * time.Hour; end.Sub(start) > max {
		return models.DateRange{}, fmt.Errorf("date range exceeds %d days", s.maxRangeDays)
	}
	return models.DateRange{Start: start, End: end}, nil
}

// connectionName returns the requested log-store connection, falling back to
// the server default.
func (s *Server) connectionName(q url.Values) string {
	if name := q.Get("es_name"); name != "" {
		return name
	}
	return s.defaultConn
}
