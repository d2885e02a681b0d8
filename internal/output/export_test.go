package output_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gateguard/gateguard/internal/models"
	"github.com/gateguard/gateguard/internal/output"
	"github.com/gateguard/gateguard/internal/scoring"
)

// ── fixture ───────────────────────────────────────────────────────────────────

func sampleAssessment() *models.Assessment {
	return &models.Assessment{
		ReportID:    "r-1",
		GeneratedAt: time.Date(2026, 3, 10, 8, 15, 0, 0, time.UTC),
		APIID:       "64a1f05e9b2c3d4e5f6a7b8c",
		APIName:     "orders-api",
		DateRange: models.DateRange{
			Start: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		Score: &models.ScoreReport{
			TotalScore:    72.5,
			SecurityLevel: models.LevelFair,
			ComponentScores: map[string]float64{
				scoring.ComponentAuthentication: 100,
				scoring.ComponentErrorRate:      80,
			},
			Recommendations: []models.Recommendation{
				{
					Severity: models.SeverityHigh,
					Category: "throttling",
					Message:  "No throttling policy is enabled.",
					Action:   "Add a throttling policy to limit request rates.",
				},
			},
		},
		TrafficStats: &models.TrafficStats{
			APIName:            "orders-api",
			TotalRequests:      240,
			UniqueIPs:          12,
			AvgRequestsPerHour: 10,
			MaxRequestsPerHour: 200,
			ErrorRate:          5,
			SensitiveData: &models.SensitiveExposure{
				TotalLogsChecked: 200,
				HasSensitiveData: true,
				SensitiveKeywords: map[string]models.KeywordExposure{
					"password": {Count: 3, Percentage: 1.5, InBody: 3, Exists: true},
				},
			},
		},
		Weights: map[string]float64{
			scoring.ComponentAuthentication: 0.20,
			scoring.ComponentErrorRate:      0.05,
		},
	}
}

// ── JSON ──────────────────────────────────────────────────────────────────────

func TestWriteJSON_IndentsTwoSpaces(t *testing.T) {
	var buf bytes.Buffer
	if err := output.WriteJSON(&buf, sampleAssessment()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "\n  \"report_id\": \"r-1\"") {
		t.Errorf("expected two-space-indented report_id field\ngot:\n%s", out)
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Errorf("expected trailing newline after the document\ngot tail: %q", out[len(out)-4:])
	}
}

// ── CSV ───────────────────────────────────────────────────────────────────────

func TestWriteCSV_StartsWithBOM(t *testing.T) {
	var buf bytes.Buffer
	if err := output.WriteCSV(&buf, sampleAssessment()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}) {
		t.Errorf("CSV output must start with a UTF-8 BOM")
	}
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parsing CSV back: %v", err)
	}
	return records
}

func findRow(records [][]string, first string) []string {
	for _, row := range records {
		if len(row) > 0 && row[0] == first {
			return row
		}
	}
	return nil
}

func TestWriteCSV_SectionsParseBack(t *testing.T) {
	var buf bytes.Buffer
	if err := output.WriteCSV(&buf, sampleAssessment()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	records := parseCSV(t, buf.Bytes())

	if row := findRow(records, "API Name"); row == nil || row[1] != "orders-api" {
		t.Errorf("expected API Name row with orders-api; got %v", row)
	}
	if row := findRow(records, "Report Period"); row == nil || row[1] != "2026-03-03 to 2026-03-10" {
		t.Errorf("expected report period row; got %v", row)
	}
	if row := findRow(records, "Security Score"); row == nil || row[1] != "72.50" {
		t.Errorf("expected security score 72.50; got %v", row)
	}
	if row := findRow(records, "Authentication Strength"); row == nil || row[1] != "100.00" || row[2] != "0.2000" || row[3] != "20.00" {
		t.Errorf("expected component row with score, weight and contribution; got %v", row)
	}
	if row := findRow(records, "1"); row == nil || row[1] != "HIGH" || row[2] != "Throttling" {
		t.Errorf("expected numbered recommendation row; got %v", row)
	}
	if row := findRow(records, "Total Requests"); row == nil || row[1] != "240" {
		t.Errorf("expected traffic metric row; got %v", row)
	}
	if row := findRow(records, "password"); row == nil || row[1] != "3" || row[2] != "1.50%" {
		t.Errorf("expected sensitive keyword row; got %v", row)
	}
}

func TestWriteCSV_NoTrafficSection_WhenStatsMissing(t *testing.T) {
	a := sampleAssessment()
	a.TrafficStats = nil

	var buf bytes.Buffer
	if err := output.WriteCSV(&buf, a); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	records := parseCSV(t, buf.Bytes())
	if findRow(records, "Total Requests") != nil {
		t.Error("traffic section must be omitted when stats are missing")
	}
}

// ── HTML ──────────────────────────────────────────────────────────────────────

func TestWriteHTML_ContainsReportPage(t *testing.T) {
	var buf bytes.Buffer
	if err := output.WriteHTML(&buf, sampleAssessment()); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<h1>API Security Report</h1>",
		"Generated: 2026-03-10T08:15:00Z",
		"orders-api",
		"</html>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in HTML output\ngot:\n%s", want, out)
		}
	}
}

func TestWriteHTML_EscapesEmbeddedMarkup(t *testing.T) {
	a := sampleAssessment()
	a.APIName = "<script>alert(1)</script>"

	var buf bytes.Buffer
	if err := output.WriteHTML(&buf, a); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Error("embedded markup must not survive into the page")
	}
}

// ── Excel ─────────────────────────────────────────────────────────────────────

func TestWriteExcel_WorkbookRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := output.WriteExcel(&buf, sampleAssessment()); err != nil {
		t.Fatalf("WriteExcel: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	for _, want := range []string{"Summary", "Components", "Recommendations", "Traffic Stats"} {
		found := false
		for _, s := range sheets {
			if s == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected sheet %q; got %v", want, sheets)
		}
	}

	if got, _ := f.GetCellValue("Summary", "A1"); got != "API Security Report" {
		t.Errorf("Summary!A1 = %q; want report title", got)
	}
	if got, _ := f.GetCellValue("Summary", "B7"); got != "72.5" {
		t.Errorf("Summary!B7 = %q; want total score", got)
	}
	if got, _ := f.GetCellValue("Components", "A2"); got != "Authentication Strength" {
		t.Errorf("Components!A2 = %q; want first scored component", got)
	}
	if got, _ := f.GetCellValue("Recommendations", "B2"); got != "HIGH" {
		t.Errorf("Recommendations!B2 = %q; want upper-cased severity", got)
	}
	if got, _ := f.GetCellValue("Traffic Stats", "B2"); got != "240" {
		t.Errorf("Traffic Stats!B2 = %q; want total requests", got)
	}
	if got, _ := f.GetCellValue("Traffic Stats", "A8"); got != "Sensitive Data Found:" {
		t.Errorf("Traffic Stats!A8 = %q; want sensitive data marker", got)
	}
	if got, _ := f.GetCellValue("Traffic Stats", "A10"); got != "password" {
		t.Errorf("Traffic Stats!A10 = %q; want keyword row", got)
	}
}

func TestWriteExcel_SkipsTrafficSheet_WhenStatsMissing(t *testing.T) {
	a := sampleAssessment()
	a.TrafficStats = nil

	var buf bytes.Buffer
	if err := output.WriteExcel(&buf, a); err != nil {
		t.Fatalf("WriteExcel: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()

	for _, s := range f.GetSheetList() {
		if s == "Traffic Stats" {
			t.Error("Traffic Stats sheet must be omitted when stats are missing")
		}
	}
}

// ── format helpers ────────────────────────────────────────────────────────────

func TestExport_UnsupportedFormat(t *testing.T) {
	err := output.Export(&bytes.Buffer{}, "pdf", sampleAssessment())
	if err == nil || !strings.Contains(err.Error(), "unsupported export format") {
		t.Errorf("got %v; want unsupported format error", err)
	}
}

func TestReportFilename(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 15, 0, 0, time.UTC)
	got := output.ReportFilename("orders api", output.FormatExcel, now)
	want := "security_report_orders_api_20260310_081500.xlsx"
	if got != want {
		t.Errorf("got %q; want %q", got, want)
	}
}

func TestContentType(t *testing.T) {
	if got := output.ContentType(output.FormatExcel); got != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("excel content type = %q", got)
	}
	if got := output.ContentType("pdf"); got != "" {
		t.Errorf("unknown format must map to empty content type; got %q", got)
	}
}
