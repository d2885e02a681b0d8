package output

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gateguard/gateguard/internal/models"
	"github.com/gateguard/gateguard/internal/scoring"
)

// Workbook palette. The score scale runs green for strong scores to red for
// failing ones, and severities reuse the same colors so the two sheets read
// consistently.
const (
	colorHeaderNavy = "1a237e"
	colorWhite      = "FFFFFF"
	colorAlertRed   = "FF0000"
	colorBlack      = "000000"

	colorExcellent = "2e7d32"
	colorGood      = "558b2f"
	colorFair      = "f9a825"
	colorPoor      = "ef6c00"
	colorCritical  = "c62828"
)

// WriteExcel renders the assessment as a workbook with Summary, Components,
// Recommendations and Traffic Stats sheets.
func WriteExcel(w io.Writer, a *models.Assessment) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return fmt.Errorf("building workbook: %w", err)
	}
	if err := writeSummarySheet(f, a); err != nil {
		return fmt.Errorf("building workbook: %w", err)
	}
	if err := writeComponentsSheet(f, a); err != nil {
		return fmt.Errorf("building workbook: %w", err)
	}
	if err := writeRecommendationsSheet(f, a); err != nil {
		return fmt.Errorf("building workbook: %w", err)
	}
	if a.TrafficStats != nil {
		if err := writeTrafficSheet(f, a.TrafficStats); err != nil {
			return fmt.Errorf("building workbook: %w", err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// sheetWriter wraps one sheet of a workbook and remembers the first error so
// cell writes can be chained without checking each call.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func newSheet(f *excelize.File, name string) (*sheetWriter, error) {
	if _, err := f.NewSheet(name); err != nil {
		return nil, err
	}
	return &sheetWriter{f: f, sheet: name}, nil
}

func (s *sheetWriter) set(cell string, value any) {
	if s.err == nil {
		s.err = s.f.SetCellValue(s.sheet, cell, value)
	}
}

func (s *sheetWriter) style(from, to string, style *excelize.Style) {
	if s.err != nil {
		return
	}
	id, err := s.f.NewStyle(style)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetCellStyle(s.sheet, from, to, id)
}

func (s *sheetWriter) merge(from, to string) {
	if s.err == nil {
		s.err = s.f.MergeCell(s.sheet, from, to)
	}
}

func (s *sheetWriter) width(col string, width float64) {
	if s.err == nil {
		s.err = s.f.SetColWidth(s.sheet, col, col, width)
	}
}

func headerStyle() *excelize.Style {
	return &excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: colorWhite},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colorHeaderNavy}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}
}

func writeSummarySheet(f *excelize.File, a *models.Assessment) error {
	sw := &sheetWriter{f: f, sheet: "Summary"}

	sw.set("A1", "API Security Report")
	sw.style("A1", "A1", &excelize.Style{Font: &excelize.Font{Bold: true, Size: 18, Color: colorHeaderNavy}})
	sw.merge("A1", "D1")

	sw.set("A3", "API Name:")
	sw.set("B3", a.APIName)
	sw.set("A4", "Report Period:")
	sw.set("B4", formatPeriod(a.DateRange))
	sw.set("A5", "Generated:")
	sw.set("B5", time.Now().Format("2006-01-02 15:04:05"))

	if a.Score != nil {
		sw.set("A7", "Security Score:")
		sw.set("B7", a.Score.TotalScore)
		sw.style("B7", "B7", &excelize.Style{Font: &excelize.Font{Bold: true, Size: 24, Color: scoreColor(a.Score.TotalScore)}})
		sw.set("A8", "Security Level:")
		sw.set("B8", string(a.Score.SecurityLevel))
		sw.style("B8", "B8", &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	}

	sw.width("A", 20)
	sw.width("B", 40)
	return sw.err
}

func writeComponentsSheet(f *excelize.File, a *models.Assessment) error {
	sw, err := newSheet(f, "Components")
	if err != nil {
		return err
	}

	for i, header := range []string{"Component", "Score", "Weight", "Contribution"} {
		sw.set(cellRef(i, 1), header)
	}
	sw.style("A1", "D1", headerStyle())

	if a.Score != nil {
		row := 2
		for _, name := range scoring.ComponentOrder() {
			score, ok := a.Score.ComponentScores[name]
			if !ok {
				continue
			}
			weight := a.Weights[name]
			sw.set(cellRef(0, row), FormatComponentName(name))
			sw.set(cellRef(1, row), round(score, 2))
			sw.set(cellRef(2, row), round(weight, 4))
			sw.set(cellRef(3, row), round(score*weight, 2))
			row++
		}
	}

	for _, col := range []string{"A", "B", "C", "D"} {
		sw.width(col, 25)
	}
	return sw.err
}

func writeRecommendationsSheet(f *excelize.File, a *models.Assessment) error {
	sw, err := newSheet(f, "Recommendations")
	if err != nil {
		return err
	}

	for i, header := range []string{"#", "Severity", "Category", "Message", "Action"} {
		sw.set(cellRef(i, 1), header)
	}
	sw.style("A1", "E1", headerStyle())

	if a.Score != nil {
		for i, rec := range a.Score.Recommendations {
			row := i + 2
			sw.set(cellRef(0, row), i+1)
			sw.set(cellRef(1, row), strings.ToUpper(string(rec.Severity)))
			sw.style(cellRef(1, row), cellRef(1, row), &excelize.Style{Font: &excelize.Font{Bold: true, Color: severityColor(rec.Severity)}})
			sw.set(cellRef(2, row), FormatComponentName(rec.Category))
			sw.set(cellRef(3, row), rec.Message)
			sw.set(cellRef(4, row), rec.Action)
		}
	}

	sw.width("A", 5)
	sw.width("B", 15)
	sw.width("C", 20)
	sw.width("D", 50)
	sw.width("E", 50)
	return sw.err
}

func writeTrafficSheet(f *excelize.File, stats *models.TrafficStats) error {
	sw, err := newSheet(f, "Traffic Stats")
	if err != nil {
		return err
	}

	sw.set("A1", "Metric")
	sw.set("B1", "Value")
	sw.style("A1", "B1", headerStyle())

	metrics := []struct {
		name  string
		value any
	}{
		{"Total Requests", stats.TotalRequests},
		{"Unique IPs", stats.UniqueIPs},
		{"Avg Requests/Hour", round(stats.AvgRequestsPerHour, 2)},
		{"Max Requests/Hour", stats.MaxRequestsPerHour},
		{"Error Rate (%)", round(stats.ErrorRate, 2)},
	}
	row := 2
	for _, m := range metrics {
		sw.set(cellRef(0, row), m.name)
		sw.set(cellRef(1, row), m.value)
		row++
	}

	// One blank row, then the keyword findings block.
	if exp := stats.SensitiveData; exp != nil && exp.HasSensitiveData {
		row++
		sw.set(cellRef(0, row), "Sensitive Data Found:")
		sw.style(cellRef(0, row), cellRef(0, row), &excelize.Style{Font: &excelize.Font{Bold: true, Color: colorAlertRed}})
		row++

		sw.set(cellRef(0, row), "Keyword")
		sw.set(cellRef(1, row), "Count")
		sw.set(cellRef(2, row), "Percentage")
		sw.style(cellRef(0, row), cellRef(2, row), &excelize.Style{Font: &excelize.Font{Bold: true}})
		row++

		for _, keyword := range sortedKeywords(exp.SensitiveKeywords) {
			info := exp.SensitiveKeywords[keyword]
			sw.set(cellRef(0, row), keyword)
			sw.set(cellRef(1, row), info.Count)
			sw.set(cellRef(2, row), fmt.Sprintf("%.2f%%", info.Percentage))
			row++
		}
	}

	sw.width("A", 30)
	sw.width("B", 20)
	sw.width("C", 20)
	return sw.err
}

// cellRef names the cell at zero-based column col and one-based row.
func cellRef(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}

func round(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

func scoreColor(score float64) string {
	switch {
	case score >= 90:
		return colorExcellent
	case score >= 75:
		return colorGood
	case score >= 60:
		return colorFair
	case score >= 40:
		return colorPoor
	default:
		return colorCritical
	}
}

func severityColor(sev models.Severity) string {
	switch sev {
	case models.SeverityCritical:
		return colorCritical
	case models.SeverityHigh:
		return colorPoor
	case models.SeverityMedium:
		return colorFair
	case models.SeverityLow:
		return colorGood
	default:
		return colorBlack
	}
}
