// Package output renders assessments for people: terminal tables for the CLI
// and downloadable JSON, CSV, HTML and Excel documents for the HTTP API.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gateguard/gateguard/internal/models"
)

// Supported export formats.
const (
	FormatJSON  = "json"
	FormatCSV   = "csv"
	FormatHTML  = "html"
	FormatExcel = "excel"
)

var contentTypes = map[string]string{
	FormatJSON:  "application/json",
	FormatCSV:   "text/csv",
	FormatHTML:  "text/html",
	FormatExcel: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ContentType returns the MIME type for an export format, or "" when the
// format is not supported.
func ContentType(format string) string {
	return contentTypes[format]
}

// Extension returns the file extension for an export format.
func Extension(format string) string {
	if format == FormatExcel {
		return "xlsx"
	}
	return format
}

// ReportFilename builds the download filename for an exported report, for
// example "security_report_orders-api_20260314_152304.xlsx". Spaces in the
// API name are replaced so the name survives a Content-Disposition header.
func ReportFilename(apiName, format string, now time.Time) string {
	name := strings.ReplaceAll(apiName, " ", "_")
	return fmt.Sprintf("security_report_%s_%s.%s", name, now.Format("20060102_150405"), Extension(format))
}

// Export writes the assessment to w in the requested format.
func Export(w io.Writer, format string, a *models.Assessment) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, a)
	case FormatCSV:
		return WriteCSV(w, a)
	case FormatHTML:
		return WriteHTML(w, a)
	case FormatExcel:
		return WriteExcel(w, a)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
