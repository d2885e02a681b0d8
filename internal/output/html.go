package output

import (
	"encoding/json"
	"html"
	"io"
	"strings"
	"time"

	"github.com/gateguard/gateguard/internal/models"
)

const htmlHeader = `<!DOCTYPE html>
<html>
<head>
    <title>API Security Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        h1 { color: #333; }
        table { border-collapse: collapse; width: 100%; margin: 20px 0; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #4CAF50; color: white; }
        .critical { color: #d32f2f; }
        .high { color: #f57c00; }
        .medium { color: #fbc02d; }
        .low { color: #388e3c; }
    </style>
</head>
<body>
    <h1>API Security Report</h1>
`

// WriteHTML renders the assessment as a self-contained HTML page: a heading
// with the generation time and the full report embedded as formatted JSON.
func WriteHTML(w io.Writer, a *models.Assessment) error {
	payload, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(htmlHeader)
	b.WriteString("    <p>Generated: ")
	b.WriteString(html.EscapeString(a.GeneratedAt.Format(time.RFC3339)))
	b.WriteString("</p>\n")
	b.WriteString("    <pre>")
	b.WriteString(html.EscapeString(string(payload)))
	b.WriteString("</pre>\n")
	b.WriteString("</body>\n</html>\n")

	_, err = io.WriteString(w, b.String())
	return err
}
