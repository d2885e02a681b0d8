package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/gateguard/gateguard/internal/models"
	"github.com/gateguard/gateguard/internal/scoring"
)

// ANSI color codes for severity output (used when Colored=true).
const (
	ansiReset   = "\033[0m"
	ansiBoldRed = "\033[1;31m"
	ansiRed     = "\033[0;31m"
	ansiYellow  = "\033[0;33m"
	ansiBlue    = "\033[0;34m"
)

// TableOptions controls which columns RenderRecommendations renders and how
// severity is coloured.
type TableOptions struct {
	// Colored wraps severity labels with ANSI codes. Default false (CI-safe).
	Colored bool

	// IncludeAction adds an ACTION column with the suggested remediation.
	IncludeAction bool
}

// ColorSeverity wraps a severity string with ANSI codes when colored is true.
// When colored is false the string is returned unchanged (CI-safe default).
func ColorSeverity(sev models.Severity, colored bool) string {
	s := string(sev)
	if !colored {
		return s
	}
	switch sev {
	case models.SeverityCritical:
		return ansiBoldRed + s + ansiReset
	case models.SeverityHigh:
		return ansiRed + s + ansiReset
	case models.SeverityMedium:
		return ansiYellow + s + ansiReset
	case models.SeverityLow:
		return ansiBlue + s + ansiReset
	default:
		return s
	}
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// FormatComponentName turns a component identifier into a display label:
// "ip_whitelist_coverage" becomes "Ip Whitelist Coverage".
func FormatComponentName(name string) string {
	words := strings.Split(strings.ReplaceAll(name, "_", " "), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// severityCell returns the severity padded to width characters.
// When colored, ANSI codes wrap only the text; trailing padding spaces are plain
// so subsequent columns stay visually aligned regardless of terminal ANSI support.
func severityCell(sev models.Severity, width int, colored bool) string {
	text := string(sev)
	if !colored {
		return fmt.Sprintf("%-*s", width, text)
	}
	var code string
	switch sev {
	case models.SeverityCritical:
		code = ansiBoldRed
	case models.SeverityHigh:
		code = ansiRed
	case models.SeverityMedium:
		code = ansiYellow
	case models.SeverityLow:
		code = ansiBlue
	default:
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := width - len(text)
	if spaces < 0 {
		spaces = 0
	}
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

// truncateField shortens s to at most max bytes for ID/label columns.
// A single-char ellipsis replaces the last byte when truncation occurs.
func truncateField(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// RenderRecommendations writes a formatted recommendations table to w.
// The separator line width is derived from the header row so all rows align
// correctly.
//
// Column order:
//
//	#  SEVERITY  CATEGORY  MESSAGE  [ACTION]
func RenderRecommendations(w io.Writer, recs []models.Recommendation, opts TableOptions) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No recommendations.")
		return
	}

	// Fixed column display widths.
	const (
		wIndex    = 3
		wSeverity = 10
		wCategory = 16
		wMessage  = 55
		wAction   = 55
	)

	var hb strings.Builder
	hb.WriteString(fmt.Sprintf("%-*s", wIndex, "#"))
	hb.WriteString(fmt.Sprintf("  %-*s", wSeverity, "SEVERITY"))
	hb.WriteString(fmt.Sprintf("  %-*s", wCategory, "CATEGORY"))
	hb.WriteString(fmt.Sprintf("  %-*s", wMessage, "MESSAGE"))
	if opts.IncludeAction {
		hb.WriteString(fmt.Sprintf("  %-*s", wAction, "ACTION"))
	}
	header := hb.String()

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for i, rec := range recs {
		var rb strings.Builder
		rb.WriteString(fmt.Sprintf("%-*d", wIndex, i+1))
		rb.WriteString("  " + severityCell(rec.Severity, wSeverity, opts.Colored))
		rb.WriteString(fmt.Sprintf("  %-*s", wCategory, truncateField(rec.Category, wCategory)))
		rb.WriteString(fmt.Sprintf("  %-*s", wMessage, ShortenMessage(rec.Message, wMessage)))
		if opts.IncludeAction {
			rb.WriteString(fmt.Sprintf("  %-*s", wAction, ShortenMessage(rec.Action, wAction)))
		}
		fmt.Fprintln(w, rb.String())
	}
}

// RenderScoreTable writes the per-component score breakdown to w, one row per
// component in the fixed evaluation order, followed by the weighted total.
// Components missing from the report are skipped.
func RenderScoreTable(w io.Writer, report *models.ScoreReport, weights map[string]float64) {
	if report == nil {
		fmt.Fprintln(w, "No score.")
		return
	}

	const (
		wComponent = 28
		wScore     = 7
		wWeight    = 7
		wContrib   = 12
	)

	header := fmt.Sprintf("%-*s  %*s  %*s  %*s",
		wComponent, "COMPONENT", wScore, "SCORE", wWeight, "WEIGHT", wContrib, "CONTRIBUTION")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, name := range scoring.ComponentOrder() {
		score, ok := report.ComponentScores[name]
		if !ok {
			continue
		}
		weight := weights[name]
		fmt.Fprintf(w, "%-*s  %*.1f  %*s  %*.2f\n",
			wComponent, truncateField(FormatComponentName(name), wComponent),
			wScore, score,
			wWeight, fmt.Sprintf("%.1f%%", weight*100),
			wContrib, score*weight)
	}

	fmt.Fprintln(w, strings.Repeat("-", len(header)))
	fmt.Fprintf(w, "%-*s  %*.1f  (%s)\n", wComponent, "TOTAL", wScore, report.TotalScore, report.SecurityLevel)
}
