package output_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gateguard/gateguard/internal/models"
	"github.com/gateguard/gateguard/internal/output"
	"github.com/gateguard/gateguard/internal/scoring"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func renderToString(recs []models.Recommendation, opts output.TableOptions) string {
	var buf bytes.Buffer
	output.RenderRecommendations(&buf, recs, opts)
	return buf.String()
}

func oneRecommendation(overrides ...func(*models.Recommendation)) models.Recommendation {
	r := models.Recommendation{
		Severity: models.SeverityHigh,
		Category: "authentication",
		Message:  "No authentication policy is enabled on this API.",
		Action:   "Add an authentication policy such as OAuth2 or JWT.",
	}
	for _, fn := range overrides {
		fn(&r)
	}
	return r
}

func fullScoreReport() *models.ScoreReport {
	scores := make(map[string]float64)
	for i, name := range scoring.ComponentOrder() {
		scores[name] = float64(100 - i*10)
	}
	return &models.ScoreReport{
		TotalScore:      72.5,
		SecurityLevel:   models.LevelFair,
		ComponentScores: scores,
	}
}

// ── ACTION column ─────────────────────────────────────────────────────────────

func TestRenderRecommendations_ActionColumn_WhenEnabled(t *testing.T) {
	out := renderToString([]models.Recommendation{oneRecommendation()}, output.TableOptions{
		IncludeAction: true,
	})
	if !strings.Contains(out, "ACTION") {
		t.Errorf("expected ACTION column header in output\ngot:\n%s", out)
	}
	if !strings.Contains(out, "Add an authentication policy") {
		t.Errorf("expected action text in output\ngot:\n%s", out)
	}
}

func TestRenderRecommendations_ActionColumn_WhenDisabled(t *testing.T) {
	out := renderToString([]models.Recommendation{oneRecommendation()}, output.TableOptions{
		IncludeAction: false,
	})
	if strings.Contains(out, "ACTION") {
		t.Errorf("ACTION column must not appear when IncludeAction=false\ngot:\n%s", out)
	}
}

// ── row numbering ─────────────────────────────────────────────────────────────

func TestRenderRecommendations_RowsAreNumbered(t *testing.T) {
	recs := []models.Recommendation{
		oneRecommendation(),
		oneRecommendation(func(r *models.Recommendation) { r.Category = "throttling" }),
	}
	out := renderToString(recs, output.TableOptions{})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and 2 rows; got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[2], "1") {
		t.Errorf("first row must start with index 1\ngot: %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "2") {
		t.Errorf("second row must start with index 2\ngot: %q", lines[3])
	}
}

// ── message shortening ────────────────────────────────────────────────────────

func TestRenderRecommendations_MessageIsTruncatedWhenTooLong(t *testing.T) {
	long := strings.Repeat("x", 100) // 100 chars, exceeds wMessage=55
	rec := oneRecommendation(func(r *models.Recommendation) { r.Message = long })
	out := renderToString([]models.Recommendation{rec}, output.TableOptions{})

	if strings.Contains(out, long) {
		t.Errorf("full 100-char message must not appear verbatim in output\ngot:\n%s", out)
	}
	if !strings.Contains(out, "...") {
		t.Errorf("truncated message must end with ellipsis\ngot:\n%s", out)
	}
}

func TestRenderRecommendations_ShortMessageIsNotTruncated(t *testing.T) {
	short := "Short message."
	rec := oneRecommendation(func(r *models.Recommendation) { r.Message = short })
	out := renderToString([]models.Recommendation{rec}, output.TableOptions{})

	if !strings.Contains(out, short) {
		t.Errorf("short message must appear verbatim\ngot:\n%s", out)
	}
}

// ── empty recommendations ─────────────────────────────────────────────────────

func TestRenderRecommendations_Empty_PrintsPlaceholder(t *testing.T) {
	out := renderToString(nil, output.TableOptions{})
	if !strings.Contains(out, "No recommendations.") {
		t.Errorf("expected 'No recommendations.' for empty slice\ngot:\n%s", out)
	}
}

func TestRenderRecommendations_Empty_NoColumnHeaders(t *testing.T) {
	out := renderToString(nil, output.TableOptions{})
	if strings.Contains(out, "SEVERITY") {
		t.Errorf("column headers must not appear for empty recommendations\ngot:\n%s", out)
	}
}

// ── color mode ────────────────────────────────────────────────────────────────

func TestRenderRecommendations_ColoredFalse_NoAnsiCodes(t *testing.T) {
	out := renderToString([]models.Recommendation{oneRecommendation()}, output.TableOptions{
		Colored: false,
	})
	if strings.Contains(out, "\033[") {
		t.Errorf("no ANSI codes must appear when Colored=false\ngot (hex): %q", out)
	}
}

func TestRenderRecommendations_ColoredTrue_HasAnsiCodes(t *testing.T) {
	out := renderToString([]models.Recommendation{oneRecommendation()}, output.TableOptions{
		Colored: true,
	})
	if !strings.Contains(out, "\033[") {
		t.Errorf("ANSI codes expected when Colored=true\ngot:\n%s", out)
	}
}

// ── score table ───────────────────────────────────────────────────────────────

func TestRenderScoreTable_ListsComponentsInEvaluationOrder(t *testing.T) {
	var buf bytes.Buffer
	output.RenderScoreTable(&buf, fullScoreReport(), scoring.DefaultWeights())
	out := buf.String()

	first := strings.Index(out, "Ip Whitelist Coverage")
	last := strings.Index(out, "Logging Status")
	if first == -1 || last == -1 {
		t.Fatalf("expected component rows in output\ngot:\n%s", out)
	}
	if first > last {
		t.Errorf("components must render in evaluation order\ngot:\n%s", out)
	}
	if !strings.Contains(out, "TOTAL") {
		t.Errorf("expected TOTAL row\ngot:\n%s", out)
	}
	if !strings.Contains(out, "(Fair)") {
		t.Errorf("expected security level next to the total\ngot:\n%s", out)
	}
}

func TestRenderScoreTable_SkipsMissingComponents(t *testing.T) {
	report := &models.ScoreReport{
		TotalScore:      80,
		SecurityLevel:   models.LevelGood,
		ComponentScores: map[string]float64{scoring.ComponentErrorRate: 100},
	}
	var buf bytes.Buffer
	output.RenderScoreTable(&buf, report, scoring.DefaultWeights())
	out := buf.String()

	if !strings.Contains(out, "Error Rate") {
		t.Errorf("expected the one scored component\ngot:\n%s", out)
	}
	if strings.Contains(out, "Quota") {
		t.Errorf("unscored components must not render\ngot:\n%s", out)
	}
}

func TestRenderScoreTable_NilReport_PrintsPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	output.RenderScoreTable(&buf, nil, scoring.DefaultWeights())
	if !strings.Contains(buf.String(), "No score.") {
		t.Errorf("expected 'No score.' for nil report\ngot:\n%s", buf.String())
	}
}

func TestRenderScoreTable_ShowsWeightAsPercentage(t *testing.T) {
	var buf bytes.Buffer
	output.RenderScoreTable(&buf, fullScoreReport(), scoring.DefaultWeights())
	if !strings.Contains(buf.String(), "20.0%") {
		t.Errorf("expected weights formatted as percentages\ngot:\n%s", buf.String())
	}
}

// ── ShortenMessage unit tests ─────────────────────────────────────────────────

func TestShortenMessage_ShortString_Unchanged(t *testing.T) {
	s := "hello"
	got := output.ShortenMessage(s, 80)
	if got != s {
		t.Errorf("got %q; want %q", got, s)
	}
}

func TestShortenMessage_ExactLength_Unchanged(t *testing.T) {
	s := strings.Repeat("a", 80)
	got := output.ShortenMessage(s, 80)
	if got != s {
		t.Errorf("string of exact max length must not be truncated")
	}
}

func TestShortenMessage_TooLong_TruncatedWithEllipsis(t *testing.T) {
	s := strings.Repeat("a", 100)
	got := output.ShortenMessage(s, 80)
	if len([]rune(got)) != 80 {
		t.Errorf("truncated string should be 80 runes, got %d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated string must end with '...', got %q", got)
	}
}

func TestShortenMessage_VerySmallMax_DoesNotPanic(t *testing.T) {
	s := "hello world"
	// max < 4 should not panic; implementation treats it as 4
	got := output.ShortenMessage(s, 2)
	if got == "" {
		t.Error("ShortenMessage with tiny max must return non-empty string")
	}
}

// ── FormatComponentName ───────────────────────────────────────────────────────

func TestFormatComponentName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ip_whitelist_coverage", "Ip Whitelist Coverage"},
		{"throttling", "Throttling"},
		{"error_rate", "Error Rate"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := output.FormatComponentName(tc.in); got != tc.want {
			t.Errorf("FormatComponentName(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}
