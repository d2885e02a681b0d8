package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/gateguard/gateguard/internal/models"
	"github.com/gateguard/gateguard/internal/scoring"
)

// utf8BOM keeps spreadsheet applications from misreading the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes the assessment as a sectioned CSV document: report header,
// component scores, recommendations and traffic metrics, separated by blank
// rows.
func WriteCSV(w io.Writer, a *models.Assessment) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)

	cw.Write([]string{"API Security Report"})
	cw.Write([]string{"API Name", a.APIName})
	cw.Write([]string{"API ID", a.APIID})
	cw.Write([]string{"Report Period", formatPeriod(a.DateRange)})
	cw.Write([]string{"Generated", a.GeneratedAt.Format("2006-01-02 15:04:05")})
	if a.Score != nil {
		cw.Write([]string{"Security Score", formatFloat(a.Score.TotalScore, 2)})
		cw.Write([]string{"Security Level", string(a.Score.SecurityLevel)})
	}

	if a.Score != nil {
		cw.Write(nil)
		cw.Write([]string{"Component", "Score", "Weight", "Contribution"})
		for _, name := range scoring.ComponentOrder() {
			score, ok := a.Score.ComponentScores[name]
			if !ok {
				continue
			}
			weight := a.Weights[name]
			cw.Write([]string{
				FormatComponentName(name),
				formatFloat(score, 2),
				formatFloat(weight, 4),
				formatFloat(score*weight, 2),
			})
		}

		cw.Write(nil)
		cw.Write([]string{"#", "Severity", "Category", "Message", "Action"})
		for i, rec := range a.Score.Recommendations {
			cw.Write([]string{
				strconv.Itoa(i + 1),
				strings.ToUpper(string(rec.Severity)),
				FormatComponentName(rec.Category),
				rec.Message,
				rec.Action,
			})
		}
	}

	if stats := a.TrafficStats; stats != nil {
		cw.Write(nil)
		cw.Write([]string{"Metric", "Value"})
		cw.Write([]string{"Total Requests", strconv.FormatInt(stats.TotalRequests, 10)})
		cw.Write([]string{"Unique IPs", strconv.FormatInt(stats.UniqueIPs, 10)})
		cw.Write([]string{"Avg Requests/Hour", formatFloat(stats.AvgRequestsPerHour, 2)})
		cw.Write([]string{"Max Requests/Hour", strconv.FormatInt(stats.MaxRequestsPerHour, 10)})
		cw.Write([]string{"Error Rate (%)", formatFloat(stats.ErrorRate, 2)})

		if exp := stats.SensitiveData; exp != nil && exp.HasSensitiveData {
			cw.Write(nil)
			cw.Write([]string{"Keyword", "Count", "Percentage"})
			for _, keyword := range sortedKeywords(exp.SensitiveKeywords) {
				info := exp.SensitiveKeywords[keyword]
				cw.Write([]string{
					keyword,
					strconv.Itoa(info.Count),
					fmt.Sprintf("%.2f%%", info.Percentage),
				})
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatPeriod(r models.DateRange) string {
	return fmt.Sprintf("%s to %s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

func formatFloat(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// sortedKeywords returns the keyword names in alphabetical order so exports
// are deterministic.
func sortedKeywords(keywords map[string]models.KeywordExposure) []string {
	names := make([]string, 0, len(keywords))
	for name := range keywords {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
