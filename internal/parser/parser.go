// Package parser extracts structured fields from free-form model output.
package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// maxSummaryLen caps extracted summaries, ellipsis included.
const maxSummaryLen = 500

// ratingPatterns are tried in order. Only the first match of each pattern is
// considered; an out-of-range capture discards that pattern entirely and the
// search moves to the next one. Pattern order is load-bearing.
var ratingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:rate|rating|score).*?(\d+)(?:/10|\s*out\s*of\s*10)`),
	regexp.MustCompile(`(\d+)/10`),
	regexp.MustCompile(`(?i)(?:quality|overall).*?(\d+)(?:/10|\s*out\s*of\s*10)`),
}

// summaryPatterns are tried in order; the first match wins.
var summaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)OVERALL ASSESSMENT.*?-\s*(.+?)(?:\n\n|\n2\.)`),
	regexp.MustCompile(`(?is)overall.*?summary.*?:\s*(.+?)(?:\n\n|\n)`),
	regexp.MustCompile(`(?is)summary.*?:\s*(.+?)(?:\n\n|\n)`),
}

// Parse extracts an overall rating and a short summary from analysis text.
// It never fails: anything it cannot extract degrades to (nil, "").
func Parse(analysisText string) (rating *int, summary string) {
	return parseRating(analysisText), parseSummary(analysisText)
}

func parseRating(text string) *int {
	for _, re := range ratingPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > 10 {
			continue
		}
		return &n
	}
	return nil
}

func parseSummary(text string) string {
	for _, re := range summaryPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		return truncate(strings.TrimSpace(m[1]))
	}

	// Fallback: first three non-empty lines that are not headings.
	var content []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		content = append(content, line)
		if len(content) == 3 {
			break
		}
	}
	if len(content) == 0 {
		return ""
	}
	return truncate(strings.Join(content, " "))
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxSummaryLen {
		return s
	}
	return string(runes[:maxSummaryLen-3]) + "..."
}
