package seo

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Check is one scored heuristic of the analysis.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Note   string `json:"note,omitempty"`
}

// Report is the outcome of scoring one article against its focus keyword.
type Report struct {
	Score     int     `json:"score"`
	WordCount int     `json:"word_count"`
	Checks    []Check `json:"checks"`
}

// Analyze scores the generated HTML against the focus keyword. The score is
// a 0-100 aggregate of weighted heuristics; a parse failure scores zero.
func Analyze(title, keyword, html string) Report {
	report := Report{}
	keyword = strings.ToLower(strings.TrimSpace(keyword))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		report.Checks = append(report.Checks, Check{Name: "parse", Passed: false, Note: err.Error()})
		return report
	}

	text := strings.ToLower(doc.Text())
	words := strings.Fields(text)
	report.WordCount = len(words)

	addCheck := func(name string, passed bool, weight int, note string) {
		report.Checks = append(report.Checks, Check{Name: name, Passed: passed, Note: note})
		if passed {
			report.Score += weight
		}
	}

	addCheck("keyword_in_title", keyword != "" && strings.Contains(strings.ToLower(title), keyword), 25, "")

	firstParagraph := strings.ToLower(doc.Find("p").First().Text())
	addCheck("keyword_in_first_paragraph", keyword != "" && strings.Contains(firstParagraph, keyword), 20, "")

	headings := doc.Find("h2, h3").Length()
	addCheck("has_subheadings", headings > 0, 20, "")

	addCheck("sufficient_length", report.WordCount >= 600, 20, "")

	density := keywordDensity(words, keyword)
	addCheck("keyword_density", density > 0 && density <= 0.04, 15, "")

	return report
}

func keywordDensity(words []string, keyword string) float64 {
	if keyword == "" || len(words) == 0 {
		return 0
	}
	// Match on the keyword's first word; multi-word phrases are caught by the
	// title and first-paragraph checks.
	head := strings.Fields(keyword)[0]
	count := 0
	for _, w := range words {
		if strings.Trim(w, ".,!?;:\"'()") == head {
			count++
		}
	}
	return float64(count) / float64(len(words))
}
