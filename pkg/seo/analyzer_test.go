package seo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeWellFormedArticle(t *testing.T) {
	body := "<p>Container gardening is easy to start on any balcony. " +
		strings.Repeat("Pick a pot, add soil, and water it often. ", 80) +
		"</p><h2>Choosing containers</h2><p>Start small.</p>"

	report := Analyze("Container Gardening for Beginners", "container gardening", body)

	assert.GreaterOrEqual(t, report.Score, 80)
	assert.GreaterOrEqual(t, report.WordCount, 600)

	passed := map[string]bool{}
	for _, c := range report.Checks {
		passed[c.Name] = c.Passed
	}
	assert.True(t, passed["keyword_in_title"])
	assert.True(t, passed["keyword_in_first_paragraph"])
	assert.True(t, passed["has_subheadings"])
	assert.True(t, passed["sufficient_length"])
}

func TestAnalyzeMissingKeyword(t *testing.T) {
	report := Analyze("Some Title", "quantum computing", "<p>Nothing relevant here.</p>")

	assert.Less(t, report.Score, 50)
	for _, c := range report.Checks {
		if c.Name == "keyword_in_title" || c.Name == "keyword_in_first_paragraph" {
			assert.False(t, c.Passed, c.Name)
		}
	}
}

func TestAnalyzeEmptyContent(t *testing.T) {
	report := Analyze("", "", "")
	assert.Equal(t, 0, report.WordCount)
	assert.Less(t, report.Score, 30)
}
