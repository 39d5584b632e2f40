package processor

import (
	"fmt"
	"strings"

	"github.com/neogenix/labquery/internal/database"
)

// summaryColumnLimit caps how many column names a small-result summary names
const summaryColumnLimit = 5

// smallResultThreshold is the largest row count that still gets a
// column-naming summary
const smallResultThreshold = 10

// ResultSummarizer turns a successful execution into a short natural-language
// answer. It is pure formatting: it never fails and never touches the
// database, so it runs after the result is already final.
type ResultSummarizer struct{}

// NewResultSummarizer creates a new result summarizer
func NewResultSummarizer() *ResultSummarizer {
	return &ResultSummarizer{}
}

// Summarize produces the answer text for a successful result.
// Three tiers: no rows, a small result that names leading columns, and a
// large result that only states the count.
func (rs *ResultSummarizer) Summarize(question string, result *database.ExecutionResult) string {
	if result.RowCount == 0 {
		return fmt.Sprintf("I found no results matching your query: '%s'.", question)
	}

	if result.RowCount <= smallResultThreshold {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("I found %d result(s) for your query. ", result.RowCount))

		if cols := firstRowColumns(result, summaryColumnLimit); len(cols) > 0 {
			sb.WriteString(fmt.Sprintf("The data includes columns like: %s. ", strings.Join(cols, ", ")))
		}

		sb.WriteString("See the table below for details.")
		return sb.String()
	}

	return fmt.Sprintf("I found %d results matching your query. The data is displayed in the table below.", result.RowCount)
}

// firstRowColumns returns up to limit column names as observed in the first
// row, preserving result order
func firstRowColumns(result *database.ExecutionResult, limit int) []string {
	if len(result.Rows) == 0 {
		return nil
	}

	first := result.Rows[0]
	n := len(first)
	if n > limit {
		n = limit
	}

	cols := make([]string, n)
	for i := 0; i < n; i++ {
		cols[i] = first[i].Column
	}
	return cols
}
