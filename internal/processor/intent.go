package processor

import (
	"fmt"
	"regexp"
)

// QueryIntent represents the classified intent of a question
type QueryIntent struct {
	Type      string            `json:"type"`       // "count", "list", "aggregate", "trend", "lookup"
	LabNo     string            `json:"lab_no"`     // extracted lab number
	TimeRange string            `json:"time_range"` // parsed time range
	Filters   map[string]string `json:"filters"`    // additional filters
}

// IntentClassifier classifies natural language questions about lab data.
// The intent is advisory: it enriches the translator prompt, never gates
// the pipeline.
type IntentClassifier struct {
	patterns map[string]*regexp.Regexp
}

// NewIntentClassifier creates a new intent classifier
func NewIntentClassifier() *IntentClassifier {
	patterns := map[string]*regexp.Regexp{
		"count":      regexp.MustCompile(`(?i)\b(how many|count|number of|total)\b`),
		"list":       regexp.MustCompile(`(?i)\b(list|show|display|which|what are)\b`),
		"aggregate":  regexp.MustCompile(`(?i)\b(average|avg|mean|sum|min|max|highest|lowest)\b`),
		"trend":      regexp.MustCompile(`(?i)\b(trend|over time|per (day|week|month)|daily|weekly|monthly)\b`),
		"abnormal":   regexp.MustCompile(`(?i)\b(abnormal|out of range|critical)\b`),
		"lab_no":     regexp.MustCompile(`(?i)\blab\s*(?:number|no\.?|#)?\s*(\d+)\b`),
		"time_range": regexp.MustCompile(`(?i)\b(last|past|in the)\s+(\d+)\s*(minute|hour|day|week|month|year)s?\b`),
		"yesterday":  regexp.MustCompile(`(?i)\byesterday\b`),
		"today":      regexp.MustCompile(`(?i)\btoday\b`),
	}
	return &IntentClassifier{patterns: patterns}
}

// ClassifyIntent analyzes the question and extracts intent
func (ic *IntentClassifier) ClassifyIntent(question string) (*QueryIntent, error) {
	intent := &QueryIntent{
		Filters: make(map[string]string),
	}

	// Extract lab number
	if match := ic.patterns["lab_no"].FindStringSubmatch(question); len(match) > 1 {
		intent.LabNo = match[1]
	}

	// Extract time range
	if match := ic.patterns["time_range"].FindStringSubmatch(question); len(match) > 3 {
		intent.TimeRange = fmt.Sprintf("%s %ss", match[2], match[3])
	} else if ic.patterns["yesterday"].MatchString(question) {
		intent.TimeRange = "yesterday"
	} else if ic.patterns["today"].MatchString(question) {
		intent.TimeRange = "today"
	}

	if ic.patterns["abnormal"].MatchString(question) {
		intent.Filters["abnormal"] = "true"
	}

	// Classify question type; count wins over list so "how many tests are
	// listed" is treated as a count
	switch {
	case ic.patterns["count"].MatchString(question):
		intent.Type = "count"
	case ic.patterns["aggregate"].MatchString(question):
		intent.Type = "aggregate"
	case ic.patterns["trend"].MatchString(question):
		intent.Type = "trend"
	case ic.patterns["list"].MatchString(question):
		intent.Type = "list"
	default:
		intent.Type = "lookup"
	}

	return intent, nil
}
