package processor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/neogenix/labquery/internal/errors"
)

// forbiddenKeywords are data-modifying operations blocked as whole words,
// checked in this order. The first match in list order wins, so a query
// containing both DELETE and DROP is reported as DELETE.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER",
	"TRUNCATE", "EXEC", "EXECUTE", "GRANT", "REVOKE",
}

// dangerousFunctions are matched as raw substrings with no word boundary.
// PG_ in particular can false-positive on legitimate identifiers; the rule
// is intentionally over-broad.
var dangerousFunctions = []string{
	"PG_", "COPY_", "IMPORT", "EXPORT",
}

// keywordPatterns is built once; \b gives the whole-word match so "UPDATED_AT"
// does not trip the UPDATE rule.
var keywordPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(forbiddenKeywords))
	for i, kw := range forbiddenKeywords {
		patterns[i] = regexp.MustCompile(`\b` + kw + `\b`)
	}
	return patterns
}()

// ValidationResult reports whether a candidate query is safe to execute
type ValidationResult struct {
	IsValid bool             `json:"is_valid"`
	Reason  errors.ErrorCode `json:"reason,omitempty"`
	Message string           `json:"message,omitempty"`
}

// SafetyChecker validates generated SQL before it reaches the database.
// It is pure text inspection: no SQL grammar is parsed, no I/O, no state,
// so a single checker is safe under any concurrency.
type SafetyChecker struct{}

// NewSafetyChecker creates a new safety checker
func NewSafetyChecker() *SafetyChecker {
	return &SafetyChecker{}
}

// Validate checks a candidate SQL query against the read-only safety rules.
// Rule order is part of the contract: callers assert on which rule fired
// when a query violates several at once.
func (sc *SafetyChecker) Validate(sql string) *ValidationResult {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return invalid(errors.ErrCodeEmptyQuery, "empty query")
	}

	upper := strings.ToUpper(sql)

	// Whole-word scan for data-modifying keywords anywhere in the text
	for i, pattern := range keywordPatterns {
		if pattern.MatchString(upper) {
			return invalid(errors.ErrCodeForbiddenKeyword,
				fmt.Sprintf("query contains forbidden operation: %s", forbiddenKeywords[i]))
		}
	}

	// Only SELECT statements are allowed through
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return invalid(errors.ErrCodeNotSelect, "must be a SELECT statement")
	}

	// Stacked-query guard: at most one terminator, and only as the final
	// character of the trimmed text
	terminators := strings.Count(sql, ";")
	if terminators > 1 || (terminators == 1 && !strings.HasSuffix(trimmed, ";")) {
		return invalid(errors.ErrCodeMultipleStatements, "multiple statements not allowed")
	}

	// Comment markers can hide blacklisted tokens from the scans above,
	// so their mere presence is rejected
	if strings.Contains(sql, "--") || strings.Contains(sql, "/*") {
		return invalid(errors.ErrCodeCommentPresent, "comments not allowed")
	}

	// Raw substring scan, no word boundary
	for _, fn := range dangerousFunctions {
		if strings.Contains(upper, fn) {
			return invalid(errors.ErrCodeDangerousFunction, "dangerous function call")
		}
	}

	return &ValidationResult{IsValid: true}
}

func invalid(reason errors.ErrorCode, message string) *ValidationResult {
	return &ValidationResult{
		IsValid: false,
		Reason:  reason,
		Message: message,
	}
}
