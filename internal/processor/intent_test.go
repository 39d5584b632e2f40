package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyIntentType(t *testing.T) {
	classifier := NewIntentClassifier()

	tests := []struct {
		question string
		want     string
	}{
		{"How many tests were run yesterday?", "count"},
		{"count of abnormal results this week", "count"},
		{"What is the average glucose value?", "aggregate"},
		{"highest result for lab 123", "aggregate"},
		{"Show the daily trend of test volume", "trend"},
		{"results per week for hemoglobin", "trend"},
		{"List all tests for patient 42", "list"},
		{"Which analytes were measured?", "list"},
		{"result for lab number 998877", "lookup"},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			intent, err := classifier.ClassifyIntent(tt.question)
			require.NoError(t, err)
			assert.Equal(t, tt.want, intent.Type)
		})
	}
}

func TestClassifyIntentCountWinsOverList(t *testing.T) {
	classifier := NewIntentClassifier()

	intent, err := classifier.ClassifyIntent("Show me how many tests failed")
	require.NoError(t, err)
	assert.Equal(t, "count", intent.Type)
}

func TestClassifyIntentLabNumber(t *testing.T) {
	classifier := NewIntentClassifier()

	tests := []struct {
		question string
		want     string
	}{
		{"results for lab number 12345", "12345"},
		{"show lab no. 777", "777"},
		{"what happened with lab #42", "42"},
		{"lab 991", "991"},
		{"no lab mentioned here", ""},
	}

	for _, tt := range tests {
		intent, err := classifier.ClassifyIntent(tt.question)
		require.NoError(t, err)
		assert.Equal(t, tt.want, intent.LabNo, "question: %s", tt.question)
	}
}

func TestClassifyIntentTimeRange(t *testing.T) {
	classifier := NewIntentClassifier()

	tests := []struct {
		question string
		want     string
	}{
		{"tests in the last 7 days", "7 days"},
		{"results from the past 2 weeks", "2 weeks"},
		{"volume in the last 1 hour", "1 hours"},
		{"what came in yesterday", "yesterday"},
		{"results received today", "today"},
		{"all results ever", ""},
	}

	for _, tt := range tests {
		intent, err := classifier.ClassifyIntent(tt.question)
		require.NoError(t, err)
		assert.Equal(t, tt.want, intent.TimeRange, "question: %s", tt.question)
	}
}

func TestClassifyIntentAbnormalFilter(t *testing.T) {
	classifier := NewIntentClassifier()

	intent, err := classifier.ClassifyIntent("list abnormal results for lab 5")
	require.NoError(t, err)
	assert.Equal(t, "true", intent.Filters["abnormal"])
	assert.Equal(t, "5", intent.LabNo)

	intent, err = classifier.ClassifyIntent("list all results")
	require.NoError(t, err)
	assert.Empty(t, intent.Filters["abnormal"])
}
