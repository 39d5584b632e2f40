// Package semantic stores past (question, SQL) pairs with embeddings so the
// translator prompt can carry similar worked examples.
package semantic

import (
	"context"
	"time"
)

// Example is one stored question with the SQL that answered it
type Example struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	SQL        string    `json:"sql"`
	Similarity float64   `json:"similarity,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is the example store boundary. A nil Store is a valid configuration:
// the prompt simply carries no examples.
type Store interface {
	FindSimilarQuestions(ctx context.Context, embedding []float32) ([]Example, error)
	StoreExample(ctx context.Context, question string, embedding []float32, sql string) error
	RecentExamples(ctx context.Context, limit int) ([]Example, error)
	Ping(ctx context.Context) error
	Close() error
}
