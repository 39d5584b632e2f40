package semantic

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
}

// PostgresStore implements the Store interface using PostgreSQL with pgvector
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed example store
func NewPostgresStore(config PostgresConfig) (*PostgresStore, error) {
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.Username, config.Password, config.Database, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// The example store is off the request hot path; a small pool is plenty
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing *sql.DB. Used by tests.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ping tests the database connection
func (ps *PostgresStore) Ping(ctx context.Context) error {
	return ps.db.PingContext(ctx)
}

// Close closes the database connection
func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

// FindSimilarQuestions returns stored examples whose embedding is close to
// the given one, best first, using cosine similarity
func (ps *PostgresStore) FindSimilarQuestions(ctx context.Context, embedding []float32) ([]Example, error) {
	vector := pgvector.NewVector(embedding)

	query := `
		SELECT id, question, sql_text,
		       1 - (embedding <=> $1) as similarity,
		       created_at
		FROM query_examples
		WHERE 1 - (embedding <=> $1) > 0.8
		ORDER BY similarity DESC
		LIMIT 5
	`

	rows, err := ps.db.QueryContext(ctx, query, vector)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar questions: %w", err)
	}
	defer rows.Close()

	var examples []Example
	for rows.Next() {
		var ex Example
		if err := rows.Scan(&ex.ID, &ex.Question, &ex.SQL, &ex.Similarity, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan example row: %w", err)
		}
		examples = append(examples, ex)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating example rows: %w", err)
	}

	return examples, nil
}

// StoreExample stores a question with its embedding and the SQL that
// answered it. Asking the same question again updates the stored SQL.
func (ps *PostgresStore) StoreExample(ctx context.Context, question string, embedding []float32, sqlText string) error {
	vector := pgvector.NewVector(embedding)

	insertQuery := `
		INSERT INTO query_examples (id, question, embedding, sql_text, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (question) DO UPDATE SET
			embedding = $3,
			sql_text = $4,
			updated_at = $5
	`

	id := uuid.New().String()
	now := time.Now()

	if _, err := ps.db.ExecContext(ctx, insertQuery, id, question, vector, sqlText, now); err != nil {
		return fmt.Errorf("failed to store query example: %w", err)
	}

	return nil
}

// RecentExamples returns the most recently stored examples
func (ps *PostgresStore) RecentExamples(ctx context.Context, limit int) ([]Example, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, question, sql_text, created_at
		FROM query_examples
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := ps.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent examples: %w", err)
	}
	defer rows.Close()

	var examples []Example
	for rows.Next() {
		var ex Example
		if err := rows.Scan(&ex.ID, &ex.Question, &ex.SQL, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan example row: %w", err)
		}
		examples = append(examples, ex)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating example rows: %w", err)
	}

	return examples, nil
}
