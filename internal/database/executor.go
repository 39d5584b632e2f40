package database

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/neogenix/labquery/internal/errors"
	"github.com/neogenix/labquery/internal/observability"
)

// DefaultStatementTimeout is the server-side budget for one query
const DefaultStatementTimeout = 60 * time.Second

// Executor runs validated SQL under a hard time budget. Each call borrows
// exactly one pooled session, sets a server-side statement timeout on it,
// executes the text unmodified, and returns the session on every exit path.
// There is no retry: one call, one execution attempt.
type Executor struct {
	pool             *Pool
	statementTimeout time.Duration
	logger           *observability.Logger
}

// NewExecutor creates a query executor bound to a pool
func NewExecutor(pool *Pool, statementTimeout time.Duration) *Executor {
	if statementTimeout <= 0 {
		statementTimeout = DefaultStatementTimeout
	}
	return &Executor{
		pool:             pool,
		statementTimeout: statementTimeout,
		logger:           observability.NewLogger("query-executor"),
	}
}

// Execute runs one validated SELECT and materializes all rows.
//
// A non-nil error means no execution was attempted (the pool could not
// supply a session). Execution failures — statement timeout, SQL errors,
// lost connectivity — come back inside the ExecutionResult with
// Success=false, empty rows, and the driver's message, with elapsed time
// still recorded.
func (e *Executor) Execute(ctx context.Context, sqlText string) (*ExecutionResult, error) {
	start := time.Now()

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		// The acquire context expiring while the caller's context is still
		// live means every session stayed busy for the whole wait.
		if ctx.Err() == nil && stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewPoolExhaustedError(err)
		}
		return nil, errors.NewDatabaseConnectionError(err)
	}
	// Close returns the session to the pool; database/sql discards it
	// instead if the driver marked it broken.
	defer func() {
		e.resetTimeout(conn)
		conn.Close()
	}()

	// Server-side budget for this session only: a runaway query is killed
	// by the database, not by us. The value is config-owned, never user text.
	timeoutStmt := fmt.Sprintf("SET statement_timeout = %d", e.statementTimeout.Milliseconds())
	if _, err := conn.ExecContext(ctx, timeoutStmt); err != nil {
		return e.failure(ctx, sqlText, start, err), nil
	}

	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		return e.failure(ctx, sqlText, start, err), nil
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return e.failure(ctx, sqlText, start, err), nil
	}

	result := &ExecutionResult{
		Columns: columns,
		Rows:    []Row{},
	}

	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return e.failure(ctx, sqlText, start, err), nil
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[i] = Cell{Column: col, Value: NewValue(values[i])}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return e.failure(ctx, sqlText, start, err), nil
	}

	result.Success = true
	result.RowCount = len(result.Rows)
	result.ElapsedMs = elapsedMs(start)

	e.logger.Info(ctx, "Query executed", map[string]interface{}{
		"rows":       result.RowCount,
		"elapsed_ms": result.ElapsedMs,
	})

	return result, nil
}

// failure builds the failed result with elapsed time still recorded
func (e *Executor) failure(ctx context.Context, sqlText string, start time.Time, err error) *ExecutionResult {
	elapsed := elapsedMs(start)
	e.logger.Error(ctx, "Query execution failed", err, map[string]interface{}{
		"elapsed_ms": elapsed,
	})
	return &ExecutionResult{
		Success:   false,
		Columns:   []string{},
		Rows:      []Row{},
		RowCount:  0,
		ElapsedMs: elapsed,
		Error:     err.Error(),
	}
}

// resetTimeout restores the session default before the session goes back to
// the pool, so a later borrower never inherits the shortened budget. The
// request context may already be dead here, hence the fresh one.
func (e *Executor) resetTimeout(conn *sql.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn.ExecContext(ctx, "SET statement_timeout = DEFAULT")
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
