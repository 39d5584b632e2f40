package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neogenix/labquery/internal/database"
	"github.com/neogenix/labquery/internal/errors"
	"github.com/neogenix/labquery/internal/llm"
	"github.com/neogenix/labquery/internal/schema"
	"github.com/neogenix/labquery/internal/semantic"
)

// fakeTranslator implements llm.Client with canned responses
type fakeTranslator struct {
	sql          string
	err          error
	generateCall int
}

func (f *fakeTranslator) GenerateSQL(ctx context.Context, prompt string) (*llm.Response, error) {
	f.generateCall++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{SQL: f.sql}, nil
}

func (f *fakeTranslator) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

// fakeExecutor implements QueryExecutor with a canned result or error
type fakeExecutor struct {
	result   *database.ExecutionResult
	err      error
	executed []string
}

func (f *fakeExecutor) Execute(ctx context.Context, sqlText string) (*database.ExecutionResult, error) {
	f.executed = append(f.executed, sqlText)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeStore implements semantic.Store and records stored examples
type fakeStore struct {
	examples []semantic.Example
	stored   []semantic.Example
}

func (f *fakeStore) FindSimilarQuestions(ctx context.Context, embedding []float32) ([]semantic.Example, error) {
	return f.examples, nil
}

func (f *fakeStore) StoreExample(ctx context.Context, question string, embedding []float32, sql string) error {
	f.stored = append(f.stored, semantic.Example{Question: question, SQL: sql})
	return nil
}

func (f *fakeStore) RecentExamples(ctx context.Context, limit int) ([]semantic.Example, error) {
	return f.stored, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                   { return nil }

func successResult(rowCount int) *database.ExecutionResult {
	rows := make([]database.Row, rowCount)
	for i := range rows {
		rows[i] = database.Row{
			{Column: "lab_no", Value: database.NewValue(int64(i + 1))},
			{Column: "result_value", Value: database.NewValue("4.2")},
		}
	}
	return &database.ExecutionResult{
		Success:   true,
		Columns:   []string{"lab_no", "result_value"},
		Rows:      rows,
		RowCount:  rowCount,
		ElapsedMs: 12.5,
	}
}

func newTestProcessor(t *testing.T, translator *fakeTranslator, executor *fakeExecutor) (*QueryProcessor, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	qp := NewQueryProcessor(translator, nil, executor, schema.NewCatalog(), cache, ProcessorConfig{
		MaxQuestionLength: 500,
		CacheTTL:          time.Minute,
	})
	return qp, cache
}

func TestProcessQuestionSuccess(t *testing.T) {
	translator := &fakeTranslator{sql: "SELECT lab_no, result_value FROM report_details"}
	executor := &fakeExecutor{result: successResult(2)}
	qp, cache := newTestProcessor(t, translator, executor)

	response, err := qp.ProcessQuestion(context.Background(), &QueryRequest{Question: "show recent results"})
	require.NoError(t, err)

	assert.True(t, response.Success)
	assert.Equal(t, "SELECT lab_no, result_value FROM report_details", response.SQLQuery)
	assert.Equal(t, 2, response.RowCount)
	assert.Len(t, response.Data, 2)
	assert.Equal(t, 12.5, response.ExecutionTimeMS)
	assert.False(t, response.CacheHit)
	assert.Contains(t, response.Answer, "I found 2 result(s)")
	assert.Contains(t, response.Answer, "lab_no, result_value")

	// The translation is cached for the next identical question
	cached, err := cache.Get(context.Background(), "translation:show recent results").Result()
	require.NoError(t, err)
	assert.Equal(t, "SELECT lab_no, result_value FROM report_details", cached)
}

func TestProcessQuestionCachedTranslation(t *testing.T) {
	translator := &fakeTranslator{sql: "SELECT 1"}
	executor := &fakeExecutor{result: successResult(1)}
	qp, cache := newTestProcessor(t, translator, executor)

	err := cache.Set(context.Background(), "translation:show recent results",
		"SELECT lab_no FROM report_details", time.Minute).Err()
	require.NoError(t, err)

	response, err := qp.ProcessQuestion(context.Background(), &QueryRequest{Question: "show recent results"})
	require.NoError(t, err)

	assert.True(t, response.CacheHit)
	assert.Equal(t, "SELECT lab_no FROM report_details", response.SQLQuery)
	assert.Equal(t, 0, translator.generateCall, "cached translation should skip the translator")
}

func TestProcessQuestionCachedSQLStillValidated(t *testing.T) {
	translator := &fakeTranslator{sql: "SELECT 1"}
	executor := &fakeExecutor{result: successResult(1)}
	qp, cache := newTestProcessor(t, translator, executor)

	// A poisoned cache entry must not reach the database
	err := cache.Set(context.Background(), "translation:show recent results",
		"DELETE FROM report_details", time.Minute).Err()
	require.NoError(t, err)

	_, err = qp.ProcessQuestion(context.Background(), &QueryRequest{Question: "show recent results"})
	require.Error(t, err)

	enhancedErr, ok := err.(*errors.EnhancedError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeValidationFailed, enhancedErr.Code)
	assert.Empty(t, executor.executed)
}

func TestProcessQuestionValidationRejection(t *testing.T) {
	translator := &fakeTranslator{sql: "DROP TABLE report_details"}
	executor := &fakeExecutor{result: successResult(1)}
	qp, _ := newTestProcessor(t, translator, executor)

	_, err := qp.ProcessQuestion(context.Background(), &QueryRequest{Question: "drop everything"})
	require.Error(t, err)

	enhancedErr, ok := err.(*errors.EnhancedError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeValidationFailed, enhancedErr.Code)
	assert.Equal(t, string(errors.ErrCodeForbiddenKeyword), enhancedErr.Metadata["reason"])
	assert.Empty(t, executor.executed, "rejected query must never execute")
}

func TestProcessQuestionTranslationFailure(t *testing.T) {
	translator := &fakeTranslator{err: fmt.Errorf("api unavailable")}
	executor := &fakeExecutor{result: successResult(1)}
	qp, _ := newTestProcessor(t, translator, executor)

	_, err := qp.ProcessQuestion(context.Background(), &QueryRequest{Question: "show results"})
	require.Error(t, err)

	enhancedErr, ok := err.(*errors.EnhancedError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeTranslationFailed, enhancedErr.Code)
	assert.Empty(t, executor.executed)
}

func TestProcessQuestionEmptyTranslation(t *testing.T) {
	translator := &fakeTranslator{sql: "   "}
	executor := &fakeExecutor{result: successResult(1)}
	qp, _ := newTestProcessor(t, translator, executor)

	_, err := qp.ProcessQuestion(context.Background(), &QueryRequest{Question: "show results"})
	require.Error(t, err)

	enhancedErr, ok := err.(*errors.EnhancedError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeTranslationFailed, enhancedErr.Code)
}

func TestProcessQuestionExecutionFailure(t *testing.T) {
	translator := &fakeTranslator{sql: "SELECT no_such_column FROM report_details"}
	executor := &fakeExecutor{result: &database.ExecutionResult{
		Success:   false,
		Rows:      []database.Row{},
		ElapsedMs: 3.1,
		Error:     `column "no_such_column" does not exist`,
	}}
	qp, cache := newTestProcessor(t, translator, executor)

	_, err := qp.ProcessQuestion(context.Background(), &QueryRequest{Question: "show results"})
	require.Error(t, err)

	enhancedErr, ok := err.(*errors.EnhancedError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeExecutionFailed, enhancedErr.Code)

	// Failed questions are not cached
	_, err = cache.Get(context.Background(), "translation:show results").Result()
	assert.Error(t, err)
}

func TestProcessQuestionPoolExhausted(t *testing.T) {
	translator := &fakeTranslator{sql: "SELECT 1"}
	executor := &fakeExecutor{err: errors.NewPoolExhaustedError(fmt.Errorf("acquire timeout"))}
	qp, _ := newTestProcessor(t, translator, executor)

	_, err := qp.ProcessQuestion(context.Background(), &QueryRequest{Question: "show results"})
	require.Error(t, err)

	enhancedErr, ok := err.(*errors.EnhancedError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodePoolExhausted, enhancedErr.Code)
}

func TestProcessQuestionTooLong(t *testing.T) {
	translator := &fakeTranslator{sql: "SELECT 1"}
	executor := &fakeExecutor{result: successResult(1)}
	qp, _ := newTestProcessor(t, translator, executor)

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'a'
	}

	_, err := qp.ProcessQuestion(context.Background(), &QueryRequest{Question: string(long)})
	require.Error(t, err)

	enhancedErr, ok := err.(*errors.EnhancedError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidInput, enhancedErr.Code)
	assert.Equal(t, 0, translator.generateCall)
}

func TestProcessQuestionStoresExamples(t *testing.T) {
	translator := &fakeTranslator{sql: "SELECT lab_no FROM report_details"}
	executor := &fakeExecutor{result: successResult(1)}
	store := &fakeStore{}

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	qp := NewQueryProcessor(translator, store, executor, schema.NewCatalog(), cache, ProcessorConfig{
		StoreExamples: true,
	})

	_, err := qp.ProcessQuestion(context.Background(), &QueryRequest{Question: "show recent results"})
	require.NoError(t, err)

	require.Len(t, store.stored, 1)
	assert.Equal(t, "show recent results", store.stored[0].Question)
	assert.Equal(t, "SELECT lab_no FROM report_details", store.stored[0].SQL)
}

func TestProcessQuestionNoCacheConfigured(t *testing.T) {
	translator := &fakeTranslator{sql: "SELECT 1"}
	executor := &fakeExecutor{result: successResult(1)}

	qp := NewQueryProcessor(translator, nil, executor, schema.NewCatalog(), nil, ProcessorConfig{})

	response, err := qp.ProcessQuestion(context.Background(), &QueryRequest{Question: "show results"})
	require.NoError(t, err)
	assert.False(t, response.CacheHit)
	assert.Equal(t, 1, translator.generateCall)
}

func TestAskEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	translator := &fakeTranslator{sql: "SELECT lab_no FROM report_details"}
	executor := &fakeExecutor{result: successResult(3)}
	qp, _ := newTestProcessor(t, translator, executor)

	router := qp.SetupRoutes(nil)

	t.Run("valid question", func(t *testing.T) {
		body, _ := json.Marshal(QueryRequest{Question: "show recent results"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/ask", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var response QueryResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Success)
		assert.Equal(t, 3, response.RowCount)
		assert.Equal(t, "SELECT lab_no FROM report_details", response.SQLQuery)
	})

	t.Run("missing question field", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/ask", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("data rows keep column order", func(t *testing.T) {
		body, _ := json.Marshal(QueryRequest{Question: "show recent results"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/ask", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"lab_no":1,"result_value":"4.2"`)
	})
}

func TestAskEndpointErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("validation failure maps to 400", func(t *testing.T) {
		translator := &fakeTranslator{sql: "DELETE FROM report_details"}
		executor := &fakeExecutor{result: successResult(1)}
		qp, _ := newTestProcessor(t, translator, executor)
		router := qp.SetupRoutes(nil)

		body, _ := json.Marshal(QueryRequest{Question: "delete everything"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/ask", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_FAILED")
	})

	t.Run("execution failure maps to 500", func(t *testing.T) {
		translator := &fakeTranslator{sql: "SELECT bad FROM report_details"}
		executor := &fakeExecutor{result: &database.ExecutionResult{
			Success: false,
			Error:   "relation does not exist",
		}}
		qp, _ := newTestProcessor(t, translator, executor)
		router := qp.SetupRoutes(nil)

		body, _ := json.Marshal(QueryRequest{Question: "show results"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/ask", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("pool exhaustion maps to 503", func(t *testing.T) {
		translator := &fakeTranslator{sql: "SELECT 1"}
		executor := &fakeExecutor{err: errors.NewPoolExhaustedError(fmt.Errorf("acquire timeout"))}
		qp, _ := newTestProcessor(t, translator, executor)
		router := qp.SetupRoutes(nil)

		body, _ := json.Marshal(QueryRequest{Question: "show results"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/ask", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestSchemaEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	translator := &fakeTranslator{sql: "SELECT 1"}
	executor := &fakeExecutor{result: successResult(1)}
	qp, _ := newTestProcessor(t, translator, executor)
	router := qp.SetupRoutes(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/schema", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "report_details")
}

func TestHistoryEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	translator := &fakeTranslator{sql: "SELECT lab_no FROM report_details"}
	executor := &fakeExecutor{result: successResult(1)}
	store := &fakeStore{}

	qp := NewQueryProcessor(translator, store, executor, schema.NewCatalog(), nil, ProcessorConfig{
		StoreExamples: true,
	})
	router := qp.SetupRoutes(nil)

	_, err := qp.ProcessQuestion(context.Background(), &QueryRequest{Question: "show recent results"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/history", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "show recent results")
}

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	translator := &fakeTranslator{sql: "SELECT 1"}
	executor := &fakeExecutor{result: successResult(1)}
	qp, _ := newTestProcessor(t, translator, executor)
	router := qp.SetupRoutes(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
