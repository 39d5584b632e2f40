package processor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/neogenix/labquery/internal/database"
	"github.com/neogenix/labquery/internal/errors"
	"github.com/neogenix/labquery/internal/llm"
	"github.com/neogenix/labquery/internal/observability"
	"github.com/neogenix/labquery/internal/schema"
	"github.com/neogenix/labquery/internal/semantic"
)

// QueryRequest represents an incoming natural language question
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
}

// QueryResponse is the payload returned for a successfully answered question
type QueryResponse struct {
	Answer          string         `json:"answer"`
	SQLQuery        string         `json:"sql_query"`
	Data            []database.Row `json:"data"`
	RowCount        int            `json:"row_count"`
	ExecutionTimeMS float64        `json:"execution_time_ms"`
	Success         bool           `json:"success"`
	CacheHit        bool           `json:"cache_hit,omitempty"`
}

// QueryExecutor runs one validated statement under the execution budget
type QueryExecutor interface {
	Execute(ctx context.Context, sqlText string) (*database.ExecutionResult, error)
}

// ProcessorConfig holds tunables for the question pipeline
type ProcessorConfig struct {
	MaxQuestionLength int
	CacheTTL          time.Duration
	SimilarExamples   int
	StoreExamples     bool
}

// QueryProcessor sequences one question through translate, validate, execute
// and summarize. Each stage runs exactly once; a stage failure is terminal
// for the request.
type QueryProcessor struct {
	llmClient        llm.Client
	store            semantic.Store
	executor         QueryExecutor
	catalog          *schema.Catalog
	safetyChecker    *SafetyChecker
	summarizer       *ResultSummarizer
	intentClassifier *IntentClassifier
	cache            *redis.Client
	config           ProcessorConfig
	logger           *observability.Logger
	healthChecker    *observability.HealthChecker
}

// NewQueryProcessor creates a new question processor.
// store and cache may be nil: without a store the prompt carries no worked
// examples, without a cache every question is translated fresh.
func NewQueryProcessor(llmClient llm.Client, store semantic.Store, executor QueryExecutor, catalog *schema.Catalog, cache *redis.Client, config ProcessorConfig) *QueryProcessor {
	if config.MaxQuestionLength == 0 {
		config.MaxQuestionLength = 500
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if config.SimilarExamples == 0 {
		config.SimilarExamples = 5
	}

	return &QueryProcessor{
		llmClient:        llmClient,
		store:            store,
		executor:         executor,
		catalog:          catalog,
		cache:            cache,
		config:           config,
		safetyChecker:    NewSafetyChecker(),
		summarizer:       NewResultSummarizer(),
		intentClassifier: NewIntentClassifier(),
		logger:           observability.NewLogger("query-processor"),
	}
}

// SetHealthChecker sets the health checker for the processor
func (qp *QueryProcessor) SetHealthChecker(healthChecker *observability.HealthChecker) {
	qp.healthChecker = healthChecker
}

// ProcessQuestion handles the main question pipeline
func (qp *QueryProcessor) ProcessQuestion(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	start := time.Now()

	qp.logger.Info(ctx, "Processing question", map[string]interface{}{
		"question": req.Question,
	})

	var errorType string
	var response *QueryResponse
	var processingErr error

	defer func() {
		duration := time.Since(start)
		success := processingErr == nil
		cacheHit := response != nil && response.CacheHit
		observability.RecordQuestionMetrics(duration, success, cacheHit, errorType)

		if processingErr != nil {
			qp.logger.Error(ctx, "Question processing failed", processingErr, map[string]interface{}{
				"question":    req.Question,
				"duration_ms": duration.Milliseconds(),
				"error_type":  errorType,
			})
		} else {
			qp.logger.Info(ctx, "Question processed", map[string]interface{}{
				"question":    req.Question,
				"duration_ms": duration.Milliseconds(),
				"rows":        response.RowCount,
				"cache_hit":   cacheHit,
			})
		}
	}()

	if len(req.Question) > qp.config.MaxQuestionLength {
		errorType = "invalid_input"
		processingErr = errors.NewInvalidInputError("question",
			fmt.Sprintf("must be at most %d characters", qp.config.MaxQuestionLength))
		return nil, processingErr
	}

	// Translation first: either a cached question->SQL mapping or a fresh
	// round-trip through the translator. The cached SQL is revalidated below
	// like any other candidate.
	sqlText, cacheHit := qp.cachedTranslation(ctx, req.Question)
	if !cacheHit {
		var err error
		sqlText, err = qp.translate(ctx, req.Question)
		if err != nil {
			errorType = "translation_failed"
			processingErr = err
			return nil, processingErr
		}
	}

	// Safety validation gates every candidate; an invalid query is never
	// executed.
	if verdict := qp.safetyChecker.Validate(sqlText); !verdict.IsValid {
		errorType = "validation_failed"
		processingErr = errors.NewValidationError(verdict.Reason, verdict.Message)
		observability.GetGlobalMetrics().Inc(observability.MetricSafetyViolations, map[string]string{
			"reason": string(verdict.Reason),
		})
		return nil, processingErr
	}

	// Bounded execution: a non-nil error means no attempt was made (pool
	// exhausted or connectivity down); an unsuccessful result carries the
	// driver's message.
	result, err := qp.executor.Execute(ctx, sqlText)
	if err != nil {
		errorType = "execution_failed"
		processingErr = err
		return nil, processingErr
	}
	if !result.Success {
		errorType = "execution_failed"
		processingErr = errors.NewExecutionError(fmt.Errorf("%s", result.Error), sqlText)
		return nil, processingErr
	}

	answer := qp.summarizer.Summarize(req.Question, result)

	response = &QueryResponse{
		Answer:          answer,
		SQLQuery:        sqlText,
		Data:            result.Rows,
		RowCount:        result.RowCount,
		ExecutionTimeMS: result.ElapsedMs,
		Success:         true,
		CacheHit:        cacheHit,
	}

	if !cacheHit {
		qp.cacheTranslation(ctx, req.Question, sqlText)
	}

	return response, nil
}

// translate runs the full translation path: intent, similar examples,
// prompt assembly, one translator call
func (qp *QueryProcessor) translate(ctx context.Context, question string) (string, error) {
	intent, err := qp.intentClassifier.ClassifyIntent(question)
	if err != nil {
		// Intent is advisory; carry on with a bare prompt
		qp.logger.Warn(ctx, "Intent classification failed", map[string]interface{}{
			"error": err.Error(),
		})
		intent = &QueryIntent{}
	}

	examples := qp.similarExamples(ctx, question)

	prompt := qp.buildPrompt(question, intent, examples)

	llmResponse, err := qp.llmClient.GenerateSQL(ctx, prompt)
	if err != nil {
		return "", errors.NewTranslationError(err, question)
	}
	if llmResponse == nil || strings.TrimSpace(llmResponse.SQL) == "" {
		return "", errors.NewTranslationError(fmt.Errorf("translator returned no query"), question)
	}

	sqlText := llmResponse.SQL

	// Store the worked pair for future prompts; failures only cost future
	// prompt quality
	if qp.config.StoreExamples && qp.store != nil {
		if embedding, err := qp.llmClient.GetEmbedding(ctx, question); err == nil {
			if err := qp.store.StoreExample(ctx, question, embedding, sqlText); err != nil {
				qp.logger.Warn(ctx, "Failed to store example", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}

	return sqlText, nil
}

// similarExamples looks up worked (question, SQL) pairs near this question.
// Any failure degrades to an example-free prompt.
func (qp *QueryProcessor) similarExamples(ctx context.Context, question string) []semantic.Example {
	if qp.store == nil {
		return nil
	}

	embedding, err := qp.llmClient.GetEmbedding(ctx, question)
	if err != nil {
		qp.logger.Warn(ctx, "Failed to generate embedding", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	examples, err := qp.store.FindSimilarQuestions(ctx, embedding)
	if err != nil {
		qp.logger.Warn(ctx, "Failed to find similar questions", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	if len(examples) > qp.config.SimilarExamples {
		examples = examples[:qp.config.SimilarExamples]
	}
	return examples
}

// buildPrompt assembles the translator prompt: role, schema reference,
// worked examples, the question, and extracted intent hints
func (qp *QueryProcessor) buildPrompt(question string, intent *QueryIntent, examples []semantic.Example) string {
	var sb strings.Builder

	sb.WriteString("You are a PostgreSQL expert. Convert the natural language question to a single SQL SELECT query.\n\n")
	sb.WriteString("IMPORTANT: Return ONLY the SQL query. Do not include explanations, descriptions, or code blocks.\n")
	sb.WriteString("The query must be read-only: no INSERT, UPDATE, DELETE, DDL, or multiple statements.\n\n")

	sb.WriteString(qp.catalog.PromptContext())
	sb.WriteString("\n")

	if len(examples) > 0 {
		sb.WriteString("Examples:\n")
		for _, ex := range examples {
			sb.WriteString(fmt.Sprintf("Question: %s\nSQL: %s\n\n", ex.Question, ex.SQL))
		}
	}

	sb.WriteString(fmt.Sprintf("Question: %s\n\n", question))

	if intent.Type != "" {
		sb.WriteString(fmt.Sprintf("Question type: %s\n", intent.Type))
	}
	if intent.LabNo != "" {
		sb.WriteString(fmt.Sprintf("Lab number mentioned: %s\n", intent.LabNo))
	}
	if intent.TimeRange != "" {
		sb.WriteString(fmt.Sprintf("Time range: %s\n", intent.TimeRange))
	}

	sb.WriteString("\nReturn only the SQL query:")

	return sb.String()
}

// cachedTranslation looks up a previously translated question
func (qp *QueryProcessor) cachedTranslation(ctx context.Context, question string) (string, bool) {
	if qp.cache == nil {
		return "", false
	}

	sqlText, err := qp.cache.Get(ctx, translationKey(question)).Result()
	if err != nil || strings.TrimSpace(sqlText) == "" {
		return "", false
	}

	qp.logger.Debug(ctx, "Translation cache hit", map[string]interface{}{
		"question": question,
	})
	return sqlText, true
}

// cacheTranslation stores a question->SQL mapping with the configured TTL
func (qp *QueryProcessor) cacheTranslation(ctx context.Context, question, sqlText string) {
	if qp.cache == nil {
		return
	}

	if err := qp.cache.Set(ctx, translationKey(question), sqlText, qp.config.CacheTTL).Err(); err != nil {
		qp.logger.Warn(ctx, "Failed to cache translation", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func translationKey(question string) string {
	return "translation:" + question
}

// AuthMiddleware is an interface for authentication middleware
type AuthMiddleware interface {
	Middleware() gin.HandlerFunc
}

// SetupRoutes configures HTTP routes with optional authentication
func (qp *QueryProcessor) SetupRoutes(authMiddleware AuthMiddleware) *gin.Engine {
	r := gin.New()

	r.Use(observability.RecoveryMiddleware(qp.logger))
	r.Use(observability.RequestLoggingMiddleware(qp.logger))
	r.Use(observability.CORSWithLogging(qp.logger))

	// Public health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if qp.healthChecker != nil {
			response := qp.healthChecker.GetHealthResponse(c.Request.Context())
			statusCode := http.StatusOK
			if response.Status == observability.HealthStatusUnhealthy {
				statusCode = http.StatusServiceUnavailable
			}
			c.JSON(statusCode, response)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
			"service": "labquery",
		})
	})

	// Public API v1 health endpoint
	publicAPI := r.Group("/api/v1")
	{
		publicAPI.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "healthy",
				"version": "1.0.0",
				"service": "labquery",
			})
		})
	}

	// Protected API routes (require authentication)
	api := r.Group("/api/v1")
	if authMiddleware != nil {
		api.Use(authMiddleware.Middleware())
	}
	{
		// Main question endpoint
		api.POST("/ask", func(c *gin.Context) {
			var req QueryRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				enhancedErr := errors.NewInvalidInputError("request body", err.Error())
				c.JSON(http.StatusBadRequest, formatErrorResponse(enhancedErr))
				return
			}

			response, err := qp.ProcessQuestion(c.Request.Context(), &req)
			if err != nil {
				c.JSON(getErrorStatusCode(err), formatErrorResponse(err))
				return
			}

			c.JSON(http.StatusOK, response)
		})

		// Schema description endpoint
		api.GET("/schema", qp.handleGetSchema)

		// Recently answered questions
		api.GET("/history", qp.handleGetHistory)
	}

	return r
}

// handleGetSchema serves the static schema description
func (qp *QueryProcessor) handleGetSchema(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"schema": qp.catalog.Describe()})
}

// handleGetHistory serves recently stored question/SQL pairs
func (qp *QueryProcessor) handleGetHistory(c *gin.Context) {
	if qp.store == nil {
		c.JSON(http.StatusOK, gin.H{"questions": []semantic.Example{}, "count": 0})
		return
	}

	examples, err := qp.store.RecentExamples(c.Request.Context(), 20)
	if err != nil {
		enhancedErr := errors.Wrap(err, errors.ErrCodeInternal, "Failed to fetch question history")
		c.JSON(http.StatusInternalServerError, formatErrorResponse(enhancedErr))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"questions": examples,
		"count":     len(examples),
	})
}

// formatErrorResponse formats an error into a user-friendly response
func formatErrorResponse(err error) gin.H {
	if enhancedErr, ok := err.(*errors.EnhancedError); ok {
		inner := gin.H{
			"code":    enhancedErr.Code,
			"message": enhancedErr.Message,
		}

		if enhancedErr.Details != "" {
			inner["details"] = enhancedErr.Details
		}

		if enhancedErr.Suggestion != "" {
			inner["suggestion"] = enhancedErr.Suggestion
		}

		if len(enhancedErr.Metadata) > 0 {
			inner["metadata"] = enhancedErr.Metadata
		}

		return gin.H{"error": inner, "success": false}
	}

	// Fallback for regular errors
	return gin.H{
		"error": gin.H{
			"code":    errors.ErrCodeInternal,
			"message": err.Error(),
		},
		"success": false,
	}
}

// getErrorStatusCode returns the appropriate HTTP status code for an error
func getErrorStatusCode(err error) int {
	if enhancedErr, ok := err.(*errors.EnhancedError); ok {
		switch enhancedErr.Code {
		case errors.ErrCodeInvalidInput, errors.ErrCodeMissingRequired,
			errors.ErrCodeTranslationFailed, errors.ErrCodeValidationFailed:
			return http.StatusBadRequest
		case errors.ErrCodeInvalidCredentials, errors.ErrCodeNotAuthenticated:
			return http.StatusUnauthorized
		case errors.ErrCodeInsufficientPerms:
			return http.StatusForbidden
		case errors.ErrCodePoolExhausted:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
