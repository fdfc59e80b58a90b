package graphql

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/dd0wney/cluso-flowlink/pkg/logging"
	"github.com/graphql-go/graphql"
)

// GraphQLRequest represents a GraphQL HTTP request
type GraphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// GraphQLResponse represents a GraphQL HTTP response
type GraphQLResponse struct {
	Data   any            `json:"data,omitempty"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// GraphQLError represents a GraphQL error
type GraphQLError struct {
	Message string `json:"message"`
}

// NewResponse converts an execution result into its wire form.
func NewResponse(result *graphql.Result) GraphQLResponse {
	response := GraphQLResponse{
		Data: result.Data,
	}
	if result.HasErrors() {
		response.Errors = make([]GraphQLError, len(result.Errors))
		for i, err := range result.Errors {
			response.Errors[i] = GraphQLError{
				Message: err.Message,
			}
		}
	}
	return response
}

// GraphQLHandler serves GraphQL over HTTP POST. Requests are executed one at
// a time because the engine behind the schema is single-owner.
type GraphQLHandler struct {
	schema   graphql.Schema
	maxDepth int
	logger   logging.Logger

	mu sync.Mutex
}

// NewGraphQLHandler creates a handler enforcing DefaultMaxDepth.
func NewGraphQLHandler(schema graphql.Schema, logger logging.Logger) *GraphQLHandler {
	return &GraphQLHandler{
		schema:   schema,
		maxDepth: DefaultMaxDepth,
		logger:   logging.OrNop(logger).With(logging.Component("graphql")),
	}
}

// Locked runs fn while holding the lock that serialises requests, so other
// HTTP handlers can read the engine safely.
func (h *GraphQLHandler) Locked(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}

// ServeHTTP handles HTTP requests for GraphQL queries
func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GraphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	timer := logging.StartTimer(h.logger, "graphql request", logging.String("operation", req.OperationName))
	h.mu.Lock()
	result := ExecuteWithDepthLimit(h.schema, req.Query, h.maxDepth, req.Variables)
	h.mu.Unlock()
	timer.End(logging.Int("errors", len(result.Errors)))

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(NewResponse(result)); err != nil {
		h.logger.Warn("failed to write graphql response", logging.Error(err))
	}
}
