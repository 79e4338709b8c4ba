// Package server exposes the engine over HTTP. Every endpoint speaks JSON;
// validation failures return 400, unknown paths 404, and engine failures 500,
// all with an {"error": ...} body.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/zen-systems/fanroute/pkg/adapter"
	"github.com/zen-systems/fanroute/pkg/aggregate"
	"github.com/zen-systems/fanroute/pkg/engine"
)

// Handler routes HTTP requests to engine operations.
type Handler struct {
	engine *engine.Engine
	logger *zap.Logger
	mux    *http.ServeMux
}

// New builds the handler and registers all routes.
func New(eng *engine.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{engine: eng, logger: logger, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /models", h.handleModels)
	h.mux.HandleFunc("POST /route", h.handleRoute)
	h.mux.HandleFunc("POST /route_with_metadata", h.handleRouteWithMetadata)
	h.mux.HandleFunc("POST /parallelbest", h.handleParallelBest)
	h.mux.HandleFunc("POST /parallelsynthetize", h.handleParallelSynthesize)
	h.mux.HandleFunc("POST /analyze", h.handleAnalyze)
	h.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "endpoint not found")
	})
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("handler panicked",
				zap.String("path", r.URL.Path),
				zap.Any("panic", rec),
			)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
	}()
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "fanroute",
	})
}

func (h *Handler) handleModels(w http.ResponseWriter, r *http.Request) {
	reg := h.engine.Registry()
	models := make(map[string]any, reg.Len())
	for _, key := range reg.Keys() {
		profile, _ := reg.Get(key)
		models[key] = map[string]any{
			"name":        profile.Name,
			"provider":    profile.Provider,
			"model_id":    profile.ModelID,
			"strengths":   profile.Strengths,
			"cost_per_1k": profile.CostPer1K,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models":      models,
		"judge_model": h.engine.JudgeModel(),
	})
}

func (h *Handler) handleRoute(w http.ResponseWriter, r *http.Request) {
	messages, opts, ok := h.decodeCompletionRequest(w, r)
	if !ok {
		return
	}

	response, err := h.engine.Route(r.Context(), messages, opts)
	if err != nil {
		h.serveEngineError(w, r, "route", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": response})
}

func (h *Handler) handleRouteWithMetadata(w http.ResponseWriter, r *http.Request) {
	messages, opts, ok := h.decodeCompletionRequest(w, r)
	if !ok {
		return
	}

	response, analysis, err := h.engine.RouteWithMetadata(r.Context(), messages, opts)
	if err != nil {
		h.serveEngineError(w, r, "route_with_metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"response": response,
		"metadata": analysis,
	})
}

func (h *Handler) handleParallelBest(w http.ResponseWriter, r *http.Request) {
	h.serveParallel(w, r, "parallelbest", h.engine.ParallelBest)
}

func (h *Handler) handleParallelSynthesize(w http.ResponseWriter, r *http.Request) {
	h.serveParallel(w, r, "parallelsynthetize", h.engine.ParallelSynthesize)
}

func (h *Handler) serveParallel(w http.ResponseWriter, r *http.Request, op string,
	call func(context.Context, []adapter.Message, adapter.Options) (string, *aggregate.Metadata, error)) {
	messages, opts, ok := h.decodeCompletionRequest(w, r)
	if !ok {
		return
	}

	response, metadata, err := call(r.Context(), messages, opts)
	if err != nil {
		h.serveEngineError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"response": response,
		"metadata": metadata,
	})
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt field is required")
		return
	}

	analysis, err := h.engine.Analyze(r.Context(), body.Prompt)
	if err != nil {
		h.serveEngineError(w, r, "analyze", err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// decodeCompletionRequest parses {"messages": [...], ...} bodies. Every key
// other than messages passes through as an invocation option, matching the
// original API's kwargs forwarding.
func (h *Handler) decodeCompletionRequest(w http.ResponseWriter, r *http.Request) ([]adapter.Message, adapter.Options, bool) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return nil, nil, false
	}

	rawMessages, present := body["messages"]
	if !present {
		writeError(w, http.StatusBadRequest, "messages field is required")
		return nil, nil, false
	}
	list, ok := rawMessages.([]any)
	if !ok {
		writeError(w, http.StatusBadRequest, "messages must be a list")
		return nil, nil, false
	}
	if len(list) == 0 {
		writeError(w, http.StatusBadRequest, "messages list cannot be empty")
		return nil, nil, false
	}

	messages := make([]adapter.Message, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			writeError(w, http.StatusBadRequest, "each message must be an object")
			return nil, nil, false
		}
		role, roleOK := entry["role"].(string)
		content, contentOK := entry["content"].(string)
		if !roleOK || !contentOK || role == "" {
			writeError(w, http.StatusBadRequest, "each message must have 'role' and 'content' fields")
			return nil, nil, false
		}
		messages = append(messages, adapter.Message{Role: role, Content: content})
	}

	opts := make(adapter.Options, len(body))
	for key, value := range body {
		if key == "messages" {
			continue
		}
		opts[key] = value
	}
	return messages, opts, true
}

func (h *Handler) serveEngineError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error("engine operation failed",
		zap.String("op", op),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
