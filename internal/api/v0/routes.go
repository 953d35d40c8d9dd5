// Package v0 provides the REST API handlers for schema resolution.
package v0

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kubeschema/kubeschema/internal/logger"
	"github.com/kubeschema/kubeschema/internal/service"
	"github.com/kubeschema/kubeschema/internal/versions"
)

// maxDocumentSize caps the accepted manifest body (4MB).
const maxDocumentSize = 4 * 1024 * 1024

// ResolutionResponse is the wire form of one document's resolution outcome.
type ResolutionResponse struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
	Matched    bool   `json:"matched"`
	URL        string `json:"url,omitempty"`
	Source     string `json:"source,omitempty"`
}

// ResolveResponse wraps the resolutions for a submitted buffer.
type ResolveResponse struct {
	Resolutions []ResolutionResponse `json:"resolutions"`
}

// ErrorResponse is a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Routes defines the routes for the resolution API.
type Routes struct {
	service service.SchemaService
}

// NewRoutes creates a new Routes instance with the provided service.
func NewRoutes(svc service.SchemaService) *Routes {
	return &Routes{service: svc}
}

// Router creates a new router for the resolution API.
func Router(svc service.SchemaService) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()
	r.Post("/resolve", routes.resolve)
	r.Post("/reload", routes.reload)

	return r
}

// resolve handles POST /v0/resolve. The request body is raw manifest text;
// the response lists one resolution outcome per contained document.
func (rr *Routes) resolve(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize))
	if err != nil {
		rr.writeErrorResponse(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		rr.writeErrorResponse(w, "Request body is empty", http.StatusBadRequest)
		return
	}

	resolutions, err := rr.service.ResolveDocument(r.Context(), string(body))
	if err != nil {
		logger.Errorf("Failed to resolve document: %v", err)
		rr.writeErrorResponse(w, "Failed to resolve document", http.StatusInternalServerError)
		return
	}

	resp := ResolveResponse{Resolutions: make([]ResolutionResponse, 0, len(resolutions))}
	for _, res := range resolutions {
		out := ResolutionResponse{
			APIVersion: res.Identity.APIVersion(),
			Kind:       res.Identity.Kind,
			Matched:    res.Matched(),
		}
		if res.Matched() {
			out.URL = res.Result.URL
			out.Source = res.Result.SourceName
		}
		resp.Resolutions = append(resp.Resolutions, out)
	}

	rr.writeJSONResponse(w, resp)
}

// reload handles POST /v0/reload: it invalidates the catalog cache and
// forces a configuration reload.
func (rr *Routes) reload(w http.ResponseWriter, r *http.Request) {
	if err := rr.service.Reload(r.Context()); err != nil {
		logger.Errorf("Failed to reload: %v", err)
		rr.writeErrorResponse(w, "Failed to reload", http.StatusInternalServerError)
		return
	}
	rr.writeJSONResponse(w, map[string]string{"status": "reloaded"})
}

// HealthRouter creates a router for health check endpoints.
func HealthRouter(svc service.SchemaService) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func readinessHandler(svc service.SchemaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			errorResp := ErrorResponse{Error: "Schema service not ready: " + err.Error()}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			if encodeErr := json.NewEncoder(w).Encode(errorResp); encodeErr != nil {
				logger.Errorf("Failed to encode readiness error response: %v", encodeErr)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	info := versions.GetVersionInfo()

	response := map[string]string{
		"version":    info.Version,
		"commit":     info.Commit,
		"build_date": info.BuildDate,
		"go_version": info.GoVersion,
		"platform":   info.Platform,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Errorf("Failed to encode version info: %v", err)
	}
}

// writeJSONResponse writes a JSON response with the given data.
func (*Routes) writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response.
func (*Routes) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	errorResp := ErrorResponse{Error: message}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		logger.Errorf("Failed to encode error response: %v", err)
	}
}
