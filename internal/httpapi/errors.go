package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dshills/docops-mcp/internal/indexer"
	"github.com/dshills/docops-mcp/internal/llm"
	"github.com/dshills/docops-mcp/internal/logger"
	"github.com/dshills/docops-mcp/internal/storage"
	"github.com/dshills/docops-mcp/pkg/types"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(types.ErrEmptyQuery, http.StatusBadRequest, "empty_query"),
		sentinelHandler(types.ErrPathEscape, http.StatusBadRequest, "path_escape"),
		sentinelHandler(types.ErrMissingProject, http.StatusBadRequest, "validation_failed"),
		sentinelHandler(types.ErrMissingDocID, http.StatusBadRequest, "validation_failed"),
		sentinelHandler(types.ErrInvalidScore, http.StatusBadRequest, "validation_failed"),
		sentinelHandler(types.ErrProjectNotFound, http.StatusNotFound, "project_not_found"),
		sentinelHandler(types.ErrFileNotFound, http.StatusNotFound, "file_not_found"),
		sentinelHandler(storage.ErrNotFound, http.StatusNotFound, "document_not_found"),
		sentinelHandler(indexer.ErrIndexInProgress, http.StatusConflict, "ingest_in_progress"),
		sentinelHandler(llm.ErrRequestRejected, http.StatusBadGateway, "llm_provider_error"),
		sentinelHandler(llm.ErrProviderError, http.StatusBadGateway, "llm_provider_error"),
	}
}

// sentinelHandler answers with the sentinel's own message so wrapped
// details such as file system paths stay internal.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// handleDomainError maps err to a response, falling back to 500
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}
