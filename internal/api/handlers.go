package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/member-qa/internal/feed"
	"github.com/sells-group/member-qa/internal/qa"
)

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the successful reply of POST /ask.
type AskResponse struct {
	Answer string `json:"answer"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

type handler struct {
	svc Asker
}

func (h *handler) index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": ServiceName,
		"version": Version,
		"endpoints": map[string]string{
			"/ask":    "POST - Ask a question about member data",
			"/health": "GET - Health check",
		},
	})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handler) ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.svc.Ask(r.Context(), req.Question)
	if err != nil {
		status, detail := errorDetail(err)
		zap.L().Warn("api: ask failed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Int("status", status),
			zap.Error(err),
		)
		writeDetail(w, status, detail)
		return
	}

	writeJSON(w, http.StatusOK, AskResponse{Answer: answer})
}

// errorDetail maps a service error to an HTTP status and detail message.
func errorDetail(err error) (int, string) {
	if errors.Is(err, qa.ErrEmptyQuestion) {
		return http.StatusBadRequest, "Question cannot be empty"
	}
	var fe *feed.FetchError
	if errors.As(err, &fe) {
		return http.StatusInternalServerError, fe.Error()
	}
	return http.StatusInternalServerError, "Error processing question: " + err.Error()
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}
