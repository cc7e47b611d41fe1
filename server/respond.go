package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ZaguanLabs/gotmt"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	if r.Body == nil {
		return io.EOF
	}
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", RequestID(r.Context())),
			slog.Any("error", err),
		)
	}
	writeJSON(w, status, payload)
}

func mapError(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, gotmt.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "not found"}
	case errors.Is(err, gotmt.ErrKeyExists):
		return http.StatusBadRequest, errorResponse{Error: "key exists"}
	case errors.Is(err, gotmt.ErrLanguageExists):
		return http.StatusBadRequest, errorResponse{Error: "language exists"}
	}

	var vErr *gotmt.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorResponse{Error: vErr.Error(), Field: vErr.Field}
	}

	return http.StatusInternalServerError, errorResponse{Error: "internal error"}
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}
