package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ZaguanLabs/gotmt"
)

type languagePayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type translationPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type valuesPayload struct {
	Values map[string]string `json:"values"`
}

func (s *Server) handleLanguageList(w http.ResponseWriter, r *http.Request) {
	langs, err := s.svc.Languages(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if langs == nil {
		langs = []gotmt.Language{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "languages": langs})
}

func (s *Server) handleLanguageCreate(w http.ResponseWriter, r *http.Request) {
	var body languagePayload
	_ = decodeJSON(w, r, &body)

	if strings.TrimSpace(body.Code) == "" || strings.TrimSpace(body.Name) == "" {
		badRequest(w, "code & name required")
		return
	}

	lang, count, err := s.svc.AddLanguage(r.Context(), body.Code, body.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":              true,
		"code":                 lang.Code,
		"name":                 lang.Name,
		"translations_updated": count,
	})
}

func (s *Server) handleTranslationList(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	q := gotmt.ListQuery{
		Search: params.Get("q"),
		SortBy: params.Get("sort"),
		Order:  gotmt.SortOrder(strings.ToLower(params.Get("order"))),
	}

	var err error
	if q.Page, err = intParam(params.Get("page"), 1); err != nil {
		badRequest(w, "page must be an integer")
		return
	}
	if q.PerPage, err = intParam(params.Get("per"), gotmt.DefaultPerPage); err != nil {
		badRequest(w, "per must be an integer")
		return
	}
	q = q.Normalized()

	entries, total, err := s.svc.ListTranslations(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []gotmt.TranslationEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"translations": entries,
		"page":         q.Page,
		"per":          q.PerPage,
		"total":        total,
	})
}

func intParam(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) handleTranslationCreate(w http.ResponseWriter, r *http.Request) {
	var body translationPayload
	_ = decodeJSON(w, r, &body)

	if strings.TrimSpace(body.Key) == "" || strings.TrimSpace(body.Value) == "" {
		badRequest(w, "key & english value required")
		return
	}

	entry, err := s.svc.CreateTranslation(r.Context(), body.Key, body.Value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "translation": entry})
}

func (s *Server) handleTranslationGet(w http.ResponseWriter, r *http.Request) {
	entry, err := s.svc.Translation(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "translation": entry})
}

func (s *Server) handleTranslationUpdate(w http.ResponseWriter, r *http.Request) {
	var body valuesPayload
	if err := decodeJSON(w, r, &body); err != nil || body.Values == nil {
		badRequest(w, "values dict required")
		return
	}

	entry, err := s.svc.UpdateTranslation(r.Context(), r.PathValue("id"), body.Values)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "translation": entry})
}

func (s *Server) handleTranslationDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTranslation(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleTranslationRegenerate(w http.ResponseWriter, r *http.Request) {
	entry, err := s.svc.RegenerateTranslation(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "translation": entry})
}

func (s *Server) handleRegenerateAll(w http.ResponseWriter, r *http.Request) {
	count, err := s.svc.RegenerateAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "translations_updated": count})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.svc.Export(r.Context(), &buf); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFilename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
