package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/ZaguanLabs/gotmt"
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"dir": gotmt.GetDirection,
	"rtl": gotmt.IsRTL,
}).ParseFS(templateFS, "templates/index.html"))

type indexData struct {
	Title     string
	Version   string
	Languages []gotmt.Language
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	langs, err := s.svc.Languages(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	err = s.index.Execute(&buf, indexData{
		Title:     "Translation Management",
		Version:   gotmt.Version,
		Languages: langs,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
