package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/olehluchkiv/aggscope/internal/codec"
	"github.com/olehluchkiv/aggscope/internal/graph"
)

const runIDHeader = "X-Run-ID"

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// analyze decodes a graph document (YAML when the Content-Type says so,
// JSON otherwise) and answers with the report. The report format follows
// ?format= first, then Accept.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	exporter, err := pickExporter(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Read the whole body first: the YAML decoder flattens reader errors.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "read request body: "+err.Error())
		return
	}
	doc, err := codec.ForContentType(r.Header.Get("Content-Type")).Parse(bytes.NewReader(body))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.runner.Run(r.Context(), doc)
	if err != nil {
		var cfgErr *graph.ConfigurationError
		if errors.As(err, &cfgErr) {
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error("analysis failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	var buf bytes.Buffer
	if err := exporter.Export(res.Report, &buf); err != nil {
		s.logger.Error("failed to encode report", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to encode report")
		return
	}
	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set(runIDHeader, res.RunID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func pickExporter(r *http.Request) (codec.Exporter, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		return codec.ForFormat(f)
	}
	if strings.Contains(strings.ToLower(r.Header.Get("Accept")), "yaml") {
		return codec.NewYAMLCodec(), nil
	}
	return codec.NewJSONCodec(), nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]any{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
