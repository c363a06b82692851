package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dgallion1/qbank/internal/images"
	"github.com/dgallion1/qbank/internal/pipeline"
	"github.com/dgallion1/qbank/internal/record"
)

// localizedSet is written by the localisation pass and preferred when present.
const localizedSet = "questions_with_images.json"

func (s *Server) loadRecords() ([]record.Question, error) {
	path := filepath.Join(s.cfg.OutputDir, localizedSet)
	if _, err := os.Stat(path); err != nil {
		path = s.cfg.RecordSetPath()
	}
	return record.Load(path)
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	records, err := s.loadRecords()
	if err != nil {
		s.notFoundOr500(w, err, "record set")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := record.Encode(w, records); err != nil {
		s.log.Warn("encode records failed", "error", err)
	}
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	records, err := s.loadRecords()
	if err != nil {
		s.notFoundOr500(w, err, "record set")
		return
	}
	rep, err := images.Reconcile(records, s.cfg.ImageStoreDir, images.BuildIndex(records))
	if err != nil {
		s.log.Error("reconcile failed", "error", err)
		jsonError(w, "reconcile failed", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"ok":      rep.OK(),
		"report":  rep,
		"summary": rep.Summary(),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	snap, err := pipeline.LoadReport(s.cfg.OutputDir)
	if err != nil {
		s.notFoundOr500(w, err, "run report")
		return
	}
	jsonResponse(w, http.StatusOK, snap)
}

func (s *Server) notFoundOr500(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, fs.ErrNotExist) {
		jsonError(w, what+" not found", http.StatusNotFound)
		return
	}
	s.log.Error("load failed", "what", what, "error", err)
	jsonError(w, "failed to load "+what, http.StatusInternalServerError)
}

func jsonResponse(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
