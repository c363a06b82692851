package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/qbank/internal/config"
	"github.com/dgallion1/qbank/internal/pipeline"
	"github.com/dgallion1/qbank/internal/record"
)

func testServer(t *testing.T) (*Server, config.Config) {
	t.Helper()
	cfg := config.Config{OutputDir: t.TempDir()}
	cfg.ApplyDefaults()
	return NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))), cfg
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("expected ok body, got %s", rec.Body.String())
	}
}

func TestQuestionsNotFoundBeforeExtract(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s, "/api/questions")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "record set not found") {
		t.Fatalf("expected error body, got %s", rec.Body.String())
	}
}

func TestQuestionsAndCheck(t *testing.T) {
	s, cfg := testServer(t)
	records := []record.Question{
		{ID: "Q0001", QuestionRaw: `<img src="http://h/a.png">`, Question: "[IMAGE:0]", Images: []string{"raw/a.png"}},
	}
	if err := record.Save(cfg.RecordSetPath(), records); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec := get(t, s, "/api/questions")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []record.Question
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "Q0001" {
		t.Fatalf("expected Q0001, got %+v", got)
	}

	rec = get(t, s, "/api/check")
	var check struct {
		OK     bool `json:"ok"`
		Report struct {
			Missing []int `json:"missing"`
		} `json:"report"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &check); err != nil {
		t.Fatalf("decode check: %v", err)
	}
	if check.OK || len(check.Report.Missing) != 1 {
		t.Fatalf("expected index 0 missing, got %+v", check)
	}

	if err := os.MkdirAll(cfg.ImageStoreDir, 0o755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(cfg.ImageStoreDir, "0.png"), []byte("png"), 0o644)
	rec = get(t, s, "/api/check")
	if err := json.Unmarshal(rec.Body.Bytes(), &check); err != nil {
		t.Fatalf("decode check: %v", err)
	}
	if !check.OK {
		t.Fatalf("expected clean check once 0.png exists, got %s", rec.Body.String())
	}
}

func TestReport(t *testing.T) {
	s, cfg := testServer(t)
	if rec := get(t, s, "/api/report"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before a run, got %d", rec.Code)
	}

	run := pipeline.NewRun("bank.xlsx")
	run.SetStatus(pipeline.StatusPartial, "done")
	if _, err := run.Save(cfg.OutputDir); err != nil {
		t.Fatalf("save report: %v", err)
	}

	rec := get(t, s, "/api/report")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap pipeline.RunSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Status != pipeline.StatusPartial || snap.Input != "bank.xlsx" {
		t.Fatalf("expected partial run of bank.xlsx, got %+v", snap)
	}
}

func TestStaticFiles(t *testing.T) {
	s, cfg := testServer(t)
	os.MkdirAll(filepath.Join(cfg.OutputDir, "images"), 0o755)
	os.WriteFile(filepath.Join(cfg.OutputDir, "images", "a.png"), []byte("img"), 0o644)
	os.WriteFile(filepath.Join(cfg.OutputDir, "questions.html"), []byte("<h1>Bank</h1>"), 0o644)

	rec := get(t, s, "/images/a.png")
	if rec.Code != http.StatusOK || rec.Body.String() != "img" {
		t.Fatalf("expected image bytes, got %d %q", rec.Code, rec.Body.String())
	}

	rec = get(t, s, "/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<h1>Bank</h1>") {
		t.Fatalf("expected rendered page at /, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRequestLoggerLevels(t *testing.T) {
	var buf strings.Builder
	cfg := config.Config{OutputDir: t.TempDir()}
	cfg.ApplyDefaults()
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewServer(cfg, log)

	imgDir := filepath.Join(cfg.OutputDir, "images")
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(imgDir, "q_0001_img0.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	get(t, s, "/health")
	get(t, s, "/api/questions")
	get(t, s, "/images/q_0001_img0.png")

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e map[string]any
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if e["msg"] == "request" {
			entries = append(entries, e)
		}
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 request logs, got %d: %s", len(entries), buf.String())
	}

	want := []struct {
		level  string
		status float64
	}{
		{"INFO", 200},
		{"WARN", 404},
		{"DEBUG", 200},
	}
	for i, w := range want {
		e := entries[i]
		if e["level"] != w.level || e["status"] != w.status {
			t.Errorf("request %d: expected %s/%v, got %v/%v", i, w.level, w.status, e["level"], e["status"])
		}
		if id, _ := e["request_id"].(string); id == "" {
			t.Errorf("request %d: expected a request id", i)
		}
	}
	if entries[2]["bytes"] != float64(3) {
		t.Errorf("expected 3 bytes for the image, got %v", entries[2]["bytes"])
	}
}
