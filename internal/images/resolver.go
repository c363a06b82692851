package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MaxImageBytes caps a single remote image body.
const MaxImageBytes = 20 << 20

// Counts tallies resolver outcomes.
type Counts struct {
	Fetched     int `json:"fetched"`
	Decoded     int `json:"decoded"`
	Existing    int `json:"existing"`
	Unavailable int `json:"unavailable"`
}

// Resolver stores image sources in a local directory under deterministic
// filenames. It never retries, and a destination that already exists is
// returned without touching the network.
type Resolver struct {
	dir        string
	httpClient *http.Client
	log        *slog.Logger
	Stats      *FetchStats

	counts Counts
}

func NewResolver(dir string, timeout time.Duration, log *slog.Logger) *Resolver {
	return &Resolver{
		dir: dir,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log:   log,
		Stats: &FetchStats{},
	}
}

// Dir is the directory images are written to.
func (r *Resolver) Dir() string {
	return r.dir
}

// Counts returns the outcome tallies so far.
func (r *Resolver) Counts() Counts {
	return r.counts
}

// Resolve returns the local path for src. The boolean is false when the image
// is unavailable; the failure has already been logged.
func (r *Resolver) Resolve(ctx context.Context, src string) (string, bool) {
	src = strings.TrimSpace(src)
	log := r.log.With("source", truncate(src, 120))
	if src == "" {
		r.counts.Unavailable++
		log.Warn("empty image source")
		return "", false
	}

	name := FileName(src)
	dst := filepath.Join(r.dir, name)
	if _, err := os.Stat(dst); err == nil {
		r.counts.Existing++
		log.Debug("image already present", "path", dst)
		return dst, true
	}

	var err error
	switch {
	case isDataURI(src):
		err = r.decode(src, dst)
		if err == nil {
			r.counts.Decoded++
		}
	case strings.HasPrefix(strings.ToLower(src), "http://"), strings.HasPrefix(strings.ToLower(src), "https://"):
		err = r.fetch(ctx, src, dst)
		if err == nil {
			r.counts.Fetched++
		}
	default:
		err = fmt.Errorf("unsupported image source")
	}
	if err != nil {
		r.counts.Unavailable++
		log.Warn("image unavailable", "error", err)
		return "", false
	}
	log.Info("image stored", "path", dst)
	return dst, true
}

func (r *Resolver) decode(src, dst string) error {
	_, data, err := decodeDataURI(src)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("empty data uri payload")
	}
	return writeFile(dst, data)
}

func (r *Resolver) fetch(ctx context.Context, src, dst string) (err error) {
	start := time.Now()
	var n int64
	defer func() { r.Stats.Record(src, time.Since(start), n, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	n = int64(len(data))
	return writeFile(dst, data)
}

// Close releases idle connections.
func (r *Resolver) Close() {
	r.httpClient.CloseIdleConnections()
}

// writeFile writes data through a temp sibling so an interrupted run never
// leaves a partial file that the existence check would later trust.
func writeFile(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".img-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("rename image: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
