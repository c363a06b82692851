package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	// Input question bank (.xlsx, .xls, .csv) or record set (.json), depending on the stage.
	InputPath string
	SheetName string

	// Image directories
	ImageSourceDir string // downloads, named by sanitized remote filename
	ImageStoreDir  string // dense index store, {index}.png

	// Output
	OutputDir      string
	IncludeAnswers bool
	Both           bool // practice and answer documents instead of one
	Title          string
	Format         string

	// Remote image fetch
	FetchTimeout time.Duration

	// LaTeX compilation
	SkipCompile bool
	LatexEngine string

	// Preview server
	Port string

	// Logging
	LogFormat string
	LogLevel  string
}

func Load() Config {
	cfg := Config{
		InputPath: os.Getenv("QBANK_INPUT"),
		SheetName: envOr("QBANK_SHEET", "导出结果"),

		ImageSourceDir: os.Getenv("QBANK_IMAGE_DIR"),
		ImageStoreDir:  os.Getenv("QBANK_STORE_DIR"),

		OutputDir:      envOr("QBANK_OUTPUT_DIR", "output"),
		IncludeAnswers: envBool("QBANK_INCLUDE_ANSWERS", false),
		Both:           envBool("QBANK_BOTH", false),
		Title:          envOr("QBANK_TITLE", "Questions"),
		Format:         envOr("QBANK_FORMAT", "latex"),

		FetchTimeout: envDuration("QBANK_FETCH_TIMEOUT", 15*time.Second),

		SkipCompile: envBool("QBANK_SKIP_COMPILE", false),
		LatexEngine: envOr("QBANK_LATEX_ENGINE", "xelatex"),

		Port: envOr("PORT", "8090"),

		LogFormat: envOr("LOG_FORMAT", "text"),
		LogLevel:  envOr("LOG_LEVEL", "info"),
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}

	return cfg
}

// ApplyDefaults derives the image directories from the output directory when
// they were not set explicitly. Call it once overrides such as CLI flags are in.
func (c *Config) ApplyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if c.ImageSourceDir == "" {
		c.ImageSourceDir = filepath.Join(c.OutputDir, "raw_images")
	}
	if c.ImageStoreDir == "" {
		c.ImageStoreDir = filepath.Join(c.OutputDir, "indexed_images")
	}
	if c.Title == "" {
		c.Title = "Questions"
	}
}

// RecordSetPath is where the extract stage writes the normalized JSON.
func (c Config) RecordSetPath() string {
	return filepath.Join(c.OutputDir, "questions.json")
}

func (c Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("input path is required")
	}
	if _, err := os.Stat(c.InputPath); err != nil {
		return fmt.Errorf("input %s: %w", c.InputPath, err)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	switch c.Format {
	case "latex", "html", "markdown", "docx":
	default:
		return fmt.Errorf("unsupported format %q", c.Format)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
