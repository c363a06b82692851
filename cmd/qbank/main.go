package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dgallion1/qbank/internal/api"
	"github.com/dgallion1/qbank/internal/assemble"
	"github.com/dgallion1/qbank/internal/config"
	"github.com/dgallion1/qbank/internal/images"
	"github.com/dgallion1/qbank/internal/parser"
	"github.com/dgallion1/qbank/internal/pipeline"
	"github.com/dgallion1/qbank/internal/record"
	"github.com/dgallion1/qbank/internal/render"
)

const usage = `usage: qbank <command> [flags]

commands:
  extract   read a question bank spreadsheet and write questions.json
  download  fetch images referenced by a record set that are not yet local
  index     copy downloaded images into the dense {index}.png store
  check     reconcile placeholders against the indexed store
  localize  copy indexed images next to the output as q_0001_img0.png
  render    render a record set to latex, html, markdown or docx
  run       extract, index, check and render in one go
  serve     preview an output directory over HTTP

run "qbank <command> -h" for the flags of a command.
`

// errUsage marks command-line mistakes, which exit 2.
var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "help" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	cfg := config.Load()
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	literal := bindFlags(fs, &cfg, cmd)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	cfg.ApplyDefaults()

	log := newLogger(cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "extract":
		err = runExtract(ctx, cfg, log)
	case "download":
		err = runDownload(ctx, cfg, log)
	case "index":
		err = runIndex(cfg, log)
	case "check":
		err = runCheck(cfg, *literal)
	case "localize":
		err = runLocalize(cfg, log)
	case "render":
		err = runRender(ctx, cfg, log)
	case "run":
		err = runPipeline(ctx, cfg, log)
	case "serve":
		err = runServe(ctx, cfg, log)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Error(cmd+" failed", "error", err)
		os.Exit(1)
	}
}

// bindFlags registers the flags shared by all commands on top of the env config.
func bindFlags(fs *flag.FlagSet, cfg *config.Config, cmd string) *bool {
	fs.StringVar(&cfg.InputPath, "input", cfg.InputPath, "input spreadsheet (extract, run) or record set (other commands)")
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "output directory")
	fs.StringVar(&cfg.ImageSourceDir, "images", cfg.ImageSourceDir, "directory for downloaded images (default <out>/raw_images)")
	fs.StringVar(&cfg.ImageStoreDir, "store", cfg.ImageStoreDir, "indexed image store (default <out>/indexed_images)")
	fs.StringVar(&cfg.SheetName, "sheet", cfg.SheetName, "worksheet to read")
	fs.StringVar(&cfg.Title, "title", cfg.Title, "document title")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "output format: latex, html, markdown or docx")
	fs.BoolVar(&cfg.IncludeAnswers, "answers", cfg.IncludeAnswers, "include answers and explanations")
	fs.BoolVar(&cfg.Both, "both", cfg.Both, "write a practice document and an answer document")
	fs.BoolVar(&cfg.SkipCompile, "no-compile", cfg.SkipCompile, "do not run the LaTeX engine")
	fs.DurationVar(&cfg.FetchTimeout, "timeout", cfg.FetchTimeout, "timeout per remote image")
	fs.StringVar(&cfg.Port, "port", cfg.Port, "preview server port")
	literal := fs.Bool("literal", false, "check: treat placeholder numbers as store indices")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: qbank %s [flags]\n", cmd)
		fs.PrintDefaults()
	}
	return literal
}

func newLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// recordSetConfig points the input at the extracted record set when none was given.
func recordSetConfig(cfg config.Config) (config.Config, error) {
	if cfg.InputPath == "" {
		cfg.InputPath = cfg.RecordSetPath()
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func spreadsheetConfig(cfg config.Config) (config.Config, error) {
	if cfg.InputPath == "" {
		return cfg, fmt.Errorf("%w: -input spreadsheet is required", errUsage)
	}
	if !parser.IsSupportedExtension(cfg.InputPath) {
		return cfg, fmt.Errorf("%w: unsupported input %s (want .xlsx, .xls or .csv)", errUsage, filepath.Base(cfg.InputPath))
	}
	return cfg, cfg.Validate()
}

func runExtract(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	cfg, err := spreadsheetConfig(cfg)
	if err != nil {
		return err
	}
	table, err := parser.ReadFile(cfg.InputPath, cfg.SheetName)
	if err != nil {
		return err
	}
	if table.SheetFallback {
		log.Warn("sheet not found, using first sheet", "want", cfg.SheetName, "sheet", table.Sheet)
	}

	resolver := images.NewResolver(cfg.ImageSourceDir, cfg.FetchTimeout, log)
	defer resolver.Close()
	asm := assemble.New(resolver, log)
	records := asm.AssembleTable(ctx, table)

	if err := record.Save(cfg.RecordSetPath(), records); err != nil {
		return err
	}
	c := resolver.Counts()
	fmt.Printf("wrote %d records to %s (images: %d fetched, %d decoded, %d present, %d unavailable)\n",
		len(records), cfg.RecordSetPath(), c.Fetched, c.Decoded, c.Existing, c.Unavailable)
	return nil
}

func runDownload(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	cfg, err := recordSetConfig(cfg)
	if err != nil {
		return err
	}
	records, err := record.Load(cfg.InputPath)
	if err != nil {
		return err
	}
	resolver := images.NewResolver(cfg.ImageSourceDir, cfg.FetchTimeout, log)
	defer resolver.Close()

	res := images.Download(ctx, records, resolver)
	fmt.Printf("needed %d, downloaded %d, already present %d, unavailable %d\n",
		res.Needed, res.Downloaded, res.Present, res.Unavailable)
	return nil
}

func runIndex(cfg config.Config, log *slog.Logger) error {
	cfg, err := recordSetConfig(cfg)
	if err != nil {
		return err
	}
	records, err := record.Load(cfg.InputPath)
	if err != nil {
		return err
	}
	ix := images.BuildIndex(records)
	res, err := images.BuildStore(ix, cfg.ImageSourceDir, cfg.ImageStoreDir, log)
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d images into %s (%d converted, %d missing)\n",
		res.Copied, cfg.ImageStoreDir, res.Converted, len(res.Missing))
	return nil
}

func runCheck(cfg config.Config, literal bool) error {
	cfg, err := recordSetConfig(cfg)
	if err != nil {
		return err
	}
	records, err := record.Load(cfg.InputPath)
	if err != nil {
		return err
	}
	var ix *images.Index
	if !literal && hasRawFields(records) {
		ix = images.BuildIndex(records)
	}
	rep, err := images.Reconcile(records, cfg.ImageStoreDir, ix)
	if err != nil {
		return err
	}
	fmt.Print(rep.Summary())
	return nil
}

func hasRawFields(records []record.Question) bool {
	for _, q := range records {
		if q.QuestionRaw != "" || q.OptionsRaw != "" || q.ExplanationRaw != "" {
			return true
		}
	}
	return false
}

func runLocalize(cfg config.Config, log *slog.Logger) error {
	cfg, err := recordSetConfig(cfg)
	if err != nil {
		return err
	}
	records, err := record.Load(cfg.InputPath)
	if err != nil {
		return err
	}
	ix := images.BuildIndex(records)
	res, err := images.Localize(records, ix, cfg.ImageStoreDir, cfg.OutputDir, log)
	if err != nil {
		return err
	}
	out := filepath.Join(cfg.OutputDir, "questions_with_images.json")
	if err := record.Save(out, records); err != nil {
		return err
	}
	fmt.Printf("localized %d images (%d missing), wrote %s\n", res.Copied, res.Missing, out)
	return nil
}

func runRender(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	cfg, err := recordSetConfig(cfg)
	if err != nil {
		return err
	}
	records, err := record.Load(cfg.InputPath)
	if err != nil {
		return err
	}
	pub := render.NewPublisher(cfg.LatexEngine, cfg.SkipCompile, log)
	res, err := pub.Publish(ctx, records, render.Options{
		Format:         cfg.Format,
		IncludeAnswers: cfg.IncludeAnswers,
		Both:           cfg.Both,
		Title:          cfg.Title,
		ImageRoot:      filepath.Dir(cfg.InputPath),
	}, cfg.OutputDir)
	if err != nil {
		return err
	}
	for _, d := range res.Documents {
		fmt.Println(d)
	}
	for _, p := range res.PDFs {
		fmt.Printf("%s (%d pages)\n", p.Path, p.Pages)
	}
	return nil
}

func runPipeline(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	cfg, err := spreadsheetConfig(cfg)
	if err != nil {
		return err
	}
	run, err := pipeline.NewRunner(log).Run(ctx, cfg)
	if err != nil {
		return err
	}
	snap := run.Snapshot()
	fmt.Printf("%s: %d records, %d images unavailable, %d missing from store\n",
		snap.Status, snap.Progress.Records, snap.Progress.ImagesUnavailable, snap.Progress.Missing)
	return nil
}

func runServe(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	srv := api.NewServer(cfg, log)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		<-ctx.Done()
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("serving output directory", "dir", cfg.OutputDir, "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
