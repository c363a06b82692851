package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/qbank/internal/assemble"
	"github.com/dgallion1/qbank/internal/config"
	"github.com/dgallion1/qbank/internal/images"
	"github.com/dgallion1/qbank/internal/parser"
	"github.com/dgallion1/qbank/internal/record"
	"github.com/dgallion1/qbank/internal/render"
)

// Runner executes extract, index, check and render one after another.
type Runner struct {
	log *slog.Logger
}

func NewRunner(log *slog.Logger) *Runner {
	return &Runner{log: log}
}

// Run processes cfg.InputPath end to end. A setup failure (unreadable or
// unparseable input) returns an error before anything is written. Once the
// table is read, content shortfalls are recorded on the run, which then ends
// partial, and the report is written to the output directory in every case.
func (r *Runner) Run(ctx context.Context, cfg config.Config) (*Run, error) {
	run := NewRun(cfg.InputPath)
	log := r.log.With("input", cfg.InputPath)

	table, err := r.load(cfg, run, log)
	if err != nil {
		log.Error("run failed", "phase", run.Phase, "error", err)
		run.AddError(err.Error())
		run.SetStatus(StatusFailed, run.Phase)
		return run, err
	}

	err = r.process(ctx, cfg, run, table, log)
	if err != nil {
		log.Error("run failed", "phase", run.Phase, "error", err)
		run.AddError(err.Error())
		run.SetStatus(StatusFailed, run.Phase)
	} else if run.HasShortfalls() {
		run.SetStatus(StatusPartial, "done")
	} else {
		run.SetStatus(StatusCompleted, "done")
	}

	if path, saveErr := run.Save(cfg.OutputDir); saveErr != nil {
		log.Warn("run report not written", "error", saveErr)
	} else {
		log.Info("run report written", "path", path, "status", run.Status)
	}
	return run, err
}

// load reads and parses the input. It touches nothing on disk.
func (r *Runner) load(cfg config.Config, run *Run, log *slog.Logger) (*parser.Table, error) {
	run.SetStatus(StatusExtracting, "extracting")
	data, err := os.ReadFile(cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	run.InputHash = ContentHashHex(data)

	table, err := parser.ReadFile(cfg.InputPath, cfg.SheetName)
	if err != nil {
		return nil, err
	}
	if table.SheetFallback {
		log.Warn("sheet not found, using first sheet", "want", cfg.SheetName, "sheet", table.Sheet)
	}
	return table, nil
}

func (r *Runner) process(ctx context.Context, cfg config.Config, run *Run, table *parser.Table, log *slog.Logger) error {
	// Phase 1: Extract
	resolver := images.NewResolver(cfg.ImageSourceDir, cfg.FetchTimeout, log)
	defer resolver.Close()

	asm := assemble.New(resolver, log)
	records := asm.AssembleTable(ctx, table)
	run.Update(func(p *Progress) {
		p.Rows = asm.Stats.Rows
		p.Records = len(records)
		p.ImagesRequested = asm.Stats.ImagesRequested
		p.ImagesResolved = asm.Stats.ImagesResolved
		p.ImagesUnavailable = asm.Stats.ImagesMissing
		p.Diagnostics = asm.Stats.Diagnostics
	})
	run.Fetch = resolver.Stats.Summary()

	if err := record.Save(cfg.RecordSetPath(), records); err != nil {
		return err
	}
	log.Info("record set written", "path", cfg.RecordSetPath(), "records", len(records))

	// Phase 2: Index
	run.SetStatus(StatusIndexing, "indexing")
	ix := images.BuildIndex(records)
	store, err := images.BuildStore(ix, cfg.ImageSourceDir, cfg.ImageStoreDir, log)
	if err != nil {
		run.AddError(fmt.Sprintf("index: %s", err))
	}
	run.Update(func(p *Progress) {
		p.Indexed = store.Copied
		p.StoreMissing = len(store.Missing)
	})

	// Phase 3: Check
	run.SetStatus(StatusChecking, "checking")
	rep, err := images.Reconcile(records, cfg.ImageStoreDir, ix)
	if err != nil {
		run.AddError(fmt.Sprintf("check: %s", err))
	} else {
		run.Check = &rep
		run.Update(func(p *Progress) {
			p.Missing = len(rep.Missing)
			p.Extra = len(rep.Extra)
		})
		log.Info("reconciliation", "mode", rep.Mode, "required", len(rep.Required), "missing", len(rep.Missing), "extra", len(rep.Extra))
	}

	// Phase 4: Render
	run.SetStatus(StatusRendering, "rendering")
	pub := render.NewPublisher(cfg.LatexEngine, cfg.SkipCompile, log)
	res, err := pub.Publish(ctx, records, render.Options{
		Format:         cfg.Format,
		IncludeAnswers: cfg.IncludeAnswers,
		Both:           cfg.Both,
		Title:          cfg.Title,
	}, cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	run.Documents = res.Documents
	for _, e := range res.CompileErrors {
		run.AddError("compile: " + e)
	}
	return nil
}
