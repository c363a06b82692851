package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/qbank/internal/record"
)

// Result describes what a publish wrote.
type Result struct {
	Documents     []string `json:"documents"`
	ImagesCopied  int      `json:"images_copied"`
	ImagesMissing int      `json:"images_missing"`
	PDFs          []PDF    `json:"pdfs,omitempty"`
	CompileErrors []string `json:"compile_errors,omitempty"`
}

// Publisher writes rendered documents and their images into an output
// directory, compiling LaTeX to PDF when an engine is configured.
type Publisher struct {
	engine      string
	skipCompile bool
	log         *slog.Logger
}

func NewPublisher(engine string, skipCompile bool, log *slog.Logger) *Publisher {
	return &Publisher{engine: engine, skipCompile: skipCompile, log: log}
}

// Publish renders records into outDir and copies every referenced image into
// outDir/images. Missing images and compile failures are logged and recorded
// in the result; only filesystem errors on the output are returned.
func (p *Publisher) Publish(ctx context.Context, records []record.Question, opts Options, outDir string) (Result, error) {
	var res Result
	if opts.Format == "" {
		opts.Format = FormatLaTeX
	}
	ext, ok := Extensions[opts.Format]
	if !ok {
		return res, fmt.Errorf("unsupported format %q", opts.Format)
	}
	if err := os.MkdirAll(filepath.Join(outDir, ImageDir), 0o755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}

	copied, missing := p.copyImages(records, opts.ImageRoot, outDir)
	res.ImagesCopied, res.ImagesMissing = copied, missing

	type variant struct {
		name    string
		answers bool
	}
	variants := []variant{{"questions", opts.IncludeAnswers}}
	if opts.Both {
		variants = []variant{{"questions_practice", false}, {"questions_answers", true}}
	}

	for _, v := range variants {
		vopts := opts
		vopts.IncludeAnswers = v.answers
		// Images were copied next to the document; embed from there.
		vopts.ImageRoot = outDir
		localized := relocate(records, outDir)

		data, err := Render(localized, vopts)
		if err != nil {
			return res, err
		}
		docPath := filepath.Join(outDir, v.name+ext)
		if err := os.WriteFile(docPath, data, 0o644); err != nil {
			return res, fmt.Errorf("write %s: %w", docPath, err)
		}
		res.Documents = append(res.Documents, docPath)
		p.log.Info("document written", "path", docPath, "format", opts.Format, "records", len(records))

		if opts.Format != FormatLaTeX || p.skipCompile || p.engine == "" {
			continue
		}
		pdf, err := Compile(ctx, p.engine, docPath, outDir)
		if err != nil {
			p.log.Warn("latex compile failed", "path", docPath, "error", err)
			res.CompileErrors = append(res.CompileErrors, err.Error())
			continue
		}
		p.log.Info("pdf written", "path", pdf.Path, "pages", pdf.Pages)
		res.PDFs = append(res.PDFs, pdf)
	}

	return res, nil
}

// copyImages copies every image the records reference into outDir/images.
func (p *Publisher) copyImages(records []record.Question, root, outDir string) (int, int) {
	copied, missing := 0, 0
	done := make(map[string]bool)
	for i := range records {
		q := &records[i]
		for n := range q.Images {
			file := imageFile(q, n)
			if file == "" {
				missing++
				continue
			}
			dst := filepath.Join(outDir, ImageDir, filepath.Base(file))
			if done[dst] {
				continue
			}
			src, ok := locate(file, root, outDir)
			if !ok {
				missing++
				p.log.Warn("image not found", "record_id", q.ID, "slot", n, "path", file)
				continue
			}
			if sameFile(src, dst) {
				done[dst] = true
				copied++
				continue
			}
			data, err := os.ReadFile(src)
			if err != nil {
				missing++
				p.log.Warn("image not readable", "record_id", q.ID, "slot", n, "path", src, "error", err)
				continue
			}
			if err := os.WriteFile(dst, data, 0o644); err != nil {
				missing++
				p.log.Warn("copy image failed", "record_id", q.ID, "path", dst, "error", err)
				continue
			}
			done[dst] = true
			copied++
		}
	}
	return copied, missing
}

// relocate returns a copy of records whose image paths point at the published
// images directory. Images that did not make it there become empty slots.
func relocate(records []record.Question, outDir string) []record.Question {
	out := make([]record.Question, len(records))
	for i, q := range records {
		imgs := make([]string, len(q.Images))
		for n := range q.Images {
			ref := imageRef(&q, n)
			if ref == "" {
				continue
			}
			if _, err := os.Stat(filepath.Join(outDir, ref)); err == nil {
				imgs[n] = ref
			}
		}
		q.Images = imgs
		q.LocalImages = nil
		out[i] = q
	}
	return out
}

// locate finds an image path relative to root, the working directory or the
// output directory, in that order.
func locate(file, root, outDir string) (string, bool) {
	for _, c := range []string{resolveFile(root, file), file, filepath.Join(outDir, file)} {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c, true
		}
	}
	return "", false
}

func sameFile(a, b string) bool {
	sa, err := os.Stat(a)
	if err != nil {
		return false
	}
	sb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(sa, sb)
}
