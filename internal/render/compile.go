package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDF is a compiled document.
type PDF struct {
	Path  string `json:"path"`
	Pages int    `json:"pages"`
}

// Compile runs a LaTeX engine on texPath with outDir as both working and
// output directory, then opens the PDF to check it has pages.
func Compile(ctx context.Context, engine, texPath, outDir string) (PDF, error) {
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return PDF{}, fmt.Errorf("resolve output dir: %w", err)
	}
	absTex, err := filepath.Abs(texPath)
	if err != nil {
		return PDF{}, fmt.Errorf("resolve tex path: %w", err)
	}

	cmd := exec.CommandContext(ctx, engine, "-interaction=nonstopmode", "-output-directory", absOut, absTex)
	cmd.Dir = absOut
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stdout
	if err := cmd.Run(); err != nil {
		return PDF{}, fmt.Errorf("%s: %w: %s", engine, err, lastLines(stdout.String(), 5))
	}

	pdfPath := filepath.Join(absOut, strings.TrimSuffix(filepath.Base(absTex), filepath.Ext(absTex))+".pdf")
	pages, err := PageCount(pdfPath)
	if err != nil {
		return PDF{}, err
	}
	if pages == 0 {
		return PDF{}, fmt.Errorf("%s produced an empty pdf", engine)
	}
	return PDF{Path: pdfPath, Pages: pages}, nil
}

// PageCount opens a PDF and returns its number of pages.
func PageCount(path string) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf %s: %v", path, r)
		}
	}()
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return reader.NumPage(), nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
