// Package render turns a record set into printable documents.
package render

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/dgallion1/qbank/internal/record"
)

const (
	FormatLaTeX    = "latex"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
	FormatDOCX     = "docx"
)

// ImageDir is the directory, relative to the document, that images are referenced from.
const ImageDir = "images"

const defaultGroup = "General"

// Options controls a render.
type Options struct {
	Format         string
	IncludeAnswers bool
	Title          string

	// Both makes Publish write a practice document without answers and an
	// answer document with them, instead of a single document.
	Both bool

	// ImageRoot resolves relative image paths of the records when image bytes
	// are needed (DOCX embedding, publishing). Empty means the working directory.
	ImageRoot string
}

// Extensions maps a format to the file extension of its document.
var Extensions = map[string]string{
	FormatLaTeX:    ".tex",
	FormatHTML:     ".html",
	FormatMarkdown: ".md",
	FormatDOCX:     ".docx",
}

// Render produces one document for records in the requested format.
func Render(records []record.Question, opts Options) ([]byte, error) {
	if opts.Title == "" {
		opts.Title = "Questions"
	}
	switch opts.Format {
	case FormatLaTeX, "":
		return []byte(renderLaTeX(records, opts)), nil
	case FormatMarkdown:
		return []byte(renderMarkdown(records, opts)), nil
	case FormatHTML:
		return renderHTML(records, opts)
	case FormatDOCX:
		return renderDOCX(records, opts)
	default:
		return nil, fmt.Errorf("unsupported format %q", opts.Format)
	}
}

// group is the records of one paper type.
type group struct {
	Name    string
	Records []*record.Question
}

// groupByPaperType groups records by paper_type in first-seen order. Records
// without a paper type go to "General".
func groupByPaperType(records []record.Question) []group {
	var groups []group
	pos := make(map[string]int)
	for i := range records {
		name := strings.TrimSpace(records[i].PaperType)
		if name == "" {
			name = defaultGroup
		}
		n, ok := pos[name]
		if !ok {
			n = len(groups)
			pos[name] = n
			groups = append(groups, group{Name: name})
		}
		groups[n].Records = append(groups[n].Records, &records[i])
	}
	return groups
}

// imageFile returns the on-disk path of placeholder n, preferring the
// localized copy. Empty means the image is unavailable.
func imageFile(q *record.Question, n int) string {
	if n >= 0 && n < len(q.LocalImages) && q.LocalImages[n] != "" {
		return q.LocalImages[n]
	}
	return q.ImagePath(n)
}

// imageRef is the document-relative reference for placeholder n, or "".
func imageRef(q *record.Question, n int) string {
	p := imageFile(q, n)
	if p == "" {
		return ""
	}
	return path.Join(ImageDir, filepath.Base(p))
}

// resolveFile joins a relative image path onto root.
func resolveFile(root, p string) string {
	if root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func missingLabel(n int) string {
	return fmt.Sprintf("[missing image %d]", n)
}

// isImageLine reports whether line is a lone placeholder and returns its index.
func isImageLine(line string) (int, bool) {
	line = strings.TrimSpace(line)
	idx := record.PlaceholderIndices(line)
	if len(idx) != 1 || line != record.Placeholder(idx[0]) {
		return 0, false
	}
	return idx[0], true
}
