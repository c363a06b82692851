package render

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/dgallion1/qbank/internal/record"
	"github.com/fumiama/go-docx"
)

// renderDOCX builds a Word document with images embedded inline. Images that
// cannot be read or decoded are replaced by a text marker.
func renderDOCX(records []record.Question, opts Options) ([]byte, error) {
	w := docx.New().WithDefaultTheme().WithA4Page()
	w.AddParagraph().Justification("center").AddText(opts.Title).Bold().Size("44")

	for _, g := range groupByPaperType(records) {
		w.AddParagraph().AddText(g.Name).Bold().Size("32")
		for _, q := range g.Records {
			docxQuestion(w, q, opts)
		}
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}
	return buf.Bytes(), nil
}

func docxQuestion(w *docx.Docx, q *record.Question, opts Options) {
	w.AddParagraph().AddText(q.ID).Bold().Size("28")

	var info []string
	for _, kv := range [][2]string{{"Type", q.Type}, {"Paper", q.PaperType}, {"Difficulty", q.Difficulty}, {"Year", q.Year}} {
		if strings.TrimSpace(kv[1]) != "" {
			info = append(info, kv[0]+": "+kv[1])
		}
	}
	if len(info) > 0 {
		w.AddParagraph().AddText(strings.Join(info, "  ")).Italic().Color("808080")
	}

	docxBody(w, q, "", q.Question, opts)
	for _, l := range q.Options.Letters() {
		docxBody(w, q, l+". ", q.Options[l], opts)
	}

	if opts.IncludeAnswers {
		if q.Answer != "" {
			p := w.AddParagraph()
			addText(p, "Answer: ").Bold()
			p.AddText(q.Answer)
		}
		if q.Explanation != "" {
			w.AddParagraph().AddText("Explanation:").Italic()
			docxBody(w, q, "", q.Explanation, opts)
		}
	}
	w.AddParagraph()
}

// docxBody writes one paragraph per line of text. label prefixes the first paragraph.
func docxBody(w *docx.Docx, q *record.Question, label, text string, opts Options) {
	first := true
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		p := w.AddParagraph()
		if first && label != "" {
			addText(p, label).Bold()
		}
		first = false
		record.WalkPlaceholders(line,
			func(lit string) { addText(p, lit) },
			func(n int) { docxImage(p, q, n, opts) },
		)
	}
}

func docxImage(p *docx.Paragraph, q *record.Question, n int, opts Options) {
	file := imageFile(q, n)
	if file == "" {
		p.AddText(missingLabel(n)).Color("C00000")
		return
	}
	data, err := os.ReadFile(resolveFile(opts.ImageRoot, file))
	if err != nil {
		p.AddText(missingLabel(n)).Color("C00000")
		return
	}
	if _, err := p.AddInlineDrawing(data); err != nil {
		p.AddText(missingLabel(n)).Color("C00000")
	}
}

// addText adds a run whose surrounding spaces survive in Word.
func addText(p *docx.Paragraph, s string) *docx.Run {
	r := p.AddText(s)
	if strings.TrimSpace(s) != s {
		for _, c := range r.Children {
			if t, ok := c.(*docx.Text); ok {
				t.XMLSpace = "preserve"
			}
		}
	}
	return r
}
