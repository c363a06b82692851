package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/qbank/internal/record"
	"github.com/fumiama/go-docx"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
}

func sampleRecords(imgPath string) []record.Question {
	return []record.Question{
		{
			ID:          "Q0001",
			PaperType:   "Mock",
			Type:        "单选题",
			Question:    "What is X?\n[IMAGE:0]",
			Options:     record.Options{"B": "2", "A": "1"},
			Answer:      "A",
			Explanation: "Because [IMAGE:1] is missing",
			Images:      []string{imgPath, ""},
		},
		{
			ID:       "Q0002",
			Question: "50% & $5 for x^2 ≤ y",
			Options:  record.Options{},
			Answer:   "free text",
			Images:   []string{},
		},
		{
			ID:        "Q0003",
			PaperType: "Mock",
			Question:  "Third",
			Options:   record.Options{"A": "yes"},
			Images:    []string{},
		},
	}
}

func TestGroupByPaperTypeFirstSeenOrder(t *testing.T) {
	groups := groupByPaperType(sampleRecords("a.png"))
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Name != "Mock" || len(groups[0].Records) != 2 {
		t.Fatalf("expected Mock with 2 records first, got %s with %d", groups[0].Name, len(groups[0].Records))
	}
	if groups[1].Name != "General" || groups[1].Records[0].ID != "Q0002" {
		t.Fatalf("expected General group with Q0002, got %s", groups[1].Name)
	}
}

func TestLatexTextEscapesAndConvertsMath(t *testing.T) {
	got := latexText("50% & $5 for x^2 ≤ y_1 {a}")
	want := `50\% \& \$5 for $x^{2}$ $\leq$ $y_{1}$ \{a\}`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderLaTeX(t *testing.T) {
	out, err := Render(sampleRecords("/tmp/raw/a.png"), Options{Format: FormatLaTeX, Title: "Bank"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	tex := string(out)

	for _, want := range []string{
		`\usepackage{xeCJK}`,
		`\title{Bank}`,
		`\includegraphics[width=0.7\linewidth]{images/a.png}`,
		`\item[A.] 1`,
		`50\% \& \$5`,
		`\end{document}`,
	} {
		if !strings.Contains(tex, want) {
			t.Errorf("expected latex to contain %q", want)
		}
	}
	if strings.Index(tex, `\item[A.]`) > strings.Index(tex, `\item[B.]`) {
		t.Error("expected options in letter order")
	}
	if strings.Index(tex, `\section*{Mock}`) > strings.Index(tex, `\section*{General}`) {
		t.Error("expected Mock section before General")
	}
	if strings.Contains(tex, "Answer:") {
		t.Error("expected no answers without IncludeAnswers")
	}
}

func TestRenderLaTeXWithAnswers(t *testing.T) {
	out, err := Render(sampleRecords("a.png"), Options{Format: FormatLaTeX, IncludeAnswers: true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	tex := string(out)
	if !strings.Contains(tex, `\textbf{Answer:} A`) {
		t.Error("expected answer line")
	}
	if !strings.Contains(tex, `\textit{Explanation:} Because \fbox{[missing image 1]} is missing`) {
		t.Errorf("expected explanation with missing marker, got:\n%s", tex)
	}
	if !strings.Contains(tex, `\title{Questions}`) {
		t.Error("expected default title")
	}
}

func TestRenderMarkdown(t *testing.T) {
	out, err := Render(sampleRecords("out/raw/a.png"), Options{Format: FormatMarkdown, Title: "Bank", IncludeAnswers: true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	md := string(out)
	for _, want := range []string{
		"# Bank",
		"## Mock",
		"### Q0001",
		"| 单选题 | Mock | - | - |",
		"![image 0](images/a.png)",
		"- **A.** 1",
		"**Answer:** A",
		`*\[missing image 1\]*`,
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown to contain %q", want)
		}
	}
}

func TestRenderHTML(t *testing.T) {
	out, err := Render(sampleRecords("a.png"), Options{Format: FormatHTML, Title: "A<B"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	page := string(out)
	for _, want := range []string{
		"<title>A&lt;B</title>",
		"<table>",
		`<img src="images/a.png" alt="image 0">`,
		"<h3>Q0001</h3>",
		"What is X?<br>",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("expected html to contain %q", want)
		}
	}
	if strings.Contains(page, "Answer") {
		t.Error("expected no answers without IncludeAnswers")
	}
}

func TestRenderUnsupportedFormat(t *testing.T) {
	if _, err := Render(nil, Options{Format: "rtf"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestRenderDOCXReadsBack(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "a.png")
	writePNG(t, imgPath)

	out, err := Render(sampleRecords(imgPath), Options{Format: FormatDOCX, Title: "Bank", IncludeAnswers: true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	doc, err := docx.Parse(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("parse docx: %v", err)
	}
	var texts []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		var sb strings.Builder
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			for _, rc := range run.Children {
				if txt, ok := rc.(*docx.Text); ok {
					sb.WriteString(txt.Text)
				}
			}
		}
		texts = append(texts, sb.String())
	}
	all := strings.Join(texts, "\n")
	for _, want := range []string{"Bank", "Mock", "Q0001", "A. 1", "B. 2", "Answer: A", "[missing image 1]"} {
		if !strings.Contains(all, want) {
			t.Errorf("expected docx text to contain %q, got:\n%s", want, all)
		}
	}
}

func TestPublishCopiesImages(t *testing.T) {
	src := t.TempDir()
	imgPath := filepath.Join(src, "a.png")
	writePNG(t, imgPath)
	out := t.TempDir()

	p := NewPublisher("", true, testLogger())
	res, err := p.Publish(context.Background(), sampleRecords(imgPath), Options{Format: FormatMarkdown}, out)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.ImagesCopied != 1 || res.ImagesMissing != 1 {
		t.Fatalf("expected copied=1 missing=1, got %+v", res)
	}
	if _, err := os.Stat(filepath.Join(out, "images", "a.png")); err != nil {
		t.Fatalf("expected copied image: %v", err)
	}
	if len(res.Documents) != 1 || filepath.Base(res.Documents[0]) != "questions.md" {
		t.Fatalf("expected questions.md, got %v", res.Documents)
	}
}

func TestPublishBothWritesPracticeAndAnswers(t *testing.T) {
	out := t.TempDir()
	p := NewPublisher("xelatex", true, testLogger())
	res, err := p.Publish(context.Background(), sampleRecords("gone.png"), Options{Format: FormatLaTeX, Both: true}, out)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(res.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %v", res.Documents)
	}
	practice, _ := os.ReadFile(filepath.Join(out, "questions_practice.tex"))
	answers, _ := os.ReadFile(filepath.Join(out, "questions_answers.tex"))
	if strings.Contains(string(practice), "Answer:") {
		t.Error("expected practice book without answers")
	}
	if !strings.Contains(string(answers), "Answer:") {
		t.Error("expected answer book with answers")
	}
	// gone.png was never copied, so the document must not reference it.
	if strings.Contains(string(practice), "images/gone.png") {
		t.Error("expected missing image to render as a marker")
	}
	if len(res.PDFs) != 0 || len(res.CompileErrors) != 0 {
		t.Fatalf("expected no compile with skipCompile, got %+v", res)
	}
}

func TestCompileMissingEngineFails(t *testing.T) {
	dir := t.TempDir()
	tex := filepath.Join(dir, "q.tex")
	os.WriteFile(tex, []byte(`\documentclass{article}\begin{document}x\end{document}`), 0o644)
	if _, err := Compile(context.Background(), "definitely-not-a-latex-engine", tex, dir); err == nil {
		t.Fatal("expected error for missing engine")
	}
}
