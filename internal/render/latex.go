package render

import (
	"regexp"
	"strings"

	"github.com/dgallion1/qbank/internal/record"
)

const latexPreamble = `\documentclass[12pt]{article}
\usepackage{xeCJK}
\setCJKmainfont{SimSun}
\usepackage{amsmath}
\usepackage{amssymb}
\usepackage{graphicx}
\usepackage{enumitem}
\usepackage{geometry}
\geometry{a4paper,margin=1in}
`

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\^{}`,
)

var mathSymbols = strings.NewReplacer(
	"⋅", `$\cdot$`,
	"∙", `$\cdot$`,
	"√", `$\sqrt{}$`,
	"∣", `$|$`,
	"∘", `$\circ$`,
	"≤", `$\leq$`,
	"≥", `$\geq$`,
	"≠", `$\neq$`,
	"⟹", `$\implies$`,
	"→", `$\to$`,
	"∞", `$\infty$`,
	"±", `$\pm$`,
	"×", `$\times$`,
	"÷", `$\div$`,
)

// Superscripts and subscripts as the cleaner writes them: x^2, a_n.
var scriptRe = regexp.MustCompile(`([A-Za-z0-9]+)([\^_])([A-Za-z0-9]+)`)

// latexText escapes plain text for LaTeX, turning x^2 and a_n into math and
// common math symbols into their commands.
func latexText(s string) string {
	var sb strings.Builder
	last := 0
	for _, m := range scriptRe.FindAllStringSubmatchIndex(s, -1) {
		sb.WriteString(mathSymbols.Replace(latexEscaper.Replace(s[last:m[0]])))
		sb.WriteString("$" + s[m[2]:m[3]] + s[m[4]:m[5]] + "{" + s[m[6]:m[7]] + "}$")
		last = m[1]
	}
	sb.WriteString(mathSymbols.Replace(latexEscaper.Replace(s[last:])))
	return sb.String()
}

type latexWriter struct {
	sb   strings.Builder
	opts Options
}

func renderLaTeX(records []record.Question, opts Options) string {
	w := &latexWriter{opts: opts}
	w.sb.WriteString(latexPreamble)
	w.sb.WriteString(`\title{` + latexText(opts.Title) + "}\n\\date{}\n\n")
	w.sb.WriteString("\\begin{document}\n\\maketitle\n\n")

	for _, g := range groupByPaperType(records) {
		w.sb.WriteString(`\section*{` + latexText(g.Name) + "}\n")
		for _, q := range g.Records {
			w.question(q)
		}
	}

	w.sb.WriteString("\\end{document}\n")
	return w.sb.String()
}

func (w *latexWriter) question(q *record.Question) {
	w.sb.WriteString(`\subsection*{` + latexText(q.ID) + "}\n")
	if q.Question != "" {
		w.sb.WriteString(w.body(q, q.Question) + "\n\n")
	}

	if len(q.Options) > 0 {
		w.sb.WriteString("\\begin{enumerate}\n")
		for _, l := range q.Options.Letters() {
			w.sb.WriteString(`\item[` + l + ".] " + w.body(q, q.Options[l]) + "\n")
		}
		w.sb.WriteString("\\end{enumerate}\n\n")
	}

	if w.opts.IncludeAnswers {
		if q.Answer != "" {
			w.sb.WriteString(`\textbf{Answer:} ` + latexText(q.Answer) + "\n\n")
		}
		if q.Explanation != "" {
			w.sb.WriteString(`\textit{Explanation:} ` + w.body(q, q.Explanation) + "\n\n")
		}
	}
	w.sb.WriteString("\\bigskip\n\n")
}

// body renders a multi-line field. Lines that are a lone placeholder become
// centered figures; other placeholders are set inline.
func (w *latexWriter) body(q *record.Question, text string) string {
	var sb strings.Builder
	prevText := false
	for _, line := range strings.Split(text, "\n") {
		if n, ok := isImageLine(line); ok {
			sb.WriteString("\n\\begin{center}\n" + w.image(q, n, `width=0.7\linewidth`) + "\n\\end{center}\n")
			prevText = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if prevText {
			sb.WriteString("\\\\\n")
		}
		record.WalkPlaceholders(line,
			func(lit string) { sb.WriteString(latexText(lit)) },
			func(n int) { sb.WriteString(w.image(q, n, `height=1.5em`)) },
		)
		prevText = true
	}
	return strings.TrimSpace(sb.String())
}

func (w *latexWriter) image(q *record.Question, n int, size string) string {
	ref := imageRef(q, n)
	if ref == "" {
		return `\fbox{` + latexText(missingLabel(n)) + "}"
	}
	return `\includegraphics[` + size + "]{" + ref + "}"
}
