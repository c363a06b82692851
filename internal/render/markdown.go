package render

import (
	"strconv"
	"strings"

	"github.com/dgallion1/qbank/internal/record"
)

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
	`>`, `\>`,
	`#`, `\#`,
	`|`, `\|`,
)

func markdownText(s string) string {
	return markdownEscaper.Replace(s)
}

// renderMarkdown writes one "##" section per paper type and one "###" entry
// per question, with a table of the classification fields.
func renderMarkdown(records []record.Question, opts Options) string {
	var sb strings.Builder
	sb.WriteString("# " + markdownText(opts.Title) + "\n\n")

	for _, g := range groupByPaperType(records) {
		sb.WriteString("## " + markdownText(g.Name) + "\n\n")
		for _, q := range g.Records {
			markdownQuestion(&sb, q, opts)
		}
	}
	return sb.String()
}

func markdownQuestion(sb *strings.Builder, q *record.Question, opts Options) {
	sb.WriteString("### " + markdownText(q.ID) + "\n\n")

	sb.WriteString("| Type | Paper | Difficulty | Year |\n")
	sb.WriteString("| --- | --- | --- | --- |\n")
	sb.WriteString("| " + cell(q.Type) + " | " + cell(q.PaperType) + " | " + cell(q.Difficulty) + " | " + cell(q.Year) + " |\n\n")

	if q.Question != "" {
		sb.WriteString(markdownBody(q, q.Question, "") + "\n\n")
	}

	if len(q.Options) > 0 {
		for _, l := range q.Options.Letters() {
			sb.WriteString("- **" + l + ".** " + markdownBody(q, q.Options[l], "  ") + "\n")
		}
		sb.WriteString("\n")
	}

	if opts.IncludeAnswers {
		if q.Answer != "" {
			sb.WriteString("**Answer:** " + markdownText(q.Answer) + "\n\n")
		}
		if q.Explanation != "" {
			sb.WriteString("**Explanation:**\n\n" + markdownBody(q, q.Explanation, "") + "\n\n")
		}
	}
	sb.WriteString("---\n\n")
}

func cell(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return markdownText(strings.ReplaceAll(s, "\n", " "))
}

// markdownBody renders a multi-line field; continuation lines get indent so
// they stay inside a list item.
func markdownBody(q *record.Question, text, indent string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var sb strings.Builder
		record.WalkPlaceholders(line,
			func(lit string) { sb.WriteString(markdownText(lit)) },
			func(n int) { sb.WriteString(markdownImage(q, n)) },
		)
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n"+indent)
}

func markdownImage(q *record.Question, n int) string {
	ref := imageRef(q, n)
	if ref == "" {
		return "*" + markdownText(missingLabel(n)) + "*"
	}
	return "![image " + strconv.Itoa(n) + "](" + ref + ")"
}
