package parser

import (
	"regexp"
	"strings"

	"github.com/dgallion1/qbank/internal/record"
	"golang.org/x/text/width"
)

// OptionStrategy is one way of splitting option text into lettered options.
// Parse reports false when the strategy found nothing.
type OptionStrategy struct {
	Name  string
	Parse func(text string) (record.Options, bool)
}

// OptionStrategies are tried in order of decreasing confidence; the first
// success wins.
var OptionStrategies = []OptionStrategy{
	{Name: "block", Parse: parseOptionBlocks},
	{Name: "lines", Parse: parseOptionLines},
	{Name: "positional", Parse: parseOptionPositional},
}

// maxPositionalOptions bounds the positional fallback; longer texts are not option lists.
const maxPositionalOptions = 8

// A label is a capital A-F, half or full width, followed by '.', ')', '、' or a
// comma in either width. Only the label letter is folded; option text is kept as written.
const (
	labelLetter = `([A-FＡ-Ｆ])`
	labelDelim  = `[ \t]*[.)、,．），]`
)

var (
	firstLabelRe = regexp.MustCompile(labelLetter + labelDelim)
	nextLabelRe  = regexp.MustCompile(`\n+[ \t]*` + labelLetter + labelDelim)
	optionLineRe = regexp.MustCompile(`^` + labelLetter + labelDelim + `[ \t]*(.*)$`)
)

// ParseOptions splits cleaned option text into a letter -> text mapping using
// OptionStrategies. It never fails: unparseable text yields an empty mapping.
func ParseOptions(text string) record.Options {
	opts, _ := ParseOptionsWith(text, OptionStrategies)
	return opts
}

// ParseOptionsWith runs strategies in order and returns the first non-empty
// result with the name of the strategy that produced it.
func ParseOptionsWith(text string, strategies []OptionStrategy) (record.Options, string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return record.Options{}, ""
	}
	for _, s := range strategies {
		if opts, ok := s.Parse(text); ok && len(opts) > 0 {
			return opts, s.Name
		}
	}
	return record.Options{}, ""
}

// parseOptionBlocks takes the first label anywhere in the text, then every
// label that opens a line. Each option runs until the next such label, so
// option text may span lines and may contain label-like text mid-line.
// A repeated letter keeps its first block.
func parseOptionBlocks(text string) (record.Options, bool) {
	first := firstLabelRe.FindStringSubmatchIndex(text)
	if first == nil {
		return nil, false
	}
	type label struct {
		letter     string
		start, end int
	}
	labels := []label{{letter: text[first[2]:first[3]], start: first[0], end: first[1]}}
	for _, loc := range nextLabelRe.FindAllStringSubmatchIndex(text[first[1]:], -1) {
		labels = append(labels, label{
			letter: text[first[1]+loc[2] : first[1]+loc[3]],
			start:  first[1] + loc[0],
			end:    first[1] + loc[1],
		})
	}

	opts := make(record.Options, len(labels))
	for i, l := range labels {
		end := len(text)
		if i+1 < len(labels) {
			end = labels[i+1].start
		}
		letter := foldLabel(l.letter)
		if _, dup := opts[letter]; dup {
			continue
		}
		opts[letter] = strings.TrimSpace(text[l.end:end])
	}
	return opts, true
}

// parseOptionLines keeps only lines that start with a label; each such line is
// one option and unlabeled lines are dropped. The first occurrence of a letter wins.
func parseOptionLines(text string) (record.Options, bool) {
	opts := record.Options{}
	for _, line := range nonEmptyLines(text) {
		m := optionLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		letter := foldLabel(m[1])
		if _, dup := opts[letter]; dup {
			continue
		}
		opts[letter] = strings.TrimSpace(m[2])
	}
	return opts, len(opts) > 0
}

// parseOptionPositional assigns A, B, C... to the lines in order, regardless of
// delimiters. Up to eight lines are accepted, so keys may run to H.
func parseOptionPositional(text string) (record.Options, bool) {
	lines := nonEmptyLines(text)
	if len(lines) < 1 || len(lines) > maxPositionalOptions {
		return nil, false
	}
	opts := make(record.Options, len(lines))
	for i, line := range lines {
		opts[string(rune('A'+i))] = line
	}
	return opts, true
}

func foldLabel(letter string) string {
	return width.Fold.String(letter)
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
