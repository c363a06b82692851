package record

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Question is one normalized question record.
type Question struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	PaperType  string `json:"paper_type"`
	Difficulty string `json:"difficulty"`
	Year       string `json:"year"`

	QuestionRaw string `json:"question_raw"`
	Question    string `json:"question"`

	OptionsRaw string  `json:"options_raw"`
	Options    Options `json:"options"`

	Answer string `json:"answer"`

	ExplanationRaw string `json:"explanation_raw"`
	Explanation    string `json:"explanation"`

	// Images holds one local path per placeholder, indexed by the placeholder
	// number. An empty string marks a source that could not be resolved.
	Images []string `json:"images"`

	// LocalImages is appended by the localisation pass.
	LocalImages []string `json:"local_images,omitempty"`
}

// Options maps an option letter to its text. Labeled options use A-F; the
// positional fallback may assign up to H.
type Options map[string]string

// Letters returns the option letters in display order.
func (o Options) Letters() []string {
	letters := make([]string, 0, len(o))
	for k := range o {
		letters = append(letters, k)
	}
	sort.Strings(letters)
	return letters
}

// Format renders options as "A. text" lines in letter order.
func (o Options) Format() string {
	var sb strings.Builder
	for i, l := range o.Letters() {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(l + ". " + o[l])
	}
	return sb.String()
}

// FormatID returns the sequential identifier for a 1-based row number.
func FormatID(n int) string {
	return fmt.Sprintf("Q%04d", n)
}

var placeholderRe = regexp.MustCompile(`\[IMAGE:(\d+)\]`)

// Placeholder returns the token standing in for image n.
func Placeholder(n int) string {
	return "[IMAGE:" + strconv.Itoa(n) + "]"
}

// PlaceholderIndices returns the image indices referenced by text, in order of appearance.
func PlaceholderIndices(text string) []int {
	matches := placeholderRe.FindAllStringSubmatch(text, -1)
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// WalkPlaceholders splits text around placeholder tokens, calling lit for each
// literal segment and img for each placeholder, in order.
func WalkPlaceholders(text string, lit func(string), img func(int)) {
	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > last {
			lit(text[last:loc[0]])
		}
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			lit(text[loc[0]:loc[1]])
		} else {
			img(n)
		}
		last = loc[1]
	}
	if last < len(text) {
		lit(text[last:])
	}
}

// TextFields returns the cleaned text of the record in traversal order:
// question, options in letter order, explanation.
func (q *Question) TextFields() []string {
	fields := []string{q.Question}
	for _, l := range q.Options.Letters() {
		fields = append(fields, q.Options[l])
	}
	return append(fields, q.Explanation)
}

// PlaceholderIndices returns every placeholder index referenced anywhere in the record.
func (q *Question) PlaceholderIndices() []int {
	var out []int
	for _, f := range q.TextFields() {
		out = append(out, PlaceholderIndices(f)...)
	}
	return out
}

// ImagePath returns the local path for placeholder n, or "" if none.
func (q *Question) ImagePath(n int) string {
	if n < 0 || n >= len(q.Images) {
		return ""
	}
	return q.Images[n]
}
