package record

import (
	"fmt"
	"regexp"
	"strings"
)

var answerLettersRe = regexp.MustCompile(`^[A-H\s,，、/;；]+$`)

// Check returns human-readable diagnostics for a record. An empty result means
// nothing looked wrong. Diagnostics never make a record invalid.
func Check(q *Question) []string {
	if q == nil {
		return []string{"nil record"}
	}
	var issues []string

	if strings.TrimSpace(q.Question) == "" {
		issues = append(issues, "empty question text")
	}

	answer := strings.ToUpper(strings.TrimSpace(q.Answer))
	if len(q.Options) > 0 && answer != "" && answerLettersRe.MatchString(answer) {
		for _, r := range answer {
			if r < 'A' || r > 'H' {
				continue
			}
			if _, ok := q.Options[string(r)]; !ok {
				issues = append(issues, fmt.Sprintf("answer %q names missing option %c", q.Answer, r))
			}
		}
	}

	for _, l := range q.Options.Letters() {
		if l > "F" {
			issues = append(issues, fmt.Sprintf("option %s beyond F: options were assigned by position", l))
		}
	}

	seen := make(map[int]bool)
	for _, n := range q.PlaceholderIndices() {
		if n >= len(q.Images) {
			issues = append(issues, fmt.Sprintf("placeholder %s has no image slot", Placeholder(n)))
		}
		seen[n] = true
	}
	if len(seen) != len(q.Images) {
		issues = append(issues, fmt.Sprintf("%d placeholders but %d image slots", len(seen), len(q.Images)))
	}
	for i, p := range q.Images {
		if p == "" {
			issues = append(issues, fmt.Sprintf("image %d unavailable", i))
		}
	}

	return issues
}
