package images

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/qbank/internal/record"
)

const summaryLimit = 20

// Report is the outcome of a reconciliation. It never carries an error state;
// mismatches are informational.
type Report struct {
	Mode     string `json:"mode"`
	Required []int  `json:"required"`
	Found    []int  `json:"found"`
	Missing  []int  `json:"missing"`
	Extra    []int  `json:"extra"`
	// Unmapped counts placeholders whose source has no index (mapped mode only).
	Unmapped int `json:"unmapped"`
}

// OK reports whether every required index is present and nothing is extra.
func (r Report) OK() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0 && r.Unmapped == 0
}

// Summary renders a human-readable report. Long index lists are cut at 20 entries.
func (r Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "mode: %s\n", r.Mode)
	fmt.Fprintf(&sb, "required: %d\n", len(r.Required))
	fmt.Fprintf(&sb, "found: %d\n", len(r.Found))
	fmt.Fprintf(&sb, "missing: %d %s\n", len(r.Missing), formatIndices(r.Missing))
	fmt.Fprintf(&sb, "extra: %d %s\n", len(r.Extra), formatIndices(r.Extra))
	if r.Unmapped > 0 {
		fmt.Fprintf(&sb, "unmapped placeholders: %d\n", r.Unmapped)
	}
	if r.OK() {
		sb.WriteString("all referenced images present\n")
	}
	return sb.String()
}

func formatIndices(idx []int) string {
	if len(idx) == 0 {
		return ""
	}
	n := min(len(idx), summaryLimit)
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = strconv.Itoa(idx[i])
	}
	s := "[" + strings.Join(parts, ", ")
	if len(idx) > n {
		s += fmt.Sprintf(", ... (%d more)", len(idx)-n)
	}
	return s + "]"
}

// Reconcile compares the image indices a record set needs against the "{n}.png"
// files in dir. With a nil index, placeholder numbers are taken literally as
// store indices. With an index, placeholder n of a record is translated through
// the mapping of that record's n-th image source. A missing dir counts as empty.
func Reconcile(records []record.Question, dir string, ix *Index) (Report, error) {
	rep := Report{Mode: "literal"}
	if ix != nil {
		rep.Mode = "mapped"
	}

	required := make(map[int]struct{})
	for i := range records {
		q := &records[i]
		var srcs []string
		if ix != nil {
			srcs = RecordSources(q)
		}
		for _, n := range q.PlaceholderIndices() {
			if ix == nil {
				required[n] = struct{}{}
				continue
			}
			if n >= len(srcs) {
				rep.Unmapped++
				continue
			}
			idx, ok := ix.LookupSource(srcs[n])
			if !ok {
				rep.Unmapped++
				continue
			}
			required[idx] = struct{}{}
		}
	}

	found, err := storeIndices(dir)
	if err != nil {
		return rep, err
	}

	rep.Required = sortedKeys(required)
	rep.Found = sortedKeys(found)
	for _, n := range rep.Required {
		if _, ok := found[n]; !ok {
			rep.Missing = append(rep.Missing, n)
		}
	}
	for _, n := range rep.Found {
		if _, ok := required[n]; !ok {
			rep.Extra = append(rep.Extra, n)
		}
	}
	return rep, nil
}

// storeIndices returns the integer stems of "*.png" files in dir.
func storeIndices(dir string) (map[int]struct{}, error) {
	out := make(map[int]struct{})
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		n, err := strconv.Atoi(stem)
		if err != nil || n < 0 {
			continue
		}
		out[n] = struct{}{}
	}
	return out, nil
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
