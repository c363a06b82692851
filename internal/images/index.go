package images

import (
	"strconv"

	"github.com/dgallion1/qbank/internal/record"
)

// Index maps a sanitized image filename to a dense integer index. Indices are
// assigned in first-seen order over records, then question, options and
// explanation, so the same record set always yields the same mapping.
type Index struct {
	byName map[string]int
	names  []string
}

// BuildIndex walks records in order and assigns the next index to each
// previously unseen filename.
func BuildIndex(records []record.Question) *Index {
	ix := &Index{byName: make(map[string]int)}
	for i := range records {
		for _, src := range RecordSources(&records[i]) {
			if src == "" {
				continue
			}
			ix.add(FileName(src))
		}
	}
	return ix
}

func (ix *Index) add(name string) int {
	if n, ok := ix.byName[name]; ok {
		return n
	}
	n := len(ix.names)
	ix.byName[name] = n
	ix.names = append(ix.names, name)
	return n
}

// Lookup returns the index assigned to a filename.
func (ix *Index) Lookup(name string) (int, bool) {
	n, ok := ix.byName[name]
	return n, ok
}

// LookupSource returns the index of the file an image source resolves to.
func (ix *Index) LookupSource(src string) (int, bool) {
	if src == "" {
		return 0, false
	}
	return ix.Lookup(FileName(src))
}

func (ix *Index) Len() int {
	return len(ix.names)
}

// Names returns filenames ordered by index.
func (ix *Index) Names() []string {
	return append([]string(nil), ix.names...)
}

// StoreName is the filename of index n in the indexed store.
func StoreName(n int) string {
	return strconv.Itoa(n) + ".png"
}
