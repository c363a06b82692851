package images

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/dgallion1/qbank/internal/record"
)

// LocalDir is the directory, relative to the output root, that localized images live in.
const LocalDir = "images"

// LocalizeResult counts the outcome of a localisation pass.
type LocalizeResult struct {
	Copied  int `json:"copied"`
	Missing int `json:"missing"`
}

// Localize copies each record's indexed images from storeDir into
// outDir/images as "q_0001_img0.png" and replaces the record's LocalImages
// with the relative paths, one per image slot. A slot whose image is
// unavailable gets "".
func Localize(records []record.Question, ix *Index, storeDir, outDir string, log *slog.Logger) (LocalizeResult, error) {
	var res LocalizeResult
	dstDir := filepath.Join(outDir, LocalDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return res, fmt.Errorf("create images dir: %w", err)
	}

	for i := range records {
		q := &records[i]
		rlog := log.With("record_id", q.ID)
		q.LocalImages = nil
		for n, src := range RecordSources(q) {
			idx, ok := ix.LookupSource(src)
			if !ok {
				res.Missing++
				q.LocalImages = append(q.LocalImages, "")
				rlog.Warn("image has no index", "slot", n)
				continue
			}
			data, err := os.ReadFile(filepath.Join(storeDir, StoreName(idx)))
			if err != nil {
				res.Missing++
				q.LocalImages = append(q.LocalImages, "")
				rlog.Warn("indexed image missing", "slot", n, "index", idx)
				continue
			}
			name := fmt.Sprintf("q_%04d_img%d.png", i+1, n)
			if err := writeFile(filepath.Join(dstDir, name), data); err != nil {
				return res, err
			}
			q.LocalImages = append(q.LocalImages, path.Join(LocalDir, name))
			res.Copied++
		}
	}

	log.Info("images localized", "dir", dstDir, "copied", res.Copied, "missing", res.Missing)
	return res, nil
}
