package images

import (
	"context"

	"github.com/dgallion1/qbank/internal/parser"
	"github.com/dgallion1/qbank/internal/record"
)

// DownloadResult summarises a download pass.
type DownloadResult struct {
	Needed      int `json:"needed"`
	Downloaded  int `json:"downloaded"`
	Present     int `json:"present"`
	Unavailable int `json:"unavailable"`
}

// Download re-scans the raw fields of a record set and resolves every distinct
// image source, skipping files that are already present.
func Download(ctx context.Context, records []record.Question, r *Resolver) DownloadResult {
	var res DownloadResult
	seen := make(map[string]struct{})
	before := r.Counts()

	for i := range records {
		q := &records[i]
		for _, raw := range []string{q.QuestionRaw, q.OptionsRaw, q.ExplanationRaw} {
			for _, src := range parser.ImageSources(raw) {
				if _, ok := seen[src]; ok {
					continue
				}
				seen[src] = struct{}{}
				res.Needed++
				r.Resolve(ctx, src)
			}
		}
	}

	after := r.Counts()
	res.Downloaded = (after.Fetched - before.Fetched) + (after.Decoded - before.Decoded)
	res.Present = after.Existing - before.Existing
	res.Unavailable = after.Unavailable - before.Unavailable
	r.log.Info("download pass complete",
		"needed", res.Needed,
		"downloaded", res.Downloaded,
		"present", res.Present,
		"unavailable", res.Unavailable,
	)
	return res
}
