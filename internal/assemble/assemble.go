// Package assemble turns spreadsheet rows into question records.
package assemble

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dgallion1/qbank/internal/parser"
	"github.com/dgallion1/qbank/internal/record"
)

// Resolver stores an image source locally. It reports false when the image is
// unavailable and never returns an error.
type Resolver interface {
	Resolve(ctx context.Context, src string) (string, bool)
}

// Stats counts assembly outcomes across rows.
type Stats struct {
	Rows            int            `json:"rows"`
	ImagesRequested int            `json:"images_requested"`
	ImagesResolved  int            `json:"images_resolved"`
	ImagesMissing   int            `json:"images_unavailable"`
	EmptyOptions    int            `json:"empty_options"`
	Diagnostics     int            `json:"diagnostics"`
	Strategies      map[string]int `json:"strategies"`
}

type Assembler struct {
	resolver   Resolver
	columns    Columns
	strategies []parser.OptionStrategy
	log        *slog.Logger

	Stats Stats
}

func New(resolver Resolver, log *slog.Logger) *Assembler {
	return &Assembler{
		resolver:   resolver,
		columns:    DefaultColumns,
		strategies: parser.OptionStrategies,
		log:        log,
		Stats:      Stats{Strategies: make(map[string]int)},
	}
}

// WithColumns overrides the column mapping.
func (a *Assembler) WithColumns(c Columns) *Assembler {
	a.columns = c
	return a
}

// AssembleTable assembles every row of t in order. No row is dropped.
func (a *Assembler) AssembleTable(ctx context.Context, t *parser.Table) []record.Question {
	if missing := a.columns.Missing(t.Headers); len(missing) > 0 {
		a.log.Warn("columns not found, fields will be empty", "sheet", t.Sheet, "columns", missing)
	}
	out := make([]record.Question, 0, len(t.Rows))
	for i, row := range t.Rows {
		out = append(out, a.Assemble(ctx, row, i+1))
	}
	a.log.Info("records assembled",
		"sheet", t.Sheet,
		"records", len(out),
		"images_requested", a.Stats.ImagesRequested,
		"images_unavailable", a.Stats.ImagesMissing,
	)
	return out
}

// Assemble builds the record for the n-th (1-based) row. Question, options and
// explanation share one placeholder sequence, and every image slot is resolved
// in that order. Unavailable images keep an empty slot.
func (a *Assembler) Assemble(ctx context.Context, row parser.Row, n int) record.Question {
	a.Stats.Rows++
	q := record.Question{
		ID:             record.FormatID(n),
		Type:           a.columns.Type.Value(row),
		PaperType:      a.columns.PaperType.Value(row),
		Difficulty:     a.columns.Difficulty.Value(row),
		Year:           a.columns.Year.Value(row),
		QuestionRaw:    a.columns.Question.Value(row),
		OptionsRaw:     a.columns.Options.Value(row),
		Answer:         strings.TrimSpace(a.columns.Answer.Value(row)),
		ExplanationRaw: a.columns.Explanation.Value(row),
	}
	log := a.log.With("record_id", q.ID)

	var sources, more []string
	q.Question, sources = parser.CleanHTMLFrom(q.QuestionRaw, 0)

	var optionsText string
	optionsText, more = parser.CleanHTMLFrom(q.OptionsRaw, len(sources))
	sources = append(sources, more...)

	q.Explanation, more = parser.CleanHTMLFrom(q.ExplanationRaw, len(sources))
	sources = append(sources, more...)

	opts, strategy := parser.ParseOptionsWith(optionsText, a.strategies)
	q.Options = opts
	if strategy != "" {
		a.Stats.Strategies[strategy]++
		log.Debug("options parsed", "strategy", strategy, "count", len(opts))
	} else if strings.TrimSpace(optionsText) != "" {
		a.Stats.EmptyOptions++
		log.Warn("no options recognised", "options", optionsText)
	}

	q.Images = make([]string, len(sources))
	for i, src := range sources {
		a.Stats.ImagesRequested++
		path, ok := a.resolver.Resolve(ctx, src)
		if !ok {
			a.Stats.ImagesMissing++
			log.Warn("image slot left empty", "slot", i)
			continue
		}
		a.Stats.ImagesResolved++
		q.Images[i] = path
	}

	for _, d := range record.Check(&q) {
		a.Stats.Diagnostics++
		log.Warn("record check", "issue", d)
	}
	return q
}
