package assemble

import "github.com/dgallion1/qbank/internal/parser"

// Field names a spreadsheet column with one legacy fallback.
type Field struct {
	Name     string
	Fallback string
}

// Value returns the cell under Name, or under Fallback when the row has no
// Name column. Absent columns yield "".
func (f Field) Value(row parser.Row) string {
	if row.Has(f.Name) {
		return row.Get(f.Name)
	}
	if f.Fallback != "" && row.Has(f.Fallback) {
		return row.Get(f.Fallback)
	}
	return ""
}

// Columns maps record fields to spreadsheet columns.
type Columns struct {
	Question    Field
	Options     Field
	Answer      Field
	Explanation Field
	Type        Field
	PaperType   Field
	Difficulty  Field
	Year        Field
}

// DefaultColumns matches the question-bank export headers, with the English
// names of older exports as fallbacks.
var DefaultColumns = Columns{
	Question:    Field{Name: "题目", Fallback: "question"},
	Options:     Field{Name: "选项", Fallback: "options"},
	Answer:      Field{Name: "答案", Fallback: "answer"},
	Explanation: Field{Name: "解题思路", Fallback: "explanation"},
	Type:        Field{Name: "题目类型", Fallback: "type"},
	PaperType:   Field{Name: "试卷类型", Fallback: "paper_type"},
	Difficulty:  Field{Name: "难度", Fallback: "difficulty"},
	Year:        Field{Name: "年份", Fallback: "year"},
}

// Missing returns the record fields for which the header has neither column.
func (c Columns) Missing(headers []string) []string {
	have := make(map[string]bool, len(headers))
	for _, h := range headers {
		have[h] = true
	}
	var missing []string
	for _, f := range []Field{c.Question, c.Options, c.Answer, c.Explanation, c.Type, c.PaperType, c.Difficulty, c.Year} {
		if !have[f.Name] && !have[f.Fallback] {
			missing = append(missing, f.Name)
		}
	}
	return missing
}
