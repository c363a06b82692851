package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/dgallion1/qbank/internal/record"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var markdownConverter = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: "Microsoft YaHei", "PingFang SC", sans-serif; line-height: 1.6; background: #f5f5f5; margin: 0; }
.container { max-width: 1000px; margin: 0 auto; padding: 20px; background: #fff; }
h1 { text-align: center; }
h2 { border-bottom: 2px solid #3498db; padding-bottom: 4px; }
h3 { color: #3498db; }
table { border-collapse: collapse; margin: 8px 0; }
th, td { border: 1px solid #ddd; padding: 4px 10px; }
th { background: #f2f2f2; }
img { max-width: 100%; }
hr { border: none; border-top: 1px dashed #ccc; margin: 24px 0; }
</style>
</head>
<body>
<div class="container">
{{.Body}}
</div>
</body>
</html>
`))

// renderHTML converts the Markdown rendering with goldmark and wraps it in a
// standalone page.
func renderHTML(records []record.Question, opts Options) ([]byte, error) {
	var body bytes.Buffer
	if err := markdownConverter.Convert([]byte(renderMarkdown(records, opts)), &body); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}

	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{
		Title: opts.Title,
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("execute page template: %w", err)
	}
	return page.Bytes(), nil
}
