package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var reportTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/report.html")
	if err != nil {
		// Fallback to built-in template if file not found
		reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for report template rendering
type TemplateData struct {
	Title       string
	Owner       string
	GeneratedAt time.Time
	Score       int
	Verdict     string
	Unlocked    bool
	Delta       string
	Dimensions  []TemplateDimension
	Fields      []TemplateField
}

// TemplateDimension holds one scored dimension for the template
type TemplateDimension struct {
	Label      string
	Display    string // e.g. "7/10" or "68/100"
	Normalized int
	Detail     string
}

// TemplateField holds one draft field for the template
type TemplateField struct {
	Label string
	Value string
}

// RenderReportHTML renders the validation report template with provided data
func RenderReportHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DimensionDisplay formats a raw dimension score against its scale.
func DimensionDisplay(score float64, scale int) string {
	if score == float64(int(score)) {
		return fmt.Sprintf("%d/%d", int(score), scale)
	}
	return fmt.Sprintf("%.1f/%d", score, scale)
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div>{{.Owner}} | {{.GeneratedAt.Format "Jan 2, 2006"}}</div>
  <h2>{{.Score}}/100 {{.Verdict}}</h2>
  {{range .Dimensions}}<p>{{.Label}}: {{.Display}}</p>{{end}}
  {{range .Fields}}<h3>{{.Label}}</h3><p>{{.Value}}</p>{{end}}
</body>
</html>`
