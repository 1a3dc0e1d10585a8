package output

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/vsinha/fieldflow/pkg/application/dto"
)

//go:embed templates/*.html
var templateFS embed.FS

// HTMLReport renders a critical path analysis as a standalone page with the
// SVG Gantt chart inlined
type HTMLReport struct {
	now func() time.Time
}

// TemplateData contains all data for rendering the HTML template
type TemplateData struct {
	CriticalPath dto.CriticalPath
	SVG          template.HTML
	DataJSON     template.JS
	GeneratedAt  string
}

func NewHTMLReport() *HTMLReport {
	return &HTMLReport{now: time.Now}
}

// GenerateHTML renders the report for cp
func (hr *HTMLReport) GenerateHTML(cp dto.CriticalPath) (string, error) {
	jsonData, err := json.Marshal(cp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report data: %w", err)
	}

	// The SVG is built by GenerateSVG, which escapes task names
	svg := NewGanttChart(&cp).GenerateSVG(&cp)

	data := &TemplateData{
		CriticalPath: cp,
		SVG:          template.HTML(svg),
		DataJSON:     template.JS(jsonData),
		GeneratedAt:  hr.now().Format("2006-01-02 15:04:05"),
	}

	tmpl, err := template.ParseFS(templateFS, "templates/critical_path.html")
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}
