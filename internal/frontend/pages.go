// Package frontend renders the server-side HTML for the screening form.
package frontend

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/analysis"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultAnswer is preselected on every item
const DefaultAnswer = analysis.SlightlyDisagree

// IndexData drives the questionnaire page
type IndexData struct {
	Nonce    string
	Message  string
	Problems []string
	Selected map[int]int
}

// ResultData drives the result page
type ResultData struct {
	Nonce      string
	Assessment *analysis.Assessment
	Report     []byte
	ReportName string
	// ImageType is the MIME type of Assessment.Image; empty hides the preview.
	ImageType string
}

// Pages holds the parsed templates
type Pages struct {
	index  *template.Template
	result *template.Template
}

// LoadPages parses the embedded templates
func LoadPages() (*Pages, error) {
	index, err := template.ParseFS(templateFS, "templates/layout.html", "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse index template: %w", err)
	}
	result, err := template.ParseFS(templateFS, "templates/layout.html", "templates/result.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse result template: %w", err)
	}
	return &Pages{index: index, result: result}, nil
}

// RenderIndex writes the questionnaire form. A zero Selected map
// preselects DefaultAnswer for every item.
func (p *Pages) RenderIndex(c *gin.Context, status int, data IndexData) error {
	selected := make(map[int]int, analysis.ItemCount)
	for _, it := range analysis.Items() {
		selected[it.ID] = int(DefaultAnswer)
		if v, ok := data.Selected[it.ID]; ok {
			selected[it.ID] = v
		}
	}

	q := types.NewQuestionnaireResponse()
	return p.render(c, status, p.index, "index.html", map[string]any{
		"Title":      "Autism Risk Assessment",
		"Nonce":      data.Nonce,
		"Message":    data.Message,
		"Problems":   data.Problems,
		"Items":      q.Items,
		"Options":    q.Options,
		"Selected":   selected,
		"Disclaimer": types.Disclaimer,
	})
}

// RenderResult writes the four result lines and a download link that
// carries the PDF inline, so nothing is stored server side.
func (p *Pages) RenderResult(c *gin.Context, data ResultData) error {
	a := data.Assessment
	values := map[string]any{
		"Title":        "Assessment Result",
		"Nonce":        data.Nonce,
		"Assessment":   a,
		"ImageRisk":    fmt.Sprintf("%.1f%%", a.Combined.ImageProb*100),
		"CombinedRisk": fmt.Sprintf("%.1f%%", a.Combined.CombinedProb*100),
		"ReportURL":    dataURL("application/pdf", data.Report),
		"ReportName":   data.ReportName,
		"Disclaimer":   types.Disclaimer,
	}
	if data.ImageType != "" && len(a.Image) > 0 {
		values["ImageURL"] = dataURL(data.ImageType, a.Image)
	}
	return p.render(c, http.StatusOK, p.result, "result.html", values)
}

func (p *Pages) render(c *gin.Context, status int, tmpl *template.Template, name string, data any) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
	return nil
}

// dataURL is marked safe so html/template keeps the data: scheme in
// href and src attributes.
func dataURL(mimeType string, b []byte) template.URL {
	return template.URL("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(b))
}
