// Package report renders a completed assessment as a three page PDF.
package report

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/go-pdf/fpdf"
	"github.com/samber/mo"

	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/adapters"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/analysis"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/errors"
)

const (
	// Filename is the suggested download name.
	Filename = "autism_report.pdf"
	// ContentType is the MIME type of a rendered report.
	ContentType = "application/pdf"

	pageW  = 612.0 // US Letter, points
	margin = 54.0
	bodyW  = pageW - 2*margin

	sourceImageName = "source"
	imageMissingMsg = "Image could not be loaded."
)

// SourceImage is the uploaded photo, decoded once up front. A failed decode
// is carried as the error variant and rendered as a notice in the report.
type SourceImage = mo.Result[image.Image]

// LoadSourceImage decodes raw upload bytes into a SourceImage.
func LoadSourceImage(data []byte) SourceImage {
	img, _, err := adapters.DecodeImage(data)
	if err != nil {
		return mo.Err[image.Image](err)
	}
	return mo.Ok(img)
}

type Input struct {
	Assessment *analysis.Assessment
	Source     SourceImage
	// Thresholds drive the reference lines on the combined chart.
	Thresholds analysis.CombinedThresholds
}

type Document struct {
	Bytes    []byte
	Pages    int
	Filename string
}

// Renderer builds report PDFs. It is stateless and safe for concurrent use.
type Renderer struct {
	author string
}

func NewRenderer() *Renderer {
	return &Renderer{author: "AQ-10 Risk Meter"}
}

type page struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// Render produces the whole document or an error, never a partial file.
func (r *Renderer) Render(ctx context.Context, in Input) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a := in.Assessment
	if a == nil {
		return nil, errors.NewInternalError("report requested without an assessment", nil)
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetTitle("Autism Risk Assessment Report", true)
	pdf.SetAuthor(r.author, true)
	pdf.SetCreator(r.author, true)
	pdf.SetSubject("Screening report "+a.ID, true)
	pdf.SetCreationDate(a.CreatedAt)
	pdf.SetModificationDate(a.CreatedAt)
	p := &page{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	th := in.Thresholds
	if th == (analysis.CombinedThresholds{}) {
		th = analysis.DefaultScoringConfig().Combined
	}
	hasImage := p.registerSource(in.Source)

	p.imagePage(a, hasImage)
	p.surveyPage(a)
	p.summaryPage(a, th, hasImage)

	if err := pdf.Error(); err != nil {
		return nil, errors.NewAdapterError(errors.AdapterReport, "failed to render report", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.NewAdapterError(errors.AdapterReport, "failed to write report", err)
	}

	return &Document{Bytes: buf.Bytes(), Pages: pdf.PageCount(), Filename: Filename}, nil
}

// registerSource embeds the photo as PNG and reports whether it is usable.
func (p *page) registerSource(src SourceImage) bool {
	img, err := src.Get()
	if err != nil || img == nil {
		return false
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return false
	}
	p.pdf.RegisterImageOptionsReader(sourceImageName, fpdf.ImageOptions{ImageType: "PNG"}, &buf)
	return !p.pdf.Err()
}

func (p *page) title(text string) {
	p.pdf.SetFont("Helvetica", "B", 20)
	colorBlack.text(p.pdf)
	p.pdf.CellFormat(bodyW, 28, p.tr(text), "", 1, "C", false, 0, "")
}

func (p *page) paragraph(text string) {
	p.pdf.SetFont("Helvetica", "", 11)
	colorBlack.text(p.pdf)
	p.pdf.MultiCell(bodyW, 14, p.tr(text), "", "L", false)
}

func (p *page) chart(c chart, w, h float64) {
	x, y := (pageW-w)/2, p.pdf.GetY()
	drawChart(p.pdf, x, y, w, h, c)
	p.pdf.SetXY(margin, y+h)
}

func (p *page) sourceImage(hasImage bool, size float64) {
	if !hasImage {
		p.paragraph(imageMissingMsg)
		return
	}
	y := p.pdf.GetY()
	p.pdf.ImageOptions(sourceImageName, (pageW-size)/2, y, size, size, false,
		fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	p.pdf.SetXY(margin, y+size)
}

func (p *page) imagePage(a *analysis.Assessment, hasImage bool) {
	p.pdf.AddPage()
	p.title("Image Model Prediction Report")
	p.pdf.Ln(12)
	p.paragraph(fmt.Sprintf("According to the image model, the likelihood of being Autistic is %s.",
		percent2(a.Combined.ImageProb)))
	p.pdf.Ln(8)
	p.chart(confidenceChart(a.Combined.ImageProb), 400, 250)
	p.pdf.Ln(12)
	p.sourceImage(hasImage, 250)
}

func (p *page) surveyPage(a *analysis.Assessment) {
	p.pdf.AddPage()
	p.title("Survey Model Prediction Report")
	p.pdf.Ln(12)
	p.paragraph(fmt.Sprintf("According to the survey model, the likelihood of being Autistic is %s.",
		percent2(a.AQ10.Probability)))
	p.pdf.Ln(8)
	p.chart(confidenceChart(a.AQ10.Probability), 400, 250)
	p.pdf.Ln(12)
	p.title("User Input Data")
	p.pdf.Ln(4)

	rows := make([][2]string, 0, analysis.ItemCount+2)
	for id, v := range a.Responses.Values() {
		rows = append(rows, [2]string{fmt.Sprintf("A%d_Score", id+1), fmt.Sprintf("%d", v)})
	}
	rows = append(rows,
		[2]string{"AQ10_Score", fmt.Sprintf("%d", a.AQ10.Score)},
		[2]string{"Interpretation", a.AQ10.Interpretation},
	)
	p.table([2]string{"Field", "Value"}, rows)
}

func (p *page) table(header [2]string, rows [][2]string) {
	const rowH = 17.0
	colW := [2]float64{120, 320}
	left := (pageW - colW[0] - colW[1]) / 2
	pdf := p.pdf

	pdf.SetLineWidth(1)
	colorBlack.draw(pdf)

	pdf.SetFont("Helvetica", "B", 10)
	colorGrey.fill(pdf)
	colorWhiteSmoke.text(pdf)
	pdf.SetX(left)
	for i, h := range header {
		pdf.CellFormat(colW[i], rowH+4, p.tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	colorBeige.fill(pdf)
	colorBlack.text(pdf)
	for _, row := range rows {
		pdf.SetX(left)
		for i, cell := range row {
			pdf.CellFormat(colW[i], rowH, p.tr(cell), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.SetLineWidth(0.6)
}

func (p *page) summaryPage(a *analysis.Assessment, th analysis.CombinedThresholds, hasImage bool) {
	pdf := p.pdf
	pdf.AddPage()
	p.title("Comprehensive Autism Risk Report")
	pdf.Ln(16)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(bodyW, 14, "Summary:", "", 1, "L", false, 0, "")
	p.paragraph(fmt.Sprintf("Image model risk: %s", percent1(a.Combined.ImageProb)))
	p.paragraph(fmt.Sprintf("AQ-10 score: %d/10 (%s)", a.AQ10.Score, a.AQ10.Interpretation))
	p.paragraph(fmt.Sprintf("Combined risk: %s", percent1(a.Combined.CombinedProb)))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(bodyW, 14, "Recommendation:", "", 1, "L", false, 0, "")
	p.paragraph(a.Combined.RecommendationText)
	pdf.Ln(12)

	p.chart(combinedChart(a.Combined.ImageProb, a.AQ10.Probability, a.Combined.CombinedProb, th.High, th.Moderate), 400, 230)
	pdf.Ln(16)
	p.sourceImage(hasImage, 200)
}
