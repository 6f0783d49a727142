package report

import (
	"fmt"

	"github.com/go-pdf/fpdf"
)

type rgb struct{ r, g, b int }

var (
	colorBlue       = rgb{31, 119, 180}
	colorRed        = rgb{214, 39, 40}
	colorSkyBlue    = rgb{135, 206, 235}
	colorLightCoral = rgb{240, 128, 128}
	colorGold       = rgb{255, 215, 0}
	colorOrange     = rgb{255, 165, 0}
	colorBlack      = rgb{0, 0, 0}
	colorGrey       = rgb{128, 128, 128}
	colorWhiteSmoke = rgb{245, 245, 245}
	colorBeige      = rgb{245, 245, 220}
)

type bar struct {
	label string
	value float64
	color rgb
}

// refLine is a dashed horizontal marker at a probability.
type refLine struct {
	value float64
	color rgb
}

type chart struct {
	title  string
	yLabel string
	bars   []bar
	lines  []refLine
	// format renders a bar's value above it.
	format func(float64) string
}

func (c rgb) fill(pdf *fpdf.Fpdf) { pdf.SetFillColor(c.r, c.g, c.b) }
func (c rgb) draw(pdf *fpdf.Fpdf) { pdf.SetDrawColor(c.r, c.g, c.b) }
func (c rgb) text(pdf *fpdf.Fpdf) { pdf.SetTextColor(c.r, c.g, c.b) }

// drawChart renders a bar chart with a fixed 0..1 y axis into the box at
// (x, y) of size w×h, all in points.
func drawChart(pdf *fpdf.Fpdf, x, y, w, h float64, c chart) {
	const (
		padLeft   = 44.0
		padBottom = 22.0
		padTop    = 20.0
	)
	plotX, plotY := x+padLeft, y+padTop
	plotW, plotH := w-padLeft-8, h-padTop-padBottom
	yAt := func(v float64) float64 { return plotY + plotH*(1-v) }

	colorBlack.text(pdf)
	if c.title != "" {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetXY(x, y)
		pdf.CellFormat(w, padTop-4, c.title, "", 0, "C", false, 0, "")
	}

	// axes and ticks
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetLineWidth(0.6)
	colorBlack.draw(pdf)
	pdf.Rect(plotX, plotY, plotW, plotH, "D")
	for i := 0; i <= 5; i++ {
		v := float64(i) / 5
		ty := yAt(v)
		pdf.Line(plotX-3, ty, plotX, ty)
		pdf.SetXY(plotX-28, ty-4)
		pdf.CellFormat(24, 8, fmt.Sprintf("%.1f", v), "", 0, "R", false, 0, "")
	}
	if c.yLabel != "" {
		pdf.TransformBegin()
		pdf.TransformRotate(90, x+8, plotY+plotH/2)
		pdf.SetXY(x+8-plotH/2, plotY+plotH/2-5)
		pdf.CellFormat(plotH, 10, c.yLabel, "", 0, "C", false, 0, "")
		pdf.TransformEnd()
	}

	slot := plotW / float64(len(c.bars))
	barW := slot * 0.6
	for i, b := range c.bars {
		bx := plotX + slot*float64(i) + (slot-barW)/2
		top := yAt(b.value)
		b.color.fill(pdf)
		pdf.Rect(bx, top, barW, plotY+plotH-top, "F")

		pdf.SetXY(bx-10, top-11)
		pdf.CellFormat(barW+20, 10, c.format(b.value), "", 0, "C", false, 0, "")
		pdf.SetXY(bx-10, plotY+plotH+4)
		pdf.CellFormat(barW+20, 10, b.label, "", 0, "C", false, 0, "")
	}

	if len(c.lines) > 0 {
		pdf.SetLineWidth(1)
		pdf.SetDashPattern([]float64{5, 3}, 0)
		for _, l := range c.lines {
			l.color.draw(pdf)
			ly := yAt(l.value)
			pdf.Line(plotX, ly, plotX+plotW, ly)
		}
		pdf.SetDashPattern([]float64{}, 0)
	}
	colorBlack.draw(pdf)
	pdf.SetLineWidth(0.6)
}

func percent2(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }
func percent1(v float64) string { return fmt.Sprintf("%.1f%%", v*100) }

// confidenceChart is the two-bar Non_Autistic/Autistic split for one model.
func confidenceChart(p float64) chart {
	return chart{
		title:  "Prediction Confidence",
		yLabel: "Probability",
		bars: []bar{
			{label: "Non_Autistic", value: 1 - p, color: colorBlue},
			{label: "Autistic", value: p, color: colorRed},
		},
		format: percent2,
	}
}

// combinedChart compares both model probabilities with the combined risk
// against the recommendation thresholds.
func combinedChart(image, aq10, combined, high, moderate float64) chart {
	return chart{
		yLabel: "Risk Probability",
		bars: []bar{
			{label: "Image Analysis", value: image, color: colorSkyBlue},
			{label: "AQ-10 Survey", value: aq10, color: colorLightCoral},
			{label: "Combined", value: combined, color: colorGold},
		},
		lines:  []refLine{{high, colorRed}, {moderate, colorOrange}},
		format: percent1,
	}
}
