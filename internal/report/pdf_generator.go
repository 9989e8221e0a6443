package report

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/user/flightmill_go/internal/aggregate"
)

const (
	inchToMm               = 25.4
	pdfPageWidthLandscape  = 11 * inchToMm // Letter landscape
	pdfPageHeightLandscape = 8.5 * inchToMm
	pdfMargin              = 0.5 * inchToMm
	pdfContentWidth        = pdfPageWidthLandscape - (2 * pdfMargin)
)

// ReportMeta is the run provenance printed on the report header.
type ReportMeta struct {
	RunID      string
	Trials     int
	Baseline   string
	Thresholds string
}

// pdfStyler holds reusable styling and flowing-content state for the
// report pages.
type pdfStyler struct {
	pdf        *gofpdf.Fpdf
	styles     map[string]func()
	lineHeight float64
	currentY   float64
	pageHeight float64
}

func newPDFStyler(pdf *gofpdf.Fpdf) *pdfStyler {
	s := &pdfStyler{
		pdf:        pdf,
		styles:     make(map[string]func()),
		lineHeight: 6,
		pageHeight: pdfPageHeightLandscape - (2 * pdfMargin),
		currentY:   pdfMargin,
	}
	s.styles["h1"] = func() {
		s.pdf.SetFont("Arial", "B", 16)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h2"] = func() {
		s.pdf.SetFont("Arial", "B", 13)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["normal"] = func() {
		s.pdf.SetFont("Arial", "", 10)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableHeader"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetFillColor(200, 200, 200)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableCell"] = func() {
		s.pdf.SetFont("Arial", "", 9)
		s.pdf.SetTextColor(50, 50, 50)
	}
	s.styles["tableCellRed"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetTextColor(200, 0, 0)
	}
	return s
}

func (s *pdfStyler) applyStyle(name string) {
	if fn, ok := s.styles[name]; ok {
		fn()
		return
	}
	s.styles["normal"]()
}

func (s *pdfStyler) checkAddPage(neededHeight float64) {
	if s.currentY+neededHeight > s.pageHeight {
		s.pdf.AddPage()
		s.currentY = pdfMargin
	}
}

func (s *pdfStyler) writeParagraph(text, style, align string) {
	s.applyStyle(style)
	s.checkAddPage(s.lineHeight)
	s.pdf.SetXY(pdfMargin, s.currentY)
	s.pdf.MultiCell(pdfContentWidth, s.lineHeight, text, "", align, false)
	s.currentY = s.pdf.GetY() + 1
}

func (s *pdfStyler) addSpacer(height float64) {
	s.checkAddPage(height)
	s.currentY += height
}

func (s *pdfStyler) addImage(img []byte, name string, width, height float64, caption string) {
	s.pdf.RegisterImageReader(name, "PNG", bytes.NewReader(img))
	if width > pdfContentWidth {
		height *= pdfContentWidth / width
		width = pdfContentWidth
	}
	s.checkAddPage(height + s.lineHeight + 2)
	s.pdf.Image(name, pdfMargin, s.currentY, width, height, false, "PNG", 0, "")
	s.currentY += height
	if caption != "" {
		s.addSpacer(1)
		s.writeParagraph(caption, "normal", "C")
	}
	s.addSpacer(2)
}

// BuildPDFReport writes the diagnostics PDF: run header, per-set summary
// table with large-change sets highlighted, skipped-set notes, and any plot
// images appended by name order.
func BuildPDFReport(path string, meta ReportMeta, summaries map[int]aggregate.SetSummary,
	skipped map[int]error, plotImages map[string][]byte) error {

	pdf := gofpdf.New("L", "mm", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.AddPage()

	styler := newPDFStyler(pdf)
	styler.writeParagraph(fmt.Sprintf("Flight Mill Diagnostics Report (%d Trials)", meta.Trials), "h1", "C")
	styler.addSpacer(3)
	styler.writeParagraph(fmt.Sprintf("Run %s  |  baseline: %s  |  bands: %s", meta.RunID, meta.Baseline, meta.Thresholds), "normal", "L")
	styler.addSpacer(5)

	if len(summaries) == 0 {
		styler.writeParagraph("No set summaries to display.", "normal", "L")
	} else {
		styler.writeParagraph("Set Summaries", "h2", "L")
		writeSummaryGrid(styler, summaries)
	}

	if len(skipped) > 0 {
		styler.addSpacer(5)
		styler.writeParagraph("Skipped Sets", "h2", "L")
		ids := make([]int, 0, len(skipped))
		for id := range skipped {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			styler.writeParagraph(fmt.Sprintf("Set %d: %v", id, skipped[id]), "normal", "L")
		}
	}

	names := make([]string, 0, len(plotImages))
	for name := range plotImages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		caption := strings.ReplaceAll(name, "_", " ")
		styler.addImage(plotImages[name], name, pdfContentWidth*0.6, pdfContentWidth*0.45, caption)
	}

	return pdf.OutputFileAndClose(path)
}

func writeSummaryGrid(styler *pdfStyler, summaries map[int]aggregate.SetSummary) {
	headers := []string{"Set", "Trials", "Small Changes", "Large Changes", "Large Chambers"}
	colWidthsRel := []float64{0.1, 0.15, 0.2, 0.2, 0.35}
	colWidths := make([]float64, len(colWidthsRel))
	for i, rel := range colWidthsRel {
		colWidths[i] = rel * pdfContentWidth
	}

	ids := make([]int, 0, len(summaries))
	for id := range summaries {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	styler.checkAddPage(styler.lineHeight * float64(len(ids)+1))
	x := pdfMargin
	styler.applyStyle("tableHeader")
	for i, h := range headers {
		styler.pdf.SetXY(x, styler.currentY)
		styler.pdf.CellFormat(colWidths[i], styler.lineHeight, h, "1", 0, "C", true, 0, "")
		x += colWidths[i]
	}
	styler.currentY += styler.lineHeight

	for _, id := range ids {
		s := summaries[id]
		chambers := NoChamberPlaceholder
		if len(s.LargeChambers) > 0 {
			chambers = strings.Join(s.LargeChambers, ",")
		}
		cells := []string{
			strconv.Itoa(s.SetID),
			strconv.Itoa(s.Total),
			strconv.Itoa(s.Small),
			strconv.Itoa(s.Large),
			chambers,
		}
		styler.checkAddPage(styler.lineHeight)
		x = pdfMargin
		for i, cell := range cells {
			styler.pdf.SetXY(x, styler.currentY)
			if i == 3 && s.Large > 0 {
				styler.applyStyle("tableCellRed")
			} else {
				styler.applyStyle("tableCell")
			}
			styler.pdf.CellFormat(colWidths[i], styler.lineHeight, cell, "1", 0, "C", false, 0, "")
			x += colWidths[i]
		}
		styler.currentY += styler.lineHeight
	}
}
