package reporting

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// PDF renders a printable report: run details, the reflection, the
// overall summary, then every assessed competency grouped by framework.
func PDF(in Input) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Portfolio Mapper Report", false)
	doc.SetAutoPageBreak(true, 18)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 10, "Portfolio Mapper Report", "", 1, "L", false, 0, "")

	doc.SetFont("Helvetica", "", 10)
	doc.SetTextColor(90, 90, 90)
	doc.CellFormat(0, 5, fmt.Sprintf("Role: %s", in.RoleName), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 5, fmt.Sprintf("Academic level: %s", in.LevelName), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 5, fmt.Sprintf("Generated: %s", in.GeneratedAt.Format("2 January 2006 15:04 MST")), "", 1, "L", false, 0, "")
	doc.SetTextColor(0, 0, 0)
	doc.Ln(4)

	section(doc, "Reflection")
	body(doc, in.ReflectionText)

	section(doc, "Overall Summary")
	body(doc, in.OverallSummary)

	rows := in.sorted()
	current := ""
	for _, row := range rows {
		if row.FrameworkCode != current {
			current = row.FrameworkCode
			name := row.FrameworkAbbreviation
			if name == "" {
				name = row.FrameworkCode
			}
			section(doc, name)
		}
		competency(doc, row)
	}
	if len(rows) == 0 {
		section(doc, "Assessed Competencies")
		body(doc, "No competencies were matched against the selected frameworks.")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(doc *fpdf.Fpdf, title string) {
	doc.Ln(2)
	doc.SetFont("Helvetica", "B", 13)
	doc.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	doc.SetDrawColor(200, 200, 200)
	x, y := doc.GetX(), doc.GetY()
	w, _ := doc.GetPageSize()
	left, _, right, _ := doc.GetMargins()
	doc.Line(x, y, w-right, y)
	doc.SetX(left)
	doc.Ln(2)
}

func body(doc *fpdf.Fpdf, text string) {
	doc.SetFont("Helvetica", "", 10)
	doc.MultiCell(0, 5, strings.TrimSpace(text), "", "L", false)
	doc.Ln(2)
}

func competency(doc *fpdf.Fpdf, row Competency) {
	doc.SetFont("Helvetica", "B", 11)
	doc.MultiCell(0, 6, fmt.Sprintf("%s - %s", row.CompetencyID, row.CompetencyText), "", "L", false)

	doc.SetFont("Helvetica", "", 10)
	doc.SetTextColor(90, 90, 90)
	doc.CellFormat(0, 5, fmt.Sprintf("Match strength: %d/5    Achieved level: %s", row.MatchStrength, row.AchievedLevel), "", 1, "L", false, 0, "")
	doc.SetTextColor(0, 0, 0)

	doc.MultiCell(0, 5, row.Justification, "", "L", false)
	if row.EmergingEvidence != "" {
		doc.SetFont("Helvetica", "I", 10)
		doc.MultiCell(0, 5, "Emerging evidence for next level: "+row.EmergingEvidence, "", "L", false)
	}
	doc.Ln(3)
}
