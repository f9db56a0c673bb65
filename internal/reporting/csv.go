package reporting

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Competency is one assessed competency row, detached from the analysis
// pipeline's own types so reports can be generated from any source.
type Competency struct {
	FrameworkCode         string
	FrameworkAbbreviation string
	CompetencyID          string
	CompetencyText        string
	MatchStrength         int
	AchievedLevel         string
	Justification         string
	EmergingEvidence      string
}

// Input is everything a report needs.
type Input struct {
	SessionID      string
	RoleName       string
	LevelName      string
	ReflectionText string
	OverallSummary string
	Competencies   []Competency
	GeneratedAt    time.Time
}

func (in Input) sorted() []Competency {
	rows := append([]Competency(nil), in.Competencies...)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FrameworkCode != rows[j].FrameworkCode {
			return rows[i].FrameworkCode < rows[j].FrameworkCode
		}
		return rows[i].CompetencyID < rows[j].CompetencyID
	})
	return rows
}

// CSV renders the assessed competencies as a spreadsheet-friendly table,
// sorted by framework then competency id.
func CSV(in Input) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"Framework",
		"Competency ID",
		"Competency",
		"Match Strength",
		"Achieved Level",
		"Justification",
		"Emerging Evidence for Next Level",
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range in.sorted() {
		framework := row.FrameworkAbbreviation
		if framework == "" {
			framework = row.FrameworkCode
		}
		record := []string{
			framework,
			row.CompetencyID,
			row.CompetencyText,
			strconv.Itoa(row.MatchStrength),
			row.AchievedLevel,
			row.Justification,
			row.EmergingEvidence,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
