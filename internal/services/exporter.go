package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"talentscan/cv-screener/internal/models"
)

type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

const (
	summarySheet = "Summary"
	rankedSheet  = "Ranked Candidates"
	listSep      = "; "
)

var csvHeader = []string{
	"rank", "candidate_name", "score", "tech_fit", "exp_fit", "edu_fit",
	"stage", "job_title", "verdict", "strengths", "gaps", "source_file",
}

func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f ExportFormat) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Export writes the ranked candidates in the requested format.
func Export(w io.Writer, format ExportFormat, jobTitle string, ranked []models.RankedCandidate) error {
	switch format {
	case FormatXLSX:
		return ExportXLSX(w, jobTitle, ranked)
	case FormatCSV:
		return ExportCSV(w, ranked)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func ExportCSV(w io.Writer, ranked []models.RankedCandidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range ranked {
		record := []string{
			strconv.Itoa(r.Rank),
			csvText(r.CandidateName),
			strconv.Itoa(r.Score),
			optionalInt(r.TechFit),
			optionalInt(r.ExpFit),
			optionalInt(r.EduFit),
			string(r.Stage),
			csvText(r.JobTitle),
			csvText(r.Verdict),
			csvText(strings.Join(r.Strengths, listSep)),
			csvText(strings.Join(r.Gaps, listSep)),
			csvText(r.SourceFile),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// csvText quotes cells a spreadsheet would otherwise evaluate as a formula.
func csvText(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

func ExportXLSX(w io.Writer, jobTitle string, ranked []models.RankedCandidate) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rankedSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	if err := writeRankedSheet(f, ranked); err != nil {
		return fmt.Errorf("failed to create ranked candidates sheet: %w", err)
	}
	if err := writeSummarySheet(f, jobTitle, ranked); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

var xlsxBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

func fillStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Border: xlsxBorder,
	})
}

// ScoreBand names the band a score falls in: 90+, 70+, 50+ or below.
func ScoreBand(score int) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 70:
		return "good"
	case score >= 50:
		return "fair"
	default:
		return "poor"
	}
}

var bandColors = map[string]string{
	"excellent": "C6EFCE",
	"good":      "FFEB9C",
	"fair":      "FFC7CE",
	"poor":      "FF9999",
}

func writeRankedSheet(f *excelize.File, ranked []models.RankedCandidate) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    xlsxBorder,
	})
	if err != nil {
		return err
	}

	bandStyles := make(map[string]int, len(bandColors))
	for band, color := range bandColors {
		style, err := fillStyle(f, color)
		if err != nil {
			return err
		}
		bandStyles[band] = style
	}

	headers := []string{"Rank", "Candidate", "Score", "Tech Fit", "Experience Fit", "Education Fit", "Stage", "Verdict", "Strengths", "Gaps", "Source File"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(rankedSheet, cell, header)
		f.SetCellStyle(rankedSheet, cell, cell, headerStyle)
	}

	f.SetColWidth(rankedSheet, "A", "A", 8)
	f.SetColWidth(rankedSheet, "B", "B", 25)
	f.SetColWidth(rankedSheet, "C", "G", 14)
	f.SetColWidth(rankedSheet, "H", "J", 50)
	f.SetColWidth(rankedSheet, "K", "K", 30)

	for i, r := range ranked {
		row := i + 2
		values := []interface{}{
			r.Rank,
			r.CandidateName,
			r.Score,
			optionalInt(r.TechFit),
			optionalInt(r.ExpFit),
			optionalInt(r.EduFit),
			string(r.Stage),
			r.Verdict,
			strings.Join(r.Strengths, listSep),
			strings.Join(r.Gaps, listSep),
			r.SourceFile,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			f.SetCellValue(rankedSheet, cell, v)
		}

		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(headers), row)
		f.SetCellStyle(rankedSheet, first, last, bandStyles[ScoreBand(r.Score)])
	}

	return nil
}

func writeSummarySheet(f *excelize.File, jobTitle string, ranked []models.RankedCandidate) error {
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	f.SetColWidth(summarySheet, "A", "A", 25)
	f.SetColWidth(summarySheet, "B", "B", 40)

	rows := [][2]interface{}{
		{"Job Title:", jobTitle},
		{"Generated:", time.Now().Format("2006-01-02 15:04:05")},
		{"Candidates Scored:", len(ranked)},
	}

	if len(ranked) > 0 {
		total, highest, lowest := 0, ranked[0].Score, ranked[0].Score
		bands := map[string]int{}
		for _, r := range ranked {
			total += r.Score
			if r.Score > highest {
				highest = r.Score
			}
			if r.Score < lowest {
				lowest = r.Score
			}
			bands[ScoreBand(r.Score)]++
		}
		rows = append(rows,
			[2]interface{}{"Average Score:", fmt.Sprintf("%.2f", float64(total)/float64(len(ranked)))},
			[2]interface{}{"Highest Score:", highest},
			[2]interface{}{"Lowest Score:", lowest},
			[2]interface{}{"Excellent (90-100):", bands["excellent"]},
			[2]interface{}{"Good (70-89):", bands["good"]},
			[2]interface{}{"Fair (50-69):", bands["fair"]},
			[2]interface{}{"Poor (<50):", bands["poor"]},
		)
	}

	for i, kv := range rows {
		row := i + 1
		label := fmt.Sprintf("A%d", row)
		f.SetCellValue(summarySheet, label, kv[0])
		f.SetCellStyle(summarySheet, label, label, labelStyle)
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), kv[1])
	}

	return nil
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
