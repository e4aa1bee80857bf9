package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/apex/log"
	"github.com/xuri/excelize/v2"

	"github.com/lojf/garage/internal/models"
	"github.com/lojf/garage/internal/queries"
	"github.com/lojf/garage/internal/views"
)

var exportHeaders = []string{
	"Date", "Location", "SV1", "SV2", "YXP", "Kids", "Local", "HC1", "HC2", "Total", "Tier",
}

func exportRow(r models.AttendanceReport) []any {
	row := views.NewReportRow(r)
	return []any{
		row.Date.String(), row.Location,
		row.SV1, row.SV2, row.YXP, row.Kids, row.Local, row.HC1, row.HC2,
		row.Total, row.TierLabel,
	}
}

// exportReports loads the full filtered list the dashboard shows.
func exportReports(q *queries.Client, w http.ResponseWriter, r *http.Request) ([]models.AttendanceReport, bool) {
	f, err := reportFilter(r)
	if err != nil {
		fail(w, r, err)
		return nil, false
	}
	reports, err := client(q, r).AllReports(r.Context(), f)
	if err != nil {
		fail(w, r, err)
		return nil, false
	}
	return reports, true
}

// GET /api/reports/export.csv
func ReportsCSV(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, found := exportReports(q, w, r)
		if !found {
			return
		}

		filename := fmt.Sprintf("attendance-%s.csv", q.Today())
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)

		cw := csv.NewWriter(w)
		defer cw.Flush()

		_ = cw.Write(exportHeaders)
		for _, rep := range reports {
			cells := exportRow(rep)
			rec := make([]string, len(cells))
			for i, c := range cells {
				switch v := c.(type) {
				case int:
					rec[i] = strconv.Itoa(v)
				default:
					rec[i] = fmt.Sprint(v)
				}
			}
			_ = cw.Write(rec)
		}
	}
}

const exportSheet = "Attendance"

// buildWorkbook lays reports out under a bold header row with a totals row last.
func buildWorkbook(reports []models.AttendanceReport) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), exportSheet); err != nil {
		return nil, err
	}

	header := make([]any, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	if err := f.SetCellStyle(exportSheet, "A1", last, bold); err != nil {
		return nil, err
	}

	var sum models.Counts
	total := 0
	for i, rep := range reports {
		row := exportRow(rep)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
		c := rep.Counts
		sum.SV1 += c.SV1
		sum.SV2 += c.SV2
		sum.YXP += c.YXP
		sum.Kids += c.Kids
		sum.Local += c.Local
		sum.HC1 += c.HC1
		sum.HC2 += c.HC2
		total += rep.TotalAttendance
	}

	totals := []any{"Total", "", sum.SV1, sum.SV2, sum.YXP, sum.Kids, sum.Local, sum.HC1, sum.HC2, total, ""}
	cell, _ := excelize.CoordinatesToCellName(1, len(reports)+2)
	if err := f.SetSheetRow(exportSheet, cell, &totals); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "B", "B", 24); err != nil {
		return nil, err
	}
	return f, nil
}

// GET /api/reports/export.xlsx
func ReportsXLSX(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, found := exportReports(q, w, r)
		if !found {
			return
		}
		f, err := buildWorkbook(reports)
		if err != nil {
			fail(w, r, err)
			return
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.WithError(err).Warn("close workbook")
			}
		}()

		filename := fmt.Sprintf("attendance-%s.xlsx", q.Today())
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		if err := f.Write(w); err != nil {
			log.WithError(err).Error("write workbook")
		}
	}
}
