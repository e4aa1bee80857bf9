package queries

import (
	"cmp"
	"context"
	"fmt"

	"github.com/lojf/garage/internal/cache"
	"github.com/lojf/garage/internal/models"
	"github.com/lojf/garage/internal/services"
)

func reportKey(op string, f services.ReportFilter) cache.Key {
	return cache.Key{Domain: cache.Attendance, Op: op, Params: f.Key()}
}

// Reports is one store-paginated page of the filtered list.
func (c *Client) Reports(ctx context.Context, f services.ReportFilter) (*services.ReportPage, error) {
	f = f.Normalize()
	return cache.Fetch(ctx, c.cache, reportKey(opReports, f), ReportsTTL,
		func(ctx context.Context) (*services.ReportPage, error) {
			return c.reports.List(ctx, f)
		})
}

// AllReports is the full filtered list; the dashboard pages it locally.
func (c *Client) AllReports(ctx context.Context, f services.ReportFilter) ([]models.AttendanceReport, error) {
	f = f.Unpaged()
	return cache.Fetch(ctx, c.cache, reportKey(opAllReports, f), AllReportsTTL,
		func(ctx context.Context) ([]models.AttendanceReport, error) {
			page, err := c.reports.List(ctx, f)
			if err != nil {
				return nil, err
			}
			return page.Reports, nil
		})
}

// Metrics are the dashboard category totals; tier and paging never split the key.
func (c *Client) Metrics(ctx context.Context, f services.ReportFilter) (*services.Metrics, error) {
	f = f.DatesOnly()
	return cache.Fetch(ctx, c.cache, reportKey(opMetrics, f), MetricsTTL,
		func(ctx context.Context) (*services.Metrics, error) {
			return c.reports.Aggregate(ctx, f)
		})
}

func byTotalDesc(a, b models.AttendanceReport) int {
	return cmp.Compare(b.TotalAttendance, a.TotalAttendance)
}

func sameReport(a, b models.AttendanceReport) bool { return a.ID == b.ID }

// patchReports applies fn to every cached report list, full or paged.
func (c *Client) patchReports(fn func([]models.AttendanceReport) []models.AttendanceReport) {
	cache.Mutate(c.cache, cache.Attendance, opAllReports, fn)
	cache.Mutate(c.cache, cache.Attendance, opReports, func(p *services.ReportPage) *services.ReportPage {
		if p == nil {
			return p
		}
		out := fn(p.Reports)
		return &services.ReportPage{Reports: out, Count: p.Count + int64(len(out)-len(p.Reports))}
	})
}

func (c *Client) CreateReport(ctx context.Context, in services.ReportInput) (*models.AttendanceReport, error) {
	r, err := c.reports.Create(ctx, in)
	if err != nil {
		c.finish("create_report", err, "", "Failed to create attendance report")
		return nil, err
	}
	c.patchReports(func(list []models.AttendanceReport) []models.AttendanceReport {
		return cache.InsertSorted(list, *r, byTotalDesc)
	})
	c.cache.Invalidate(cache.Attendance)
	c.finish("create_report", nil, fmt.Sprintf("Attendance report for %s created successfully!", r.Date), "")
	return r, nil
}

func (c *Client) UpdateReport(ctx context.Context, id string, p services.ReportPatch) (*models.AttendanceReport, error) {
	r, err := c.reports.Update(ctx, id, p)
	if err != nil {
		c.finish("update_report", err, "", "Failed to update attendance report")
		return nil, err
	}
	c.patchReports(func(list []models.AttendanceReport) []models.AttendanceReport {
		return cache.ReplaceSorted(list, *r, sameReport, byTotalDesc)
	})
	c.cache.Invalidate(cache.Attendance)
	c.finish("update_report", nil, fmt.Sprintf("Attendance report for %s updated successfully!", r.Date), "")
	return r, nil
}

func (c *Client) DeleteReport(ctx context.Context, id string) error {
	if err := c.reports.Delete(ctx, id); err != nil {
		c.finish("delete_report", err, "", "Failed to delete attendance report")
		return err
	}
	c.patchReports(func(list []models.AttendanceReport) []models.AttendanceReport {
		return cache.Remove(list, func(r models.AttendanceReport) bool { return r.ID == id })
	})
	c.cache.Invalidate(cache.Attendance)
	c.finish("delete_report", nil, "Attendance report deleted successfully!", "")
	return nil
}
