package views

import (
	"strings"
	"unicode/utf8"

	"github.com/lojf/garage/internal/models"
	"github.com/lojf/garage/internal/services"
)

// DashboardState is the table's local state: filters and paging.
type DashboardState struct {
	Preset      services.DatePreset
	From, To    models.Date
	Tier        string
	Page        int
	RowsPerPage int
}

func NewDashboardState() DashboardState {
	return DashboardState{Preset: services.PresetAll, Tier: "all", Page: 1, RowsPerPage: DefaultRowsPerPage}
}

// Every filter change puts the table back on page 1.

func (s DashboardState) WithTier(tier string) DashboardState {
	s.Tier, s.Page = tier, 1
	return s
}

func (s DashboardState) WithPreset(p services.DatePreset) DashboardState {
	s.Preset, s.Page = p, 1
	return s
}

// WithCustomRange only switches to the custom preset once both ends are
// picked; a half-picked range keeps the current preset.
func (s DashboardState) WithCustomRange(from, to models.Date) DashboardState {
	s.From, s.To = from, to
	if !from.IsZero() && !to.IsZero() {
		s.Preset, s.Page = services.PresetCustomRange, 1
	}
	return s
}

func (s DashboardState) WithRowsPerPage(n int) DashboardState {
	s.RowsPerPage, s.Page = RowsPerPage(n), 1
	return s
}

func (s DashboardState) WithPage(p int) DashboardState {
	s.Page = p
	return s
}

// Filter is the store filter for the whole table; paging stays local.
func (s DashboardState) Filter() services.ReportFilter {
	return services.ReportFilter{Preset: s.Preset, From: s.From, To: s.To, Tier: s.Tier}.Unpaged()
}

type ReportRow struct {
	ID         string      `json:"id"`
	Date       models.Date `json:"date"`
	LocationID *string     `json:"location_id"`
	Location   string      `json:"location"`
	models.Counts
	Total     int         `json:"total"`
	Tier      models.Tier `json:"tier"`
	TierLabel string      `json:"tier_label"`
}

func NewReportRow(r models.AttendanceReport) ReportRow {
	tier := r.Tier
	if tier == "" {
		tier = models.TierGray
	}
	return ReportRow{
		ID:         r.ID,
		Date:       r.Date,
		LocationID: r.LocationID,
		Location:   LocationLabel(r),
		Counts:     r.Counts,
		Total:      r.TotalAttendance,
		Tier:       tier,
		TierLabel:  TierLabel(tier),
	}
}

type Dashboard struct {
	Metrics            *services.Metrics   `json:"metrics"`
	Rows               []ReportRow         `json:"rows"`
	Pager              Pager               `json:"pager"`
	Empty              string              `json:"empty,omitempty"`
	RowsPerPageOptions []int               `json:"rows_per_page_options"`
	Preset             services.DatePreset `json:"date_filter"`
	Tier               string              `json:"tier_filter"`
}

// BuildDashboard pages reports, which is the full filtered list, locally.
func BuildDashboard(s DashboardState, reports []models.AttendanceReport, m *services.Metrics) Dashboard {
	p := Paginate(len(reports), s.Page, RowsPerPage(s.RowsPerPage))
	page := Slice(reports, p)
	rows := make([]ReportRow, len(page))
	for i, r := range page {
		rows[i] = NewReportRow(r)
	}
	if m == nil {
		m = &services.Metrics{}
	}
	f := s.Filter()
	d := Dashboard{
		Metrics:            m,
		Rows:               rows,
		Pager:              p,
		RowsPerPageOptions: RowsPerPageOptions,
		Preset:             f.Preset,
		Tier:               f.Tier,
	}
	if len(rows) == 0 {
		d.Empty = EmptyReports
	}
	return d
}

// SettingsState is the location management list state. Search applies
// from two characters on.
type SettingsState struct {
	Search      string
	Page        int
	RowsPerPage int
}

func (s SettingsState) Filter() services.LocationFilter {
	q := strings.TrimSpace(s.Search)
	if utf8.RuneCountInString(q) < 2 {
		return services.LocationFilter{}
	}
	return services.LocationFilter{Search: q}
}

type Settings struct {
	Locations []services.LocationWithUsage `json:"locations"`
	Pager     Pager                        `json:"pager"`
	Empty     string                       `json:"empty,omitempty"`
}

func BuildSettings(s SettingsState, locs []services.LocationWithUsage) Settings {
	p := Paginate(len(locs), s.Page, RowsPerPage(s.RowsPerPage))
	out := Settings{Locations: Slice(locs, p), Pager: p}
	if len(out.Locations) == 0 {
		out.Empty = EmptyLocations
	}
	return out
}
