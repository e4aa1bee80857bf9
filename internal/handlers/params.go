package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lojf/garage/internal/models"
	"github.com/lojf/garage/internal/services"
	"github.com/lojf/garage/internal/views"
)

// parseDay reads a YYYY-MM-DD query value; empty means unset.
func parseDay(q url.Values, key string) (models.Date, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return models.Date{}, &services.ValidationError{Msg: "invalid " + key + " date: " + s}
	}
	return d, nil
}

func atoi(q url.Values, key string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(q.Get(key)))
	return n
}

// reportFilter reads ?date=&from=&to=&tier=&page=&page_size=.
func reportFilter(r *http.Request) (services.ReportFilter, error) {
	q := r.URL.Query()
	from, err := parseDay(q, "from")
	if err != nil {
		return services.ReportFilter{}, err
	}
	to, err := parseDay(q, "to")
	if err != nil {
		return services.ReportFilter{}, err
	}
	tier := strings.TrimSpace(q.Get("tier"))
	if tier != "" && tier != "all" && !models.Tier(tier).Valid() {
		return services.ReportFilter{}, &services.ValidationError{Msg: "unknown tier " + strconv.Quote(tier)}
	}
	return services.ReportFilter{
		Preset:   services.DatePreset(strings.TrimSpace(q.Get("date"))),
		From:     from,
		To:       to,
		Tier:     tier,
		Page:     atoi(q, "page"),
		PageSize: atoi(q, "page_size"),
	}.Normalize(), nil
}

// dashboardState reads the dashboard's filters plus ?page=&rows=.
func dashboardState(r *http.Request) (views.DashboardState, error) {
	f, err := reportFilter(r)
	if err != nil {
		return views.DashboardState{}, err
	}
	q := r.URL.Query()
	s := views.NewDashboardState().
		WithPreset(f.Preset).
		WithTier(f.Tier).
		WithRowsPerPage(atoi(q, "rows"))
	if f.Preset == services.PresetCustomRange {
		s = s.WithCustomRange(f.From, f.To)
	}
	return s.WithPage(atoi(q, "page")), nil
}

func settingsState(r *http.Request) views.SettingsState {
	q := r.URL.Query()
	return views.SettingsState{
		Search:      q.Get("search"),
		Page:        atoi(q, "page"),
		RowsPerPage: atoi(q, "rows"),
	}
}

func locationFilter(r *http.Request) services.LocationFilter {
	q := r.URL.Query()
	f := services.LocationFilter{Search: q.Get("search")}
	if v, err := strconv.ParseBool(q.Get("active")); err == nil {
		f.Active = &v
	}
	return f
}
