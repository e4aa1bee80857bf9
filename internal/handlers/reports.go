package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lojf/garage/internal/queries"
	"github.com/lojf/garage/internal/views"
)

// GET /api/dashboard?date=&from=&to=&tier=&page=&rows=
func Dashboard(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := dashboardState(r)
		if err != nil {
			fail(w, r, err)
			return
		}
		qc := client(q, r)
		reports, err := qc.AllReports(r.Context(), state.Filter())
		if err != nil {
			fail(w, r, err)
			return
		}
		m, err := qc.Metrics(r.Context(), state.Filter())
		if err != nil {
			fail(w, r, err)
			return
		}
		reply(w, r, http.StatusOK, views.BuildDashboard(state, reports, m))
	}
}

// GET /api/reports?date=&from=&to=&tier=&page=&page_size=
func ListReports(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := reportFilter(r)
		if err != nil {
			fail(w, r, err)
			return
		}
		page, err := client(q, r).Reports(r.Context(), f)
		if err != nil {
			fail(w, r, err)
			return
		}
		reply(w, r, http.StatusOK, page)
	}
}

// GET /api/reports/metrics?date=&from=&to=
func ReportMetrics(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := reportFilter(r)
		if err != nil {
			fail(w, r, err)
			return
		}
		m, err := client(q, r).Metrics(r.Context(), f)
		if err != nil {
			fail(w, r, err)
			return
		}
		reply(w, r, http.StatusOK, m)
	}
}

// POST /api/reports
func CreateReport(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qc := client(q, r)
		form := views.NewReportForm(qc.Today())
		if err := decode(r, &form); err != nil {
			fail(w, r, err)
			return
		}
		in, err := form.Input()
		if err != nil {
			fail(w, r, err)
			return
		}
		rep, err := qc.CreateReport(r.Context(), in)
		if err != nil {
			fail(w, r, err)
			return
		}
		reply(w, r, http.StatusCreated, views.NewReportRow(*rep))
	}
}

// PUT /api/reports/{id}
func UpdateReport(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form views.ReportForm
		if err := decode(r, &form); err != nil {
			fail(w, r, err)
			return
		}
		p, err := form.Patch()
		if err != nil {
			fail(w, r, err)
			return
		}
		rep, err := client(q, r).UpdateReport(r.Context(), chi.URLParam(r, "id"), p)
		if err != nil {
			fail(w, r, err)
			return
		}
		reply(w, r, http.StatusOK, views.NewReportRow(*rep))
	}
}

// DELETE /api/reports/{id}
func DeleteReport(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := client(q, r).DeleteReport(r.Context(), chi.URLParam(r, "id")); err != nil {
			fail(w, r, err)
			return
		}
		reply(w, r, http.StatusOK, nil)
	}
}
