package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lojf/garage/internal/auth"
	"github.com/lojf/garage/internal/queries"
	"github.com/lojf/garage/internal/views"
)

// GET /api/locations?search=&active=
func ListLocations(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locs, err := client(q, r).Locations(r.Context(), locationFilter(r))
		if err != nil {
			fail(w, r, err)
			return
		}
		reply(w, r, http.StatusOK, locs)
	}
}

// GET /api/locations/active
func ActiveLocations(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locs, err := client(q, r).ActiveLocations(r.Context())
		if err != nil {
			fail(w, r, err)
			return
		}
		reply(w, r, http.StatusOK, locs)
	}
}

// GET /api/locations/search?q=
func SearchLocations(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locs, err := client(q, r).Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			fail(w, r, err)
			return
		}
		reply(w, r, http.StatusOK, locs)
	}
}

// GET /api/locations/{id}
func GetLocation(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := client(q, r).Location(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			fail(w, r, err)
			return
		}
		reply(w, r, http.StatusOK, l)
	}
}

// GET /api/locations/{id}/usage
func LocationUsage(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := client(q, r).UsageStats(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			fail(w, r, err)
			return
		}
		reply(w, r, http.StatusOK, st)
	}
}

// POST /api/locations
func CreateLocation(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form views.LocationForm
		if err := decode(r, &form); err != nil {
			fail(w, r, err)
			return
		}
		in, err := form.Input()
		if err != nil {
			fail(w, r, err)
			return
		}
		l, err := client(q, r).CreateLocation(r.Context(), auth.FromContext(r.Context()), in)
		if err != nil {
			fail(w, r, err)
			return
		}
		reply(w, r, http.StatusCreated, l)
	}
}

// PUT /api/locations/{id}
func UpdateLocation(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form views.LocationForm
		if err := decode(r, &form); err != nil {
			fail(w, r, err)
			return
		}
		p, err := form.Patch()
		if err != nil {
			fail(w, r, err)
			return
		}
		l, err := client(q, r).UpdateLocation(r.Context(), chi.URLParam(r, "id"), p)
		if err != nil {
			fail(w, r, err)
			return
		}
		reply(w, r, http.StatusOK, l)
	}
}

// DELETE /api/locations/{id}
func DeleteLocation(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := client(q, r).DeleteLocation(r.Context(), chi.URLParam(r, "id")); err != nil {
			fail(w, r, err)
			return
		}
		reply(w, r, http.StatusOK, nil)
	}
}

// GET /api/settings/locations?search=&page=&rows=
func SettingsLocations(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := settingsState(r)
		locs, err := client(q, r).Locations(r.Context(), st.Filter())
		if err != nil {
			fail(w, r, err)
			return
		}
		reply(w, r, http.StatusOK, views.BuildSettings(st, locs))
	}
}
