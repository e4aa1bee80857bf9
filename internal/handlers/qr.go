package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/lojf/garage/internal/queries"
)

// LocationQR renders a PNG that opens the dashboard's add-report dialog
// preset to the location when scanned.
func LocationQR(q *queries.Client, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		l, err := client(q, r).Location(r.Context(), id)
		if err != nil {
			fail(w, r, err)
			return
		}

		target := publicURL + "/dashboard?location_id=" + url.QueryEscape(l.ID)
		png, err := qrcode.Encode(target, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "failed to generate qr", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}
