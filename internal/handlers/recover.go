package handlers

import (
	"net/http"
	"runtime/debug"

	"github.com/apex/log"

	"github.com/lojf/garage/internal/queries"
	"github.com/lojf/garage/internal/views"
)

// Recover turns a panic into a 500 with the generic notice instead of a
// dropped connection.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil || rec == http.ErrAbortHandler {
				if rec != nil {
					panic(rec)
				}
				return
			}
			log.WithFields(log.Fields{
				"panic": rec,
				"path":  r.URL.Path,
				"stack": string(debug.Stack()),
			}).Error("handler panic")
			n := queries.Failure(views.UnexpectedFailure)
			noticesFrom(r).Notify(n)
			writeJSON(w, http.StatusInternalServerError, envelope{Error: views.UnexpectedFailure, Notice: &n})
		}()
		next.ServeHTTP(w, r)
	})
}
