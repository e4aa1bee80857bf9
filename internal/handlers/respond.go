package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/apex/log"

	"github.com/lojf/garage/internal/auth"
	"github.com/lojf/garage/internal/queries"
	"github.com/lojf/garage/internal/services"
)

type envelope struct {
	Data   any             `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
	Notice *queries.Notice `json:"notice,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("encode response")
	}
}

// reply writes data with the latest notice raised while serving r.
func reply(w http.ResponseWriter, r *http.Request, status int, data any) {
	env := envelope{Data: data}
	if n, found := noticesFrom(r).Last(); found {
		env.Notice = &n
	}
	writeJSON(w, status, env)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalid),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail answers with err. Writes through the query client have already
// raised their error notice; anything rejected earlier gets one here.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	col := noticesFrom(r)
	n, found := col.Last()
	if !found || n.Kind != queries.NoticeError {
		n = queries.Failure(err.Error())
		col.Notify(n)
	}
	writeJSON(w, status, envelope{Error: err.Error(), Notice: &n})
}

var errBadRequest = errors.New("bad request")

type badRequest struct{ msg string }

func (e *badRequest) Error() string        { return e.msg }
func (e *badRequest) Is(target error) bool { return target == errBadRequest }

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &badRequest{msg: "invalid request body: " + err.Error()}
	}
	return nil
}
