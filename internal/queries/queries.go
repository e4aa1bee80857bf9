// Package queries is the only way handlers reach the services. Reads go
// through the cache with per-operation freshness windows; writes patch the
// cached lists, mark their domain stale and raise a notice.
package queries

import (
	"time"

	"github.com/apex/log"

	"github.com/lojf/garage/internal/cache"
	"github.com/lojf/garage/internal/metrics"
	"github.com/lojf/garage/internal/models"
	"github.com/lojf/garage/internal/services"
)

// Freshness windows. Aggregates outlive raw lists and active locations
// change least of all.
const (
	ReportsTTL         = 2 * time.Minute
	AllReportsTTL      = 5 * time.Minute
	MetricsTTL         = 10 * time.Minute
	LocationsTTL       = 5 * time.Minute
	LocationTTL        = 5 * time.Minute
	UsageTTL           = 2 * time.Minute
	SearchTTL          = 5 * time.Minute
	ActiveLocationsTTL = 15 * time.Minute
)

// Cached operation names.
const (
	opReports    = "reports"
	opAllReports = "all-reports"
	opMetrics    = "metrics"
	opList       = "list"
	opActive     = "active"
	opSearch     = "search"
	opUsage      = "usage"
	opDetail     = "detail"
)

// minSearchRunes is the shortest query sent to the store.
const minSearchRunes = 2

type Client struct {
	reports   *services.AttendanceService
	locations *services.LocationService
	cache     *cache.Cache
	notify    Notifier
}

func New(reports *services.AttendanceService, locations *services.LocationService, c *cache.Cache) *Client {
	return &Client{reports: reports, locations: locations, cache: c, notify: discard{}}
}

// With returns a client that sends notices to n. The cache is shared.
func (c *Client) With(n Notifier) *Client {
	cp := *c
	if n == nil {
		n = discard{}
	}
	cp.notify = n
	return &cp
}

// Today is the current calendar day in the service time zone.
func (c *Client) Today() models.Date {
	return c.reports.Today()
}

// finish records the outcome of a write and raises the matching notice.
func (c *Client) finish(op string, err error, ok, fallback string) {
	metrics.Mutations.WithLabelValues(op, metrics.Result(err)).Inc()
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = fallback
		}
		log.WithError(err).WithField("op", op).Warn("write failed")
		c.notify.Notify(Failure(msg))
		return
	}
	c.notify.Notify(Success(ok))
}
