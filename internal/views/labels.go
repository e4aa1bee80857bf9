package views

import (
	"strings"

	"github.com/lojf/garage/internal/models"
)

const (
	UnknownLocation   = "Unknown Location"
	EmptyReports      = "No attendance reports found"
	EmptyLocations    = "No locations found"
	UnexpectedFailure = "An unexpected error occurred"
)

// LocationLabel names the report's location, or UnknownLocation once the
// location is gone.
func LocationLabel(r models.AttendanceReport) string {
	if name := strings.TrimSpace(r.LocationName()); name != "" {
		return name
	}
	return UnknownLocation
}

// TierLabel capitalises the tier for display; an empty tier reads as Gray.
func TierLabel(t models.Tier) string {
	s := string(t)
	if s == "" {
		s = string(models.TierGray)
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
