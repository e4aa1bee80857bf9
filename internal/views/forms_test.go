package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojf/garage/internal/models"
	"github.com/lojf/garage/internal/services"
)

func TestReportFormTotal(t *testing.T) {
	f := ReportForm{SV1: 10, SV2: 5, YXP: 0, Kids: 3, Local: 2}
	assert.Equal(t, 20, f.Total())
}

func TestReportFormValidation(t *testing.T) {
	f := NewReportForm(models.NewDate(2026, 10, 18))
	_, err := f.Input()
	require.ErrorIs(t, err, services.ErrInvalid)
	assert.Equal(t, SelectLocation, err.Error())

	f.LocationID = "loc-1"
	in, err := f.Input()
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", in.Date.String())
	assert.Equal(t, "loc-1", *in.LocationID)

	bad := f
	bad.Date = "18/10/2026"
	_, err = bad.Input()
	assert.ErrorIs(t, err, services.ErrInvalid)

	bad = f
	bad.HC1 = -1
	_, err = bad.Patch()
	assert.ErrorIs(t, err, services.ErrInvalid)

	bad = f
	bad.Tier = "pink"
	_, err = bad.Input()
	assert.ErrorIs(t, err, services.ErrInvalid)
}

func TestEditReportFormRoundTrip(t *testing.T) {
	loc := "loc-1"
	r := models.AttendanceReport{
		Date:       models.NewDate(2026, 10, 11),
		LocationID: &loc,
		Counts:     models.Counts{SV1: 1, HC2: 4},
		Tier:       models.TierBlue,
	}
	f := EditReportForm(r)
	assert.Equal(t, 5, f.Total())

	p, err := f.Patch()
	require.NoError(t, err)
	assert.Equal(t, r.Counts, *p.Counts)
	assert.Equal(t, models.TierBlue, *p.Tier)
	assert.Equal(t, "2026-10-11", p.Date.String())

	// A report whose location was deleted must pick a new one before saving.
	r.LocationID = nil
	_, err = EditReportForm(r).Patch()
	assert.EqualError(t, err, SelectLocation)
}

func TestLocationForm(t *testing.T) {
	_, err := LocationForm{Name: "  "}.Input()
	assert.ErrorIs(t, err, services.ErrInvalid)

	neg := -1
	_, err = LocationForm{Name: "Hall", Capacity: &neg}.Patch()
	assert.ErrorIs(t, err, services.ErrInvalid)

	p, err := LocationForm{Name: "Hall"}.Patch()
	require.NoError(t, err)
	assert.Equal(t, 0, *p.Capacity, "blank capacity clears the column")
	assert.Equal(t, "", *p.Address)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, UnknownLocation, LocationLabel(models.AttendanceReport{}))
	assert.Equal(t, "Purple", TierLabel(models.TierPurple))
	assert.Equal(t, "Gray", TierLabel(""))
}
