package views

import (
	"fmt"
	"strings"

	"github.com/lojf/garage/internal/models"
	"github.com/lojf/garage/internal/services"
)

const SelectLocation = "Please select a location"

func invalid(format string, args ...any) error {
	return &services.ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ReportForm is the add/edit report dialog. Counters are kept as entered
// so a negative value can be rejected rather than silently clamped.
type ReportForm struct {
	Date       string      `json:"date"`
	LocationID string      `json:"location_id"`
	SV1        int         `json:"sv1"`
	SV2        int         `json:"sv2"`
	YXP        int         `json:"yxp"`
	Kids       int         `json:"kids"`
	Local      int         `json:"local"`
	HC1        int         `json:"hc1"`
	HC2        int         `json:"hc2"`
	Tier       models.Tier `json:"tier"`
}

// NewReportForm is an empty dialog dated today.
func NewReportForm(today models.Date) ReportForm {
	return ReportForm{Date: today.String()}
}

// EditReportForm prefills the dialog from a stored report.
func EditReportForm(r models.AttendanceReport) ReportForm {
	f := ReportForm{Date: r.Date.String(), Tier: r.Tier}
	if r.LocationID != nil {
		f.LocationID = *r.LocationID
	}
	c := r.Counts
	f.SV1, f.SV2, f.YXP, f.Kids, f.Local, f.HC1, f.HC2 = c.SV1, c.SV2, c.YXP, c.Kids, c.Local, c.HC1, c.HC2
	return f
}

func (f ReportForm) Counts() models.Counts {
	return models.Counts{SV1: f.SV1, SV2: f.SV2, YXP: f.YXP, Kids: f.Kids, Local: f.Local, HC1: f.HC1, HC2: f.HC2}
}

// Total previews what the store will compute.
func (f ReportForm) Total() int {
	return f.Counts().Sum()
}

func (f ReportForm) check() (models.Date, error) {
	if strings.TrimSpace(f.LocationID) == "" {
		return models.Date{}, invalid(SelectLocation)
	}
	d, err := models.ParseDate(strings.TrimSpace(f.Date))
	if err != nil {
		return models.Date{}, invalid("Please enter a valid date")
	}
	if !f.Counts().NonNegative() {
		return models.Date{}, invalid("Attendance counts cannot be negative")
	}
	if f.Tier != "" && !f.Tier.Valid() {
		return models.Date{}, invalid("Unknown tier %q", f.Tier)
	}
	return d, nil
}

// Input validates the add dialog.
func (f ReportForm) Input() (services.ReportInput, error) {
	d, err := f.check()
	if err != nil {
		return services.ReportInput{}, err
	}
	loc := strings.TrimSpace(f.LocationID)
	return services.ReportInput{Date: d, LocationID: &loc, Counts: f.Counts(), Tier: f.Tier}, nil
}

// Patch validates the edit dialog; every field is written back.
func (f ReportForm) Patch() (services.ReportPatch, error) {
	d, err := f.check()
	if err != nil {
		return services.ReportPatch{}, err
	}
	loc := strings.TrimSpace(f.LocationID)
	c := f.Counts()
	p := services.ReportPatch{Date: &d, LocationID: &loc, Counts: &c}
	if f.Tier != "" {
		t := f.Tier
		p.Tier = &t
	}
	return p, nil
}

// LocationForm is the add/edit location dialog and the quick-add picker.
type LocationForm struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Capacity    *int   `json:"capacity"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (f LocationForm) check() error {
	if strings.TrimSpace(f.Name) == "" {
		return invalid("Location name is required")
	}
	if f.Capacity != nil && *f.Capacity < 0 {
		return invalid("Capacity must be a positive number")
	}
	return nil
}

func (f LocationForm) Input() (services.LocationInput, error) {
	if err := f.check(); err != nil {
		return services.LocationInput{}, err
	}
	return services.LocationInput{
		Name:        f.Name,
		Address:     &f.Address,
		Capacity:    f.Capacity,
		Description: &f.Description,
		IsActive:    f.IsActive,
	}, nil
}

// Patch writes every field back; blank optional fields clear their column.
func (f LocationForm) Patch() (services.LocationPatch, error) {
	if err := f.check(); err != nil {
		return services.LocationPatch{}, err
	}
	capacity := 0
	if f.Capacity != nil {
		capacity = *f.Capacity
	}
	return services.LocationPatch{
		Name:        &f.Name,
		Address:     &f.Address,
		Capacity:    &capacity,
		Description: &f.Description,
		IsActive:    f.IsActive,
	}, nil
}
