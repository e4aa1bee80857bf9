package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"
	"gorm.io/gorm"

	"github.com/lojf/garage/internal/models"
)

// ReportFilter drives the report list and the metrics aggregate.
// It is a plain value so it can be compared and used in cache keys.
type ReportFilter struct {
	Preset   DatePreset
	From     models.Date // custom-range only
	To       models.Date // custom-range only
	Tier     string      // "" or "all" means every tier
	Page     int
	PageSize int
}

// Normalize folds equivalent filters onto one value.
func (f ReportFilter) Normalize() ReportFilter {
	if f.Preset == "" {
		f.Preset = PresetAll
	}
	if f.Preset != PresetCustomRange {
		f.From, f.To = models.Date{}, models.Date{}
	}
	if f.Tier == "" {
		f.Tier = "all"
	}
	if f.Page <= 0 || f.PageSize <= 0 {
		f.Page, f.PageSize = 0, 0
	}
	return f
}

// DatesOnly drops tier and paging; the aggregate ignores both.
func (f ReportFilter) DatesOnly() ReportFilter {
	return ReportFilter{Preset: f.Preset, From: f.From, To: f.To}.Normalize()
}

// Unpaged drops paging; the dashboard slices pages itself.
func (f ReportFilter) Unpaged() ReportFilter {
	f.Page, f.PageSize = 0, 0
	return f.Normalize()
}

func (f ReportFilter) Key() string {
	n := f.Normalize()
	return fmt.Sprintf("date=%s;from=%s;to=%s;tier=%s;page=%d;size=%d",
		n.Preset, n.From, n.To, n.Tier, n.Page, n.PageSize)
}

// ReportInput is what callers may write; total_attendance is not among it.
type ReportInput struct {
	Date       models.Date `json:"date"`
	LocationID *string     `json:"location_id"`
	models.Counts
	Tier models.Tier `json:"tier"`
}

// ReportPatch updates only the fields that are set.
// An empty LocationID clears the reference.
type ReportPatch struct {
	Date       *models.Date
	LocationID *string
	Counts     *models.Counts
	Tier       *models.Tier
}

type ReportPage struct {
	Reports []models.AttendanceReport `json:"data"`
	Count   int64                     `json:"count"`
}

// Metrics are per-category sums over a date range.
type Metrics struct {
	SV1     int64 `gorm:"column:sv1" json:"sv1"`
	SV2     int64 `gorm:"column:sv2" json:"sv2"`
	YXP     int64 `gorm:"column:yxp" json:"yxp"`
	Kids    int64 `gorm:"column:kids" json:"kids"`
	Local   int64 `gorm:"column:local" json:"local"`
	HC1     int64 `gorm:"column:hc1" json:"hc1"`
	HC2     int64 `gorm:"column:hc2" json:"hc2"`
	Overall int64 `gorm:"column:overall" json:"overall"`
}

type AttendanceService struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

func NewAttendanceService(gdb *gorm.DB, loc *time.Location) *AttendanceService {
	return &AttendanceService{db: gdb, loc: loc, now: time.Now}
}

// Today is the current calendar day in the service's time zone.
func (s *AttendanceService) Today() models.Date {
	return models.DateOf(s.now().In(s.loc))
}

// Range resolves the filter's preset against Today.
func (s *AttendanceService) Range(f ReportFilter) (DateRange, bool) {
	return ResolvePreset(f.Preset, DateRange{From: f.From, To: f.To}, s.Today())
}

func (s *AttendanceService) dateScope(f ReportFilter) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if r, ok := s.Range(f); ok {
			tx = tx.Where("attendance_reports.date BETWEEN ? AND ?", r.From, r.To)
		}
		return tx
	}
}

func tierScope(f ReportFilter) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if f.Tier != "" && f.Tier != "all" {
			tx = tx.Where("attendance_reports.tier = ?", f.Tier)
		}
		return tx
	}
}

func preloadLocation(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Location", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "name", "address")
	})
}

// List returns matching reports, newest first, and the unpaged match count.
func (s *AttendanceService) List(ctx context.Context, f ReportFilter) (*ReportPage, error) {
	f = f.Normalize()
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.AttendanceReport{}).
			Scopes(s.dateScope(f), tierScope(f))
	}

	var count int64
	if err := base().Count(&count).Error; err != nil {
		return nil, err
	}

	q := base().Scopes(preloadLocation).Order("attendance_reports.date desc, attendance_reports.created_at desc")
	if f.Page > 0 && f.PageSize > 0 {
		q = q.Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize)
	}

	reports := []models.AttendanceReport{}
	if err := q.Find(&reports).Error; err != nil {
		return nil, err
	}
	return &ReportPage{Reports: reports, Count: count}, nil
}

// Get loads one report with its location.
func (s *AttendanceService) Get(ctx context.Context, id string) (*models.AttendanceReport, error) {
	var r models.AttendanceReport
	err := s.db.WithContext(ctx).Scopes(preloadLocation).First(&r, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func validCounts(c models.Counts) error {
	if !c.NonNegative() {
		return invalid("attendance counts cannot be negative")
	}
	return nil
}

// Create inserts a report and returns it as stored, total included.
func (s *AttendanceService) Create(ctx context.Context, in ReportInput) (*models.AttendanceReport, error) {
	if in.Date.IsZero() {
		return nil, invalid("date is required")
	}
	if err := validCounts(in.Counts); err != nil {
		return nil, err
	}
	if in.Tier == "" {
		in.Tier = models.TierGray
	}
	if !in.Tier.Valid() {
		return nil, invalid(fmt.Sprintf("unknown tier %q", in.Tier))
	}

	r := models.AttendanceReport{
		Date:       in.Date,
		LocationID: in.LocationID,
		Counts:     in.Counts,
		Tier:       in.Tier,
	}
	if err := s.db.WithContext(ctx).Omit("Location").Create(&r).Error; err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"id": r.ID, "date": r.Date.String()}).Info("attendance report created")
	return s.Get(ctx, r.ID)
}

// Update applies p to report id and returns the stored result.
func (s *AttendanceService) Update(ctx context.Context, id string, p ReportPatch) (*models.AttendanceReport, error) {
	m := map[string]any{}
	if p.Date != nil {
		if p.Date.IsZero() {
			return nil, invalid("date is required")
		}
		m["date"] = *p.Date
	}
	if p.LocationID != nil {
		if *p.LocationID == "" {
			m["location_id"] = nil
		} else {
			m["location_id"] = *p.LocationID
		}
	}
	if p.Counts != nil {
		if err := validCounts(*p.Counts); err != nil {
			return nil, err
		}
		c := *p.Counts
		m["sv1"], m["sv2"], m["yxp"], m["kids"] = c.SV1, c.SV2, c.YXP, c.Kids
		m["local"], m["hc1"], m["hc2"] = c.Local, c.HC1, c.HC2
	}
	if p.Tier != nil {
		if !p.Tier.Valid() {
			return nil, invalid(fmt.Sprintf("unknown tier %q", *p.Tier))
		}
		m["tier"] = string(*p.Tier)
	}
	if len(m) == 0 {
		return s.Get(ctx, id)
	}

	res := s.db.WithContext(ctx).Model(&models.AttendanceReport{}).Where("id = ?", id).Updates(m)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	log.WithField("id", id).Info("attendance report updated")
	return s.Get(ctx, id)
}

// Delete removes report id. Deleting a missing id is not an error.
func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.AttendanceReport{}).Error; err != nil {
		return err
	}
	log.WithField("id", id).Info("attendance report deleted")
	return nil
}

// Aggregate sums each category over the filter's date range; tier and
// paging are ignored. An empty range yields all zeros.
func (s *AttendanceService) Aggregate(ctx context.Context, f ReportFilter) (*Metrics, error) {
	f = f.DatesOnly()
	var m Metrics
	err := s.db.WithContext(ctx).Model(&models.AttendanceReport{}).
		Scopes(s.dateScope(f)).
		Select(`COALESCE(SUM(sv1), 0) AS sv1,
		        COALESCE(SUM(sv2), 0) AS sv2,
		        COALESCE(SUM(yxp), 0) AS yxp,
		        COALESCE(SUM(kids), 0) AS kids,
		        COALESCE(SUM("local"), 0) AS "local",
		        COALESCE(SUM(hc1), 0) AS hc1,
		        COALESCE(SUM(hc2), 0) AS hc2,
		        COALESCE(SUM(total_attendance), 0) AS overall`).
		Scan(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}
