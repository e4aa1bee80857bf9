package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lojf/garage/internal/auth"
	"github.com/lojf/garage/internal/models"
)

const searchLimit = 10

// LocationFilter narrows the settings list. A nil Active matches both.
type LocationFilter struct {
	Search string
	Active *bool
}

func (f LocationFilter) Key() string {
	active := "any"
	if f.Active != nil {
		active = fmt.Sprint(*f.Active)
	}
	return fmt.Sprintf("search=%s;active=%s", strings.TrimSpace(f.Search), active)
}

type LocationWithUsage struct {
	models.Location
	UsageCount int64        `json:"usage_count"`
	LastUsed   *models.Date `json:"last_used"`
}

type LocationInput struct {
	Name        string  `json:"name"`
	Address     *string `json:"address"`
	Capacity    *int    `json:"capacity"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// LocationPatch updates only the fields that are set. Empty strings and a
// zero capacity clear the optional columns.
type LocationPatch struct {
	Name        *string `json:"name"`
	Address     *string `json:"address"`
	Capacity    *int    `json:"capacity"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type UsageReport struct {
	Date            models.Date `json:"date"`
	TotalAttendance int         `json:"total_attendance"`
}

type UsageStats struct {
	TotalReports      int           `json:"total_reports"`
	TotalAttendance   int           `json:"total_attendance"`
	AverageAttendance int           `json:"average_attendance"`
	LastUsed          *models.Date  `json:"last_used"`
	Recent            []UsageReport `json:"recent"`
}

type LocationService struct {
	db *gorm.DB
}

func NewLocationService(gdb *gorm.DB) *LocationService {
	return &LocationService{db: gdb}
}

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

func byName(tx *gorm.DB) *gorm.DB {
	return tx.Order("name COLLATE NOCASE asc, id asc")
}

func nameLike(q string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(q))
	}
}

// List returns locations by name with usage counts attached.
func (s *LocationService) List(ctx context.Context, f LocationFilter) ([]LocationWithUsage, error) {
	q := s.db.WithContext(ctx).Model(&models.Location{}).Scopes(byName)
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if strings.TrimSpace(f.Search) != "" {
		q = q.Scopes(nameLike(f.Search))
	}

	var locs []models.Location
	if err := q.Find(&locs).Error; err != nil {
		return nil, err
	}

	out := make([]LocationWithUsage, 0, len(locs))
	if len(locs) == 0 {
		return out, nil
	}

	// Single grouped query instead of one COUNT per location.
	ids := make([]string, len(locs))
	for i, l := range locs {
		ids[i] = l.ID
	}
	type usageRow struct {
		LocationID string
		Uses       int64
		LastUsed   string
	}
	var rows []usageRow
	if err := s.db.WithContext(ctx).Table("attendance_reports").
		Select("location_id, COUNT(*) AS uses, MAX(date) AS last_used").
		Where("location_id IN ?", ids).
		Group("location_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	usage := make(map[string]usageRow, len(rows))
	for _, r := range rows {
		usage[r.LocationID] = r
	}

	for _, l := range locs {
		lw := LocationWithUsage{Location: l}
		if u, ok := usage[l.ID]; ok {
			lw.UsageCount = u.Uses
			if d, err := models.ParseDate(u.LastUsed); err == nil {
				lw.LastUsed = &d
			}
		}
		out = append(out, lw)
	}
	return out, nil
}

// ListActive feeds location pickers; no usage counts.
func (s *LocationService) ListActive(ctx context.Context) ([]models.Location, error) {
	locs := []models.Location{}
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Scopes(byName).Find(&locs).Error
	if err != nil {
		return nil, err
	}
	return locs, nil
}

// Search matches active locations by name, at most ten.
func (s *LocationService) Search(ctx context.Context, query string) ([]models.Location, error) {
	locs := []models.Location{}
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Scopes(nameLike(query), byName).
		Limit(searchLimit).
		Find(&locs).Error
	if err != nil {
		return nil, err
	}
	return locs, nil
}

func (s *LocationService) Get(ctx context.Context, id string) (*models.Location, error) {
	var l models.Location
	if err := s.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// UsageStats summarises every report that references location id.
func (s *LocationService) UsageStats(ctx context.Context, id string) (*UsageStats, error) {
	var reports []UsageReport
	err := s.db.WithContext(ctx).Model(&models.AttendanceReport{}).
		Select("date, total_attendance").
		Where("location_id = ?", id).
		Order("date desc, created_at desc").
		Scan(&reports).Error
	if err != nil {
		return nil, err
	}

	st := &UsageStats{TotalReports: len(reports), Recent: []UsageReport{}}
	for _, r := range reports {
		st.TotalAttendance += r.TotalAttendance
	}
	if st.TotalReports > 0 {
		avg := decimal.NewFromInt(int64(st.TotalAttendance)).
			Div(decimal.NewFromInt(int64(st.TotalReports))).
			Round(0)
		st.AverageAttendance = int(avg.IntPart())
		last := reports[0].Date
		st.LastUsed = &last
		n := len(reports)
		if n > 5 {
			n = 5
		}
		st.Recent = reports[:n]
	}
	return st, nil
}

func trimOptional(p *string) *string {
	if p == nil {
		return nil
	}
	t := strings.TrimSpace(*p)
	if t == "" {
		return nil
	}
	return &t
}

func validCapacity(c *int) (*int, error) {
	if c == nil || *c == 0 {
		return nil, nil
	}
	if *c < 0 {
		return nil, invalid("capacity must be a positive number")
	}
	return c, nil
}

// Create stores a location and stamps it with the acting user, if any.
func (s *LocationService) Create(ctx context.Context, sess *auth.Session, in LocationInput) (*models.Location, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("location name is required")
	}
	capacity, err := validCapacity(in.Capacity)
	if err != nil {
		return nil, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	l := models.Location{
		Name:        name,
		Address:     trimOptional(in.Address),
		Capacity:    capacity,
		Description: trimOptional(in.Description),
		IsActive:    active,
		CreatedBy:   sess.UserIDPtr(),
	}
	if err := s.db.WithContext(ctx).Create(&l).Error; err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"id": l.ID, "name": l.Name}).Info("location created")
	return &l, nil
}

// Update applies p to location id and returns the stored result.
func (s *LocationService) Update(ctx context.Context, id string, p LocationPatch) (*models.Location, error) {
	m := map[string]any{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, invalid("location name is required")
		}
		m["name"] = name
	}
	if p.Address != nil {
		m["address"] = trimOptional(p.Address)
	}
	if p.Description != nil {
		m["description"] = trimOptional(p.Description)
	}
	if p.Capacity != nil {
		c, err := validCapacity(p.Capacity)
		if err != nil {
			return nil, err
		}
		m["capacity"] = c
	}
	if p.IsActive != nil {
		m["is_active"] = *p.IsActive
	}
	if len(m) == 0 {
		return s.Get(ctx, id)
	}

	res := s.db.WithContext(ctx).Model(&models.Location{}).Where("id = ?", id).Updates(m)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	log.WithField("id", id).Info("location updated")
	return s.Get(ctx, id)
}

// Delete hard-deletes location id. The store's ON DELETE SET NULL clears
// location_id on every report that pointed at it.
func (s *LocationService) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Location{}).Error; err != nil {
		log.WithError(err).WithField("id", id).Error("delete location")
		return err
	}
	log.WithField("id", id).Info("location deleted")
	return nil
}
