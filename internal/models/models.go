package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tier is the colour classification shown on a report.
type Tier string

const (
	TierPurple Tier = "purple"
	TierGreen  Tier = "green"
	TierYellow Tier = "yellow"
	TierOrange Tier = "orange"
	TierRed    Tier = "red"
	TierBlue   Tier = "blue"
	TierGray   Tier = "gray"
)

// Tiers lists every valid tier in display order.
var Tiers = []Tier{TierPurple, TierGreen, TierYellow, TierOrange, TierRed, TierBlue, TierGray}

func (t Tier) Valid() bool {
	for _, v := range Tiers {
		if t == v {
			return true
		}
	}
	return false
}

type Location struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string  `gorm:"not null;index" json:"name"`
	Address     *string `json:"address"`
	Capacity    *int    `json:"capacity"`
	Description *string `json:"description"`
	IsActive    bool    `gorm:"not null;index" json:"is_active"`
	CreatedBy   *string `gorm:"type:text;index" json:"created_by"`
}

func (l *Location) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// Counts are the seven attendance categories recorded per report.
type Counts struct {
	SV1   int `gorm:"column:sv1;not null" json:"sv1"`
	SV2   int `gorm:"column:sv2;not null" json:"sv2"`
	YXP   int `gorm:"column:yxp;not null" json:"yxp"`
	Kids  int `gorm:"column:kids;not null" json:"kids"`
	Local int `gorm:"column:local;not null" json:"local"`
	HC1   int `gorm:"column:hc1;not null" json:"hc1"`
	HC2   int `gorm:"column:hc2;not null" json:"hc2"`
}

// Sum is what the store computes into total_attendance.
func (c Counts) Sum() int {
	return c.SV1 + c.SV2 + c.YXP + c.Kids + c.Local + c.HC1 + c.HC2
}

// NonNegative reports whether every counter is >= 0.
func (c Counts) NonNegative() bool {
	for _, v := range []int{c.SV1, c.SV2, c.YXP, c.Kids, c.Local, c.HC1, c.HC2} {
		if v < 0 {
			return false
		}
	}
	return true
}

// AttendanceReport is one day's numbers for one location.
// TotalAttendance is a generated column; gorm never writes it.
type AttendanceReport struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Date       Date      `gorm:"type:text;not null" json:"date"`
	LocationID *string   `gorm:"type:text" json:"location_id"`
	Location   *Location `gorm:"foreignKey:LocationID" json:"location,omitempty"`

	Counts
	Tier            Tier `gorm:"type:text;not null" json:"tier"`
	TotalAttendance int  `gorm:"->" json:"total_attendance"`
}

func (r *AttendanceReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// LocationName returns the joined location name, or "" when the reference is gone.
func (r AttendanceReport) LocationName() string {
	if r.Location == nil {
		return ""
	}
	return r.Location.Name
}
