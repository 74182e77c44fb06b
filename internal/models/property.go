package models

import (
	"strings"
	"time"
)

// Property is a listing managed from the back office
type Property struct {
	ID          uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug        string   `gorm:"type:varchar(255);not null;uniqueIndex:idx_properties_slug" json:"slug"`
	IsPublished bool     `gorm:"not null;default:false;index" json:"is_published"`
	DealType    DealType `gorm:"type:varchar(10);not null;default:'sale';index" json:"deal_type"`

	// Pricing
	Price      *float64   `gorm:"type:numeric(12,2)" json:"price,omitempty"`
	Currency   string     `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	RentPrice  *float64   `gorm:"type:numeric(12,2)" json:"rent_price,omitempty"`
	RentPeriod RentPeriod `gorm:"type:varchar(10)" json:"rent_period,omitempty"`

	// Characteristics
	Bedrooms      *int     `json:"bedrooms,omitempty"`
	Bathrooms     *int     `json:"bathrooms,omitempty"`
	PlotAreaM2    *float64 `gorm:"type:numeric(10,2)" json:"plot_area_m2,omitempty"`
	BuiltAreaM2   *float64 `gorm:"type:numeric(10,2)" json:"built_area_m2,omitempty"`
	TerraceAreaM2 *float64 `gorm:"type:numeric(10,2)" json:"terrace_area_m2,omitempty"`
	Location      string   `gorm:"type:varchar(120)" json:"location,omitempty"`
	PropertyType  string   `gorm:"type:varchar(40);index" json:"property_type,omitempty"`
	Condition     string   `gorm:"column:property_condition;type:varchar(20)" json:"condition,omitempty"`
	Floor         *int     `json:"floor,omitempty"`
	TotalFloors   *int     `json:"total_floors,omitempty"`

	DescriptionEn string         `gorm:"type:text" json:"description_en,omitempty"`
	DescriptionEs string         `gorm:"type:text" json:"description_es,omitempty"`
	Status        PropertyStatus `gorm:"type:varchar(20);not null;default:'available'" json:"status"`
	PlansURL      string         `gorm:"type:text" json:"plans_url,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Images       []PropertyImage       `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
	Translations []PropertyTranslation `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE" json:"translations,omitempty"`
}

// TableName specifies the table name for Property
func (Property) TableName() string {
	return "properties"
}

// DealType tells whether a listing is for sale or for rent
type DealType string

const (
	DealSale DealType = "sale"
	DealRent DealType = "rent"
)

// ParseDealType returns the deal type for s, or "" when s is not a known deal
func ParseDealType(s string) DealType {
	switch DealType(strings.ToLower(strings.TrimSpace(s))) {
	case DealSale:
		return DealSale
	case DealRent:
		return DealRent
	}
	return ""
}

// RentPeriod is the billing period of a rent price
type RentPeriod string

const (
	RentMonth RentPeriod = "month"
	RentWeek  RentPeriod = "week"
	RentDay   RentPeriod = "day"
)

// ParseRentPeriod returns the period for s, defaulting to month
func ParseRentPeriod(s string) RentPeriod {
	switch RentPeriod(strings.ToLower(strings.TrimSpace(s))) {
	case RentWeek:
		return RentWeek
	case RentDay:
		return RentDay
	}
	return RentMonth
}

// PropertyStatus is the commercial availability of a listing
type PropertyStatus string

const (
	PropertyStatusAvailable PropertyStatus = "available"
	PropertyStatusReserved  PropertyStatus = "reserved"
	PropertyStatusSold      PropertyStatus = "sold"
)

// ParsePropertyStatus returns the status for s, defaulting to available
func ParsePropertyStatus(s string) PropertyStatus {
	switch PropertyStatus(strings.ToLower(strings.TrimSpace(s))) {
	case PropertyStatusReserved:
		return PropertyStatusReserved
	case PropertyStatusSold:
		return PropertyStatusSold
	}
	return PropertyStatusAvailable
}

// Condition values
const (
	ConditionNewBuild = "new-build"
	ConditionResale   = "resale"
)

// IsRent reports whether the listing is offered for rent
func (p *Property) IsRent() bool {
	return p.DealType == DealRent
}

// IsNewBuild reports whether the condition describes a new build
func (p *Property) IsNewBuild() bool {
	return strings.Contains(strings.ToLower(p.Condition), "new")
}

// NormalizeRent clears rent fields on listings that are not for rent
func (p *Property) NormalizeRent() {
	if p.IsRent() {
		if p.RentPeriod == "" {
			p.RentPeriod = RentMonth
		}
		return
	}
	p.RentPrice = nil
	p.RentPeriod = ""
}

// Description returns the description in lang, falling back to the other language
func (p *Property) Description(lang string) string {
	if lang == "es" {
		if p.DescriptionEs != "" {
			return p.DescriptionEs
		}
		return p.DescriptionEn
	}
	if p.DescriptionEn != "" {
		return p.DescriptionEn
	}
	return p.DescriptionEs
}

// PropertyTranslation holds the localized title and summary of a listing
type PropertyTranslation struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID uint      `gorm:"not null;uniqueIndex:idx_property_translations_lang,priority:1" json:"property_id"`
	Lang       string    `gorm:"type:varchar(2);not null;uniqueIndex:idx_property_translations_lang,priority:2" json:"lang"`
	Title      string    `gorm:"type:varchar(200);not null" json:"title"`
	Summary    string    `gorm:"type:varchar(300)" json:"summary,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for PropertyTranslation
func (PropertyTranslation) TableName() string {
	return "property_translations"
}
