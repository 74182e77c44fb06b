package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEnums(t *testing.T) {
	assert.Equal(t, DealRent, ParseDealType(" RENT "))
	assert.Equal(t, DealSale, ParseDealType("sale"))
	assert.Equal(t, DealType(""), ParseDealType("all"))

	assert.Equal(t, RentWeek, ParseRentPeriod("week"))
	assert.Equal(t, RentMonth, ParseRentPeriod("fortnight"))

	assert.Equal(t, PropertyStatusSold, ParsePropertyStatus("Sold"))
	assert.Equal(t, PropertyStatusAvailable, ParsePropertyStatus(""))
}

func TestNormalizeRent(t *testing.T) {
	rent := 1500.0
	p := Property{DealType: DealSale, RentPrice: &rent, RentPeriod: RentWeek}
	p.NormalizeRent()
	assert.Nil(t, p.RentPrice)
	assert.Empty(t, p.RentPeriod)

	p = Property{DealType: DealRent, RentPrice: &rent}
	p.NormalizeRent()
	assert.Equal(t, &rent, p.RentPrice)
	assert.Equal(t, RentMonth, p.RentPeriod)
}

func TestIsNewBuild(t *testing.T) {
	assert.True(t, (&Property{Condition: "new-build"}).IsNewBuild())
	assert.True(t, (&Property{Condition: "Brand NEW"}).IsNewBuild())
	assert.False(t, (&Property{Condition: "resale"}).IsNewBuild())
}

func TestDescriptionFallsBack(t *testing.T) {
	p := Property{DescriptionEn: "Sea views"}
	assert.Equal(t, "Sea views", p.Description("es"))

	p.DescriptionEs = "Vistas al mar"
	assert.Equal(t, "Vistas al mar", p.Description("es"))
	assert.Equal(t, "Sea views", p.Description("en"))
}

func TestGetNextRetryDelay(t *testing.T) {
	assert.Equal(t, 5*time.Minute, GetNextRetryDelay(0))
	assert.Equal(t, time.Hour, GetNextRetryDelay(2))
	assert.Equal(t, 12*time.Hour, GetNextRetryDelay(99))
}
