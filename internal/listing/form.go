package listing

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Input is the editable state of a listing as submitted by the admin form
type Input struct {
	Slug        string
	IsPublished bool
	DealType    string
	Status      string

	Price      *float64
	Currency   string
	RentPrice  *float64
	RentPeriod string

	Bedrooms      *int
	Bathrooms     *int
	PlotAreaM2    *float64
	BuiltAreaM2   *float64
	TerraceAreaM2 *float64
	Location      string
	PropertyType  string
	Condition     string
	Floor         *int
	TotalFloors   *int

	TitleEn       string
	TitleEs       string
	SummaryEn     string
	SummaryEs     string
	DescriptionEn string
	DescriptionEs string

	FeatureIDs []uint
}

// ParseForm reads the admin property form. Numeric fields left blank stay nil.
func ParseForm(form url.Values) Input {
	get := func(key string) string { return strings.TrimSpace(form.Get(key)) }

	in := Input{
		Slug:          get("slug"),
		IsPublished:   form.Get("isPublished") == "on",
		DealType:      get("dealType"),
		Status:        get("status"),
		Price:         ParseDecimal(form.Get("price")),
		Currency:      get("currency"),
		RentPrice:     ParseDecimal(form.Get("rentPrice")),
		RentPeriod:    get("rentPeriod"),
		Bedrooms:      ParseInt(form.Get("bedrooms")),
		Bathrooms:     ParseInt(form.Get("bathrooms")),
		PlotAreaM2:    ParseDecimal(form.Get("plotAreaM2")),
		BuiltAreaM2:   ParseDecimal(form.Get("builtAreaM2")),
		TerraceAreaM2: ParseDecimal(form.Get("terraceAreaM2")),
		Location:      get("location"),
		PropertyType:  get("propertyType"),
		Condition:     get("condition"),
		Floor:         ParseInt(form.Get("floor")),
		TotalFloors:   ParseInt(form.Get("totalFloors")),
		TitleEn:       get("titleEn"),
		TitleEs:       get("titleEs"),
		SummaryEn:     get("summaryEn"),
		SummaryEs:     get("summaryEs"),
		DescriptionEn: get("descriptionEn"),
		DescriptionEs: get("descriptionEs"),
	}

	seen := make(map[uint]bool)
	for _, raw := range form["features"] {
		id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil || id == 0 || seen[uint(id)] {
			continue
		}
		seen[uint(id)] = true
		in.FeatureIDs = append(in.FeatureIDs, uint(id))
	}
	return in
}

// ParseDecimal parses s accepting either "." or "," as decimal separator
func ParseDecimal(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParseInt parses a whole number, returning nil for blank or invalid input
func ParseInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
