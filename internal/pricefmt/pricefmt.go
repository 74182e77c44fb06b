// Package pricefmt renders listing prices for the en and es sites.
package pricefmt

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is used when a listing has no valid currency code
const DefaultCurrency = "EUR"

var printers = map[string]*message.Printer{
	"en": message.NewPrinter(language.BritishEnglish),
	"es": message.NewPrinter(language.MustParse("es-ES")),
}

var symbols = map[string]string{
	"EUR": "€",
	"GBP": "£",
	"USD": "US$",
}

var rentSuffixes = map[string]map[string]string{
	"en": {"month": " / month", "week": " / week", "day": " / day"},
	"es": {"month": " / mes", "week": " / semana", "day": " / día"},
}

// PriceOnRequest returns the localized text shown for listings without a price
func PriceOnRequest(lang string) string {
	if lang == "es" {
		return "Precio bajo consulta"
	}
	return "Price on Request"
}

// NormalizeCurrency upper-cases code, keeps its first three letters and falls
// back to EUR when the result is not an ISO 4217 code.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) > 3 {
		code = code[:3]
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return DefaultCurrency
	}
	return unit.String()
}

// FormatMoney formats value with 0 decimals in the conventions of lang
// (en-GB "€1,250,000", es-ES "1.250.000 €"). Spanish amounts below 10000
// are not grouped ("1250 €").
func FormatMoney(lang string, value *float64, code string) string {
	if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
		return PriceOnRequest(lang)
	}
	code = NormalizeCurrency(code)

	p, ok := printers[lang]
	if !ok {
		lang = "en"
		p = printers[lang]
	}
	n := int64(math.Round(*value))
	amount := p.Sprintf("%d", n)
	if lang == "es" && n > -10000 && n < 10000 {
		amount = strconv.FormatInt(n, 10)
	}

	sym, known := symbols[code]
	if lang == "es" {
		if !known {
			sym = code
		}
		return amount + " " + sym
	}
	if !known {
		return code + " " + amount
	}
	return sym + amount
}

// FormatRent formats a rent price followed by its localized period suffix
func FormatRent(lang string, value *float64, code, period string) string {
	if value == nil {
		return PriceOnRequest(lang)
	}
	suffixes, ok := rentSuffixes[lang]
	if !ok {
		suffixes = rentSuffixes["en"]
	}
	return FormatMoney(lang, value, code) + suffixes[period]
}

// Display picks the rent branch for rent listings and the sale price otherwise
func Display(lang, dealType string, salePrice, rentPrice *float64, code, rentPeriod string) string {
	if dealType == "rent" {
		return FormatRent(lang, rentPrice, code, rentPeriod)
	}
	return FormatMoney(lang, salePrice, code)
}
