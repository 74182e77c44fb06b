// Package i18n negotiates the site language and holds the small set of UI
// strings the API returns alongside data.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Default is the language used when nothing else matches
const Default = "en"

// Supported lists the site languages in matcher order
var Supported = []string{"en", "es"}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Spanish})

// IsSupported reports whether lang is one of the site languages
func IsSupported(lang string) bool {
	for _, l := range Supported {
		if l == lang {
			return true
		}
	}
	return false
}

// Normalize returns lang when supported and Default otherwise
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if IsSupported(lang) {
		return lang
	}
	return Default
}

// Negotiate picks the language from the lang cookie first, then the
// Accept-Language header.
func Negotiate(cookie, acceptLanguage string) string {
	if c := strings.ToLower(strings.TrimSpace(cookie)); IsSupported(c) {
		return c
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Default
	}
	return Supported[idx]
}

var dictionary = map[string]map[string]string{
	"en": {
		"deal.all":         "All",
		"deal.sale":        "For sale",
		"deal.rent":        "For rent",
		"status.available": "Available",
		"status.reserved":  "Reserved",
		"status.sold":      "Sold",
		"badge.new":        "New build",
		"lead.sent":        "Thank you! We will contact you shortly.",
		"lead.failed":      "Something went wrong. Please try again.",
		"lead.limited":     "Too many requests. Please try again later.",
		"not_found":        "Property not found",
	},
	"es": {
		"deal.all":         "Todos",
		"deal.sale":        "En venta",
		"deal.rent":        "En alquiler",
		"status.available": "Disponible",
		"status.reserved":  "Reservado",
		"status.sold":      "Vendido",
		"badge.new":        "Obra nueva",
		"lead.sent":        "¡Gracias! Nos pondremos en contacto contigo en breve.",
		"lead.failed":      "Algo salió mal. Inténtalo de nuevo.",
		"lead.limited":     "Demasiadas solicitudes. Inténtalo más tarde.",
		"not_found":        "Propiedad no encontrada",
	},
}

// T returns the UI string for key in lang, falling back to English and
// finally to the key itself.
func T(lang, key string) string {
	if s, ok := dictionary[Normalize(lang)][key]; ok {
		return s
	}
	if s, ok := dictionary[Default][key]; ok {
		return s
	}
	return key
}
