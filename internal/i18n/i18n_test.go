package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "es", Normalize(" ES "))
	assert.Equal(t, "en", Normalize("fr"))
	assert.Equal(t, "en", Normalize(""))
}

func TestNegotiate(t *testing.T) {
	assert.Equal(t, "es", Negotiate("es", "en-GB,en;q=0.9"), "cookie wins")
	assert.Equal(t, "es", Negotiate("", "es-ES,es;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", Negotiate("de", "en-US"))
	assert.Equal(t, "en", Negotiate("", ""))
	assert.Equal(t, "en", Negotiate("", "ja-JP"))
}

func TestT(t *testing.T) {
	assert.Equal(t, "En alquiler", T("es", "deal.rent"))
	assert.Equal(t, "For rent", T("xx", "deal.rent"))
	assert.Equal(t, "missing.key", T("es", "missing.key"))
}
