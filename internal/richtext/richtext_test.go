package richtext

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Sea views and a private pool", PlainText("  Sea views\n and a   private pool "))
	assert.Equal(t, "Bright villa Three bedrooms Pool",
		PlainText("<p>Bright <b>villa</b></p><ul><li>Three bedrooms</li><li>Pool</li></ul>"))
	assert.Equal(t, "Tom & Jerry", PlainText("Tom &amp; Jerry"))
	assert.Equal(t, "visible", PlainText("<script>alert(1)</script><style>p{}</style>visible"))
}

func TestExcerpt(t *testing.T) {
	text := "Stunning frontline villa with panoramic sea views in Marbella"
	assert.Equal(t, text, Excerpt(text, 200))

	short := Excerpt(text, 30)
	assert.Equal(t, "Stunning frontline villa with…", short)
	assert.LessOrEqual(t, utf8.RuneCountInString(short), 31)

	assert.Equal(t, "Ático…", Excerpt("Áticoconvistas", 5))
}
