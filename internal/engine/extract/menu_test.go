package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMenu(t *testing.T) {
	html := `<html><body>
	<button class="K4UgGe" aria-label="Mantı"><img src="https://lh3.googleusercontent.com/p/m1=w200"></button>
	<button class="K4UgGe" aria-label="Fotoğraf 3"><img src="https://lh3.googleusercontent.com/p/m2=w200"></button>
	<button class="K4UgGe" aria-label="Photo 12/40"><img src="https://lh3.googleusercontent.com/p/m3=w200"></button>
	<button class="K4UgGe" aria-label="Künefe"><img src="https://lh3.googleusercontent.com/p/m4=w200"></button>
	<button class="K4UgGe" aria-label="No Image Dish"></button>
	</body></html>`

	items := ParseMenu(html)
	assert.Len(t, items, 2, "photo-N placeholders and imageless tiles are excluded")
	assert.Equal(t, "Mantı", items[0].Name)
	assert.Equal(t, "https://lh3.googleusercontent.com/p/m1=s800", items[0].ImageURL)
	assert.Equal(t, "Künefe", items[1].Name)
}
