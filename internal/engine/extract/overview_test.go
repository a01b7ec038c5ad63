package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailFixture = `<!DOCTYPE html>
<html><body>
<h1> Cafe  Luna </h1>
<div class="wrapper">
  <div class="F7nice">
    <span aria-hidden="true">4,6</span>
    <span>(128)</span>
  </div>
  <span>₺₺</span>
</div>
<button data-item-id="address">Adres: Tunalı Hilmi Cad. No:5, Çankaya</button>
<button data-item-id="phone:tel">+90 312 555 11 22</button>
<a data-item-id="authority" href="https://cafeluna.example"></a>
<div data-item-id="oh" aria-label="Pazartesi 09:00-22:00; Salı 09:00-22:00; Çarşamba 09:00-22:00; Perşembe 09:00-22:00; Cuma 09:00-23:00; Cumartesi 10:00-23:00; Pazar Kapalı; Haftanın saatleri Gizle"></div>
<div role="region"><img src="https://lh3.googleusercontent.com/p/abc123=w408"></div>
<p>12 kullanıcı bildirdi</p>
</body></html>`

func TestParseOverview(t *testing.T) {
	ov, err := ParseOverview(detailFixture)
	require.NoError(t, err)

	assert.Equal(t, "Cafe Luna", ov.Name)
	assert.InDelta(t, 4.6, ov.Rating, 0.001)
	assert.Equal(t, 128, ov.ReviewCount)
	assert.Equal(t, "Tunalı Hilmi Cad. No:5, Çankaya", ov.Address)
	assert.Equal(t, "+90 312 555 11 22", ov.Phone)
	assert.Equal(t, "https://cafeluna.example", ov.Website)
	assert.Equal(t, "₺₺", ov.PriceInfo)
	assert.Equal(t, 12, ov.PriceReportedCount)
	assert.Equal(t, "https://lh3.googleusercontent.com/p/abc123=w408", ov.ImageURL)
	assert.Len(t, ov.OperatingHours, 7)
	assert.Equal(t, "Pazartesi", ov.OperatingHours[0].Day)
	assert.Equal(t, "09:00-22:00", ov.OperatingHours[0].Hours)
	assert.Equal(t, "Kapalı", ov.OperatingHours[6].Hours)
}

func TestParseOverviewNoName(t *testing.T) {
	ov, err := ParseOverview(`<html><body><div>nothing here</div></body></html>`)
	require.NoError(t, err)
	assert.Empty(t, ov.Name, "missing name must surface as empty, not error")
	assert.Zero(t, ov.Rating)
	assert.Zero(t, ov.ReviewCount)
}

func TestReviewCountIgnoresStarLabel(t *testing.T) {
	// The only labeled element is the star-rating label itself; it must not
	// be mistaken for a review count.
	html := `<html><body>
	<h1>Place</h1>
	<span aria-label="4,6 yıldız">4,6</span>
	</body></html>`
	ov, err := ParseOverview(html)
	require.NoError(t, err)
	assert.Zero(t, ov.ReviewCount)
}

func TestReviewCountFallbackLabel(t *testing.T) {
	html := `<html><body>
	<h1>Place</h1>
	<button aria-label="79 yorum">Yorumlar</button>
	</body></html>`
	ov, err := ParseOverview(html)
	require.NoError(t, err)
	assert.Equal(t, 79, ov.ReviewCount)
}

func TestPrimaryImageLazyPlaceholder(t *testing.T) {
	html := `<html><body><h1>P</h1>
	<div role="region"><img src="https://maps.gstatic.com/cleardot.gif"></div>
	</body></html>`
	ov, err := ParseOverview(html)
	require.NoError(t, err)
	assert.Empty(t, ov.ImageURL, "placeholder counts as absent so the session retries")
}

func TestParseRatingDotDecimal(t *testing.T) {
	html := `<html><body><h1>P</h1>
	<div class="F7nice"><span aria-hidden="true">4.2</span><span>(7)</span></div>
	</body></html>`
	ov, err := ParseOverview(html)
	require.NoError(t, err)
	assert.InDelta(t, 4.2, ov.Rating, 0.001)
	assert.Equal(t, 7, ov.ReviewCount)
}
