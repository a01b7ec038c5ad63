package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHoursTableHTML(t *testing.T) {
	html := `<html><body><table class="eKPiq">
	<tr><td>Pazartesi</td><td>09:00-22:00</td></tr>
	<tr><td>Salı</td><td>09:00-22:00</td></tr>
	<tr><td>Pazar</td><td>Kapalı</td></tr>
	</table></body></html>`

	rows := ParseHoursTableHTML(html)
	assert.Len(t, rows, 3)
	assert.Equal(t, "Pazartesi", rows[0].Day)
	assert.Equal(t, "Kapalı", rows[2].Hours)
}

func TestParseHoursTableHTMLVariantClass(t *testing.T) {
	html := `<html><body><div class="G86p4"><table>
	<tr><td>Monday</td><td>9 AM-5 PM</td></tr>
	</table></div></body></html>`
	rows := ParseHoursTableHTML(html)
	assert.Len(t, rows, 1)
	assert.Equal(t, "Monday", rows[0].Day)
}

func TestParseHoursLabel(t *testing.T) {
	label := "Pazartesi 09:00-22:00; Salı 09:00-22:00; Çarşamba Kapalı; Perşembe 09:00-22:00; Cuma 09:00-23:00; Cumartesi 10:00-23:00; Pazar Kapalı"
	rows := ParseHoursLabel(label)
	assert.Len(t, rows, 7)
	assert.Equal(t, "Salı", rows[1].Day)
	assert.Equal(t, "09:00-22:00", rows[1].Hours)
	assert.Equal(t, "Kapalı", rows[2].Hours)
}

func TestParseHoursLabelEnglish(t *testing.T) {
	label := "Monday 9 AM to 5 PM, Tuesday 9 AM to 5 PM, Wednesday Closed, Thursday 9 AM to 5 PM, Friday 9 AM to 5 PM, Saturday 10 AM to 4 PM, Sunday Closed. Hide open hours"
	rows := ParseHoursLabel(label)
	assert.Len(t, rows, 7)
	assert.Equal(t, "Wednesday", rows[2].Day)
}

func TestParseHoursLabelRejectsShort(t *testing.T) {
	assert.Nil(t, ParseHoursLabel("Açık"))
	assert.Nil(t, ParseHoursLabel(""))
	// Long enough but no separator: a prose label, not a schedule.
	assert.Nil(t, ParseHoursLabel("open twenty four hours a day"))
}
