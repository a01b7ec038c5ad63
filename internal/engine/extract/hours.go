package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/map-harvest/harvest/pkg/models"
)

// HoursTableSelector matches the structured weekly table in any of the
// class variants the page has shipped. Exported so the session can wait
// on it after opening the hours control.
const HoursTableSelector = "table.eKPiq, table.y074mc, table.eK4R0e, .G86p4 table"

// HoursControlSelector matches the collapsed hours control that expands
// the weekly table when clicked.
const HoursControlSelector = `div[data-item-id="oh"], button[data-item-id="oh"], .t39OBd, .OMl5r`

// MinWeeklyRows is the plausibility floor for a parsed schedule. Fewer rows
// than this usually means the control was still lazy-rendering, so callers
// open it and re-read.
const MinWeeklyRows = 5

var dayTokens = []string{
	"Pazartesi", "Salı", "Çarşamba", "Perşembe", "Cuma", "Cumartesi", "Pazar",
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

var (
	dayTokenRe   = regexp.MustCompile(`(?i)(` + strings.Join(dayTokens, "|") + `)`)
	labelNoiseRe = regexp.MustCompile(`(?i)haftanın saatleri|Gizle|Göster|Hide|Show`)
	hoursTrimRe  = regexp.MustCompile(`^[-:,\s]+`)
)

// parseHoursFromDoc is the full fallback chain: structured table first, then
// the aria-label of the hours control.
func parseHoursFromDoc(doc *goquery.Document) []models.OpeningHours {
	if table := doc.Find(HoursTableSelector).First(); table.Length() > 0 {
		return ParseHoursTable(table)
	}
	control := doc.Find(HoursControlSelector).First()
	if control.Length() == 0 {
		return nil
	}
	return ParseHoursLabel(control.AttrOr("aria-label", ""))
}

// ParseHoursTable reads (day, hours) pairs row by row from the structured
// weekly table.
func ParseHoursTable(table *goquery.Selection) []models.OpeningHours {
	var out []models.OpeningHours
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		day := strings.TrimSpace(cells.First().Text())
		hours := strings.TrimSpace(cells.Last().Text())
		if day != "" && hours != "" && day != hours {
			out = append(out, models.OpeningHours{Day: day, Hours: hours})
		}
	})
	return out
}

// ParseHoursTableHTML is ParseHoursTable over a raw snapshot, used by the
// session's open-and-re-read retry.
func ParseHoursTableHTML(html string) []models.OpeningHours {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	table := doc.Find(HoursTableSelector).First()
	if table.Length() == 0 {
		return nil
	}
	return ParseHoursTable(table)
}

// ParseHoursLabel splits a full weekly schedule out of the hours control's
// aria-label by locating day-name tokens and cutting the label at each token
// boundary. Labels too short to hold a week are rejected outright.
func ParseHoursLabel(label string) []models.OpeningHours {
	if len(label) <= 20 || (!strings.Contains(label, ";") && !strings.Contains(label, ",")) {
		return nil
	}
	raw := strings.TrimSpace(labelNoiseRe.ReplaceAllString(label, ""))

	idx := dayTokenRe.FindAllStringIndex(raw, -1)
	if idx == nil {
		return nil
	}

	var out []models.OpeningHours
	for i, loc := range idx {
		end := len(raw)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		segment := strings.TrimSpace(raw[loc[0]:end])
		day := raw[loc[0]:loc[1]]
		hours := strings.TrimSpace(strings.TrimPrefix(segment, day))
		hours = hoursTrimRe.ReplaceAllString(hours, "")
		hours = strings.TrimSpace(strings.TrimSuffix(hours, ";"))
		if hours != "" {
			out = append(out, models.OpeningHours{Day: day, Hours: hours})
		}
	}
	return out
}
