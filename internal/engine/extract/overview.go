package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/map-harvest/harvest/pkg/models"
)

// Overview holds the fields readable from the primary info panel of a detail
// page. Optional fields stay zero when no strategy matched.
type Overview struct {
	Name               string
	Rating             float64
	ReviewCount        int
	Address            string
	Phone              string
	Website            string
	PriceInfo          string
	PriceReportedCount int
	OperatingHours     []models.OpeningHours
	ImageURL           string
}

// LazyPlaceholder is the sentinel image the page serves before the real
// photo has rendered. Callers treat it as absent and retry.
const LazyPlaceholder = "cleardot.gif"

var reportedRe = regexp.MustCompile(`(?i)(\d+)\s+(?:kullanıcı bildirdi|users reported)`)

// textStrategy is one step of an ordered fallback chain: it either yields a
// value or defers to the next strategy.
type textStrategy func(doc *goquery.Document) (string, bool)

func firstMatch(doc *goquery.Document, chain ...textStrategy) string {
	for _, s := range chain {
		if v, ok := s(doc); ok {
			return v
		}
	}
	return ""
}

// ParseOverview reads the info panel out of a full detail-page snapshot.
// Missing fields never fail the parse; only the document itself can.
func ParseOverview(html string) (*Overview, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	ov := &Overview{
		Name:           CleanText(doc.Find("h1").First().Text()),
		Rating:         parseRating(doc),
		ReviewCount:    parseReviewCount(doc),
		Address:        parseAddress(doc),
		Phone:          stripLeading(CleanText(doc.Find(`button[data-item-id*="phone"], .RcC65b[data-item-id*="phone"]`).First().Text())),
		Website:        doc.Find(`a[data-item-id="authority"], .IT5z3c`).First().AttrOr("href", ""),
		PriceInfo:      parsePrice(doc),
		OperatingHours: parseHoursFromDoc(doc),
		ImageURL:       ParsePrimaryImage(doc),
	}

	if m := reportedRe.FindStringSubmatch(doc.Find("body").Text()); m != nil {
		ov.PriceReportedCount, _ = strconv.Atoi(m[1])
	}

	return ov, nil
}

// parseRating reads the headline rating. The value renders with a locale
// decimal comma, so both separators parse.
func parseRating(doc *goquery.Document) float64 {
	text := doc.Find(`div.F7nice span[aria-hidden="true"], .fontDisplayLarge, .TTX38c`).First().Text()
	if text == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(text), ",", ".", 1), 64)
	if err != nil || v < 0 || v > 5 {
		return 0
	}
	return v
}

// parseReviewCount prefers the count span next to the rating, skipping the
// rating's own aria-hidden label. The fallback reads a labeled review
// control but refuses anything that is really a star-rating label.
func parseReviewCount(doc *goquery.Document) int {
	count := 0
	doc.Find("div.F7nice span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.AttrOr("aria-hidden", "") == "true" {
			return true
		}
		if !strings.Contains(s.Text(), "(") {
			return true
		}
		if d := digitsOnly(s.Text()); d != "" {
			count, _ = strconv.Atoi(d)
			return false
		}
		return true
	})
	if count > 0 {
		return count
	}

	sel := doc.Find(`span[aria-label*="review"], span[aria-label*="yorum"], button[aria-label*="yorum"], button[aria-label*="review"]`).First()
	if sel.Length() == 0 {
		return 0
	}
	label := sel.AttrOr("aria-label", "")
	if label == "" {
		label = sel.Text()
	}
	lower := strings.ToLower(label)
	if strings.Contains(lower, "yıldız") || strings.Contains(lower, "star") {
		return 0
	}
	if d := digitsOnly(label); d != "" {
		count, _ = strconv.Atoi(d)
	}
	return count
}

var addressPrefix = regexp.MustCompile(`(?i)^adres[:\s]*`)

func parseAddress(doc *goquery.Document) string {
	addr := stripLeading(CleanText(doc.Find(`button[data-item-id="address"], .RcC65b[data-item-id="address"]`).First().Text()))
	return strings.TrimSpace(addressPrefix.ReplaceAllString(addr, ""))
}

// parsePrice walks three strategies: a short sibling of the rating block
// carrying the currency symbol, a price aria-label, then any short span
// with the symbol anywhere in the document.
func parsePrice(doc *goquery.Document) string {
	return firstMatch(doc,
		func(doc *goquery.Document) (string, bool) {
			found := ""
			doc.Find(".F7nice").First().Parent().Children().EachWithBreak(func(_ int, s *goquery.Selection) bool {
				t := strings.TrimSpace(s.Text())
				if strings.Contains(t, "₺") && len(t) < 20 {
					found = CleanText(t)
					return false
				}
				return true
			})
			return found, found != ""
		},
		func(doc *goquery.Document) (string, bool) {
			label := doc.Find(`span[aria-label*="Price"], span[aria-label*="Fiyat"], span[aria-label*="price"]`).First().AttrOr("aria-label", "")
			if label == "" {
				return "", false
			}
			if i := strings.LastIndex(label, ":"); i >= 0 {
				label = label[i+1:]
			}
			return CleanText(label), true
		},
		func(doc *goquery.Document) (string, bool) {
			found := ""
			doc.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				t := strings.TrimSpace(s.Text())
				if strings.Contains(t, "₺") && len(t) < 15 {
					found = CleanText(t)
					return false
				}
				return true
			})
			return found, found != ""
		},
	)
}

// ParsePrimaryImage reads the hero photo URL from the photo region. The
// known lazy-load placeholder counts as absent so the caller can retry.
func ParsePrimaryImage(doc *goquery.Document) string {
	src := ""
	doc.Find(`button[data-value="Photo"] img, div[role="region"] img, img[src*="googleusercontent.com/p/"]`).
		EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v := s.AttrOr("src", ""); v != "" {
				src = v
				return false
			}
			return true
		})
	if strings.Contains(src, LazyPlaceholder) {
		return ""
	}
	return src
}

// ParsePrimaryImageHTML is ParsePrimaryImage over a raw snapshot, used
// when re-reading the page after waiting out a lazy placeholder.
func ParsePrimaryImageHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return ParsePrimaryImage(doc)
}
