package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/map-harvest/harvest/pkg/models"
)

// ParseCandidates reads the deduplicated (detail-link, name) pairs out of a
// result-feed snapshot. Identical links collapse to one entry, preserving
// first-seen order.
func ParseCandidates(html string) []models.Candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []models.Candidate
	seen := make(map[string]struct{})

	doc.Find(`a[href*="/maps/place/"]`).Each(func(_ int, a *goquery.Selection) {
		link := a.AttrOr("href", "")
		if link == "" {
			return
		}

		var name string
		if container := a.Closest(".Nv26el"); container.Length() > 0 {
			name = container.Find(".qBF1Pd").First().Text()
		} else {
			// Without a card ancestor only the anchor's siblings may
			// name it; searching wider would adopt another listing's name.
			name = a.Parent().ChildrenFiltered(".qBF1Pd").First().Text()
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		out = append(out, models.Candidate{Link: link, Name: name})
	})

	return out
}
