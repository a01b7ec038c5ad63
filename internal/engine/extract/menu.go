package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/map-harvest/harvest/pkg/models"
)

// MenuLimit caps how many menu items one business keeps.
const MenuLimit = 10

// Generic "photo N of M" tiles carry no dish name and are skipped.
var menuPlaceholderRe = regexp.MustCompile(`^(?:Fotoğraf|Photo) \d+`)

// ParseMenu extracts (name, image) pairs from an opened menu-tab snapshot.
func ParseMenu(html string) []models.MenuItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []models.MenuItem
	doc.Find(".K4UgGe").EachWithBreak(func(_ int, btn *goquery.Selection) bool {
		if len(out) >= MenuLimit {
			return false
		}
		name := strings.TrimSpace(btn.AttrOr("aria-label", ""))
		src := btn.Find("img").First().AttrOr("src", "")
		if name == "" || menuPlaceholderRe.MatchString(name) || !strings.Contains(src, "googleusercontent.com") {
			return true
		}
		out = append(out, models.MenuItem{
			Name:     name,
			ImageURL: CanonicalImageURL(src, "s800"),
		})
		return true
	})
	return out
}
