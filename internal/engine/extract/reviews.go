package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/map-harvest/harvest/pkg/models"
)

// ReviewLimit caps how many review snapshots one pass keeps.
const ReviewLimit = 5

var reviewRatingRe = regexp.MustCompile(`(\d+)`)

// ParseReviews extracts review snapshots from a loaded reviews-tab snapshot.
// Duplicate blocks (the list re-renders rows while lazy-loading) collapse on
// an (author, text-prefix) signature.
func ParseReviews(html string) []models.Review {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []models.Review
	seen := make(map[string]struct{})

	doc.Find("div.jftiEf").EachWithBreak(func(_ int, block *goquery.Selection) bool {
		if len(out) >= ReviewLimit {
			return false
		}

		author := CleanText(block.Find(`.d4r55, .X43Kjb, .al6Kxe, .TSUbDb, .W67Drf, .f0S8F, [class*="author"]`).First().Text())
		if author == "" {
			author = CleanText(block.Find(`button div[class*="font"]`).First().Text())
		}

		rating := 0
		ratingEl := block.Find(`span.kvMYJc, span[aria-label*="yıldız"], span[aria-label*="star"], span.kvS7H, .kx8fBe, [aria-label*="/5"]`).First()
		ratingStr := ratingEl.AttrOr("aria-label", "")
		if ratingStr == "" {
			ratingStr = ratingEl.Text()
		}
		if m := reviewRatingRe.FindStringSubmatch(ratingStr); m != nil {
			rating, _ = strconv.Atoi(m[1])
		}

		text := CleanText(block.Find(`.wiI7pd, .MyEned > span, .wiW3ob, .MyVUIb, .K70oRd, .content`).First().Text())
		when := CleanText(block.Find(`.rsqaWe, .xRkHEb, .P87Y0b, .OD9uAe`).First().Text())
		avatar := block.Find(`img.NBa79, img.NBa79c, img[src*="googleusercontent.com/a/"], .WEBjve img`).First().AttrOr("src", "")

		var images []string
		block.Find(`button[style*="background-image"], a.mYFivd[style*="background-image"], .Tya61d`).Each(func(_ int, el *goquery.Selection) {
			if m := bgImageRe.FindStringSubmatch(el.AttrOr("style", "")); m != nil {
				images = append(images, CanonicalImageURL(m[1], "s1600"))
			}
		})

		prefix := text
		if len(prefix) > 10 {
			prefix = prefix[:10]
		}
		signature := author + "-" + prefix

		if author == "" || (text == "" && rating == 0) {
			return true
		}
		if _, dup := seen[signature]; dup {
			return true
		}
		seen[signature] = struct{}{}

		out = append(out, models.Review{
			Author: author,
			Rating: rating,
			Text:   text,
			Time:   when,
			Avatar: avatar,
			Images: images,
		})
		return true
	})

	return out
}
