package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// GalleryLimit caps how many gallery URLs one business keeps.
const GalleryLimit = 4

var bgImageRe = regexp.MustCompile(`url\(['"]?([^'")]+)['"]?\)`)

// CanonicalImageURL normalizes a hosted photo URL to its high-resolution
// variant by dropping any size suffix.
func CanonicalImageURL(raw, size string) string {
	base := raw
	if i := strings.Index(raw, "="); i >= 0 {
		base = raw[:i]
	}
	return base + "=" + size
}

// ParseGallery collects photo URLs from an opened gallery snapshot. Three
// DOM shapes are tried in order: anchor-wrapped background tiles, direct
// image elements, then any element with an inline background-image. Results
// are canonicalized, deduplicated, and capped at GalleryLimit.
func ParseGallery(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var urls []string

	doc.Find("a.MIgS0d").Each(func(_ int, a *goquery.Selection) {
		a.Find(`div[style*="background-image"]`).Each(func(_ int, div *goquery.Selection) {
			urls = appendBackgroundURL(urls, div.AttrOr("style", ""), "googleusercontent.com")
		})
		urls = appendBackgroundURL(urls, a.AttrOr("style", ""), "googleusercontent.com")
	})

	if len(urls) == 0 {
		doc.Find(`img[src*="googleusercontent.com/p/"]`).Each(func(_ int, img *goquery.Selection) {
			src := img.AttrOr("src", "")
			if src != "" && !strings.Contains(src, LazyPlaceholder) {
				urls = append(urls, CanonicalImageURL(src, "s1600"))
			}
		})
	}

	if len(urls) == 0 {
		doc.Find(`div[style*="background-image"]`).Each(func(_ int, div *goquery.Selection) {
			urls = appendBackgroundURL(urls, div.AttrOr("style", ""), "googleusercontent.com/p/")
		})
	}

	seen := make(map[string]struct{}, len(urls))
	out := urls[:0]
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if len(out) == GalleryLimit {
			break
		}
	}
	return out
}

// FilterPrimary drops the hero image from a gallery list so the primary
// photo is not stored twice, comparing base URLs without size suffixes.
func FilterPrimary(gallery []string, primary string) []string {
	if primary == "" {
		return gallery
	}
	base := primary
	if i := strings.Index(primary, "="); i >= 0 {
		base = primary[:i]
	}
	out := make([]string, 0, len(gallery))
	for _, u := range gallery {
		ub := u
		if i := strings.Index(u, "="); i >= 0 {
			ub = u[:i]
		}
		if ub != base {
			out = append(out, u)
		}
	}
	return out
}

func appendBackgroundURL(urls []string, style, hostHint string) []string {
	m := bgImageRe.FindStringSubmatch(style)
	if m == nil || !strings.Contains(m[1], hostHint) {
		return urls
	}
	return append(urls, CanonicalImageURL(m[1], "s1600"))
}
