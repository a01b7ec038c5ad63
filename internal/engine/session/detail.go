package session

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/map-harvest/harvest/internal/engine/extract"
	"github.com/map-harvest/harvest/pkg/models"
)

const (
	detailSettle = 2500 * time.Millisecond

	heroPhotoSel = `div.RZ66Rb button, button[jsaction*="heroHeaderImage"], button[aria-label*="fotoğraf"]`

	expandReviewSel = `button[aria-label*="Daha fazla"], button.w8nwRe`
)

// FetchBusiness opens a listing's detail page and walks its panels:
// overview, opening hours, gallery, menu and reviews. Optional panels
// that fail to load degrade to empty fields; a page without a name
// fails outright because nothing downstream can use it.
func (s *Session) FetchBusiness(ctx context.Context, cand models.Candidate) (*models.Business, error) {
	if err := s.navigate(ctx, cand.Link, detailSettle); err != nil {
		return nil, err
	}

	html, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	ov, err := extract.ParseOverview(html)
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}
	if ov.Name == "" {
		return nil, fmt.Errorf("detail page has no business name")
	}

	s.log.Debug().Str("name", ov.Name).Msg("overview extracted")

	if len(ov.OperatingHours) < extract.MinWeeklyRows {
		if hours := s.retryHours(); len(hours) > len(ov.OperatingHours) {
			ov.OperatingHours = hours
		}
	}

	if ov.ImageURL == "" {
		ov.ImageURL = s.retryPrimaryImage()
	}

	gallery := s.collectGallery(ctx, cand.Link)
	menu := s.collectMenu()
	reviews := s.collectReviews()

	return &models.Business{
		Name:               ov.Name,
		Rating:             ov.Rating,
		ReviewCount:        ov.ReviewCount,
		Address:            ov.Address,
		Phone:              ov.Phone,
		Website:            ov.Website,
		PriceInfo:          ov.PriceInfo,
		PriceReportedCount: ov.PriceReportedCount,
		OperatingHours:     ov.OperatingHours,
		ImageURL:           ov.ImageURL,
		GalleryImages:      extract.FilterPrimary(gallery, ov.ImageURL),
		Reviews:            reviews,
		MenuItems:          menu,
	}, nil
}

// retryHours opens the collapsed hours control and re-reads the weekly
// table. Lazy rendering gets a second, longer-delayed read before
// giving up.
func (s *Session) retryHours() []models.OpeningHours {
	if !s.clickIfPresent(extract.HoursControlSelector) {
		return nil
	}
	if !s.pause(1500 * time.Millisecond) {
		return nil
	}

	html, err := s.snapshot()
	if err != nil {
		return nil
	}
	hours := extract.ParseHoursTableHTML(html)
	if len(hours) >= extract.MinWeeklyRows {
		s.log.Debug().Int("rows", len(hours)).Msg("hours recovered after opening control")
		return hours
	}

	// Still short: the table can take a beat to hydrate.
	if !s.pause(2 * time.Second) {
		return hours
	}
	html, err = s.snapshot()
	if err != nil {
		return hours
	}
	if second := extract.ParseHoursTableHTML(html); len(second) > len(hours) {
		return second
	}
	return hours
}

// retryPrimaryImage waits out the lazy-load placeholder and re-reads
// the hero photo.
func (s *Session) retryPrimaryImage() string {
	if !s.pause(2 * time.Second) {
		return ""
	}
	html, err := s.snapshot()
	if err != nil {
		return ""
	}
	return extract.ParsePrimaryImageHTML(html)
}

// collectGallery opens the photo overlay, snapshots the tiles and
// closes it again. Whatever happens inside the overlay, the page is
// re-navigated afterwards: the overlay leaves tab state behind that
// breaks every later panel interaction.
func (s *Session) collectGallery(ctx context.Context, detailURL string) []string {
	var gallery []string

	if s.clickIfPresent(heroPhotoSel) {
		if s.pause(2 * time.Second) {
			if html, err := s.snapshot(); err == nil {
				gallery = extract.ParseGallery(html)
			}
		}
		s.sendEscape()
		s.pause(time.Second)
	}

	if err := s.navigate(ctx, detailURL, detailSettle); err != nil {
		s.log.Warn().Err(err).Msg("re-navigation after gallery failed")
	}

	if len(gallery) > 0 {
		s.log.Debug().Int("images", len(gallery)).Msg("gallery extracted")
	}
	return gallery
}

// collectMenu switches to the menu tab when the listing has one.
func (s *Session) collectMenu() []models.MenuItem {
	if !s.clickTab([]string{"Menü", "Menu"}, nil) {
		return nil
	}
	if !s.pause(2 * time.Second) {
		return nil
	}

	var menu []models.MenuItem
	if html, err := s.snapshot(); err == nil {
		menu = extract.ParseMenu(html)
	}

	s.openOverviewTab()
	return menu
}

// collectReviews switches to the reviews tab, expands the truncated
// texts and scrolls a page of them into view. An empty first read gets
// one retry; review blocks hydrate late on slow listings.
func (s *Session) collectReviews() []models.Review {
	// "Yorumlar" must not match the policy link of the same wording.
	if !s.clickTab([]string{"Yorumlar", "Reviews"}, []string{"hakkında", "about", "policy"}) {
		return nil
	}
	if !s.pause(2 * time.Second) {
		return nil
	}

	s.expandReviews()
	s.scrollReviews()

	reviews := rereadIfEmpty(s.readReviews, func() bool {
		if !s.pause(3 * time.Second) {
			return false
		}
		s.expandReviews()
		s.scrollReviews()
		return true
	})

	s.openOverviewTab()
	return reviews
}

// rereadIfEmpty returns the first read when it yields anything,
// otherwise settles and reads once more. A false settle (stop
// requested) skips the second read.
func rereadIfEmpty[T any](read func() []T, settle func() bool) []T {
	out := read()
	if len(out) > 0 {
		return out
	}
	if !settle() {
		return nil
	}
	return read()
}

// scrollReviews wheels the scrollable review pane down so blocks below
// the fold hydrate before the snapshot.
func (s *Session) scrollReviews() {
	script := `(() => {
		const panes = document.querySelectorAll('div[role="main"] div');
		for (const p of panes) {
			if (p.scrollHeight > p.clientHeight + 50) {
				p.scrollBy(0, 3000);
				return true;
			}
		}
		window.scrollBy(0, 3000);
		return false;
	})()`

	runCtx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	var scrolled bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &scrolled)); err != nil {
		s.log.Debug().Err(err).Msg("review scroll failed")
		return
	}
	s.pause(time.Second)
}

func (s *Session) readReviews() []models.Review {
	html, err := s.snapshot()
	if err != nil {
		return nil
	}
	return extract.ParseReviews(html)
}

// expandReviews clicks every visible "more" toggle so truncated review
// texts snapshot in full.
func (s *Session) expandReviews() {
	script := fmt.Sprintf(`(() => {
		let n = 0;
		for (const b of document.querySelectorAll(%q)) {
			b.click();
			n++;
		}
		return n;
	})()`, expandReviewSel)

	runCtx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	var clicked int
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &clicked)); err != nil {
		s.log.Debug().Err(err).Msg("review expansion failed")
		return
	}
	if clicked > 0 {
		s.pause(500 * time.Millisecond)
	}
}

// clickTab clicks the first tab whose label contains one of the wanted
// substrings and none of the excluded ones. Matching is
// locale-lowercased because the page mixes İ/I freely.
func (s *Session) clickTab(want, exclude []string) bool {
	script := fmt.Sprintf(`(() => {
		const want = %s.map(w => w.toLocaleLowerCase('tr'));
		const exclude = %s.map(w => w.toLocaleLowerCase('tr'));
		const tabs = document.querySelectorAll('button[role="tab"]');
		for (const t of tabs) {
			const label = ((t.getAttribute('aria-label') || '') + ' ' + (t.innerText || ''))
				.toLocaleLowerCase('tr');
			if (exclude.some(e => label.includes(e))) continue;
			if (want.some(w => label.includes(w))) {
				t.click();
				return true;
			}
		}
		return false;
	})()`, jsStringArray(want), jsStringArray(exclude))

	runCtx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	var clicked bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &clicked)); err != nil {
		s.log.Debug().Err(err).Strs("want", want).Msg("tab click failed")
		return false
	}
	return clicked
}

// openOverviewTab returns to the first tab so the next panel starts
// from a known state.
func (s *Session) openOverviewTab() {
	script := `(() => {
		const tab = document.querySelector('button[role="tab"]');
		if (!tab) return false;
		tab.click();
		return true;
	})()`

	runCtx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	var clicked bool
	_ = chromedp.Run(runCtx, chromedp.Evaluate(script, &clicked))
	if clicked {
		s.pause(time.Second)
	}
}

func jsStringArray(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	out := `["`
	for i, it := range items {
		if i > 0 {
			out += `","`
		}
		out += it
	}
	return out + `"]`
}
