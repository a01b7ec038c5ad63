package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/map-harvest/harvest/internal/engine/extract"
	"github.com/map-harvest/harvest/pkg/models"
)

const (
	searchURLFormat  = "https://www.google.com/maps/search/%s?hl=tr"
	resultAnchorSel  = `a[href*="/maps/place/"]`
	resultsFeedSel   = `div[role="feed"]`
	scrollSettleWait = 1200 * time.Millisecond
)

// DiscoverListings runs the search query, scrolls the results feed to
// the bottom and returns every unique listing candidate found.
func (s *Session) DiscoverListings(ctx context.Context, query string) ([]models.Candidate, error) {
	target := fmt.Sprintf(searchURLFormat, url.PathEscape(query))
	s.log.Info().Str("query", query).Msg("discovering listings")

	if err := s.navigate(ctx, target, 2*time.Second); err != nil {
		return nil, err
	}

	// A query with a single strong match skips the results feed and
	// lands directly on the detail page.
	if loc, err := s.location(); err == nil && strings.Contains(loc, "/maps/place/") {
		return s.directHit(loc)
	}

	if err := s.waitForResults(); err != nil {
		return nil, err
	}

	if err := s.scrollFeed(); err != nil {
		return nil, err
	}

	html, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	candidates := extract.ParseCandidates(html)
	s.log.Info().Str("query", query).Int("candidates", len(candidates)).Msg("discovery complete")
	return candidates, nil
}

// directHit builds a single candidate from a detail page the search
// redirected straight into.
func (s *Session) directHit(loc string) ([]models.Candidate, error) {
	html, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	ov, err := extract.ParseOverview(html)
	if err != nil || ov.Name == "" {
		return nil, nil
	}
	s.log.Info().Str("name", ov.Name).Msg("single result, direct detail hit")
	return []models.Candidate{{Link: loc, Name: ov.Name}}, nil
}

// waitForResults polls for the first listing anchor. No anchor within
// the window means zero results, which is a valid outcome, not an error.
func (s *Session) waitForResults() error {
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		if s.opts.Stopped() {
			return context.Canceled
		}
		var present bool
		runCtx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		err := chromedp.Run(runCtx,
			chromedp.Evaluate(fmt.Sprintf(`!!document.querySelector(%q)`, resultAnchorSel), &present))
		cancel()
		if err != nil {
			return fmt.Errorf("probe results: %w", err)
		}
		if present {
			return nil
		}
		if !s.pause(time.Second) {
			return context.Canceled
		}
	}
	s.log.Warn().Msg("no listing anchors appeared")
	return nil
}

// scrollFeed drives the results feed to the bottom with a
// settle-then-confirm loop: after each scroll it waits for lazy content,
// and only a height reading that is stable across a second check counts
// as the end of the list.
func (s *Session) scrollFeed() error {
	lastHeight := -1
	for i := 0; i < s.opts.MaxScrolls; i++ {
		if s.opts.Stopped() {
			return context.Canceled
		}

		height, err := s.scrollOnce()
		if err != nil {
			return err
		}
		if height < 0 {
			// No feed container; single-column or short result layouts
			// render without one.
			return nil
		}

		if !s.pause(scrollSettleWait) {
			return context.Canceled
		}

		if height == lastHeight {
			// Confirm: give slow tiles one more chance to extend it.
			if !s.pause(scrollSettleWait) {
				return context.Canceled
			}
			confirm, err := s.scrollOnce()
			if err != nil {
				return err
			}
			if confirm == height {
				s.log.Debug().Int("scrolls", i+1).Msg("feed height stable, end of results")
				return nil
			}
			lastHeight = confirm
			continue
		}
		lastHeight = height
	}
	s.log.Debug().Int("scrolls", s.opts.MaxScrolls).Msg("scroll cap reached")
	return nil
}

// scrollOnce scrolls the feed to its bottom and returns the resulting
// scrollHeight, or -1 when there is no feed container.
func (s *Session) scrollOnce() (int, error) {
	script := fmt.Sprintf(`(() => {
		const feed = document.querySelector(%q);
		if (!feed) return -1;
		feed.scrollTo(0, feed.scrollHeight);
		return feed.scrollHeight;
	})()`, resultsFeedSel)

	runCtx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	var height int
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &height)); err != nil {
		return 0, fmt.Errorf("scroll feed: %w", err)
	}
	return height, nil
}
