package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// consentLabels are the accept-button captions the wall ships per
// locale. Matching is case-insensitive on a prefix basis.
var consentLabels = []string{
	"Tümünü kabul et",
	"Kabul et",
	"Accept all",
	"I agree",
	"Alle akzeptieren",
	"Tout accepter",
}

// acceptConsent clears the cookie consent wall when present, in either
// of its two shapes: a redirect to the dedicated consent host, or an
// inline dialog over the map. Absence is not an error.
func (s *Session) acceptConsent() error {
	url, err := s.location()
	if err != nil {
		return nil
	}

	inline := strings.Contains(url, "consent.google.com")
	if !inline {
		// Cheap probe for the inline dialog before running the click
		// script on every navigation.
		var hasDialog bool
		probeCtx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		err := chromedp.Run(probeCtx,
			chromedp.Evaluate(`!!document.querySelector('form[action*="consent"], div[aria-modal="true"] button')`, &hasDialog))
		cancel()
		if err != nil || !hasDialog {
			return nil
		}
	}

	s.log.Info().Str("url", url).Msg("consent wall detected")

	clicked := s.clickConsentButton()
	if !clicked {
		// A wall we cannot clear blocks every subsequent parse.
		return fmt.Errorf("consent wall could not be dismissed")
	}

	if !s.pause(2 * time.Second) {
		return context.Canceled
	}
	return nil
}

// clickConsentButton walks every button on the page and clicks the
// first whose caption or aria-label starts with a known accept label.
func (s *Session) clickConsentButton() bool {
	labels := `["` + strings.Join(consentLabels, `","`) + `"]`
	script := fmt.Sprintf(`(() => {
		const labels = %s.map(l => l.toLocaleLowerCase('tr'));
		const buttons = document.querySelectorAll('button, input[type="submit"]');
		for (const b of buttons) {
			const text = ((b.innerText || b.value || '') + ' ' + (b.getAttribute('aria-label') || ''))
				.trim().toLocaleLowerCase('tr');
			if (labels.some(l => text.startsWith(l))) {
				b.click();
				return true;
			}
		}
		return false;
	})()`, labels)

	runCtx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	var clicked bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &clicked)); err != nil {
		s.log.Debug().Err(err).Msg("consent click failed")
		return false
	}
	return clicked
}
