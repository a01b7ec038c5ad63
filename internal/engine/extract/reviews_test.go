package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func reviewBlock(author, rating, text, when string) string {
	return fmt.Sprintf(`<div class="jftiEf">
	  <div class="d4r55">%s</div>
	  <span class="kvMYJc" aria-label="%s"></span>
	  <span class="wiI7pd">%s</span>
	  <span class="rsqaWe">%s</span>
	  <img class="NBa79c" src="https://lh3.googleusercontent.com/a/avatar">
	  <button style="background-image: url('https://lh3.googleusercontent.com/p/rev=w100')"></button>
	</div>`, author, rating, text, when)
}

func TestParseReviews(t *testing.T) {
	html := "<html><body>" +
		reviewBlock("Ayşe K.", "5 yıldız", "Harika bir mekan, kahvesi çok iyi.", "2 ay önce") +
		reviewBlock("Mehmet T.", "3 yıldız", "Ortalama.", "1 yıl önce") +
		"</body></html>"

	revs := ParseReviews(html)
	assert.Len(t, revs, 2)
	assert.Equal(t, "Ayşe K.", revs[0].Author)
	assert.Equal(t, 5, revs[0].Rating)
	assert.Equal(t, "2 ay önce", revs[0].Time)
	assert.Equal(t, "https://lh3.googleusercontent.com/a/avatar", revs[0].Avatar)
	assert.Equal(t, []string{"https://lh3.googleusercontent.com/p/rev=s1600"}, revs[0].Images)
}

func TestParseReviewsDedupBySignature(t *testing.T) {
	block := reviewBlock("Ayşe K.", "5 yıldız", "Harika bir mekan.", "2 ay önce")
	html := "<html><body>" + block + block + block + "</body></html>"

	revs := ParseReviews(html)
	assert.Len(t, revs, 1, "re-rendered rows must collapse on (author, text-prefix)")
}

func TestParseReviewsSkipsAnonymousEmpty(t *testing.T) {
	html := `<html><body>
	<div class="jftiEf"><span class="wiI7pd">text without author</span></div>
	<div class="jftiEf"><div class="d4r55">No Content</div></div>
	</body></html>`
	revs := ParseReviews(html)
	assert.Empty(t, revs)
}

func TestParseReviewsCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < ReviewLimit+3; i++ {
		b.WriteString(reviewBlock(fmt.Sprintf("Author %d", i), "4 yıldız", fmt.Sprintf("Review body %d", i), "dün"))
	}
	b.WriteString("</body></html>")

	revs := ParseReviews(b.String())
	assert.Len(t, revs, ReviewLimit)
}
