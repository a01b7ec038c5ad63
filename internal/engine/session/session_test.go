package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSStringArray(t *testing.T) {
	assert.Equal(t, "[]", jsStringArray(nil))
	assert.Equal(t, `["Menü"]`, jsStringArray([]string{"Menü"}))
	assert.Equal(t, `["Yorumlar","Reviews"]`, jsStringArray([]string{"Yorumlar", "Reviews"}))
}

func TestRereadIfEmptyRetriesOnce(t *testing.T) {
	reads := 0
	out := rereadIfEmpty(func() []string {
		reads++
		if reads == 1 {
			return nil
		}
		return []string{"hydrated late"}
	}, func() bool { return true })

	assert.Equal(t, 2, reads, "an empty first read gets exactly one retry")
	assert.Equal(t, []string{"hydrated late"}, out)
}

func TestRereadIfEmptyKeepsFirstNonEmptyRead(t *testing.T) {
	reads := 0
	settled := false
	out := rereadIfEmpty(func() []int {
		reads++
		return []int{1, 2}
	}, func() bool { settled = true; return true })

	assert.Equal(t, 1, reads)
	assert.False(t, settled, "no settle wait when the first read succeeds")
	assert.Equal(t, []int{1, 2}, out)
}

func TestRereadIfEmptyHonorsAbortedSettle(t *testing.T) {
	reads := 0
	out := rereadIfEmpty(func() []string {
		reads++
		return nil
	}, func() bool { return false })

	assert.Equal(t, 1, reads, "an aborted settle skips the second read")
	assert.Nil(t, out)
}

func TestIsExecutableRejectsMissingPath(t *testing.T) {
	assert.False(t, isExecutable("/nonexistent/chrome"))
	assert.False(t, isExecutable("/tmp"))
}
