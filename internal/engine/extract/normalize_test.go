package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"  Cafe​ Luna  ", "Cafe Luna"},
		{"09:00–18:00", "09:00-18:00"},
		{"line\none\ttwo\r\n", "line one two"},
		{"a    b", "a b"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CleanText(c.in))
	}
}

func TestCleanTextStripsInvisibleRunes(t *testing.T) {
	in := "\uFEFFCafe​ Luna‎…"
	assert.Equal(t, "Cafe Luna", CleanText(in))
}

func TestStripLeadingKeepsPhonePrefix(t *testing.T) {
	assert.Equal(t, "+90 312 555 11 22", stripLeading(" +90 312 555 11 22"))
	assert.Equal(t, "Atatürk Bulvarı 1", stripLeading(": Atatürk Bulvarı 1"))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "cankaya", Slugify("Çankaya"))
	assert.Equal(t, "kafe", Slugify("Kafe"))
	assert.Equal(t, "yenisehir-mah", Slugify("Yenişehir  Mah."))
	assert.Equal(t, Slugify("Çankaya"), Slugify("Çankaya"))
}

func TestFingerprintIsPureAndTrimmed(t *testing.T) {
	a := Fingerprint("Cafe Luna", "Çankaya")
	b := Fingerprint("  Cafe Luna  ", "Çankaya ")
	assert.Equal(t, a, b, "fingerprint must only depend on trimmed name and district")
	assert.Len(t, a, 32)

	other := Fingerprint("Cafe Luna", "Keçiören")
	assert.NotEqual(t, a, other, "district must scope the identity")
}
