package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"  Kuala   Lumpur ", "kuala lumpur"},
		{"W.P...Labuan", "w.p.labuan"},
		{"K.L. (WP)", "k.l. wp"},
		{"Pulau\tPínang", "pulau pinang"},
		{"Johor, Darul Ta'zim!", "johor darul tazim"},
		{"Seremban-2", "seremban-2"},
		{"a ( b", "a b"},
		{"x.(.y", "x.y"},
		{"吉隆坡", ""},
		{"Kuala Lumpur 吉隆坡", "kuala lumpur"},
		{"Straße\u00a0Alor", "strasse alor"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.in))
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	inputs := []string{
		"", "WILAYAH  PERSEKUTUAN  KUALA LUMPUR", "k..l..", " . . ", "Bdr. Sunway",
		"Ñame—with ümlauts", "tab\tand\nnewline", "(((", "a.-.b", "Kg.Baru", "  -- ",
	}
	for _, in := range inputs {
		once := Canonicalize(in)
		assert.Equal(t, once, Canonicalize(once), "input %q", in)
	}
}
