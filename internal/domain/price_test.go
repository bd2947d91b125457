package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	cases := map[string]int64{
		"$1,287/person":         1287,
		"$45/night":             45,
		"free":                  0,
		"":                      0,
		"From $2,450 per night": 2450,
		"1200":                  1200,
		"$89.99":                89,
		", $5 each":             5,
		"approx. 12,000,000":    12000000,
		"$99999999999999999999": 0,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParsePrice(in), "ParsePrice(%q)", in)
	}
}
