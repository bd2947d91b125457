package domain

import (
	"regexp"
	"strconv"
	"strings"
)

var priceRe = regexp.MustCompile(`\$?(\d[\d,]*)`)

// ParsePrice extracts the first comma-grouped digit run from an assistant-authored price
// such as "$1,287/person". Anything unparseable yields 0.
func ParsePrice(s string) int64 {
	m := priceRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
