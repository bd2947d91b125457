package assistant

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/peraluna/trip-planner-api/internal/domain"
)

var optionsBlockRe = regexp.MustCompile("(?s)```options\\s*(.*?)```")

// Option is one selectable card proposed by the assistant. Price is the display string,
// e.g. "$1,287/person"; numeric prices are accepted and kept in their decimal form.
type Option struct {
	ID       string          `json:"id"`
	Type     domain.ItemType `json:"type"`
	Title    string          `json:"title"`
	Subtitle string          `json:"subtitle"`
	Price    string          `json:"price"`
	Details  []string        `json:"details"`
	Tag      string          `json:"tag,omitempty"`
	Nights   *int            `json:"nights,omitempty"`
}

func (o *Option) UnmarshalJSON(b []byte) error {
	type plain Option
	var raw struct {
		plain
		Price json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*o = Option(raw.plain)
	o.Price = priceText(raw.Price)
	return nil
}

func priceText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

// Message is assistant output split around its options block.
// Options is nil when there is no block or it does not parse.
type Message struct {
	Before  string   `json:"before"`
	Options []Option `json:"options,omitempty"`
	After   string   `json:"after"`
}

// ParseMessage extracts the first options block from content. Malformed blocks degrade to
// plain text: the whole content is returned in Before.
func ParseMessage(content string) Message {
	loc := optionsBlockRe.FindStringSubmatchIndex(content)
	if loc == nil {
		return Message{Before: content}
	}
	var opts []Option
	if err := json.Unmarshal([]byte(strings.TrimSpace(content[loc[2]:loc[3]])), &opts); err != nil {
		return Message{Before: content}
	}
	return Message{
		Before:  strings.TrimSpace(content[:loc[0]]),
		Options: opts,
		After:   strings.TrimSpace(content[loc[1]:]),
	}
}
