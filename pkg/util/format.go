package util

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration renders d the way video sites do: "3:07", "1:02:03".
// Zero or negative durations render as an empty string.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

var dateTplReplacer = strings.NewReplacer(
	"YYYY", "2006",
	"YY", "06",
	"MM", "01",
	"DD", "02",
	"hh", "15",
	"mm", "04",
	"ss", "05",
)

// FormatDateTpl formats t using YYYY, YY, MM, DD, hh, mm and ss
// placeholders, e.g. "YYYY-MM-DD hh:mm". A zero time renders as "".
func FormatDateTpl(t time.Time, tpl string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTplReplacer.Replace(tpl))
}
