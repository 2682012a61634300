package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                                         "",
		-time.Second:                              "",
		7 * time.Second:                           "0:07",
		3*time.Minute + 7*time.Second:             "3:07",
		time.Hour + 2*time.Minute + 3*time.Second: "1:02:03",
		1500 * time.Millisecond:                   "0:02",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatDuration(in), in.String())
	}
}

func TestFormatDateTpl(t *testing.T) {
	ts := time.Date(2023, 11, 10, 8, 5, 0, 0, time.UTC)
	assert.Equal(t, "2023.11.10", FormatDateTpl(ts, "YYYY.MM.DD"))
	assert.Equal(t, "10/11/23 08:05", FormatDateTpl(ts, "DD/MM/YY hh:mm"))
	assert.Equal(t, "", FormatDateTpl(time.Time{}, "YYYY"))
}
