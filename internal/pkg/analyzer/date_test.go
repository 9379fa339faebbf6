package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_resolveDeadline(t *testing.T) {
	now := time.Date(2023, 3, 15, 14, 30, 0, 0, time.UTC) // Wednesday
	d := func(y int, m time.Month, day int) *time.Time {
		res := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
		return &res
	}
	tests := []struct {
		name string
		args string
		want *time.Time
	}{
		{name: "Empty", args: "", want: nil},
		{name: "Null", args: "null", want: nil},
		{name: "None", args: "NONE", want: nil},
		{name: "No deadline", args: "no deadline", want: nil},
		{name: "ISO", args: "2023-04-01", want: d(2023, 4, 1)},
		{name: "ISO spaces", args: " 2023-04-01 ", want: d(2023, 4, 1)},
		{name: "RFC3339", args: "2023-04-01T10:00:00Z", want: d(2023, 4, 1)},
		{name: "Dots", args: "2023.04.01", want: d(2023, 4, 1)},
		{name: "Slashes", args: "2023/04/01", want: d(2023, 4, 1)},
		{name: "Long month", args: "April 1, 2023", want: d(2023, 4, 1)},
		{name: "Short month", args: "Apr 1, 2023", want: d(2023, 4, 1)},
		{name: "Day first", args: "1 April 2023", want: d(2023, 4, 1)},
		{name: "Today", args: "today", want: d(2023, 3, 15)},
		{name: "Tomorrow", args: "Tomorrow", want: d(2023, 3, 16)},
		{name: "Next week", args: "next week", want: d(2023, 3, 22)},
		{name: "In days", args: "in 3 days", want: d(2023, 3, 18)},
		{name: "In one day", args: "in 1 day", want: d(2023, 3, 16)},
		{name: "In weeks", args: "in 2 weeks", want: d(2023, 3, 29)},
		{name: "Next friday", args: "next Friday", want: d(2023, 3, 17)},
		{name: "Next wednesday", args: "next wednesday", want: d(2023, 3, 22)},
		{name: "Next monday", args: "next monday", want: d(2023, 3, 20)},
		{name: "Garbage", args: "when pigs fly", want: nil},
		{name: "Unknown weekday", args: "next someday", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveDeadline(tt.args, now)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}
