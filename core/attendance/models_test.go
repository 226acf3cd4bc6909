package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats_Add(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     Stats
	}{
		{name: "no record", want: Stats{}},
		{name: "all excused", statuses: []string{StatusExcused, StatusExcused}, want: Stats{Total: 2, Excused: 2}},
		{
			name:     "late counts as attended",
			statuses: []string{StatusPresent, StatusLate, StatusAbsent},
			want:     Stats{Total: 3, Present: 1, Late: 1, Absent: 1, Percentage: 66.7},
		},
		{
			name:     "excused days are not counted",
			statuses: []string{StatusPresent, StatusAbsent, StatusExcused},
			want:     Stats{Total: 3, Present: 1, Absent: 1, Excused: 1, Percentage: 50},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Stats
			for _, st := range tt.statuses {
				s.Add(st)
			}
			assert.Equal(t, tt.want, s)
		})
	}
}
