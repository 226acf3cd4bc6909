package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeFine(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		returned time.Time
		want     float64
	}{
		{name: "early", returned: due.AddDate(0, 0, -2), want: 0},
		{name: "on time", returned: due, want: 0},
		{name: "one hour late", returned: due.Add(time.Hour), want: 5},
		{name: "exactly one day late", returned: due.AddDate(0, 0, 1), want: 5},
		{name: "three days and a bit", returned: due.AddDate(0, 0, 3).Add(time.Minute), want: 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeFine(due, tt.returned, 5))
		})
	}
}

func TestIssue_SetOverdue(t *testing.T) {
	now := time.Now().UTC()
	returned := now.Add(-time.Hour)

	late := Issue{Status: StatusIssued, DueDate: now.Add(-24 * time.Hour)}
	late.SetOverdue(now)
	assert.Equal(t, StatusOverdue, late.Status)

	onTime := Issue{Status: StatusIssued, DueDate: now.Add(24 * time.Hour)}
	onTime.SetOverdue(now)
	assert.Equal(t, StatusIssued, onTime.Status)

	back := Issue{Status: StatusReturned, DueDate: now.Add(-48 * time.Hour), ReturnedAt: &returned}
	back.SetOverdue(now)
	assert.Equal(t, StatusReturned, back.Status)
}
