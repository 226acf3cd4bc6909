package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
)

func TestCheckEntries(t *testing.T) {
	tests := []struct {
		name      string
		entries   []Entry
		wantField string
	}{
		{name: "empty"},
		{
			name: "back to back",
			entries: []Entry{
				{Day: "Monday", StartTime: "09:00", EndTime: "10:00", Subject: "Math"},
				{Day: "Monday", StartTime: "08:00", EndTime: "09:00", Subject: "Physics"},
			},
		},
		{
			name: "same time on different days",
			entries: []Entry{
				{Day: "Tuesday", StartTime: "08:00", EndTime: "09:00", Subject: "Math"},
				{Day: "Monday", StartTime: "08:00", EndTime: "09:00", Subject: "Math"},
			},
		},
		{
			name: "overlap",
			entries: []Entry{
				{Day: "Monday", StartTime: "08:00", EndTime: "09:30", Subject: "Math"},
				{Day: "Monday", StartTime: "09:00", EndTime: "10:00", Subject: "Physics"},
			},
			wantField: "entries",
		},
		{
			name: "ends before it starts",
			entries: []Entry{
				{Day: "Monday", StartTime: "08:00", EndTime: "09:00", Subject: "Math"},
				{Day: "Monday", StartTime: "11:00", EndTime: "10:00", Subject: "Physics"},
			},
			wantField: "entries[1].end_time",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckEntries(tt.entries)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
		})
	}
}

func TestSortEntries(t *testing.T) {
	entries := []Entry{
		{Day: "Wednesday", StartTime: "08:00"},
		{Day: "Monday", StartTime: "10:00"},
		{Day: "Monday", StartTime: "08:00"},
	}
	SortEntries(entries)
	assert.Equal(t, []Entry{
		{Day: "Monday", StartTime: "08:00"},
		{Day: "Monday", StartTime: "10:00"},
		{Day: "Wednesday", StartTime: "08:00"},
	}, entries)
}
